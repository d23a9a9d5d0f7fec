package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/gogetteranushka/wellness-agent-core/internal/models"
	"github.com/gogetteranushka/wellness-agent-core/internal/repository"
	"github.com/google/uuid"
)

var readOnlyProfileFields = map[string]struct{}{
	"user_id":         {},
	"created_at":      {},
	"updated_at":      {},
	"bmi":             {},
	"risk_level":      {},
	"status":          {},
	"condition_count": {},
	"email":           {},
	"display_name":    {},
	"full_name":       {},
}

type EditorState struct {
	Editing bool                `json:"editing"`
	Profile *models.UserProfile `json:"profile"`
	Draft   *models.UserProfile `json:"draft,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// ProfileEditor holds the last loaded profile and, while editing, a draft copy of it.
// Only Commit writes to the store.
type ProfileEditor struct {
	mu sync.Mutex

	userID    uuid.UUID
	loaded    *models.UserProfile
	base      *models.UserProfile
	draft     *models.UserProfile
	editing   bool
	lastError string

	profiles ProfileStore
}

func NewProfileEditor(userID uuid.UUID, profiles ProfileStore) *ProfileEditor {
	return &ProfileEditor{userID: userID, profiles: profiles}
}

// Load fetches the stored profile. A missing row is ErrNotOnboarded; any other failure is a *StoreError.
// Loading while editing refreshes the displayed record but not the draft or its baseline.
func (e *ProfileEditor) Load(ctx context.Context) (*models.UserProfile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.load(ctx)
}

func (e *ProfileEditor) load(ctx context.Context) (*models.UserProfile, error) {
	profile, err := e.profiles.GetByUserID(ctx, e.userID)
	if err != nil {
		return nil, storeFailure("load profile", err)
	}
	e.loaded = profile
	return profile.Clone(), nil
}

func (e *ProfileEditor) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded != nil
}

// BeginEdit copies the loaded profile into a draft. Calling it while already editing keeps the draft.
func (e *ProfileEditor) BeginEdit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loaded == nil {
		return ErrNotLoaded
	}
	if e.editing {
		return nil
	}
	e.base = e.loaded.Clone()
	e.draft = e.loaded.Clone()
	e.editing = true
	e.lastError = ""
	return nil
}

func (e *ProfileEditor) SetField(field string, value any) error {
	return e.SetFields(map[string]any{field: value})
}

// SetFields applies every change to the draft or none of them.
func (e *ProfileEditor) SetFields(fields map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.editing {
		return ErrNotEditing
	}
	next := e.draft.Clone()
	for field, value := range fields {
		if err := applyProfileField(next, field, value); err != nil {
			return err
		}
	}
	e.draft = next
	return nil
}

// Commit sends the changed draft fields as a partial update, then re-reads the stored row.
// On failure the editor stays in edit mode with the draft untouched.
func (e *ProfileEditor) Commit(ctx context.Context) (*models.UserProfile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.editing {
		return nil, ErrNotEditing
	}

	changes := diffProfile(e.base, e.draft)
	var written *models.UserProfile
	if !changes.IsEmpty() {
		profile, err := e.profiles.UpdatePartial(ctx, e.userID, changes)
		if err != nil {
			err = storeFailure("update profile", err)
			e.lastError = err.Error()
			return nil, err
		}
		written = profile
	}

	profile, err := e.load(ctx)
	if err != nil {
		if written == nil {
			e.lastError = err.Error()
			return nil, err
		}
		// the write landed; fall back to the row it returned
		e.loaded = written
		profile = written.Clone()
	}
	e.base = nil
	e.draft = nil
	e.editing = false
	e.lastError = ""
	return profile, nil
}

// Cancel drops the draft and leaves edit mode. It never touches the store.
func (e *ProfileEditor) Cancel() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.editing {
		return ErrNotEditing
	}
	e.base = nil
	e.draft = nil
	e.editing = false
	e.lastError = ""
	return nil
}

func (e *ProfileEditor) State() EditorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return EditorState{
		Editing: e.editing,
		Profile: e.loaded.Clone(),
		Draft:   e.draft.Clone(),
		Error:   e.lastError,
	}
}

func applyProfileField(p *models.UserProfile, field string, value any) error {
	field = strings.ToLower(strings.TrimSpace(field))
	if _, ok := readOnlyProfileFields[field]; ok {
		return fmt.Errorf("%w: %s", ErrReadOnlyField, field)
	}
	if value == nil {
		if _, known := editableProfileFields[field]; known {
			return newValidationError(field, "%s cannot be empty", field)
		}
	}

	switch field {
	case "age":
		age, ok := toNumber(value)
		if !ok || age != math.Trunc(age) || age < 0 || age > 150 {
			return newValidationError(field, "age must be a whole number between 0 and 150")
		}
		n := int(age)
		p.Age = &n
	case "gender":
		raw, _ := value.(string)
		gender, ok := canonicalOption(allowedGenders, raw)
		if !ok {
			return newValidationError(field, "gender must be one of %s", strings.Join(allowedGenders, ", "))
		}
		p.Gender = &gender
	case "height_cm", "weight_kg":
		n, ok := toNumber(value)
		if !ok || n <= 0 {
			return newValidationError(field, "%s must be greater than 0", field)
		}
		if field == "height_cm" {
			p.HeightCM = &n
		} else {
			p.WeightKG = &n
		}
	case "dietary_preferences":
		prefs := models.ParseDietaryPreferences(value)
		if prefs.Type != "" {
			if err := applyProfileField(p, "diet_type", prefs.Type); err != nil {
				return err
			}
		}
		if prefs.Goal != "" {
			if err := applyProfileField(p, "goal", prefs.Goal); err != nil {
				return err
			}
		}
	case "diet_type":
		raw, _ := value.(string)
		dietType, ok := canonicalOption(dietTypes, raw)
		if !ok {
			return newValidationError(field, "unknown diet type %q", raw)
		}
		p.DietaryPreferences.Type = dietType
	case "goal":
		raw, _ := value.(string)
		goal, ok := canonicalOption(goals, raw)
		if !ok {
			return newValidationError(field, "unknown goal %q", raw)
		}
		p.DietaryPreferences.Goal = goal
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

var editableProfileFields = map[string]struct{}{
	"age":                 {},
	"gender":              {},
	"height_cm":           {},
	"weight_kg":           {},
	"dietary_preferences": {},
	"diet_type":           {},
	"goal":                {},
}

func toNumber(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func diffProfile(base, draft *models.UserProfile) repository.UpdateUserProfileInput {
	var changes repository.UpdateUserProfileInput
	if !sameInt(base.Age, draft.Age) {
		changes.Age = draft.Age
	}
	if !sameString(base.Gender, draft.Gender) {
		changes.Gender = draft.Gender
	}
	if !sameFloat(base.HeightCM, draft.HeightCM) {
		changes.HeightCM = draft.HeightCM
	}
	if !sameFloat(base.WeightKG, draft.WeightKG) {
		changes.WeightKG = draft.WeightKG
	}
	if base.DietaryPreferences != draft.DietaryPreferences {
		prefs := draft.DietaryPreferences
		changes.DietaryPreferences = &prefs
	}
	return changes
}

func sameInt(a, b *int) bool {
	return (a == nil && b == nil) || (a != nil && b != nil && *a == *b)
}

func sameString(a, b *string) bool {
	return (a == nil && b == nil) || (a != nil && b != nil && *a == *b)
}

func sameFloat(a, b *float64) bool {
	return (a == nil && b == nil) || (a != nil && b != nil && *a == *b)
}
