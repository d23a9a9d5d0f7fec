package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gogetteranushka/wellness-agent-core/internal/health"
	"github.com/gogetteranushka/wellness-agent-core/internal/metrics"
	"github.com/gogetteranushka/wellness-agent-core/internal/models"
	"github.com/gogetteranushka/wellness-agent-core/internal/repository"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// conditions shown inline with the profile view; the full list is paginated separately
const profileViewConditionLimit = 50

const maxConditionNameLength = 100

type ProfileServiceOptions struct {
	DraftTTL      time.Duration
	DraftCapacity int
	Events        EventPublisher
	Metrics       *metrics.Recorder
	Logger        *slog.Logger
	Now           func() time.Time
}

type ProfileService struct {
	profiles   ProfileStore
	conditions ConditionStore
	editors    *draftCache[uuid.UUID, *ProfileEditor]
	commits    singleflight.Group
	events     EventPublisher
	metrics    *metrics.Recorder
	logger     *slog.Logger
	now        func() time.Time
}

func NewProfileService(profiles ProfileStore, conditions ConditionStore, opts ProfileServiceOptions) *ProfileService {
	s := &ProfileService{
		profiles:   profiles,
		conditions: conditions,
		editors:    newDraftCache[uuid.UUID, *ProfileEditor](opts.DraftCapacity, opts.DraftTTL),
		events:     opts.Events,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	if s.events == nil {
		s.events = noopPublisher{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *ProfileService) editor(userID uuid.UUID) *ProfileEditor {
	editor := s.editors.GetOrCreate(userID, func() *ProfileEditor {
		return NewProfileEditor(userID, s.profiles)
	})
	s.metrics.SetActiveDrafts("editor", s.editors.Len())
	return editor
}

// GetView loads the profile with its conditions and derived health values.
func (s *ProfileService) GetView(ctx context.Context, userID uuid.UUID) (*models.ProfileView, error) {
	profile, err := s.editor(userID).Load(ctx)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, profile)
}

func (s *ProfileService) view(ctx context.Context, profile *models.UserProfile) (*models.ProfileView, error) {
	conditions, total, err := s.conditions.ListByUserID(ctx, profile.UserID, 0, profileViewConditionLimit)
	if err != nil {
		return nil, storeFailure("list conditions", err)
	}
	if conditions == nil {
		conditions = []models.ConditionRecord{}
	}
	return &models.ProfileView{
		Profile:    profile,
		Conditions: conditions,
		Derived:    health.Derive(profile, total),
	}, nil
}

// viewAfterWrite is the view returned once a write has landed. A failed condition read degrades the
// view instead of reporting an error for a saved profile.
func (s *ProfileService) viewAfterWrite(ctx context.Context, profile *models.UserProfile) *models.ProfileView {
	view, err := s.view(ctx, profile)
	if err == nil {
		return view
	}
	s.logger.Warn("profile saved but conditions could not be read", "user_id", profile.UserID, "error", err)
	derived := models.DerivedHealth{}
	if bmi, ok := health.ComputeBMI(profile.WeightKG, profile.HeightCM); ok {
		derived.BMI = &bmi
	}
	return &models.ProfileView{
		Profile:               profile,
		Conditions:            []models.ConditionRecord{},
		Derived:               derived,
		ConditionsUnavailable: true,
	}
}

// UpdateProfile applies a partial update directly, without going through edit mode.
// Preference keys left empty keep their stored values.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID uuid.UUID, req repository.UpdateUserProfileInput) (*models.ProfileView, error) {
	if req.DietaryPreferences != nil {
		current, err := s.profiles.GetByUserID(ctx, userID)
		if err != nil {
			return nil, storeFailure("load profile", err)
		}
		merged := *req.DietaryPreferences
		if merged.Type == "" {
			merged.Type = current.DietaryPreferences.Type
		}
		if merged.Goal == "" {
			merged.Goal = current.DietaryPreferences.Goal
		}
		req.DietaryPreferences = &merged
	}
	written, err := s.profiles.UpdatePartial(ctx, userID, req)
	if err != nil {
		return nil, storeFailure("update profile", err)
	}
	s.events.Publish(userID, EventProfileUpdated)
	profile, err := s.editor(userID).Load(ctx)
	if err != nil {
		profile = written
	}
	return s.viewAfterWrite(ctx, profile), nil
}

func (s *ProfileService) EditorState(userID uuid.UUID) EditorState {
	return s.editor(userID).State()
}

// BeginEdit loads the profile first when this user has no loaded copy yet.
func (s *ProfileService) BeginEdit(ctx context.Context, userID uuid.UUID) (EditorState, error) {
	editor := s.editor(userID)
	if !editor.Loaded() {
		if _, err := editor.Load(ctx); err != nil {
			return editor.State(), err
		}
	}
	err := editor.BeginEdit()
	return editor.State(), err
}

func (s *ProfileService) SetFields(userID uuid.UUID, fields map[string]any) (EditorState, error) {
	editor := s.editor(userID)
	err := editor.SetFields(fields)
	return editor.State(), err
}

// Commit persists the draft. Concurrent commits for the same user share one write.
func (s *ProfileService) Commit(ctx context.Context, userID uuid.UUID) (*models.ProfileView, error) {
	editor := s.editor(userID)
	result, err, _ := s.commits.Do(userID.String(), func() (any, error) {
		return editor.Commit(ctx)
	})
	if err != nil {
		if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotEditing) {
			s.metrics.ProfileCommit("invalid")
		} else {
			s.metrics.ProfileCommit("failed")
			s.logger.Error("profile commit failed", "user_id", userID, "error", err)
		}
		return nil, err
	}
	s.metrics.ProfileCommit("ok")
	s.events.Publish(userID, EventProfileUpdated)
	return s.viewAfterWrite(ctx, result.(*models.UserProfile)), nil
}

func (s *ProfileService) Cancel(userID uuid.UUID) (EditorState, error) {
	editor := s.editor(userID)
	err := editor.Cancel()
	return editor.State(), err
}

func (s *ProfileService) ListConditions(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.ConditionRecord, int, error) {
	rows, total, err := s.conditions.ListByUserID(ctx, userID, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, storeFailure("list conditions", err)
	}
	if rows == nil {
		rows = []models.ConditionRecord{}
	}
	return rows, total, nil
}

// LogCondition records a free-form condition. A nil diagnosed date means today.
func (s *ProfileService) LogCondition(ctx context.Context, userID uuid.UUID, name string, diagnosed *time.Time) (*models.ConditionRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newValidationError("condition_name", "condition_name is required")
	}
	if len(name) > maxConditionNameLength {
		return nil, newValidationError("condition_name", "condition_name must be at most %d characters", maxConditionNameLength)
	}
	if strings.EqualFold(name, ConditionNone) {
		return nil, newValidationError("condition_name", "None is not a condition")
	}

	if _, err := s.profiles.GetByUserID(ctx, userID); err != nil {
		return nil, storeFailure("load profile", err)
	}

	date := s.now().UTC()
	if diagnosed != nil {
		date = diagnosed.UTC()
	}
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	record, err := s.conditions.Create(ctx, userID, repository.ConditionInput{ConditionName: name, DiagnosedDate: date})
	if err != nil {
		return nil, storeFailure("log condition", err)
	}
	s.events.Publish(userID, EventProfileUpdated)
	return record, nil
}
