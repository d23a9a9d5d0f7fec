package services

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gogetteranushka/wellness-agent-core/internal/models"
	"github.com/gogetteranushka/wellness-agent-core/internal/repository"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type IntakeStep string

const (
	StepDemographics IntakeStep = "demographics"
	StepConditions   IntakeStep = "conditions"
	StepDietType     IntakeStep = "diet_type"
	StepGoal         IntakeStep = "goal"
	StepSubmitting   IntakeStep = "submitting"
	StepComplete     IntakeStep = "complete"
)

const intakeStepCount = 4

var intakeOrder = []IntakeStep{StepDemographics, StepConditions, StepDietType, StepGoal, StepSubmitting, StepComplete}

func (s IntakeStep) Number() int {
	for i, step := range intakeOrder {
		if step == s {
			if i >= intakeStepCount {
				return intakeStepCount
			}
			return i + 1
		}
	}
	return 0
}

type Demographics struct {
	Age      *int     `json:"age" validate:"required,gte=0,lte=150"`
	Gender   *string  `json:"gender" validate:"required,oneof=male female other"`
	HeightCM *float64 `json:"height_cm" validate:"required,gt=0"`
	WeightKG *float64 `json:"weight_kg" validate:"required,gt=0"`
}

// IntakeState is the read-only snapshot returned to clients.
type IntakeState struct {
	Step         IntakeStep   `json:"step"`
	StepNumber   int          `json:"step_number"`
	TotalSteps   int          `json:"total_steps"`
	Demographics Demographics `json:"demographics"`
	Conditions   []string     `json:"conditions"`
	DietType     string       `json:"diet_type"`
	Goal         string       `json:"goal"`
	ProfileSaved bool         `json:"profile_saved"`
	Error        string       `json:"error,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// IntakeWorkflow collects onboarding answers one step at a time and persists them with a
// profile upsert followed by a conditions insert. It is safe for concurrent use; the lock is
// held across the commit so a second submit waits for the first.
type IntakeWorkflow struct {
	mu sync.Mutex

	userID       uuid.UUID
	step         IntakeStep
	demographics Demographics
	conditions   []string
	dietType     string
	goal         string
	profileSaved bool
	lastError    string

	profiles   ProfileStore
	conditionS ConditionStore
	now        func() time.Time
}

func NewIntakeWorkflow(userID uuid.UUID, profiles ProfileStore, conditions ConditionStore) *IntakeWorkflow {
	return &IntakeWorkflow{
		userID:     userID,
		step:       StepDemographics,
		profiles:   profiles,
		conditionS: conditions,
		now:        time.Now,
	}
}

func (w *IntakeWorkflow) State() IntakeState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot()
}

func (w *IntakeWorkflow) Step() IntakeStep {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *IntakeWorkflow) SetDemographics(d Demographics) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireStep(StepDemographics); err != nil {
		return err
	}
	if d.Gender != nil {
		gender := strings.ToLower(strings.TrimSpace(*d.Gender))
		d.Gender = &gender
		if gender == "" {
			d.Gender = nil
		}
	}
	w.demographics = d
	return nil
}

// ToggleCondition flips one condition in the selection. "None" is exclusive with every other choice.
func (w *IntakeWorkflow) ToggleCondition(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireStep(StepConditions); err != nil {
		return err
	}
	condition, ok := canonicalOption(intakeConditions, name)
	if !ok {
		return newValidationError("condition", "unknown condition %q", name)
	}

	for i, selected := range w.conditions {
		if selected == condition {
			w.conditions = append(w.conditions[:i], w.conditions[i+1:]...)
			return nil
		}
	}

	if condition == ConditionNone {
		w.conditions = []string{ConditionNone}
		return nil
	}
	kept := w.conditions[:0]
	for _, selected := range w.conditions {
		if selected != ConditionNone {
			kept = append(kept, selected)
		}
	}
	w.conditions = append(kept, condition)
	return nil
}

func (w *IntakeWorkflow) SetDietType(dietType string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireStep(StepDietType); err != nil {
		return err
	}
	canonical, ok := canonicalOption(dietTypes, dietType)
	if !ok {
		return newValidationError("diet_type", "unknown diet type %q", dietType)
	}
	w.dietType = canonical
	return nil
}

func (w *IntakeWorkflow) SetGoal(goal string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireStep(StepGoal, StepSubmitting); err != nil {
		return err
	}
	canonical, ok := canonicalOption(goals, goal)
	if !ok {
		return newValidationError("goal", "unknown goal %q", goal)
	}
	w.goal = canonical
	return nil
}

// Next validates the current step and moves one step forward. The goal step only leaves through Submit.
func (w *IntakeWorkflow) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.step {
	case StepDemographics, StepConditions, StepDietType:
	case StepComplete:
		return ErrAlreadyComplete
	default:
		return fmt.Errorf("%w: submit to leave the %s step", ErrInvalidTransition, w.step)
	}
	if err := w.validateStep(w.step); err != nil {
		return err
	}
	w.step = intakeOrder[w.step.Number()]
	w.lastError = ""
	return nil
}

func (w *IntakeWorkflow) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.step {
	case StepDemographics:
		return fmt.Errorf("%w: already on the first step", ErrInvalidTransition)
	case StepComplete:
		return ErrAlreadyComplete
	case StepSubmitting:
		w.step = StepGoal
	default:
		w.step = intakeOrder[w.step.Number()-2]
	}
	w.lastError = ""
	return nil
}

// Submit runs the two-phase commit. A profile write failure returns *ProfileWriteError and
// skips the conditions write. A conditions write failure returns *ConditionsWriteError and
// leaves the saved profile in place. Either way the workflow stays in StepSubmitting so the
// caller can retry.
func (w *IntakeWorkflow) Submit(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.step {
	case StepGoal, StepSubmitting:
	case StepComplete:
		return ErrAlreadyComplete
	default:
		return fmt.Errorf("%w: cannot submit from the %s step", ErrInvalidTransition, w.step)
	}
	for _, step := range []IntakeStep{StepDemographics, StepConditions, StepDietType, StepGoal} {
		if err := w.validateStep(step); err != nil {
			return err
		}
	}
	w.step = StepSubmitting
	w.lastError = ""

	d := w.demographics
	_, err := w.profiles.Upsert(ctx, w.userID, repository.UpsertUserProfileInput{
		Age:      *d.Age,
		Gender:   *d.Gender,
		HeightCM: *d.HeightCM,
		WeightKG: *d.WeightKG,
		DietaryPreferences: models.DietaryPreferences{
			Type: w.dietType,
			Goal: w.goal,
		},
	})
	if err != nil {
		w.lastError = err.Error()
		return &ProfileWriteError{Err: err}
	}
	w.profileSaved = true

	if rows := w.conditionRows(); len(rows) > 0 {
		if err := w.conditionS.InsertMany(ctx, w.userID, rows); err != nil {
			w.lastError = err.Error()
			return &ConditionsWriteError{Err: err}
		}
	}

	w.step = StepComplete
	return nil
}

func (w *IntakeWorkflow) conditionRows() []repository.ConditionInput {
	now := w.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	rows := make([]repository.ConditionInput, 0, len(w.conditions))
	for _, condition := range w.conditions {
		if condition == ConditionNone {
			continue
		}
		rows = append(rows, repository.ConditionInput{ConditionName: condition, DiagnosedDate: today})
	}
	return rows
}

func (w *IntakeWorkflow) validateStep(step IntakeStep) error {
	switch step {
	case StepDemographics:
		return validateDemographics(w.demographics)
	case StepConditions:
		if len(w.conditions) == 0 {
			return newValidationError("conditions", "select at least one condition, or None")
		}
	case StepDietType:
		if w.dietType == "" {
			return newValidationError("diet_type", "diet type is required")
		}
	case StepGoal:
		if w.goal == "" {
			return newValidationError("goal", "goal is required")
		}
	}
	return nil
}

func validateDemographics(d Demographics) error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return newValidationError("demographics", "%s", err.Error())
	}
	first := fieldErrors[0]
	switch first.Tag() {
	case "required":
		return newValidationError(first.Field(), "%s is required", first.Field())
	case "oneof":
		return newValidationError(first.Field(), "%s must be one of %s", first.Field(), strings.Join(allowedGenders, ", "))
	case "gt":
		return newValidationError(first.Field(), "%s must be greater than %s", first.Field(), first.Param())
	case "gte", "lte":
		return newValidationError(first.Field(), "%s must be between 0 and 150", first.Field())
	default:
		return newValidationError(first.Field(), "%s is invalid", first.Field())
	}
}

func (w *IntakeWorkflow) requireStep(allowed ...IntakeStep) error {
	if w.step == StepComplete {
		return ErrAlreadyComplete
	}
	for _, step := range allowed {
		if w.step == step {
			return nil
		}
	}
	return fmt.Errorf("%w: current step is %s", ErrInvalidTransition, w.step)
}

func (w *IntakeWorkflow) snapshot() IntakeState {
	return IntakeState{
		Step:         w.step,
		StepNumber:   w.step.Number(),
		TotalSteps:   intakeStepCount,
		Demographics: w.demographics,
		Conditions:   append([]string{}, w.conditions...),
		DietType:     w.dietType,
		Goal:         w.goal,
		ProfileSaved: w.profileSaved,
		Error:        w.lastError,
	}
}
