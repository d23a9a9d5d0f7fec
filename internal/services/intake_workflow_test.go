package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/gogetteranushka/wellness-agent-core/internal/health"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 17, 15, 4, 5, 0, time.UTC)

func newTestWorkflow(store *memStore) *IntakeWorkflow {
	wf := NewIntakeWorkflow(uuid.New(), store, store)
	wf.now = func() time.Time { return fixedNow }
	return wf
}

func validDemographics() Demographics {
	return Demographics{
		Age:      intPtr(25),
		Gender:   stringPtr("male"),
		HeightCM: floatPtr(170),
		WeightKG: floatPtr(65),
	}
}

func advanceToGoal(t *testing.T, wf *IntakeWorkflow, conditions ...string) {
	t.Helper()
	require.NoError(t, wf.SetDemographics(validDemographics()))
	require.NoError(t, wf.Next())
	for _, condition := range conditions {
		require.NoError(t, wf.ToggleCondition(condition))
	}
	require.NoError(t, wf.Next())
	require.NoError(t, wf.SetDietType("Vegetarian"))
	require.NoError(t, wf.Next())
	require.NoError(t, wf.SetGoal("Weight Loss"))
}

func TestIntakeDemographicsRequireEveryField(t *testing.T) {
	cases := map[string]func(*Demographics){
		"age":       func(d *Demographics) { d.Age = nil },
		"gender":    func(d *Demographics) { d.Gender = nil },
		"height_cm": func(d *Demographics) { d.HeightCM = nil },
		"weight_kg": func(d *Demographics) { d.WeightKG = nil },
	}

	for field, clear := range cases {
		t.Run(field, func(t *testing.T) {
			store := newMemStore()
			wf := newTestWorkflow(store)
			d := validDemographics()
			clear(&d)
			require.NoError(t, wf.SetDemographics(d))

			err := wf.Next()

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, field, validationErr.Field)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, StepDemographics, wf.Step())
			assert.Zero(t, store.writes())
		})
	}
}

func TestIntakeDemographicsBlankGenderIsMissing(t *testing.T) {
	wf := newTestWorkflow(newMemStore())
	d := validDemographics()
	d.Gender = stringPtr("  ")
	require.NoError(t, wf.SetDemographics(d))

	err := wf.Next()

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "gender is required", validationErr.Message)
}

func TestIntakeDemographicsRejectsZeroHeight(t *testing.T) {
	wf := newTestWorkflow(newMemStore())
	d := validDemographics()
	d.HeightCM = floatPtr(0)
	require.NoError(t, wf.SetDemographics(d))

	assert.ErrorIs(t, wf.Next(), ErrValidation)
	assert.Equal(t, StepDemographics, wf.Step())
}

func TestIntakeConditionNoneIsExclusive(t *testing.T) {
	wf := newTestWorkflow(newMemStore())
	require.NoError(t, wf.SetDemographics(validDemographics()))
	require.NoError(t, wf.Next())

	require.NoError(t, wf.ToggleCondition("Diabetes"))
	require.NoError(t, wf.ToggleCondition("Hypertension"))
	assert.Equal(t, []string{"Diabetes", "Hypertension"}, wf.State().Conditions)

	require.NoError(t, wf.ToggleCondition("None"))
	assert.Equal(t, []string{"None"}, wf.State().Conditions)

	require.NoError(t, wf.ToggleCondition("diabetes"))
	assert.Equal(t, []string{"Diabetes"}, wf.State().Conditions)

	require.NoError(t, wf.ToggleCondition("Diabetes"))
	assert.Empty(t, wf.State().Conditions)
	assert.ErrorIs(t, wf.Next(), ErrValidation)
	assert.Equal(t, StepConditions, wf.Step())
}

func TestIntakeRejectsUnknownOptions(t *testing.T) {
	wf := newTestWorkflow(newMemStore())
	require.NoError(t, wf.SetDemographics(validDemographics()))
	require.NoError(t, wf.Next())

	assert.ErrorIs(t, wf.ToggleCondition("Gout"), ErrValidation)
	require.NoError(t, wf.ToggleCondition("None"))
	require.NoError(t, wf.Next())

	assert.ErrorIs(t, wf.SetDietType("Carnivore"), ErrValidation)
	assert.ErrorIs(t, wf.Next(), ErrValidation)
	assert.Equal(t, StepDietType, wf.Step())
}

func TestIntakeSettersOnlyApplyToCurrentStep(t *testing.T) {
	wf := newTestWorkflow(newMemStore())

	assert.ErrorIs(t, wf.ToggleCondition("Diabetes"), ErrInvalidTransition)
	assert.ErrorIs(t, wf.SetGoal("Weight Loss"), ErrInvalidTransition)
	assert.ErrorIs(t, wf.Back(), ErrInvalidTransition)
	assert.ErrorIs(t, wf.Submit(context.Background()), ErrInvalidTransition)
}

func TestIntakeBackKeepsAnswers(t *testing.T) {
	wf := newTestWorkflow(newMemStore())
	advanceToGoal(t, wf, "Hypertension")

	require.NoError(t, wf.Back())
	assert.Equal(t, StepDietType, wf.Step())
	require.NoError(t, wf.Back())
	require.NoError(t, wf.Back())
	assert.Equal(t, StepDemographics, wf.Step())

	state := wf.State()
	assert.Equal(t, []string{"Hypertension"}, state.Conditions)
	assert.Equal(t, "Vegetarian", state.DietType)
	assert.Equal(t, 1, state.StepNumber)
}

func TestIntakeNextDoesNotLeaveGoalStep(t *testing.T) {
	wf := newTestWorkflow(newMemStore())
	advanceToGoal(t, wf, "None")

	assert.ErrorIs(t, wf.Next(), ErrInvalidTransition)
	assert.Equal(t, StepGoal, wf.Step())
}

func TestIntakeSubmitScenario(t *testing.T) {
	store := newMemStore()
	wf := newTestWorkflow(store)
	advanceToGoal(t, wf, "Hypertension")

	require.NoError(t, wf.Submit(context.Background()))

	assert.Equal(t, StepComplete, wf.Step())
	assert.Equal(t, 1, store.upsertCalls)
	assert.Equal(t, `{"type":"Vegetarian","goal":"Weight Loss"}`, store.lastUpsert.DietaryPreferences.String())
	assert.Equal(t, 25, store.lastUpsert.Age)
	assert.Equal(t, "male", store.lastUpsert.Gender)

	require.Equal(t, 1, store.insertCalls)
	require.Len(t, store.lastInsert, 1)
	assert.Equal(t, "Hypertension", store.lastInsert[0].ConditionName)
	assert.Equal(t, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), store.lastInsert[0].DiagnosedDate)

	profile, err := store.GetByUserID(context.Background(), wf.userID)
	require.NoError(t, err)
	_, total, err := store.ListByUserID(context.Background(), wf.userID, 0, 10)
	require.NoError(t, err)
	derived := health.Derive(profile, total)
	assert.Equal(t, "medium", derived.RiskLevel)
	require.NotNil(t, derived.BMI)
	assert.InDelta(t, 65/math.Pow(1.7, 2), *derived.BMI, 1e-9)
	assert.InDelta(t, 22.5, *derived.BMI, 0.05)

	assert.ErrorIs(t, wf.Submit(context.Background()), ErrAlreadyComplete)
}

func TestIntakeSubmitNoneSkipsConditionsWrite(t *testing.T) {
	store := newMemStore()
	wf := newTestWorkflow(store)
	advanceToGoal(t, wf, "None")

	require.NoError(t, wf.Submit(context.Background()))

	assert.Equal(t, 1, store.upsertCalls)
	assert.Zero(t, store.insertCalls)
	assert.Equal(t, StepComplete, wf.Step())
}

func TestIntakeSubmitProfileFailureSkipsConditions(t *testing.T) {
	store := newMemStore()
	store.upsertErr = errors.New("permission denied for table user_profiles")
	wf := newTestWorkflow(store)
	advanceToGoal(t, wf, "Diabetes")

	err := wf.Submit(context.Background())

	var profileErr *ProfileWriteError
	require.ErrorAs(t, err, &profileErr)
	assert.Equal(t, "permission denied for table user_profiles", err.Error())
	assert.Zero(t, store.insertCalls)
	state := wf.State()
	assert.Equal(t, StepSubmitting, state.Step)
	assert.False(t, state.ProfileSaved)
	assert.Equal(t, "permission denied for table user_profiles", state.Error)
}

func TestIntakeSubmitConditionsFailureKeepsProfile(t *testing.T) {
	store := newMemStore()
	store.insertErr = errors.New("insert conditions: status 500: boom")
	wf := newTestWorkflow(store)
	advanceToGoal(t, wf, "Diabetes", "Hypertension")

	err := wf.Submit(context.Background())

	var conditionsErr *ConditionsWriteError
	require.ErrorAs(t, err, &conditionsErr)
	state := wf.State()
	assert.Equal(t, StepSubmitting, state.Step)
	assert.True(t, state.ProfileSaved)

	_, getErr := store.GetByUserID(context.Background(), wf.userID)
	assert.NoError(t, getErr)

	store.insertErr = nil
	require.NoError(t, wf.Submit(context.Background()))
	assert.Equal(t, 2, store.upsertCalls)
	assert.Equal(t, StepComplete, wf.Step())
}

func TestIntakeBackFromSubmittingReturnsToGoal(t *testing.T) {
	store := newMemStore()
	store.upsertErr = errors.New("offline")
	wf := newTestWorkflow(store)
	advanceToGoal(t, wf, "None")
	require.Error(t, wf.Submit(context.Background()))

	require.NoError(t, wf.Back())
	assert.Equal(t, StepGoal, wf.Step())
	assert.Empty(t, wf.State().Error)
}
