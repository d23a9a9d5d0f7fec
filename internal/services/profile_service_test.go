package services

import (
	"context"
	"testing"
	"time"

	"github.com/gogetteranushka/wellness-agent-core/internal/repository"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProfileService(store *memStore, events *stubPublisher) *ProfileService {
	return NewProfileService(store, store, ProfileServiceOptions{
		DraftTTL:      time.Minute,
		DraftCapacity: 10,
		Events:        events,
		Now:           func() time.Time { return fixedNow },
	})
}

func TestProfileServiceGetViewDerivesHealth(t *testing.T) {
	store := newMemStore()
	userID := seedProfile(store)
	require.NoError(t, store.InsertMany(context.Background(), userID, []repository.ConditionInput{
		{ConditionName: "Diabetes", DiagnosedDate: fixedNow},
		{ConditionName: "Diabetes", DiagnosedDate: fixedNow},
	}))
	svc := newTestProfileService(store, &stubPublisher{})

	view, err := svc.GetView(context.Background(), userID)

	require.NoError(t, err)
	assert.Len(t, view.Conditions, 2)
	assert.Equal(t, "high", view.Derived.RiskLevel)
	assert.Equal(t, "attention", view.Derived.Status)
	require.NotNil(t, view.Derived.BMI)
	assert.InDelta(t, 55/(1.6*1.6), *view.Derived.BMI, 1e-9)
}

func TestProfileServiceGetViewNotOnboarded(t *testing.T) {
	svc := newTestProfileService(newMemStore(), &stubPublisher{})

	_, err := svc.GetView(context.Background(), uuid.New())

	assert.ErrorIs(t, err, ErrNotOnboarded)
}

func TestProfileServiceEditFlow(t *testing.T) {
	store := newMemStore()
	userID := seedProfile(store)
	events := &stubPublisher{}
	svc := newTestProfileService(store, events)

	state, err := svc.BeginEdit(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, state.Editing)

	state, err = svc.SetFields(userID, map[string]any{"height_cm": 165.0})
	require.NoError(t, err)
	assert.Equal(t, 165.0, *state.Draft.HeightCM)

	view, err := svc.Commit(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 165.0, *view.Profile.HeightCM)
	assert.Equal(t, "low", view.Derived.RiskLevel)
	require.Len(t, events.events, 1)
	assert.Equal(t, EventProfileUpdated, events.events[0].eventType)

	_, err = svc.Commit(context.Background(), userID)
	assert.ErrorIs(t, err, ErrNotEditing)
}

func TestProfileServiceCancelRestoresLoadedProfile(t *testing.T) {
	store := newMemStore()
	userID := seedProfile(store)
	svc := newTestProfileService(store, &stubPublisher{})
	_, err := svc.BeginEdit(context.Background(), userID)
	require.NoError(t, err)
	_, err = svc.SetFields(userID, map[string]any{"age": 99.0})
	require.NoError(t, err)

	state, err := svc.Cancel(userID)

	require.NoError(t, err)
	assert.False(t, state.Editing)
	assert.Equal(t, 30, *state.Profile.Age)
	assert.Zero(t, store.writes())
}

func TestProfileServiceLogConditionDefaultsToToday(t *testing.T) {
	store := newMemStore()
	userID := seedProfile(store)
	events := &stubPublisher{}
	svc := newTestProfileService(store, events)

	record, err := svc.LogCondition(context.Background(), userID, "  Migraine ", nil)

	require.NoError(t, err)
	assert.Equal(t, "Migraine", record.ConditionName)
	assert.Equal(t, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), record.DiagnosedDate)
	assert.Len(t, events.events, 1)

	diagnosed := time.Date(2024, 3, 9, 18, 0, 0, 0, time.UTC)
	record, err = svc.LogCondition(context.Background(), userID, "Asthma", &diagnosed)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), record.DiagnosedDate)
}

func TestProfileServiceLogConditionValidation(t *testing.T) {
	store := newMemStore()
	userID := seedProfile(store)
	svc := newTestProfileService(store, &stubPublisher{})

	_, err := svc.LogCondition(context.Background(), userID, " ", nil)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.LogCondition(context.Background(), userID, "none", nil)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.LogCondition(context.Background(), uuid.New(), "Asthma", nil)
	assert.ErrorIs(t, err, ErrNotOnboarded)
}

func TestProfileServiceListConditionsPaginates(t *testing.T) {
	store := newMemStore()
	userID := seedProfile(store)
	for _, name := range []string{"A", "B", "C"} {
		_, err := store.Create(context.Background(), userID, repository.ConditionInput{ConditionName: name, DiagnosedDate: fixedNow})
		require.NoError(t, err)
	}
	svc := newTestProfileService(store, &stubPublisher{})

	rows, total, err := svc.ListConditions(context.Background(), userID, 2, 2)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "C", rows[0].ConditionName)
	assert.Equal(t, 3, total)
}

func TestProfileServiceCommitDegradesViewWhenConditionsFail(t *testing.T) {
	store := newMemStore()
	userID := seedProfile(store)
	svc := newTestProfileService(store, &stubPublisher{})
	_, err := svc.BeginEdit(context.Background(), userID)
	require.NoError(t, err)
	_, err = svc.SetFields(userID, map[string]any{"weight_kg": 58.0})
	require.NoError(t, err)
	store.listErr = errors.New("statement timeout")

	view, err := svc.Commit(context.Background(), userID)

	require.NoError(t, err)
	assert.True(t, view.ConditionsUnavailable)
	assert.Empty(t, view.Conditions)
	assert.Empty(t, view.Derived.RiskLevel)
	require.NotNil(t, view.Derived.BMI)
	assert.InDelta(t, 58/(1.6*1.6), *view.Derived.BMI, 1e-9)
	assert.Equal(t, 58.0, *store.profiles[userID].WeightKG)
	assert.False(t, svc.EditorState(userID).Editing)
}

func TestProfileServiceStoreFailuresAreTyped(t *testing.T) {
	store := newMemStore()
	userID := seedProfile(store)
	svc := newTestProfileService(store, &stubPublisher{})
	weight := 70.0

	store.updateErr = errors.New("new row violates check constraint weight_kg_positive")
	_, err := svc.UpdateProfile(context.Background(), userID, repository.UpdateUserProfileInput{WeightKG: &weight})
	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "update profile", storeErr.Op)
	assert.Equal(t, "new row violates check constraint weight_kg_positive", err.Error())

	store.createErr = errors.New("value too long")
	_, err = svc.LogCondition(context.Background(), userID, "Asthma", nil)
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "log condition", storeErr.Op)

	store.listErr = errors.New("statement timeout")
	_, _, err = svc.ListConditions(context.Background(), userID, 1, 10)
	require.ErrorAs(t, err, &storeErr)
	_, err = svc.GetView(context.Background(), userID)
	require.ErrorAs(t, err, &storeErr)
}
