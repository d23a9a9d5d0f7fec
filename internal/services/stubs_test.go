package services

import (
	"context"
	"sync"
	"time"

	"github.com/gogetteranushka/wellness-agent-core/internal/models"
	"github.com/gogetteranushka/wellness-agent-core/internal/repository"
	"github.com/google/uuid"
)

// memStore is an in-memory ProfileStore and ConditionStore that counts every call.
type memStore struct {
	mu sync.Mutex

	profiles   map[uuid.UUID]*models.UserProfile
	conditions []models.ConditionRecord

	getErr        error
	upsertErr     error
	updateErr     error
	insertErr     error
	createErr     error
	listErr       error
	upsertCalls   int
	updateCalls   int
	insertCalls   int
	lastUpsert    repository.UpsertUserProfileInput
	lastUpdate    repository.UpdateUserProfileInput
	lastInsert    []repository.ConditionInput
	upsertStarted chan struct{}
	upsertRelease chan struct{}
}

func newMemStore() *memStore {
	return &memStore{profiles: make(map[uuid.UUID]*models.UserProfile)}
}

func (s *memStore) writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertCalls + s.updateCalls + s.insertCalls
}

func (s *memStore) GetByUserID(_ context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	profile, ok := s.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return profile.Clone(), nil
}

func (s *memStore) Upsert(_ context.Context, userID uuid.UUID, req repository.UpsertUserProfileInput) (*models.UserProfile, error) {
	if s.upsertStarted != nil {
		s.upsertStarted <- struct{}{}
		<-s.upsertRelease
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertCalls++
	s.lastUpsert = req
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}
	age, gender, height, weight := req.Age, req.Gender, req.HeightCM, req.WeightKG
	profile := &models.UserProfile{
		UserID:             userID,
		Age:                &age,
		Gender:             &gender,
		HeightCM:           &height,
		WeightKG:           &weight,
		DietaryPreferences: req.DietaryPreferences,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
	s.profiles[userID] = profile
	return profile.Clone(), nil
}

func (s *memStore) UpdatePartial(_ context.Context, userID uuid.UUID, req repository.UpdateUserProfileInput) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls++
	s.lastUpdate = req
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	profile, ok := s.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if req.Age != nil {
		profile.Age = req.Age
	}
	if req.Gender != nil {
		profile.Gender = req.Gender
	}
	if req.HeightCM != nil {
		profile.HeightCM = req.HeightCM
	}
	if req.WeightKG != nil {
		profile.WeightKG = req.WeightKG
	}
	if req.DietaryPreferences != nil {
		profile.DietaryPreferences = *req.DietaryPreferences
	}
	profile.UpdatedAt = time.Now()
	return profile.Clone(), nil
}

func (s *memStore) InsertMany(_ context.Context, userID uuid.UUID, rows []repository.ConditionInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertCalls++
	s.lastInsert = rows
	if s.insertErr != nil {
		return s.insertErr
	}
	for _, row := range rows {
		s.conditions = append(s.conditions, models.ConditionRecord{
			ID:            int64(len(s.conditions) + 1),
			UserID:        userID,
			ConditionName: row.ConditionName,
			DiagnosedDate: row.DiagnosedDate,
		})
	}
	return nil
}

func (s *memStore) Create(_ context.Context, userID uuid.UUID, row repository.ConditionInput) (*models.ConditionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertCalls++
	if s.createErr != nil {
		return nil, s.createErr
	}
	record := models.ConditionRecord{
		ID:            int64(len(s.conditions) + 1),
		UserID:        userID,
		ConditionName: row.ConditionName,
		DiagnosedDate: row.DiagnosedDate,
	}
	s.conditions = append(s.conditions, record)
	return &record, nil
}

func (s *memStore) ListByUserID(_ context.Context, userID uuid.UUID, offset, limit int) ([]models.ConditionRecord, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	var mine []models.ConditionRecord
	for _, record := range s.conditions {
		if record.UserID == userID {
			mine = append(mine, record)
		}
	}
	total := len(mine)
	if offset >= total {
		return []models.ConditionRecord{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return mine[offset:end], total, nil
}

type recordedEvent struct {
	userID    uuid.UUID
	eventType string
}

type stubPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *stubPublisher) Publish(userID uuid.UUID, eventType string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{userID: userID, eventType: eventType})
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func stringPtr(v string) *string  { return &v }
