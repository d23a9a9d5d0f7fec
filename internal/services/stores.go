package services

import (
	"context"

	"github.com/gogetteranushka/wellness-agent-core/internal/models"
	"github.com/gogetteranushka/wellness-agent-core/internal/repository"
	"github.com/google/uuid"
)

// ProfileStore is the user_profiles table. GetByUserID returns repository.ErrNotFound when no row exists.
type ProfileStore interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
	Upsert(ctx context.Context, userID uuid.UUID, req repository.UpsertUserProfileInput) (*models.UserProfile, error)
	UpdatePartial(ctx context.Context, userID uuid.UUID, req repository.UpdateUserProfileInput) (*models.UserProfile, error)
}

// ConditionStore is the user_conditions table.
type ConditionStore interface {
	InsertMany(ctx context.Context, userID uuid.UUID, rows []repository.ConditionInput) error
	Create(ctx context.Context, userID uuid.UUID, row repository.ConditionInput) (*models.ConditionRecord, error)
	ListByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.ConditionRecord, int, error)
}

// EventPublisher fans profile changes out to the user's other connections.
type EventPublisher interface {
	Publish(userID uuid.UUID, eventType string)
}

const (
	EventProfileUpdated  = "profile.updated"
	EventIntakeCompleted = "intake.completed"
)

type noopPublisher struct{}

func (noopPublisher) Publish(uuid.UUID, string) {}
