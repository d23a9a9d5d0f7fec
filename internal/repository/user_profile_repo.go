package repository

import (
	"context"
	"errors"

	"github.com/gogetteranushka/wellness-agent-core/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when no row matches; callers treat it as "not onboarded" for profiles.
var ErrNotFound = errors.New("record not found")

const userProfileColumns = `user_id, age, gender, height_cm, weight_kg, dietary_preferences, created_at, updated_at`

type UserProfileRepository struct {
	db DBTX
}

func NewUserProfileRepository(db DBTX) *UserProfileRepository {
	return &UserProfileRepository{db: db}
}

func (r *UserProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	query := `SELECT ` + userProfileColumns + ` FROM user_profiles WHERE user_id = $1`
	return scanUserProfile(r.db.QueryRow(ctx, query, userID))
}

func (r *UserProfileRepository) Upsert(ctx context.Context, userID uuid.UUID, req UpsertUserProfileInput) (*models.UserProfile, error) {
	query := `
		INSERT INTO user_profiles (user_id, age, gender, height_cm, weight_kg, dietary_preferences)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET age = EXCLUDED.age,
			gender = EXCLUDED.gender,
			height_cm = EXCLUDED.height_cm,
			weight_kg = EXCLUDED.weight_kg,
			dietary_preferences = EXCLUDED.dietary_preferences,
			updated_at = NOW()
		RETURNING ` + userProfileColumns
	return scanUserProfile(r.db.QueryRow(ctx, query,
		userID,
		req.Age,
		req.Gender,
		req.HeightCM,
		req.WeightKG,
		req.DietaryPreferences,
	))
}

func (r *UserProfileRepository) UpdatePartial(ctx context.Context, userID uuid.UUID, req UpdateUserProfileInput) (*models.UserProfile, error) {
	query := `
		UPDATE user_profiles
		SET age = COALESCE($1, age),
			gender = COALESCE($2, gender),
			height_cm = COALESCE($3, height_cm),
			weight_kg = COALESCE($4, weight_kg),
			dietary_preferences = COALESCE($5, dietary_preferences),
			updated_at = NOW()
		WHERE user_id = $6
		RETURNING ` + userProfileColumns
	var prefs any
	if req.DietaryPreferences != nil {
		prefs = *req.DietaryPreferences
	}
	return scanUserProfile(r.db.QueryRow(ctx, query,
		req.Age,
		req.Gender,
		req.HeightCM,
		req.WeightKG,
		prefs,
		userID,
	))
}

func scanUserProfile(row pgx.Row) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := row.Scan(
		&profile.UserID,
		&profile.Age,
		&profile.Gender,
		&profile.HeightCM,
		&profile.WeightKG,
		&profile.DietaryPreferences,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

type UpsertUserProfileInput struct {
	Age                int
	Gender             string
	HeightCM           float64
	WeightKG           float64
	DietaryPreferences models.DietaryPreferences
}

type UpdateUserProfileInput struct {
	Age                *int
	Gender             *string
	HeightCM           *float64
	WeightKG           *float64
	DietaryPreferences *models.DietaryPreferences
}

func (in UpdateUserProfileInput) IsEmpty() bool {
	return in.Age == nil && in.Gender == nil && in.HeightCM == nil && in.WeightKG == nil && in.DietaryPreferences == nil
}
