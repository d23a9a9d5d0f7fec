package repository

import (
	"context"
	"time"

	"github.com/gogetteranushka/wellness-agent-core/internal/models"
	"github.com/google/uuid"
)

type ConditionRepository struct {
	db DBTX
}

func NewConditionRepository(db DBTX) *ConditionRepository {
	return &ConditionRepository{db: db}
}

type ConditionInput struct {
	ConditionName string
	DiagnosedDate time.Time
}

// InsertMany writes every row in one statement, so a failure leaves none of them behind.
func (r *ConditionRepository) InsertMany(ctx context.Context, userID uuid.UUID, rows []ConditionInput) error {
	if len(rows) == 0 {
		return nil
	}
	names := make([]string, len(rows))
	dates := make([]time.Time, len(rows))
	for i, row := range rows {
		names[i] = row.ConditionName
		dates[i] = row.DiagnosedDate
	}

	// date[] binds each time.Time by its calendar date, independent of the session TimeZone
	query := `
		INSERT INTO user_conditions (user_id, condition_name, diagnosed_date)
		SELECT $1, name, diagnosed
		FROM unnest($2::text[], $3::date[]) AS t(name, diagnosed)
	`
	_, err := r.db.Exec(ctx, query, userID, names, dates)
	return err
}

func (r *ConditionRepository) Create(ctx context.Context, userID uuid.UUID, row ConditionInput) (*models.ConditionRecord, error) {
	query := `
		INSERT INTO user_conditions (user_id, condition_name, diagnosed_date)
		VALUES ($1, $2, $3::date)
		RETURNING id, user_id, condition_name, diagnosed_date, created_at
	`
	var record models.ConditionRecord
	err := r.db.QueryRow(ctx, query, userID, row.ConditionName, row.DiagnosedDate).Scan(
		&record.ID,
		&record.UserID,
		&record.ConditionName,
		&record.DiagnosedDate,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *ConditionRepository) ListByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.ConditionRecord, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM user_conditions WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, user_id, condition_name, diagnosed_date, created_at
		FROM user_conditions
		WHERE user_id = $1
		ORDER BY diagnosed_date DESC, id DESC
		OFFSET $2 LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, userID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records := make([]models.ConditionRecord, 0)
	for rows.Next() {
		var record models.ConditionRecord
		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.ConditionName,
			&record.DiagnosedDate,
			&record.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
