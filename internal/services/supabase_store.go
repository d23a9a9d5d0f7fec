package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gogetteranushka/wellness-agent-core/internal/models"
	"github.com/gogetteranushka/wellness-agent-core/internal/repository"
	"github.com/google/uuid"
)

const supabaseDateLayout = "2006-01-02"

// SupabaseStore reads and writes the profile tables through the Supabase REST API with the service key.
// It satisfies ProfileStore and ConditionStore.
type SupabaseStore struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

func NewSupabaseStore(baseURL, serviceKey string, httpClient *http.Client) *SupabaseStore {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SupabaseStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: httpClient,
	}
}

type supabaseProfileRow struct {
	UserID             uuid.UUID                 `json:"user_id"`
	Age                *int                      `json:"age"`
	Gender             *string                   `json:"gender"`
	HeightCM           *float64                  `json:"height_cm"`
	WeightKG           *float64                  `json:"weight_kg"`
	DietaryPreferences models.DietaryPreferences `json:"dietary_preferences"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}

type supabaseConditionRow struct {
	ID            int64     `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	ConditionName string    `json:"condition_name"`
	DiagnosedDate string    `json:"diagnosed_date"`
	CreatedAt     time.Time `json:"created_at"`
}

func (r supabaseProfileRow) toModel() *models.UserProfile {
	profile := models.UserProfile(r)
	return &profile
}

func (r supabaseConditionRow) toModel() models.ConditionRecord {
	diagnosed, _ := time.Parse(supabaseDateLayout, r.DiagnosedDate)
	return models.ConditionRecord{
		ID:            r.ID,
		UserID:        r.UserID,
		ConditionName: r.ConditionName,
		DiagnosedDate: diagnosed,
		CreatedAt:     r.CreatedAt,
	}
}

func (s *SupabaseStore) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	query := url.Values{}
	query.Set("user_id", "eq."+userID.String())
	query.Set("select", "*")

	var rows []supabaseProfileRow
	if _, err := s.do(ctx, "get profile", http.MethodGet, "user_profiles", query, nil, "", &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	return rows[0].toModel(), nil
}

func (s *SupabaseStore) Upsert(ctx context.Context, userID uuid.UUID, req repository.UpsertUserProfileInput) (*models.UserProfile, error) {
	query := url.Values{}
	query.Set("on_conflict", "user_id")
	payload := map[string]any{
		"user_id":             userID,
		"age":                 req.Age,
		"gender":              req.Gender,
		"height_cm":           req.HeightCM,
		"weight_kg":           req.WeightKG,
		"dietary_preferences": req.DietaryPreferences,
		"updated_at":          time.Now().UTC(),
	}

	var rows []supabaseProfileRow
	if _, err := s.do(ctx, "upsert profile", http.MethodPost, "user_profiles", query, payload, "resolution=merge-duplicates,return=representation", &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("upsert profile: empty response")
	}
	return rows[0].toModel(), nil
}

func (s *SupabaseStore) UpdatePartial(ctx context.Context, userID uuid.UUID, req repository.UpdateUserProfileInput) (*models.UserProfile, error) {
	query := url.Values{}
	query.Set("user_id", "eq."+userID.String())
	payload := map[string]any{"updated_at": time.Now().UTC()}
	if req.Age != nil {
		payload["age"] = *req.Age
	}
	if req.Gender != nil {
		payload["gender"] = *req.Gender
	}
	if req.HeightCM != nil {
		payload["height_cm"] = *req.HeightCM
	}
	if req.WeightKG != nil {
		payload["weight_kg"] = *req.WeightKG
	}
	if req.DietaryPreferences != nil {
		payload["dietary_preferences"] = *req.DietaryPreferences
	}

	var rows []supabaseProfileRow
	if _, err := s.do(ctx, "update profile", http.MethodPatch, "user_profiles", query, payload, "return=representation", &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	return rows[0].toModel(), nil
}

func (s *SupabaseStore) InsertMany(ctx context.Context, userID uuid.UUID, rows []repository.ConditionInput) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := s.do(ctx, "insert conditions", http.MethodPost, "user_conditions", nil, conditionInsertBody(userID, rows), "return=minimal", nil)
	return err
}

func (s *SupabaseStore) Create(ctx context.Context, userID uuid.UUID, row repository.ConditionInput) (*models.ConditionRecord, error) {
	payload := conditionInsertBody(userID, []repository.ConditionInput{row})

	var created []supabaseConditionRow
	if _, err := s.do(ctx, "create condition", http.MethodPost, "user_conditions", nil, payload, "return=representation", &created); err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("create condition: empty response")
	}
	record := created[0].toModel()
	return &record, nil
}

func (s *SupabaseStore) ListByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.ConditionRecord, int, error) {
	query := url.Values{}
	query.Set("user_id", "eq."+userID.String())
	query.Set("select", "*")
	query.Set("order", "diagnosed_date.desc,id.desc")
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))

	var rows []supabaseConditionRow
	header, err := s.do(ctx, "list conditions", http.MethodGet, "user_conditions", query, nil, "count=exact", &rows)
	if err != nil {
		return nil, 0, err
	}

	records := make([]models.ConditionRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toModel())
	}
	total, ok := parseContentRangeTotal(header.Get("Content-Range"))
	if !ok {
		total = offset + len(records)
	}
	return records, total, nil
}

func conditionInsertBody(userID uuid.UUID, rows []repository.ConditionInput) []map[string]any {
	body := make([]map[string]any, len(rows))
	for i, row := range rows {
		body[i] = map[string]any{
			"user_id":        userID,
			"condition_name": row.ConditionName,
			"diagnosed_date": row.DiagnosedDate.Format(supabaseDateLayout),
		}
	}
	return body
}

// parseContentRangeTotal reads the total from a PostgREST "0-9/42" or "*/0" header.
func parseContentRangeTotal(value string) (int, bool) {
	slash := strings.LastIndex(value, "/")
	if slash < 0 {
		return 0, false
	}
	total, err := strconv.Atoi(value[slash+1:])
	if err != nil {
		return 0, false
	}
	return total, true
}

func (s *SupabaseStore) do(ctx context.Context, op, method, table string, query url.Values, payload any, prefer string, out any) (http.Header, error) {
	target := fmt.Sprintf("%s/rest/v1/%s", s.baseURL, table)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", op, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}

	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		responseBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, supabaseErrorMessage(responseBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("decode %s response: %w", op, err)
		}
	}
	return resp.Header, nil
}

func supabaseErrorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}
