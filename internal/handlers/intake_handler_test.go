package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gogetteranushka/wellness-agent-core/internal/services"
	"github.com/google/uuid"
)

type stubIntakeService struct {
	state            services.IntakeState
	err              error
	submitResult     services.IntakeResult
	submitErr        error
	lastUserID       uuid.UUID
	lastDemographics services.Demographics
	lastCondition    string
	lastDietType     string
	lastGoal         string
	resetCalls       int
}

func (s *stubIntakeService) State(userID uuid.UUID) services.IntakeState {
	s.lastUserID = userID
	return s.state
}

func (s *stubIntakeService) SetDemographics(userID uuid.UUID, d services.Demographics) (services.IntakeState, error) {
	s.lastUserID = userID
	s.lastDemographics = d
	return s.state, s.err
}

func (s *stubIntakeService) ToggleCondition(userID uuid.UUID, condition string) (services.IntakeState, error) {
	s.lastUserID = userID
	s.lastCondition = condition
	return s.state, s.err
}

func (s *stubIntakeService) SetDietType(userID uuid.UUID, dietType string) (services.IntakeState, error) {
	s.lastDietType = dietType
	return s.state, s.err
}

func (s *stubIntakeService) SetGoal(userID uuid.UUID, goal string) (services.IntakeState, error) {
	s.lastGoal = goal
	return s.state, s.err
}

func (s *stubIntakeService) Next(userID uuid.UUID) (services.IntakeState, error) {
	s.lastUserID = userID
	return s.state, s.err
}

func (s *stubIntakeService) Back(userID uuid.UUID) (services.IntakeState, error) {
	return s.state, s.err
}

func (s *stubIntakeService) Submit(_ context.Context, userID uuid.UUID) (services.IntakeResult, error) {
	s.lastUserID = userID
	return s.submitResult, s.submitErr
}

func (s *stubIntakeService) Reset(userID uuid.UUID) {
	s.resetCalls++
}

func newIntakeApp(service *stubIntakeService) *fiber.App {
	handler := NewIntakeHandler(service)
	return newTestApp(func(router fiber.Router) {
		router.Get("/intake", handler.GetState)
		router.Get("/intake/options", handler.Options)
		router.Put("/intake/demographics", handler.SetDemographics)
		router.Post("/intake/conditions/toggle", handler.ToggleCondition)
		router.Put("/intake/diet", handler.SetDietType)
		router.Put("/intake/goal", handler.SetGoal)
		router.Post("/intake/next", handler.Next)
		router.Post("/intake/back", handler.Back)
		router.Post("/intake/submit", handler.Submit)
		router.Delete("/intake", handler.Reset)
	})
}

func TestIntakeSetDemographicsParsesBody(t *testing.T) {
	service := &stubIntakeService{state: services.IntakeState{Step: services.StepDemographics}}
	userID := uuid.New()

	resp := doRequest(t, newIntakeApp(service), userID, http.MethodPut, "/intake/demographics",
		`{"age":25,"gender":"male","height_cm":170,"weight_kg":65}`)

	expectStatus(t, resp, http.StatusOK)
	if service.lastUserID != userID {
		t.Fatalf("expected user %s, got %s", userID, service.lastUserID)
	}
	d := service.lastDemographics
	if d.Age == nil || *d.Age != 25 || d.Gender == nil || *d.Gender != "male" || d.HeightCM == nil || *d.HeightCM != 170 {
		t.Fatalf("unexpected demographics %+v", d)
	}
}

func TestIntakeNextValidationError(t *testing.T) {
	service := &stubIntakeService{err: &services.ValidationError{Field: "weight_kg", Message: "weight_kg is required"}}

	resp := doRequest(t, newIntakeApp(service), uuid.New(), http.MethodPost, "/intake/next", "")

	expectStatus(t, resp, http.StatusBadRequest)
	body := decodeBody(t, resp)
	if body["error"] != "weight_kg is required" || body["field"] != "weight_kg" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestIntakeToggleCondition(t *testing.T) {
	service := &stubIntakeService{state: services.IntakeState{Step: services.StepConditions, Conditions: []string{"None"}}}

	resp := doRequest(t, newIntakeApp(service), uuid.New(), http.MethodPost, "/intake/conditions/toggle", `{"condition":"None"}`)

	expectStatus(t, resp, http.StatusOK)
	if service.lastCondition != "None" {
		t.Fatalf("expected condition None, got %q", service.lastCondition)
	}
	intake := decodeBody(t, resp)["intake"].(map[string]any)
	if conditions := intake["conditions"].([]any); len(conditions) != 1 || conditions[0] != "None" {
		t.Fatalf("unexpected conditions %v", conditions)
	}
}

func TestIntakeInvalidTransitionIsConflict(t *testing.T) {
	service := &stubIntakeService{err: services.ErrInvalidTransition}

	resp := doRequest(t, newIntakeApp(service), uuid.New(), http.MethodPut, "/intake/goal", `{"goal":"Weight Loss"}`)

	expectStatus(t, resp, http.StatusConflict)
	if service.lastGoal != "Weight Loss" {
		t.Fatalf("expected goal to be forwarded, got %q", service.lastGoal)
	}
}

func TestIntakeSubmitSuccess(t *testing.T) {
	service := &stubIntakeService{submitResult: services.IntakeResult{
		State:    services.IntakeState{Step: services.StepComplete},
		Redirect: services.ProfileViewPath,
	}}

	resp := doRequest(t, newIntakeApp(service), uuid.New(), http.MethodPost, "/intake/submit", "")

	expectStatus(t, resp, http.StatusCreated)
	body := decodeBody(t, resp)
	if body["redirect"] != services.ProfileViewPath {
		t.Fatalf("unexpected redirect %v", body["redirect"])
	}
}

func TestIntakeSubmitConditionsFailureReportsSavedProfile(t *testing.T) {
	service := &stubIntakeService{submitErr: &services.ConditionsWriteError{Err: errors.New("insert conditions: status 500: boom")}}

	resp := doRequest(t, newIntakeApp(service), uuid.New(), http.MethodPost, "/intake/submit", "")

	expectStatus(t, resp, http.StatusBadGateway)
	body := decodeBody(t, resp)
	if body["error"] != "insert conditions: status 500: boom" || body["profile_saved"] != true {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestIntakeSubmitProfileFailure(t *testing.T) {
	service := &stubIntakeService{submitErr: &services.ProfileWriteError{Err: errors.New("duplicate key")}}

	resp := doRequest(t, newIntakeApp(service), uuid.New(), http.MethodPost, "/intake/submit", "")

	expectStatus(t, resp, http.StatusBadGateway)
	if body := decodeBody(t, resp); body["profile_saved"] != false {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestIntakeResetAndOptions(t *testing.T) {
	service := &stubIntakeService{}
	app := newIntakeApp(service)

	resp := doRequest(t, app, uuid.New(), http.MethodDelete, "/intake", "")
	expectStatus(t, resp, http.StatusNoContent)
	if service.resetCalls != 1 {
		t.Fatalf("expected one reset, got %d", service.resetCalls)
	}

	resp = doRequest(t, app, uuid.New(), http.MethodGet, "/intake/options", "")
	expectStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	if len(body["conditions"].([]any)) == 0 || len(body["diet_types"].([]any)) == 0 {
		t.Fatalf("expected options, got %v", body)
	}
}

func TestIntakeRequiresToken(t *testing.T) {
	app := newIntakeApp(&stubIntakeService{})

	resp, err := app.Test(newUnauthenticatedRequest(http.MethodGet, "/intake"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	expectStatus(t, resp, http.StatusUnauthorized)
}
