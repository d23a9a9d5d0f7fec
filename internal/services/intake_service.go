package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/gogetteranushka/wellness-agent-core/internal/metrics"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

const ProfileViewPath = "/api/v1/users/profile"

type IntakeResult struct {
	State    IntakeState `json:"state"`
	Redirect string      `json:"redirect,omitempty"`
}

type IntakeServiceOptions struct {
	DraftTTL      time.Duration
	DraftCapacity int
	Events        EventPublisher
	Metrics       *metrics.Recorder
	Logger        *slog.Logger
	Now           func() time.Time
}

// IntakeService keeps one IntakeWorkflow per signed-in user between requests.
type IntakeService struct {
	profiles   ProfileStore
	conditions ConditionStore
	drafts     *draftCache[uuid.UUID, *IntakeWorkflow]
	submits    singleflight.Group
	events     EventPublisher
	metrics    *metrics.Recorder
	logger     *slog.Logger
	now        func() time.Time
}

func NewIntakeService(profiles ProfileStore, conditions ConditionStore, opts IntakeServiceOptions) *IntakeService {
	s := &IntakeService{
		profiles:   profiles,
		conditions: conditions,
		drafts:     newDraftCache[uuid.UUID, *IntakeWorkflow](opts.DraftCapacity, opts.DraftTTL),
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

func (s *IntakeService) workflow(userID uuid.UUID) *IntakeWorkflow {
	wf := s.drafts.GetOrCreate(userID, func() *IntakeWorkflow {
		wf := NewIntakeWorkflow(userID, s.profiles, s.conditions)
		wf.now = s.now
		return wf
	})
	s.metrics.SetActiveDrafts("intake", s.drafts.Len())
	return wf
}

func (s *IntakeService) State(userID uuid.UUID) IntakeState {
	return s.workflow(userID).State()
}

func (s *IntakeService) SetDemographics(userID uuid.UUID, d Demographics) (IntakeState, error) {
	wf := s.workflow(userID)
	err := wf.SetDemographics(d)
	return wf.State(), err
}

func (s *IntakeService) ToggleCondition(userID uuid.UUID, condition string) (IntakeState, error) {
	wf := s.workflow(userID)
	err := wf.ToggleCondition(condition)
	return wf.State(), err
}

func (s *IntakeService) SetDietType(userID uuid.UUID, dietType string) (IntakeState, error) {
	wf := s.workflow(userID)
	err := wf.SetDietType(dietType)
	return wf.State(), err
}

func (s *IntakeService) SetGoal(userID uuid.UUID, goal string) (IntakeState, error) {
	wf := s.workflow(userID)
	err := wf.SetGoal(goal)
	return wf.State(), err
}

func (s *IntakeService) Next(userID uuid.UUID) (IntakeState, error) {
	wf := s.workflow(userID)
	from := wf.Step()
	err := wf.Next()
	s.metrics.IntakeTransition(string(from), transitionResult(err))
	return wf.State(), err
}

func (s *IntakeService) Back(userID uuid.UUID) (IntakeState, error) {
	wf := s.workflow(userID)
	from := wf.Step()
	err := wf.Back()
	if err == nil {
		s.metrics.IntakeTransition(string(from), "back")
	}
	return wf.State(), err
}

// Submit commits the user's answers. Concurrent submits for the same user share one commit.
func (s *IntakeService) Submit(ctx context.Context, userID uuid.UUID) (IntakeResult, error) {
	wf := s.workflow(userID)
	_, err, _ := s.submits.Do(userID.String(), func() (any, error) {
		return nil, wf.Submit(ctx)
	})
	state := wf.State()

	var profileErr *ProfileWriteError
	var conditionsErr *ConditionsWriteError
	switch {
	case err == nil:
		s.metrics.IntakeSubmission("ok")
		s.events.Publish(userID, EventIntakeCompleted)
		s.logger.Info("intake completed", "user_id", userID, "conditions", len(state.Conditions))
		return IntakeResult{State: state, Redirect: ProfileViewPath}, nil
	case errors.Is(err, ErrValidation):
		s.metrics.IntakeSubmission("invalid")
	case errors.As(err, &profileErr):
		s.metrics.IntakeSubmission("profile_failed")
		s.logger.Error("intake profile write failed", "user_id", userID, "error", err)
	case errors.As(err, &conditionsErr):
		s.metrics.IntakeSubmission("conditions_failed")
		s.logger.Error("intake conditions write failed after profile saved", "user_id", userID, "error", err)
	}
	return IntakeResult{State: state}, err
}

// Reset discards the in-progress answers.
func (s *IntakeService) Reset(userID uuid.UUID) {
	s.drafts.Delete(userID)
	s.metrics.SetActiveDrafts("intake", s.drafts.Len())
}

func transitionResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "invalid"
	default:
		return "rejected"
	}
}
