package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gogetteranushka/wellness-agent-core/internal/metrics"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const (
	maxActionResponseBytes = 10 << 20
	chatHistoryTurns       = 5
)

// ActionChat is shaped by Chat before it is forwarded.
const ActionChat = "chat"

var (
	ErrUnknownAction    = errors.New("unknown action")
	ErrResponseTooLarge = errors.New("response body exceeds size limit")
)

type actionTarget int

const (
	targetAI actionTarget = iota
	targetChat
)

type actionRoute struct {
	path    string
	target  actionTarget
	methods []string
}

var actionRoutes = map[string]actionRoute{
	"diet/complete-meal-plan":        {path: "/api/diet/complete-meal-plan", methods: []string{http.MethodPost}},
	"diet/recommend-recipes":         {path: "/api/diet/recommend-recipes", methods: []string{http.MethodPost}},
	"diet/parse-preferences-text":    {path: "/api/diet/parse-preferences-text", methods: []string{http.MethodPost}},
	"workout/parse-preferences-text": {path: "/api/workout/parse-preferences-text", methods: []string{http.MethodPost}},
	"workout/complete-plan":          {path: "/api/workout/complete-plan", methods: []string{http.MethodPost}},
	"symptom-check":                  {path: "/api/symptom-check", methods: []string{http.MethodPost}},
	"symptoms":                       {path: "/api/symptoms", methods: []string{http.MethodGet}},
	"predict-nutrition":              {path: "/api/predict-nutrition", methods: []string{http.MethodPost}},
	"nutrition-log":                  {path: "/api/nutrition-log", methods: []string{http.MethodGet, http.MethodPost}},
	"condition":                      {path: "/api/condition", methods: []string{http.MethodGet, http.MethodPost}},
	ActionChat:                       {path: "/chat", target: targetChat, methods: []string{http.MethodPost}},
}

// ActionNames lists every action with the methods it accepts.
func ActionNames() map[string][]string {
	out := make(map[string][]string, len(actionRoutes))
	for name, route := range actionRoutes {
		out[name] = append([]string(nil), route.methods...)
	}
	return out
}

type ActionRequest struct {
	Action  string
	Method  string
	Payload json.RawMessage
	Query   url.Values
	Token   string
}

type ActionResult struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// TransportError means the backend could not be reached or its response could not be read.
type TransportError struct {
	Action string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Action, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ApplicationError is a non-2xx answer from the backend.
type ApplicationError struct {
	Action  string
	Status  int
	Message string
	Body    json.RawMessage
}

func (e *ApplicationError) Error() string {
	return e.Message
}

type DispatcherOptions struct {
	AIBaseURL   string
	ChatBaseURL string
	Timeout     time.Duration
	RateLimit   float64
	// MaxResponseBytes caps upstream bodies; zero means 10 MiB.
	MaxResponseBytes int64
	HTTPClient       *http.Client
	Metrics          *metrics.Recorder
	Logger           *slog.Logger
}

// Dispatcher forwards authenticated JSON calls to the AI backend and the chat service.
type Dispatcher struct {
	aiBaseURL   string
	chatBaseURL string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxBody     int64
	metrics     *metrics.Recorder
	logger      *slog.Logger
}

func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := opts.MaxResponseBytes
	if maxBody <= 0 {
		maxBody = maxActionResponseBytes
	}
	return &Dispatcher{
		aiBaseURL:   strings.TrimRight(opts.AIBaseURL, "/"),
		chatBaseURL: strings.TrimRight(opts.ChatBaseURL, "/"),
		httpClient:  client,
		limiter:     limiter,
		maxBody:     maxBody,
		metrics:     opts.Metrics,
		logger:      logger,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, req ActionRequest) (*ActionResult, error) {
	route, ok := actionRoutes[req.Action]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownAction, "%q", req.Action)
	}
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = route.methods[0]
	}
	if !containsString(route.methods, method) {
		return nil, errors.Wrapf(ErrUnknownAction, "%s %q", method, req.Action)
	}
	if strings.TrimSpace(req.Token) == "" {
		return nil, ErrUnauthenticated
	}

	base := d.aiBaseURL
	if route.target == targetChat {
		base = d.chatBaseURL
	}
	target := base + route.path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if method != http.MethodGet {
		payload := req.Payload
		if len(bytes.TrimSpace(payload)) == 0 {
			payload = json.RawMessage("{}")
		}
		body = bytes.NewReader(payload)
	}

	start := time.Now()
	result, err := d.do(ctx, req.Action, method, target, body, req.Token)
	d.metrics.Dispatch(req.Action, statusClass(result, err), time.Since(start))
	if err != nil {
		var transportErr *TransportError
		if errors.As(err, &transportErr) {
			d.logger.Warn("remote action failed", "action", req.Action, "error", err)
		}
		return nil, err
	}
	return result, nil
}

func (d *Dispatcher) do(ctx context.Context, action, method, target string, body io.Reader, token string) (*ActionResult, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Action: action, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &TransportError{Action: action, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Action: action, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBody+1))
	if err != nil {
		return nil, &TransportError{Action: action, Err: err}
	}
	if int64(len(raw)) > d.maxBody {
		return nil, &TransportError{Action: action, Err: errors.Wrapf(ErrResponseTooLarge, "limit %d bytes", d.maxBody)}
	}
	data := asJSON(raw)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &ApplicationError{
			Action:  action,
			Status:  resp.StatusCode,
			Message: applicationMessage(resp.StatusCode, data),
			Body:    data,
		}
	}
	return &ActionResult{Status: resp.StatusCode, Data: data}, nil
}

// asJSON keeps valid JSON as is and wraps anything else as a JSON string.
func asJSON(raw []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	encoded, _ := json.Marshal(string(trimmed))
	return encoded
}

func applicationMessage(status int, data json.RawMessage) string {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err == nil {
		for _, key := range []string{"error", "detail", "message"} {
			value, ok := body[key]
			if !ok {
				continue
			}
			var text string
			if err := json.Unmarshal(value, &text); err == nil && text != "" {
				return text
			}
			if len(value) > 0 && string(value) != "null" {
				return string(value)
			}
		}
	}
	var text string
	if err := json.Unmarshal(data, &text); err == nil && text != "" {
		return text
	}
	return fmt.Sprintf("remote action failed with status %d", status)
}

func statusClass(result *ActionResult, err error) string {
	var appErr *ApplicationError
	switch {
	case err == nil && result != nil:
		return fmt.Sprintf("%dxx", result.Status/100)
	case errors.As(err, &appErr):
		return fmt.Sprintf("%dxx", appErr.Status/100)
	default:
		return "error"
	}
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

type ChatTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type ChatRequest struct {
	Question            string     `json:"question"`
	ShowSources         *bool      `json:"show_sources"`
	ConversationHistory []ChatTurn `json:"conversation_history"`
	UseWebSearch        *bool      `json:"use_web_search"`
}

type chatPayload struct {
	Question            string     `json:"question"`
	ShowSources         bool       `json:"show_sources"`
	ConversationHistory []ChatTurn `json:"conversation_history"`
	UseWebSearch        *bool      `json:"use_web_search"`
}

// Chat shapes the request the way the chat service expects: sources on unless turned off,
// only the last few turns of history, and use_web_search passed through as true, false or null.
func (d *Dispatcher) Chat(ctx context.Context, req ChatRequest, token string) (*ActionResult, error) {
	payload, err := shapeChatRequest(req)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encode chat request")
	}
	return d.Dispatch(ctx, ActionRequest{
		Action:  ActionChat,
		Method:  http.MethodPost,
		Payload: encoded,
		Token:   token,
	})
}

func shapeChatRequest(req ChatRequest) (chatPayload, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return chatPayload{}, newValidationError("question", "question is required")
	}
	showSources := true
	if req.ShowSources != nil {
		showSources = *req.ShowSources
	}
	history := req.ConversationHistory
	if len(history) > chatHistoryTurns {
		history = history[len(history)-chatHistoryTurns:]
	}
	if history == nil {
		history = []ChatTurn{}
	}
	return chatPayload{
		Question:            question,
		ShowSources:         showSources,
		ConversationHistory: history,
		UseWebSearch:        req.UseWebSearch,
	}, nil
}
