package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/pai/internal/anthropic"
	"github.com/MikeSquared-Agency/pai/internal/extractor"
	"github.com/MikeSquared-Agency/pai/internal/interview"
	"github.com/MikeSquared-Agency/pai/internal/predictor"
	"github.com/MikeSquared-Agency/pai/internal/processor"
	"github.com/MikeSquared-Agency/pai/internal/store"
	"github.com/MikeSquared-Agency/pai/internal/validation"
)

type cannedGenerator struct{}

func (cannedGenerator) Complete(_ context.Context, _ string, _ []anthropic.Message, opts anthropic.Options) (string, error) {
	switch opts.MaxTokens {
	case 2000:
		return `{"demographics": {"age_range": "25-34"}}`, nil
	case 1500:
		return `{"predicted_answer": "Very simple (2-3 products max)", "confidence": 0.8, "reasoning": "minimalist"}`, nil
	default:
		return "Tell me more.", nil
	}
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gen := cannedGenerator{}
	proc := processor.New(
		store.NewMemory(),
		interview.NewSequencer(gen, logger),
		extractor.New(gen, logger),
		validation.New(predictor.New(gen, logger), logger),
		nil,
		processor.Options{Backend: "memory", ModelVersion: "test-model"},
		logger,
	)
	return NewServer(proc, opts, logger)
}

func do(t *testing.T, srv *Server, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, Options{APIKeyConfigured: true})

	w := do(t, srv, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	body := decodeBody[map[string]any](t, w)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	if body["api_key_configured"] != true {
		t.Errorf("expected api_key_configured true, got %v", body["api_key_configured"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(t, Options{})

	w := do(t, srv, http.MethodGet, "/api/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody[processor.Status](t, w)
	if body.Storage != "memory" || body.ActiveProfiles != 0 {
		t.Errorf("unexpected status %+v", body)
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv := newTestServer(t, Options{})

	w := do(t, srv, http.MethodGet, "/nonexistent", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestInterviewFlow(t *testing.T) {
	srv := newTestServer(t, Options{})

	w := do(t, srv, http.MethodPost, "/api/interview", map[string]string{"participant_name": "Ann"})
	if w.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", w.Code, w.Body)
	}
	start := decodeBody[processor.InterviewResponse](t, w)
	if len(start.Messages) != 1 {
		t.Fatalf("expected greeting message, got %+v", start.Messages)
	}

	w = do(t, srv, http.MethodPost, "/api/interview/continue", map[string]string{"session_id": start.SessionID, "message": "I keep it simple"})
	if w.Code != http.StatusOK {
		t.Fatalf("continue: expected 200, got %d: %s", w.Code, w.Body)
	}
	cont := decodeBody[processor.InterviewResponse](t, w)
	if cont.ExchangeCount != 1 || cont.AIResponse != "Tell me more." {
		t.Errorf("unexpected continue response %+v", cont)
	}

	w = do(t, srv, http.MethodGet, "/api/interview/"+start.SessionID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get session: expected 200, got %d", w.Code)
	}
	sess := decodeBody[interview.Session](t, w)
	if len(sess.Messages) != 3 {
		t.Errorf("expected 3 stored messages, got %d", len(sess.Messages))
	}

	w = do(t, srv, http.MethodPost, "/api/interview?action=complete", map[string]string{"session_id": start.SessionID})
	if w.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d: %s", w.Code, w.Body)
	}
	done := decodeBody[processor.InterviewResponse](t, w)
	if !done.IsComplete || done.Profile == nil || done.Profile.ProfileID != "ann_v1" {
		t.Errorf("unexpected complete response %+v", done)
	}

	w = do(t, srv, http.MethodPost, "/api/interview/continue", map[string]string{"session_id": start.SessionID, "message": "more"})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 after completion, got %d", w.Code)
	}

	w = do(t, srv, http.MethodGet, "/api/profiles/ann_v1", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected profile 200, got %d", w.Code)
	}
}

func TestInterviewErrors(t *testing.T) {
	srv := newTestServer(t, Options{})

	cases := []struct {
		name   string
		target string
		body   any
		want   int
	}{
		{"unknown action", "/api/interview?action=restart", map[string]string{"participant_name": "Ann"}, http.StatusBadRequest},
		{"missing name", "/api/interview/start", map[string]string{}, http.StatusBadRequest},
		{"missing session", "/api/interview/continue", map[string]string{"message": "hi"}, http.StatusBadRequest},
		{"unknown session", "/api/interview/continue", map[string]string{"session_id": "nope", "message": "hi"}, http.StatusNotFound},
		{"bad json", "/api/interview", "not an object", http.StatusBadRequest},
	}
	for _, tc := range cases {
		w := do(t, srv, http.MethodPost, tc.target, tc.body)
		if w.Code != tc.want {
			t.Errorf("%s: expected %d, got %d: %s", tc.name, tc.want, w.Code, w.Body)
		}
		if !strings.Contains(w.Body.String(), `"error"`) {
			t.Errorf("%s: expected JSON error body, got %s", tc.name, w.Body)
		}
	}

	w := do(t, srv, http.MethodGet, "/api/interview/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown session, got %d", w.Code)
	}
}

func TestProfilesRequiresPersonName(t *testing.T) {
	srv := newTestServer(t, Options{})

	w := do(t, srv, http.MethodGet, "/api/profiles", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestSurveyEndpoints(t *testing.T) {
	srv := newTestServer(t, Options{})

	w := do(t, srv, http.MethodGet, "/api/surveys", nil)
	body := decodeBody[map[string]any](t, w)
	if body["count"] != float64(2) {
		t.Errorf("expected 2 default surveys, got %v", body["count"])
	}

	sv := predictor.Survey{
		Name:      "mini",
		Title:     "Mini",
		Questions: []predictor.Question{{ID: "a", Question: "A?", Options: []string{"X", "Y"}}},
	}
	if w := do(t, srv, http.MethodPost, "/api/surveys", sv); w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d: %s", w.Code, w.Body)
	}
	if w := do(t, srv, http.MethodPost, "/api/surveys", predictor.Survey{Name: "broken"}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid survey, got %d", w.Code)
	}
	if w := do(t, srv, http.MethodDelete, "/api/surveys", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without survey_name, got %d", w.Code)
	}
	if w := do(t, srv, http.MethodDelete, "/api/surveys?survey_name=mini", nil); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w := do(t, srv, http.MethodDelete, "/api/surveys?survey_name=mini", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", w.Code)
	}
}

func TestQuestionnaireEndpoints(t *testing.T) {
	srv := newTestServer(t, Options{})

	q := interview.Questionnaire{ID: "q1", Title: "Moisturizer", Category: "moisturizer", IsPublic: true, Questions: []interview.Question{{ID: "a", Text: "Why?"}}}
	if w := do(t, srv, http.MethodPost, "/api/questionnaires", q); w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body)
	}
	if w := do(t, srv, http.MethodPost, "/api/questionnaires", interview.Questionnaire{ID: "q2"}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if w := do(t, srv, http.MethodGet, "/api/questionnaires/q1", nil); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w := do(t, srv, http.MethodGet, "/api/questionnaires/q9", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	w := do(t, srv, http.MethodGet, "/api/questionnaires?category=moisturizer", nil)
	body := decodeBody[map[string]any](t, w)
	if body["count"] != float64(1) {
		t.Errorf("expected 1 questionnaire, got %v", body["count"])
	}
}

func TestValidationEndpoints(t *testing.T) {
	srv := newTestServer(t, Options{})

	w := do(t, srv, http.MethodPost, "/api/profiles/extract", map[string]string{"participant_name": "Bea", "transcript": "User: two products, that's it"})
	if w.Code != http.StatusCreated {
		t.Fatalf("extract: expected 201, got %d: %s", w.Code, w.Body)
	}

	w = do(t, srv, http.MethodGet, "/api/validation?survey_name=test", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("survey: expected 200, got %d", w.Code)
	}

	w = do(t, srv, http.MethodPost, "/api/validation/compare", processor.CompareRequest{
		ProfileID:   "bea_v1",
		SurveyName:  "test",
		QuestionID:  "routine_complexity",
		HumanAnswer: "Very simple (2-3 products max)",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("compare: expected 200, got %d: %s", w.Code, w.Body)
	}
	if c := decodeBody[validation.Comparison](t, w); !c.Correct {
		t.Errorf("expected a correct comparison, got %+v", c)
	}

	w = do(t, srv, http.MethodPost, "/api/validation/run", processor.ValidationRequest{
		ProfileID:   "bea_v1",
		SurveyName:  "test",
		RealAnswers: map[string]string{"routine_complexity": "Very simple (2-3 products max)"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("run: expected 200, got %d: %s", w.Code, w.Body)
	}
	run := decodeBody[store.ValidationRun](t, w)
	if run.Result == nil || run.Result.AccuracyRate != 1 {
		t.Fatalf("unexpected run %+v", run)
	}

	w = do(t, srv, http.MethodGet, "/api/validation/history?profile_id=bea_v1", nil)
	if body := decodeBody[map[string]any](t, w); body["count"] != float64(1) {
		t.Errorf("expected 1 run in history, got %v", body["count"])
	}
	if w := do(t, srv, http.MethodGet, "/api/validation/history", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without profile_id, got %d", w.Code)
	}

	w = do(t, srv, http.MethodGet, "/api/validation/results/"+run.ID, nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("json download: got %d %q", w.Code, w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), run.ID+".json") {
		t.Errorf("unexpected disposition %q", w.Header().Get("Content-Disposition"))
	}

	w = do(t, srv, http.MethodGet, "/api/validation/results/"+run.ID+"?format=pdf", nil)
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Body.String(), "%PDF-") {
		t.Errorf("pdf download: got %d", w.Code)
	}

	if w := do(t, srv, http.MethodGet, "/api/validation/results/"+run.ID+"?format=xml", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown format, got %d", w.Code)
	}
	if w := do(t, srv, http.MethodGet, "/api/validation/results/missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown run, got %d", w.Code)
	}
}

func TestBearerAuth(t *testing.T) {
	srv := newTestServer(t, Options{APIToken: "secret"})

	if w := do(t, srv, http.MethodGet, "/api/surveys", nil); w.Code != http.StatusOK {
		t.Errorf("GET should not need a token, got %d", w.Code)
	}
	if w := do(t, srv, http.MethodPost, "/api/interview", map[string]string{"participant_name": "Ann"}); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}
	if w := do(t, srv, http.MethodPost, "/api/interview", map[string]string{"participant_name": "Ann"}, "Authorization", "Bearer wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", w.Code)
	}
	if w := do(t, srv, http.MethodPost, "/api/interview", map[string]string{"participant_name": "Ann"}, "Authorization", "Bearer secret"); w.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, Options{CORSOrigin: "https://pai.example"})

	w := do(t, srv, http.MethodOptions, "/api/interview", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://pai.example" {
		t.Errorf("unexpected allow-origin %q", got)
	}
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, Options{RateLimit: 0.001, RateBurst: 2})

	for i := 0; i < 2; i++ {
		if w := do(t, srv, http.MethodGet, "/health", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
	if w := do(t, srv, http.MethodGet, "/health", nil); w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", w.Code)
	}
}
