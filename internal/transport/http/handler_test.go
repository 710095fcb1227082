package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"assessment-engine/internal/app"
	"assessment-engine/internal/domain"
	"assessment-engine/internal/infra/memory"
)

func TestSubmitEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	status, body := doSubmit(t, server, "s1", "s1", map[string]string{"q1": "Paris", "q2": "Rome"})
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", status, body)
	}
	var result app.SubmitResult
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Score != 2 || result.TotalQuestions != 2 {
		t.Fatalf("expected 2/2, got %+v", result)
	}
	if result.Gamification == nil || result.Gamification.XPEarned == 0 {
		t.Fatalf("expected gamification payload, got %+v", result.Gamification)
	}
}

func TestSubmitStatusTaxonomy(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	// Unauthenticated: no identity header.
	req, _ := http.NewRequest(http.MethodPost, server.URL+"/api/tests/test-1/submissions",
		bytes.NewReader(submitBody(t, "s1", map[string]string{})))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	// Forbidden: caller submits for someone else without the admin role.
	if status, _ := doSubmit(t, server, "s2", "s1", map[string]string{"q1": "Paris"}); status != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", status)
	}

	// Not found: unknown test.
	status, _ := doSubmitPath(t, server, "/api/tests/missing/submissions", "s1", "s1", map[string]string{"q1": "Paris"})
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}

	// Conflict: second submission for the same pair.
	if status, _ := doSubmit(t, server, "s1", "s1", map[string]string{"q1": "Paris"}); status != http.StatusCreated {
		t.Fatalf("expected first submit to succeed, got %d", status)
	}
	if status, _ := doSubmit(t, server, "s1", "s1", map[string]string{"q1": "Paris"}); status != http.StatusConflict {
		t.Fatalf("expected 409, got %d", status)
	}

	// Bad request: malformed body.
	req, _ = http.NewRequest(http.MethodPost, server.URL+"/api/tests/test-1/submissions", bytes.NewReader([]byte("{")))
	req.Header.Set(headerUserID, "s3")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestLiveEndpoints(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	// Read initial state.
	resp, err := http.Get(server.URL + "/api/tests/test-1/live")
	if err != nil {
		t.Fatalf("get live: %v", err)
	}
	var state domain.LiveState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	resp.Body.Close()
	if state.Status != domain.StatusDraft || state.CurrentQuestionIndex != -1 {
		t.Fatalf("expected draft at -1, got %+v", state)
	}

	// Host starts the session.
	if status, body := doLiveAction(t, server, "host-1", roleAdmin, "start", nil); status != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", status, body)
	}

	// Advance to question 2.
	two := 2
	status, body := doLiveAction(t, server, "host-1", roleAdmin, "next", &two)
	if status != http.StatusOK {
		t.Fatalf("next: expected 200, got %d: %s", status, body)
	}
	var acted liveActionResponse
	if err := json.Unmarshal(body, &acted); err != nil {
		t.Fatalf("decode action response: %v", err)
	}
	if acted.State.CurrentQuestionIndex != 2 || acted.State.Status != domain.StatusActive {
		t.Fatalf("unexpected state after next: %+v", acted.State)
	}

	// Invalid action once active.
	if status, _ := doLiveAction(t, server, "host-1", roleAdmin, "start", nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for double start, got %d", status)
	}

	// Students cannot drive the session.
	if status, _ := doLiveAction(t, server, "s1", "student", "end", nil); status != http.StatusForbidden {
		t.Fatalf("expected 403 for non-host, got %d", status)
	}
}

func TestClientConfigEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/client-config")
	if err != nil {
		t.Fatalf("get client config: %v", err)
	}
	defer resp.Body.Close()

	var cfg ClientConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.PollIntervalMillis != 2000 || cfg.MaxViolations != 3 {
		t.Fatalf("unexpected client config: %+v", cfg)
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	store.SeedTest(domain.Test{
		ID:              "test-1",
		Title:           "Capitals",
		DurationMinutes: 30,
		Live:            domain.LiveState{Mode: domain.ModeLive, Status: domain.StatusDraft, CurrentQuestionIndex: -1},
	}, []domain.Question{
		{ID: "q1", TestID: "test-1", Kind: domain.KindChoice, Prompt: "Capital of France?", Options: []string{"Paris", "Lyon"}, CorrectAnswer: "Paris"},
		{ID: "q2", TestID: "test-1", Kind: domain.KindText, Prompt: "Capital of Italy?", CorrectAnswer: "Rome"},
	})

	service := app.NewSubmissionService(
		memory.NewContentRepository(store, time.Minute),
		store,
		app.NewGamificationEngine(store, store),
	)
	handler := NewHandler(service, app.NewLiveSessionController(store), ClientConfig{
		PollIntervalMillis: 2000,
		MaxViolations:      3,
	})

	mux := http.NewServeMux()
	handler.Register(mux)
	return httptest.NewServer(mux), store
}

func doSubmit(t *testing.T, server *httptest.Server, callerID, studentID string, answers map[string]string) (int, []byte) {
	return doSubmitPath(t, server, "/api/tests/test-1/submissions", callerID, studentID, answers)
}

func doSubmitPath(t *testing.T, server *httptest.Server, path, callerID, studentID string, answers map[string]string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, server.URL+path, bytes.NewReader(submitBody(t, studentID, answers)))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set(headerUserID, callerID)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp.StatusCode, buf.Bytes()
}

func submitBody(t *testing.T, studentID string, answers map[string]string) []byte {
	t.Helper()
	body, err := json.Marshal(submitPayload{
		StudentID: studentID,
		Answers:   answers,
		StartedAt: time.Now().Add(-10 * time.Minute).Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return body
}

func doLiveAction(t *testing.T, server *httptest.Server, callerID, role, action string, index *int) (int, []byte) {
	t.Helper()
	body, err := json.Marshal(liveActionPayload{Action: action, Index: index})
	if err != nil {
		t.Fatalf("marshal action: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/api/tests/test-1/live", server.URL), bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set(headerUserID, callerID)
	req.Header.Set(headerUserRole, role)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp.StatusCode, buf.Bytes()
}
