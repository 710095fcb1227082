// Package http exposes the submission and live-session operations over
// REST. Live delivery is poll-based: clients read the session state on an
// interval, so staleness is bounded by the poll interval.
package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"assessment-engine/internal/app"
	"assessment-engine/internal/domain"
)

// Caller identity is verified upstream; these headers carry the result.
const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
	roleAdmin      = "admin"
)

// ClientConfig is the tuning the server hands to exam-taker clients: how
// often to poll the live state and how many violations force submission.
type ClientConfig struct {
	PollIntervalMillis int `json:"pollIntervalMillis"`
	MaxViolations      int `json:"maxViolations"`
}

type Handler struct {
	submissions  *app.SubmissionService
	live         *app.LiveSessionController
	clientConfig ClientConfig
}

func NewHandler(submissions *app.SubmissionService, live *app.LiveSessionController, clientConfig ClientConfig) *Handler {
	return &Handler{submissions: submissions, live: live, clientConfig: clientConfig}
}

// Register wires the handler's routes into mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/tests/{testID}/submissions", h.submit)
	mux.HandleFunc("GET /api/tests/{testID}/live", h.liveState)
	mux.HandleFunc("POST /api/tests/{testID}/live", h.liveAction)
	mux.HandleFunc("GET /api/client-config", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, h.clientConfig)
	})
}

type submitPayload struct {
	StudentID      string            `json:"studentId"`
	Answers        map[string]string `json:"answers"`
	StartedAt      string            `json:"startedAt"`
	ViolationCount int               `json:"violationCount"`
}

type liveActionPayload struct {
	Action string `json:"action"`
	Index  *int   `json:"index,omitempty"`
}

type liveActionResponse struct {
	Action string           `json:"action"`
	State  domain.LiveState `json:"state"`
}

type errorPayload struct {
	Error string `json:"error"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	callerID := r.Header.Get(headerUserID)
	if callerID == "" {
		writeError(w, http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
		return
	}

	var payload submitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	startedAt, err := time.Parse(time.RFC3339, payload.StartedAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "startedAt must be RFC3339")
		return
	}

	result, err := h.submissions.Submit(r.Context(), app.SubmitRequest{
		TestID:         r.PathValue("testID"),
		CallerID:       callerID,
		CallerIsAdmin:  r.Header.Get(headerUserRole) == roleAdmin,
		StudentID:      payload.StudentID,
		Answers:        payload.Answers,
		StartedAt:      startedAt,
		ViolationCount: payload.ViolationCount,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) liveState(w http.ResponseWriter, r *http.Request) {
	state, err := h.live.State(r.Context(), r.PathValue("testID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) liveAction(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(headerUserID) == "" {
		writeError(w, http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
		return
	}
	if r.Header.Get(headerUserRole) != roleAdmin {
		writeError(w, http.StatusForbidden, "host privileges required")
		return
	}

	var payload liveActionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	index := -1
	if payload.Index != nil {
		index = *payload.Index
	}

	state, err := h.live.Apply(r.Context(), r.PathValue("testID"), app.LiveAction(payload.Action), index)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, liveActionResponse{Action: payload.Action, State: state})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrIdentityMismatch):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrTestNotFound), errors.Is(err, domain.ErrQuestionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateSubmission):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}
