// Package api is the HTTP surface of the progression engine. It owns
// request validation, learner identity extraction from the path, and the
// mapping from the engine's error taxonomy to HTTP statuses.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/openlms/progression/internal/progression"
	"github.com/openlms/progression/internal/report"
)

const maxBodyBytes = 1 << 20

// Handler serves the v1 progression API.
type Handler struct {
	engine *progression.Engine
	ready  map[string]func() error
}

// New creates the API handler. Readiness probes are keyed by dependency
// name and reported individually on /readyz.
func New(engine *progression.Engine, ready map[string]func() error) *Handler {
	return &Handler{engine: engine, ready: ready}
}

// Routes wires the handler into a ServeMux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.HandleFunc("GET /readyz", h.handleReadyz)

	mux.HandleFunc("GET /v1/learners/{learnerID}/programs/{programID}/blocks", h.handleProgramBlocks)
	mux.HandleFunc("GET /v1/learners/{learnerID}/blocks/{blockID}/completion", h.handleCompletion)
	mux.HandleFunc("POST /v1/learners/{learnerID}/progress", h.handleProgress)
	mux.HandleFunc("POST /v1/learners/{learnerID}/quizzes/{quizID}/attempts", h.handleAttempt)
	mux.HandleFunc("POST /v1/learners/{learnerID}/case-studies/{caseStudyID}/submission", h.handleSubmit)
	mux.HandleFunc("GET /v1/learners/{learnerID}/case-studies/{caseStudyID}/submission", h.handleGetSubmission)
	mux.HandleFunc("GET /v1/learners/{learnerID}/programs/{programID}/transcript", h.handleTranscript)
	mux.HandleFunc("GET /v1/learners/{learnerID}/programs/{programID}/transcript.xlsx", h.handleTranscriptXLSX)
	return mux
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	deps := make(map[string]string, len(h.ready))
	for name, check := range h.ready {
		if err := check(); err != nil {
			slog.Warn("readiness check failed", "dependency", name, "error", err)
			deps[name] = "down"
			status = http.StatusServiceUnavailable
		} else {
			deps[name] = "up"
		}
	}
	writeJSON(w, status, map[string]any{"status": statusWord(status), "dependencies": deps})
}

func statusWord(status int) string {
	if status == http.StatusOK {
		return "ready"
	}
	return "not ready"
}

func (h *Handler) handleProgramBlocks(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.engine.ProgramBlocks(r.Context(), r.PathValue("learnerID"), r.PathValue("programID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"blocks": statuses})
}

func (h *Handler) handleCompletion(w http.ResponseWriter, r *http.Request) {
	completion, err := h.engine.BlockCompletion(r.Context(), r.PathValue("learnerID"), r.PathValue("blockID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, completion)
}

type progressRequest struct {
	BlockID      string    `json:"block_id"`
	ChapterID    string    `json:"chapter_id"`
	MinutesDelta int       `json:"minutes_delta"`
	Kind         string    `json:"kind"`
	At           time.Time `json:"at"`
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if !decodeBody(w, r, progressSchema, &req) {
		return
	}

	kind := progression.ActivityKind(req.Kind)
	if req.ChapterID != "" && req.Kind == "" {
		kind = progression.KindView
	}
	err := h.engine.RecordActivity(r.Context(), progression.ActivityInput{
		LearnerID:    r.PathValue("learnerID"),
		BlockID:      req.BlockID,
		ChapterID:    req.ChapterID,
		MinutesDelta: req.MinutesDelta,
		Kind:         kind,
		At:           req.At,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

type attemptRequest struct {
	Answers    map[string]progression.AnswerPayload `json:"answers"`
	StartedAt  time.Time                            `json:"started_at"`
	FinishedAt time.Time                            `json:"finished_at"`
}

func (h *Handler) handleAttempt(w http.ResponseWriter, r *http.Request) {
	var req attemptRequest
	if !decodeBody(w, r, attemptSchema, &req) {
		return
	}
	if req.FinishedAt.IsZero() {
		req.FinishedAt = time.Now().UTC()
	}
	if req.StartedAt.IsZero() {
		req.StartedAt = req.FinishedAt
	}

	result, err := h.engine.SubmitAttempt(r.Context(),
		r.PathValue("learnerID"), r.PathValue("quizID"),
		req.Answers, req.StartedAt, req.FinishedAt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type submissionRequest struct {
	Answers     string   `json:"answers"`
	Attachments []string `json:"attachments"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	if !decodeBody(w, r, submissionSchema, &req) {
		return
	}

	view, err := h.engine.SubmitCaseStudy(r.Context(),
		r.PathValue("learnerID"), r.PathValue("caseStudyID"),
		req.Answers, req.Attachments)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	view, err := h.engine.GetSubmission(r.Context(), r.PathValue("learnerID"), r.PathValue("caseStudyID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	transcript, err := h.engine.BuildTranscript(r.Context(), r.PathValue("learnerID"), r.PathValue("programID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transcript)
}

func (h *Handler) handleTranscriptXLSX(w http.ResponseWriter, r *http.Request) {
	transcript, err := h.engine.BuildTranscript(r.Context(), r.PathValue("learnerID"), r.PathValue("programID"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "transcript-"+transcript.ProgramID+".xlsx"))
	if err := report.WriteTranscript(w, transcript); err != nil {
		slog.Error("transcript export failed", "error", err)
	}
}

// decodeBody validates the raw body against the schema, then decodes it.
// Returns false after writing the error response.
func decodeBody(w http.ResponseWriter, r *http.Request, schema string, dest any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "reading body: "+err.Error())
		return false
	}
	if len(body) == 0 {
		body = []byte("{}")
	}

	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(schema), gojsonschema.NewBytesLoader(body))
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload", "details": msgs})
		return false
	}

	if err := json.Unmarshal(body, dest); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "decoding body: "+err.Error())
		return false
	}
	return true
}

// writeError maps the engine's error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, progression.ErrInvalid):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, progression.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, progression.ErrConflict):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, progression.ErrUnavailable):
		w.Header().Set("Retry-After", "1")
		writeErrorMessage(w, http.StatusServiceUnavailable, "storage temporarily unavailable")
	default:
		slog.Error("unhandled error", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encoding response", "error", err)
	}
}
