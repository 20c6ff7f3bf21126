// Package handler exposes the grading core over HTTP for the form UI.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flyersgrade/flyersgrade/internal/catalog"
	"github.com/flyersgrade/flyersgrade/internal/grading"
	"github.com/flyersgrade/flyersgrade/internal/ledger"
	"github.com/flyersgrade/flyersgrade/internal/llm"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	catalog *catalog.Catalog
	engine  *grading.Engine
	ledger  ledger.Ledger
}

// New creates a new Handler.
func New(cat *catalog.Catalog, engine *grading.Engine, led ledger.Ledger) *Handler {
	return &Handler{catalog: cat, engine: engine, ledger: led}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/exercises", h.handleListExercises)
	r.Post("/api/grade", h.handleGrade)
	r.Get("/admin/export", h.handleExport)
}

func (h *Handler) handleListExercises(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Sanitized())
}

type gradeRequest struct {
	StudentName string            `json:"student_name"`
	ExerciseID  string            `json:"exercise_id"`
	Responses   map[string]string `json:"responses"`
}

type gradeResponse struct {
	Score     int    `json:"score"`
	Feedback  string `json:"feedback"`
	Persisted bool   `json:"persisted"`
	Warning   string `json:"warning,omitempty"`
}

func (h *Handler) handleGrade(w http.ResponseWriter, r *http.Request) {
	var req gradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ExerciseID == "" {
		http.Error(w, "exercise_id is required", http.StatusBadRequest)
		return
	}

	result, err := h.engine.Grade(r.Context(), req.ExerciseID, req.StudentName, req.Responses)
	if err != nil {
		var provErr *llm.ProviderError
		var writeErr *ledger.WriteError
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			http.Error(w, "exercise not found", http.StatusNotFound)
			return
		case errors.Is(err, grading.ErrUnsupportedType):
			http.Error(w, "unsupported exercise type", http.StatusUnprocessableEntity)
			return
		case errors.As(err, &provErr):
			slog.Error("provider call failed", "error", err)
			http.Error(w, "grading service unavailable, please try again", http.StatusBadGateway)
			return
		case errors.As(err, &writeErr) && result != nil:
			// The grade was computed; the student sees it, but the failed
			// record must not pass silently.
			writeJSON(w, http.StatusOK, gradeResponse{
				Score:     result.Score,
				Feedback:  result.Feedback,
				Persisted: false,
				Warning:   "submission could not be recorded",
			})
			return
		default:
			slog.Error("grading failed", "error", err)
			http.Error(w, "grading failed", http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, http.StatusOK, gradeResponse{
		Score:     result.Score,
		Feedback:  result.Feedback,
		Persisted: true,
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := h.ledger.Export()
	if err != nil {
		slog.Error("ledger export failed", "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	if data == nil {
		http.Error(w, "no submissions recorded yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="submissions.csv"`)
	if _, err := w.Write(data); err != nil {
		slog.Error("write export response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
