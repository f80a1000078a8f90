package orchestrator

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"vidgen-orchestrator/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

// Handler exposes orchestrator HTTP endpoints using go-chi.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Service, Logger, and optional Metrics.
// Metrics may be nil to disable metric recording (e.g. in tests).
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m}
}

// runResponse is the JSON shape of a run snapshot.
type runResponse struct {
	RunID      string    `json:"run_id"`
	Status     RunStatus `json:"status"`
	Windows    int       `json:"windows,omitempty"`
	Frames     int       `json:"frames,omitempty"`
	OutputPath string    `json:"output_path,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StartRun handles POST /runs. The body is a GenerationRequest; a valid
// request is accepted with 202 and executes asynchronously.
func (h *Handler) StartRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid run body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	id, err := h.svc.StartRun(req)
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			h.log.Info("run rejected", slog.String("error", err.Error()))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		h.log.Error("start run failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	h.log.Info("run accepted",
		slog.String("run_id", string(id)),
		slog.Int("duration", req.Duration),
		slog.Int64("seed", req.Seed))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"run_id": string(id)})
}

// GetRun handles GET /runs/{run_id}.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id := RunID(chi.URLParam(r, "run_id"))
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	run, ok := h.svc.GetRun(id)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(runResponse{
		RunID:      string(run.ID),
		Status:     run.Status,
		Windows:    run.Windows,
		Frames:     run.Frames,
		OutputPath: run.OutputPath,
		Error:      run.Error,
		CreatedAt:  run.CreatedAt,
		UpdatedAt:  run.UpdatedAt,
	})
}
