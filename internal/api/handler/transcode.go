package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/clipserve/internal/domain"
	"github.com/iconidentify/clipserve/internal/service"
)

// TranscodeHandler queues and reports ABR transcodes.
type TranscodeHandler struct {
	transcodeSvc *service.TranscodeService
	logger       *slog.Logger
}

// NewTranscodeHandler creates a new transcode handler.
func NewTranscodeHandler(transcodeSvc *service.TranscodeService, logger *slog.Logger) *TranscodeHandler {
	return &TranscodeHandler{
		transcodeSvc: transcodeSvc,
		logger:       logger,
	}
}

// TranscodeRequest is the JSON body for POST /api/v1/transcodes.
type TranscodeRequest struct {
	InputPath string                  `json:"input_path"`
	OutputDir string                  `json:"output_dir"`
	Options   domain.TranscodeOptions `json:"options"`
}

// SubmitResponse is returned after a transcode is queued.
type SubmitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobResponse describes a transcode job.
type JobResponse struct {
	JobID     string                  `json:"job_id"`
	Status    string                  `json:"status"`
	InputPath string                  `json:"input_path"`
	OutputDir string                  `json:"output_dir"`
	Attempts  int                     `json:"attempts"`
	Error     string                  `json:"error,omitempty"`
	Result    *domain.TranscodeResult `json:"result,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// Submit handles POST /api/v1/transcodes
func (h *TranscodeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req TranscodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := h.transcodeSvc.Submit(r.Context(), service.TranscodeRequest{
		InputPath: req.InputPath,
		OutputDir: req.OutputDir,
		Options:   req.Options,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, "input_path and output_dir are required")
		case errors.Is(err, domain.ErrFileNotFound):
			writeError(w, http.StatusNotFound, "input file not found")
		default:
			h.logger.Error("submit transcode failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to submit transcode")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitResponse{
		JobID:  job.ID.String(),
		Status: string(job.Status),
	})
}

// Get handles GET /api/v1/transcodes/{jobID}
func (h *TranscodeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := domain.JobID(chi.URLParam(r, "jobID"))

	job, err := h.transcodeSvc.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error("get transcode failed", "job_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}

	writeJSON(w, http.StatusOK, JobResponse{
		JobID:     job.ID.String(),
		Status:    string(job.Status),
		InputPath: job.InputPath,
		OutputDir: job.OutputDir,
		Attempts:  job.Attempts,
		Error:     job.LastError,
		Result:    job.Result,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	})
}
