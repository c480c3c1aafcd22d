package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cardiolab/ecg-engine/pkg/apperrors"
	"github.com/cardiolab/ecg-engine/pkg/auth"
	"github.com/cardiolab/ecg-engine/pkg/dispatch"
	"github.com/cardiolab/ecg-engine/pkg/models"
	"github.com/cardiolab/ecg-engine/pkg/services"
)

const dateLayout = "2006-01-02"

// CreateECGRequest is the request body for submitting a recording.
type CreateECGRequest struct {
	Date  string          `json:"date"`
	Leads []CreateECGLead `json:"leads"`
}

// CreateECGLead is one channel of signal in a create request.
type CreateECGLead struct {
	Name         models.LeadName `json:"name"`
	Signal       []int           `json:"signal"`
	SampleNumber *int            `json:"sample_number,omitempty"`
}

// ECGResponse is the wire shape for a stored recording. Date is rendered
// date-only; leads keep their stored order.
type ECGResponse struct {
	ID    uuid.UUID      `json:"id"`
	Date  string         `json:"date"`
	JobID *uuid.UUID     `json:"job_id,omitempty"`
	Leads []*models.Lead `json:"leads"`
}

// GetECGResponse pairs the stored recording with the analysis job state.
// Task is null when no job handle is recorded or the handle is no longer
// known to the dispatcher.
type GetECGResponse struct {
	ECG  ECGResponse           `json:"ecg"`
	Task *dispatch.JobSnapshot `json:"task"`
}

// ECGHandler handles ECG submission and retrieval. Both routes are gated to
// non-admin users: recordings belong to patients, not operators.
type ECGHandler struct {
	ecgService services.ECGService
	logger     *zap.Logger
}

// NewECGHandler creates a new ECG handler.
func NewECGHandler(ecgService services.ECGService, logger *zap.Logger) *ECGHandler {
	return &ECGHandler{
		ecgService: ecgService,
		logger:     logger,
	}
}

// RegisterRoutes registers the ECG handler's routes on the given mux.
func (h *ECGHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/v1/ecg", authMiddleware.RequireNonAdmin(h.Create))
	mux.HandleFunc("GET /api/v1/ecg/{id}", authMiddleware.RequireNonAdmin(h.Get))
}

// Create handles POST /api/v1/ecg
// Persists the recording under the authenticated user and dispatches the
// analysis job. The response carries the job handle for later polling.
func (h *ECGHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := auth.RequireUser(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req CreateECGRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		if err := ErrorResponse(w, http.StatusUnprocessableEntity, "validation_error", "date: must be a valid YYYY-MM-DD date"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	ecg := &models.ECG{
		Date:  date,
		Leads: make([]*models.Lead, 0, len(req.Leads)),
	}
	for _, lead := range req.Leads {
		ecg.Leads = append(ecg.Leads, &models.Lead{
			Name:         lead.Name,
			Signal:       lead.Signal,
			SampleNumber: lead.SampleNumber,
		})
	}

	created, err := h.ecgService.Create(r.Context(), user.ID, ecg)
	if err != nil {
		switch {
		case apperrors.IsValidation(err):
			err = ErrorResponse(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		default:
			h.logger.Error("Failed to create ecg", zap.Error(err))
			err = ErrorResponse(w, http.StatusInternalServerError, "create_failed", "Failed to create ECG")
		}
		if err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, toECGResponse(created)); err != nil {
		h.logger.Error("Failed to encode ecg response", zap.Error(err))
	}
}

// Get handles GET /api/v1/ecg/{id}
// Reads are ownership-scoped: another user's recording is indistinguishable
// from a missing one.
func (h *ECGHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := auth.RequireUser(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	ecgID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid ECG id"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	ecg, task, err := h.ecgService.Get(r.Context(), user.ID, ecgID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			err = ErrorResponse(w, http.StatusNotFound, "not_found", "ECG not found")
		default:
			h.logger.Error("Failed to fetch ecg", zap.Error(err))
			err = ErrorResponse(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch ECG")
		}
		if err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := GetECGResponse{
		ECG:  toECGResponse(ecg),
		Task: task,
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ecg response", zap.Error(err))
	}
}

func toECGResponse(ecg *models.ECG) ECGResponse {
	return ECGResponse{
		ID:    ecg.ID,
		Date:  ecg.Date.Format(dateLayout),
		JobID: ecg.JobID,
		Leads: ecg.Leads,
	}
}
