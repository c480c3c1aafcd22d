package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cardiolab/ecg-engine/pkg/apperrors"
	"github.com/cardiolab/ecg-engine/pkg/dispatch"
	"github.com/cardiolab/ecg-engine/pkg/models"
	"github.com/cardiolab/ecg-engine/pkg/repositories"
)

// Dispatcher is the slice of the job queue the ECG service needs. Satisfied
// by *dispatch.Queue.
type Dispatcher interface {
	Enqueue(task dispatch.Task) (uuid.UUID, error)
	Status(ctx context.Context, id uuid.UUID) (dispatch.JobSnapshot, error)
}

// ECGService orchestrates the ingestion and status-polling pipeline:
// validate, persist, dispatch on create; record plus job status on read.
type ECGService interface {
	// Create validates the ECG, persists it with its leads, enqueues the
	// analysis job and records the job handle. Validation failures surface
	// before anything is persisted.
	Create(ctx context.Context, userID uuid.UUID, ecg *models.ECG) (*models.ECG, error)
	// Get fetches an ECG owned by userID along with the current analysis job
	// status, or nil status if no job handle is recorded (or the dispatcher
	// no longer knows the handle).
	Get(ctx context.Context, userID, ecgID uuid.UUID) (*models.ECG, *dispatch.JobSnapshot, error)
}

// ecgService implements ECGService.
type ecgService struct {
	ecgRepo    repositories.ECGRepository
	dispatcher Dispatcher
	logger     *zap.Logger
}

// NewECGService creates a new ECG service with dependencies.
func NewECGService(ecgRepo repositories.ECGRepository, dispatcher Dispatcher, logger *zap.Logger) ECGService {
	return &ecgService{
		ecgRepo:    ecgRepo,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// validate checks the input shape before any persistence happens.
func validate(ecg *models.ECG) error {
	if ecg.Date.IsZero() {
		return apperrors.NewValidation("date", "must be present")
	}

	for i, lead := range ecg.Leads {
		if !models.IsValidLeadName(lead.Name) {
			return apperrors.NewValidation(
				fmt.Sprintf("leads[%d].name", i),
				fmt.Sprintf("%q is not a standard clinical lead label", lead.Name))
		}
		if len(lead.Signal) == 0 {
			return apperrors.NewValidation(
				fmt.Sprintf("leads[%d].signal", i), "must not be empty")
		}
		if lead.SampleNumber != nil && *lead.SampleNumber <= 0 {
			return apperrors.NewValidation(
				fmt.Sprintf("leads[%d].sample_number", i), "must be greater than 0")
		}
	}

	return nil
}

// Create runs the ordered pipeline: persist ECG with leads, enqueue the
// analysis job, record the handle. The persist must be durably visible
// before the job is enqueued; a crash between the steps leaves an ECG
// without a job handle, which the client can observe.
func (s *ecgService) Create(ctx context.Context, userID uuid.UUID, ecg *models.ECG) (*models.ECG, error) {
	if err := validate(ecg); err != nil {
		return nil, err
	}

	ecg.UserID = userID
	if err := s.ecgRepo.Create(ctx, ecg); err != nil {
		return nil, err
	}

	task := NewAnalyzeECGTask(s.ecgRepo, ecg.ID, userID, s.logger)
	jobID, err := s.dispatcher.Enqueue(task)
	if err != nil {
		// The ECG is already persisted; surface the failure rather than hide
		// a record that will never be analyzed.
		return nil, fmt.Errorf("failed to enqueue analysis: %w", err)
	}

	if err := s.ecgRepo.SetJobID(ctx, ecg.ID, jobID); err != nil {
		return nil, err
	}
	ecg.JobID = &jobID

	s.logger.Info("ecg created",
		zap.String("ecg_id", ecg.ID.String()),
		zap.String("job_id", jobID.String()),
		zap.Int("leads", len(ecg.Leads)))

	return ecg, nil
}

// Get joins the stored record with the dispatcher's job state.
func (s *ecgService) Get(ctx context.Context, userID, ecgID uuid.UUID) (*models.ECG, *dispatch.JobSnapshot, error) {
	ecg, err := s.ecgRepo.GetByIDForUser(ctx, ecgID, userID)
	if err != nil {
		return nil, nil, err
	}

	if ecg.JobID == nil {
		return ecg, nil, nil
	}

	snap, err := s.dispatcher.Status(ctx, *ecg.JobID)
	if err != nil {
		if errors.Is(err, dispatch.ErrUnknownJob) {
			// Handle outlived the status store (e.g. restart with the
			// in-memory store). The record itself is still authoritative.
			s.logger.Debug("job handle unknown to dispatcher",
				zap.String("ecg_id", ecgID.String()),
				zap.String("job_id", ecg.JobID.String()))
			return ecg, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to fetch job status: %w", err)
	}

	return ecg, &snap, nil
}

// Ensure ecgService implements ECGService at compile time.
var _ ECGService = (*ecgService)(nil)
