package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cardiolab/ecg-engine/pkg/analysis"
	"github.com/cardiolab/ecg-engine/pkg/apperrors"
	"github.com/cardiolab/ecg-engine/pkg/models"
	"github.com/cardiolab/ecg-engine/pkg/repositories"
)

// AnalyzeECGTask computes the zero-crossing count for every lead of one ECG
// and writes the results back in a single transaction. Store outages are
// transient and retried by the dispatcher; a missing ECG is a normal terminal
// outcome, not a retry.
type AnalyzeECGTask struct {
	ecgRepo repositories.ECGRepository
	ecgID   uuid.UUID
	userID  uuid.UUID
	logger  *zap.Logger
}

// NewAnalyzeECGTask creates an analysis task for the given ECG.
func NewAnalyzeECGTask(ecgRepo repositories.ECGRepository, ecgID, userID uuid.UUID, logger *zap.Logger) *AnalyzeECGTask {
	return &AnalyzeECGTask{
		ecgRepo: ecgRepo,
		ecgID:   ecgID,
		userID:  userID,
		logger:  logger,
	}
}

// Name implements dispatch.Task.
func (t *AnalyzeECGTask) Name() string {
	return "analyze-ecg"
}

// Execute implements dispatch.Task.
func (t *AnalyzeECGTask) Execute(ctx context.Context) error {
	ecg, err := t.ecgRepo.GetByIDForUser(ctx, t.ecgID, t.userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("ecg %s not found", t.ecgID)
		}
		return apperrors.Transient(fmt.Errorf("fetch ecg: %w", err))
	}

	analyses := make([]*models.Analysis, 0, len(ecg.Leads))
	for _, lead := range ecg.Leads {
		analyses = append(analyses, &models.Analysis{
			LeadID: lead.ID,
			Result: analysis.CountZeroCrossings(lead.Signal),
		})
	}

	if err := t.ecgRepo.SaveAnalyses(ctx, t.ecgID, analyses); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("ecg %s disappeared before analysis commit", t.ecgID)
		}
		return apperrors.Transient(fmt.Errorf("save analyses: %w", err))
	}

	t.logger.Info("ecg analyzed",
		zap.String("ecg_id", t.ecgID.String()),
		zap.Int("leads", len(analyses)))

	return nil
}
