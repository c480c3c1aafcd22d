package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cardiolab/ecg-engine/pkg/apperrors"
	"github.com/cardiolab/ecg-engine/pkg/database"
	"github.com/cardiolab/ecg-engine/pkg/models"
)

// ECGRepository defines the interface for ECG data access. Every read is
// scoped to an owning user: an ECG belonging to someone else is
// indistinguishable from one that does not exist.
type ECGRepository interface {
	// Create persists an ECG and its leads in one transaction.
	Create(ctx context.Context, ecg *models.ECG) error
	// GetByIDForUser fetches an ECG with its leads and any analyses, scoped
	// to the owning user. Returns apperrors.ErrNotFound when absent or owned
	// by another user.
	GetByIDForUser(ctx context.Context, ecgID, userID uuid.UUID) (*models.ECG, error)
	// SetJobID records the dispatched job handle. The handle is written
	// exactly once; a second call fails.
	SetJobID(ctx context.Context, ecgID, jobID uuid.UUID) error
	// SaveAnalyses writes one analysis result per lead in a single
	// transaction, holding a row lock on the ECG so concurrent writers of the
	// same record serialize. Either every result commits or none do.
	SaveAnalyses(ctx context.Context, ecgID uuid.UUID, analyses []*models.Analysis) error
}

// ecgRepository implements ECGRepository using PostgreSQL.
type ecgRepository struct {
	db *database.DB
}

// NewECGRepository creates a new ECG repository.
func NewECGRepository(db *database.DB) ECGRepository {
	return &ecgRepository{db: db}
}

// Create persists the ECG and its leads atomically.
func (r *ecgRepository) Create(ctx context.Context, ecg *models.ECG) error {
	if ecg.ID == uuid.Nil {
		ecg.ID = uuid.New()
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO ecg (id, user_id, date) VALUES ($1, $2, $3)`,
		ecg.ID, ecg.UserID, ecg.Date)
	if err != nil {
		return fmt.Errorf("failed to insert ecg: %w", err)
	}

	for i, lead := range ecg.Leads {
		if lead.ID == uuid.Nil {
			lead.ID = uuid.New()
		}
		lead.ECGID = ecg.ID

		_, err = tx.Exec(ctx,
			`INSERT INTO lead (id, ecg_id, position, name, signal, sample_number)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			lead.ID, ecg.ID, i, string(lead.Name), lead.Signal, lead.SampleNumber)
		if err != nil {
			return fmt.Errorf("failed to insert lead: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetByIDForUser fetches the ECG record, then its leads joined with analyses.
func (r *ecgRepository) GetByIDForUser(ctx context.Context, ecgID, userID uuid.UUID) (*models.ECG, error) {
	var ecg models.ECG
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, date, job_id FROM ecg WHERE id = $1 AND user_id = $2`,
		ecgID, userID).Scan(&ecg.ID, &ecg.UserID, &ecg.Date, &ecg.JobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ecg: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT l.id, l.ecg_id, l.name, l.signal, l.sample_number, a.id, a.result
		 FROM lead l
		 LEFT JOIN ecg_analysis a ON a.lead_id = l.id
		 WHERE l.ecg_id = $1
		 ORDER BY l.position`,
		ecgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get leads: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var lead models.Lead
		var name string
		var analysisID *uuid.UUID
		var analysisResult *int

		err := rows.Scan(
			&lead.ID,
			&lead.ECGID,
			&name,
			&lead.Signal,
			&lead.SampleNumber,
			&analysisID,
			&analysisResult,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}

		lead.Name = models.LeadName(name)
		if analysisID != nil && analysisResult != nil {
			lead.Analysis = &models.Analysis{
				ID:     *analysisID,
				LeadID: lead.ID,
				Result: *analysisResult,
			}
		}

		ecg.Leads = append(ecg.Leads, &lead)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leads: %w", err)
	}

	return &ecg, nil
}

// SetJobID records the job handle on a freshly created ECG.
func (r *ecgRepository) SetJobID(ctx context.Context, ecgID, jobID uuid.UUID) error {
	result, err := r.db.Exec(ctx,
		`UPDATE ecg SET job_id = $1 WHERE id = $2 AND job_id IS NULL`,
		jobID, ecgID)
	if err != nil {
		return fmt.Errorf("failed to set job id: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("ecg %s missing or job id already set", ecgID)
	}
	return nil
}

// SaveAnalyses writes all lead results in one transaction under a row lock on
// the ECG record.
func (r *ecgRepository) SaveAnalyses(ctx context.Context, ecgID uuid.UUID, analyses []*models.Analysis) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Serialize concurrent writers of the same ECG.
	var locked uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM ecg WHERE id = $1 FOR UPDATE`, ecgID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to lock ecg: %w", err)
	}

	for _, analysis := range analyses {
		if analysis.ID == uuid.Nil {
			analysis.ID = uuid.New()
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO ecg_analysis (id, lead_id, result) VALUES ($1, $2, $3)
			 ON CONFLICT (lead_id) DO UPDATE SET result = EXCLUDED.result`,
			analysis.ID, analysis.LeadID, analysis.Result)
		if err != nil {
			return fmt.Errorf("failed to insert analysis: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Ensure ecgRepository implements ECGRepository at compile time.
var _ ECGRepository = (*ecgRepository)(nil)
