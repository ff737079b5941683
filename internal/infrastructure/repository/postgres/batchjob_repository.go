package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/driveon/idverify/internal/core/domain"
)

type BatchJobRepository struct {
	db *sql.DB
}

func NewBatchJobRepository(db *sql.DB) *BatchJobRepository {
	return &BatchJobRepository{db: db}
}

func (r *BatchJobRepository) Create(ctx context.Context, job *domain.BatchJob) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO batch_jobs (id, provider_id, job_type, status, total_count, completed_count, failed_count, estimated_cost, created_at, expires_at, completed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`, job.ID, job.ProviderID, job.Type, string(job.Status), job.TotalCount, job.CompletedCount, job.FailedCount,
		job.EstimatedCost, job.CreatedAt, job.ExpiresAt, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("create batch job: %w", err)
	}
	return nil
}

func (r *BatchJobRepository) GetByID(ctx context.Context, id string) (*domain.BatchJob, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, provider_id, job_type, status, total_count, completed_count, failed_count, estimated_cost, created_at, expires_at, completed_at
FROM batch_jobs
WHERE id = $1
`, id)

	var job domain.BatchJob
	var status string
	err := row.Scan(
		&job.ID,
		&job.ProviderID,
		&job.Type,
		&status,
		&job.TotalCount,
		&job.CompletedCount,
		&job.FailedCount,
		&job.EstimatedCost,
		&job.CreatedAt,
		&job.ExpiresAt,
		&job.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id=%s", domain.ErrJobNotFound, id)
		}
		return nil, fmt.Errorf("get batch job by id: %w", err)
	}
	job.Status = domain.BatchStatus(status)
	return &job, nil
}

func (r *BatchJobRepository) Update(ctx context.Context, job *domain.BatchJob) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE batch_jobs
SET provider_id = $2, status = $3, total_count = $4, completed_count = $5, failed_count = $6, completed_at = $7
WHERE id = $1
`, job.ID, job.ProviderID, string(job.Status), job.TotalCount, job.CompletedCount, job.FailedCount, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("update batch job: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update batch job rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: id=%s", domain.ErrJobNotFound, job.ID)
	}
	return nil
}
