package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/driveon/idverify/internal/core/domain"
)

func TestBatchJobRepositoryCreateAndGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewBatchJobRepository(db)
	created := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	job := &domain.BatchJob{
		ID:            "job-1",
		ProviderID:    "msgbatch_1",
		Type:          "document-verification",
		Status:        domain.BatchProcessing,
		TotalCount:    3,
		EstimatedCost: 0.04,
		CreatedAt:     created,
		ExpiresAt:     created.AddDate(0, 0, 29),
	}

	mock.ExpectExec("INSERT INTO batch_jobs").
		WithArgs("job-1", "msgbatch_1", "document-verification", "processing", 3, 0, 0, 0.04, created, created.AddDate(0, 0, 29), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rows := sqlmock.NewRows([]string{"id", "provider_id", "job_type", "status", "total_count", "completed_count", "failed_count", "estimated_cost", "created_at", "expires_at", "completed_at"}).
		AddRow("job-1", "msgbatch_1", "document-verification", "processing", 3, 0, 0, 0.04, created, created.AddDate(0, 0, 29), nil)
	mock.ExpectQuery("FROM batch_jobs").
		WithArgs("job-1").
		WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != domain.BatchProcessing || got.TotalCount != 3 || got.CompletedAt != nil {
		t.Fatalf("unexpected job: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBatchJobRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewBatchJobRepository(db)
	mock.ExpectQuery("FROM batch_jobs").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBatchJobRepositoryUpdateMissingJob(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewBatchJobRepository(db)
	mock.ExpectExec("UPDATE batch_jobs").
		WithArgs("missing", "", "ended", 0, 0, 0, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.Update(context.Background(), &domain.BatchJob{ID: "missing", Status: domain.BatchEnded})
	if !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
