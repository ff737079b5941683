package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/driveon/idverify/internal/core/domain"
)

type BookingRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{db: db, now: time.Now}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *BookingRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS bookings (
	id TEXT PRIMARY KEY,
	guest_name TEXT NOT NULL,
	document_front TEXT NOT NULL DEFAULT '',
	document_back TEXT NOT NULL DEFAULT '',
	jurisdiction TEXT NOT NULL DEFAULT '',
	verification JSONB,
	verification_confidence INT NOT NULL DEFAULT 0,
	verified_at TIMESTAMPTZ,
	verified_by TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_bookings_unverified
	ON bookings(created_at)
	WHERE verification IS NULL AND document_front <> '';

CREATE TABLE IF NOT EXISTS batch_jobs (
	id TEXT PRIMARY KEY,
	provider_id TEXT NOT NULL DEFAULT '',
	job_type TEXT NOT NULL,
	status TEXT NOT NULL,
	total_count INT NOT NULL DEFAULT 0,
	completed_count INT NOT NULL DEFAULT 0,
	failed_count INT NOT NULL DEFAULT 0,
	estimated_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_batch_jobs_status ON batch_jobs(status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, guest_name, document_front, document_back, jurisdiction, verification, verification_confidence, verified_at, verified_by
FROM bookings
WHERE id = $1
`, id)

	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id=%s", domain.ErrBookingNotFound, id)
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}
	return booking, nil
}

func (r *BookingRepository) SaveVerification(ctx context.Context, bookingID string, result *domain.VerificationResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE bookings
SET verification = $2, verification_confidence = $3, verified_at = $4, verified_by = $5
WHERE id = $1
`, bookingID, payload, result.Confidence, r.now().UTC(), result.Model)
	if err != nil {
		return fmt.Errorf("save verification: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save verification rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: id=%s", domain.ErrBookingNotFound, bookingID)
	}
	return nil
}

func (r *BookingRepository) ListUnverified(ctx context.Context, limit int) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, guest_name, document_front, document_back, jurisdiction, verification, verification_confidence, verified_at, verified_by
FROM bookings
WHERE verification IS NULL AND document_front <> ''
ORDER BY created_at
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unverified bookings: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, *booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var booking domain.Booking
	var verificationRaw []byte
	var verifiedAt sql.NullTime

	err := row.Scan(
		&booking.ID,
		&booking.GuestName,
		&booking.DocumentFront,
		&booking.DocumentBack,
		&booking.Jurisdiction,
		&verificationRaw,
		&booking.VerifConfScore,
		&verifiedAt,
		&booking.VerifiedBy,
	)
	if err != nil {
		return nil, err
	}

	if len(verificationRaw) > 0 {
		var result domain.VerificationResult
		if err := json.Unmarshal(verificationRaw, &result); err != nil {
			return nil, fmt.Errorf("unmarshal verification: %w", err)
		}
		booking.Verification = &result
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		booking.VerifiedAt = &t
	}
	return &booking, nil
}
