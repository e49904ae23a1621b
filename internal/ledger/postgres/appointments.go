package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sajilotech/frontdesk/internal/domain"
	"github.com/sajilotech/frontdesk/internal/ledger"
)

// Ledger is the Postgres-backed record store. Slot exclusivity and the
// one-active-booking-per-identity rule are enforced by partial unique
// indexes, so a commit is a single insert and races resolve inside the
// database.
type Ledger struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

var _ ledger.Store = (*Ledger)(nil)

const (
	slotConstraint     = "uq_appointments_slot"
	identityConstraint = "uq_appointments_identity"
)

// EnsureSchema creates the tables and indexes the ledger needs. Called once
// at startup; failure here is fatal.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS session_metadata (
			session_id VARCHAR(36) PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_activity TIMESTAMPTZ NOT NULL DEFAULT now(),
			expired_at TIMESTAMPTZ,
			user_agent TEXT,
			ip_address VARCHAR(45)
		)`,
		`CREATE TABLE IF NOT EXISTS appointments (
			id BIGSERIAL PRIMARY KEY,
			session_id VARCHAR(36) NOT NULL,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL,
			time TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'confirmed',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ` + slotConstraint + `
			ON appointments (date, time) WHERE status = 'confirmed'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ` + identityConstraint + `
			ON appointments (email, phone) WHERE status = 'confirmed'`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_email ON appointments (email)`,
		`CREATE TABLE IF NOT EXISTS conversation_history (
			id BIGSERIAL PRIMARY KEY,
			session_id VARCHAR(36) NOT NULL,
			user_message TEXT NOT NULL,
			bot_response TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_history_session_id
			ON conversation_history (session_id)`,
	}

	for _, stmt := range stmts {
		if _, err := l.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

const appointmentCols = `id, session_id, name, email, phone, date, time, status, created_at`

func (l *Ledger) SaveAppointment(ctx context.Context, profile *domain.UserProfile, sessionID string) (int64, ledger.ReserveOutcome, error) {
	const q = `INSERT INTO appointments (session_id, name, email, phone, date, time, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'confirmed')
		RETURNING id`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	identity := profile.Identity()

	var id int64
	err := l.pool.QueryRow(ctx, q,
		sessionID, profile.Name, identity.Email, identity.Phone, profile.Date, profile.Time,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case slotConstraint:
				return 0, ledger.SlotConflict, nil
			case identityConstraint:
				return 0, ledger.DuplicateBooking, nil
			}
		}
		return 0, 0, err
	}
	return id, ledger.Reserved, nil
}

func (l *Ledger) CancelAppointment(ctx context.Context, identity domain.Identity, date, timeOfDay string) (bool, error) {
	q := `UPDATE appointments SET status='cancelled'
		WHERE email=$1 AND phone=$2 AND status='confirmed'`
	args := []any{identity.Email, identity.Phone}
	if date != "" {
		args = append(args, date)
		q += fmt.Sprintf(` AND date=$%d`, len(args))
	}
	if timeOfDay != "" {
		args = append(args, timeOfDay)
		q += fmt.Sprintf(` AND time=$%d`, len(args))
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := l.pool.Exec(ctx, q, args...)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (l *Ledger) FindConfirmedAppointment(ctx context.Context, email, phone string) (*domain.Appointment, error) {
	const q = `SELECT ` + appointmentCols + ` FROM appointments
		WHERE email=$1 AND phone=$2 AND status='confirmed'
		ORDER BY created_at DESC LIMIT 1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var a domain.Appointment
	err := l.pool.QueryRow(ctx, q, domain.NormalizeEmail(email), domain.NormalizePhone(phone)).Scan(
		&a.ID, &a.SessionID, &a.Name, &a.Email, &a.Phone,
		&a.Date, &a.Time, &a.Status, &a.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (l *Ledger) BookedTimes(ctx context.Context, date string) ([]string, error) {
	const q = `SELECT time FROM appointments
		WHERE date=$1 AND status='confirmed' ORDER BY time`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := l.pool.Query(ctx, q, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

func (l *Ledger) IsSlotFree(ctx context.Context, date, timeOfDay string) (bool, error) {
	const q = `SELECT 1 FROM appointments
		WHERE date=$1 AND time=$2 AND status='confirmed' LIMIT 1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var one int
	err := l.pool.QueryRow(ctx, q, date, timeOfDay).Scan(&one)
	if err == pgx.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

func (l *Ledger) HasActiveBooking(ctx context.Context, identity domain.Identity) (bool, error) {
	const q = `SELECT 1 FROM appointments
		WHERE email=$1 AND phone=$2 AND status='confirmed' LIMIT 1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var one int
	err := l.pool.QueryRow(ctx, q, identity.Email, identity.Phone).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
