// Package postgres implements storage.Storage on PostgreSQL through the pgx stdlib driver.
// State transitions lock the session and user rows with SELECT ... FOR UPDATE inside a
// single transaction.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chris/custodial-ledger/pkg/models"
	"github.com/chris/custodial-ledger/pkg/storage"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
)

const (
	uniqueViolation = "23505"

	depositRefConstraint    = "sessions_deposit_ref_key"
	activeSessionConstraint = "sessions_one_active_per_user"
)

// Store implements storage.Storage on a *sql.DB.
type Store struct {
	db *sql.DB
}

// New creates a Store on an open database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ storage.Storage = (*Store)(nil)

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open connection: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// withTx runs fn in a transaction, committing on nil and rolling back otherwise.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	//nolint:errcheck
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func uniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

type scanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, custody_address, balance, total_wagered, total_won, active_session_id, version, created_at, updated_at`

func scanUser(row scanner) (*models.User, error) {
	var (
		u      models.User
		active sql.NullString
	)
	err := row.Scan(&u.ID, &u.CustodyAddress, &u.Balance, &u.TotalWagered, &u.TotalWon, &active, &u.Version, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.ActiveSessionID = active.String
	return &u, nil
}

const sessionColumns = `id, user_id, bet_amount, carried_amount, deposit_ref, deposit_amount, state,
	opened_at, expires_at, updated_at, closed_at,
	final_balance, house_cut, payout, payout_amount, payout_ref, payout_valid_until,
	settle_attempts, settling_since, last_failure, held_for_review`

func scanSession(row scanner) (*models.Session, error) {
	var (
		s          models.Session
		validUntil int64
	)
	err := row.Scan(&s.ID, &s.UserID, &s.BetAmount, &s.CarriedAmount, &s.DepositRef, &s.DepositAmount, &s.State,
		&s.OpenedAt, &s.ExpiresAt, &s.UpdatedAt, &s.ClosedAt,
		&s.FinalBalance, &s.HouseCut, &s.Payout, &s.PayoutAmount, &s.PayoutRef, &validUntil,
		&s.SettleAttempts, &s.SettlingSince, &s.LastFailure, &s.HeldForReview)
	if err != nil {
		return nil, err
	}
	s.PayoutValidUntil = uint64(validUntil)
	return &s, nil
}

func sessionArgs(s *models.Session) []any {
	return []any{s.ID, s.UserID, s.BetAmount, s.CarriedAmount, s.DepositRef, s.DepositAmount, string(s.State),
		s.OpenedAt, s.ExpiresAt, s.UpdatedAt, s.ClosedAt,
		s.FinalBalance, s.HouseCut, s.Payout, s.PayoutAmount, s.PayoutRef, int64(s.PayoutValidUntil),
		s.SettleAttempts, s.SettlingSince, s.LastFailure, s.HeldForReview}
}

func nullable(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func (s *Store) GetUser(ctx context.Context, userID string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, user.ID, user.CustodyAddress, user.Balance, user.TotalWagered, user.TotalWon,
		nullable(user.ActiveSessionID), user.Version, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return nil, storage.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	created := *user
	return &created, nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select session: %w", err)
	}
	return sess, nil
}

func (s *Store) ListSessionsByState(ctx context.Context, state models.SessionState, openedBy time.Time) ([]models.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE state = $1 AND opened_at <= $2
		ORDER BY opened_at
	`, string(state), openedBy)
	if err != nil {
		return nil, fmt.Errorf("select sessions by state: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func (s *Store) ListLedgerEntries(ctx context.Context, limit int32) ([]models.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_id, session_id, account_id, kind, debit, credit, description, created_at
		FROM ledger_entries
		ORDER BY created_at DESC, entry_id
		LIMIT NULLIF($1::int, 0)
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("select ledger entries: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.EntryID, &e.SessionID, &e.AccountID, &e.Kind, &e.Debit, &e.Credit, &e.Description, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}
