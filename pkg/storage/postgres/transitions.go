package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chris/custodial-ledger/pkg/models"
	"github.com/chris/custodial-ledger/pkg/storage"
)

func (s *Store) CommitDeposit(ctx context.Context, user *models.User, session *models.Session, entries []models.LedgerEntry) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stored, err := lockUser(ctx, tx, user.ID)
		if err != nil {
			return err
		}

		// The unique index on deposit_ref is the durable replay guard.
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sessions (`+sessionColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		`, sessionArgs(session)...)
		if err != nil {
			switch name, ok := uniqueConstraint(err); {
			case ok && name == depositRefConstraint:
				return storage.ErrDuplicateDepositRef
			case ok && name == activeSessionConstraint:
				return storage.ErrActiveSession
			case ok:
				return storage.ErrStateConflict
			}
			return fmt.Errorf("insert session: %w", err)
		}

		if stored.ActiveSessionID != "" {
			return storage.ErrActiveSession
		}
		if stored.Version != user.Version {
			return storage.ErrVersionConflict
		}

		if err := updateUser(ctx, tx, user); err != nil {
			return err
		}
		return insertEntries(ctx, tx, entries)
	})
	if err != nil {
		return err
	}

	user.Version++
	return nil
}

func (s *Store) BeginSettlement(ctx context.Context, session *models.Session) error {
	return s.replaceSession(ctx, session, models.OPEN)
}

func (s *Store) RecordSettlementAttempt(ctx context.Context, session *models.Session) error {
	return s.replaceSession(ctx, session, models.SETTLING)
}

func (s *Store) AbortSettlement(ctx context.Context, session *models.Session) error {
	return s.replaceSession(ctx, session, models.SETTLING)
}

func (s *Store) CompleteSettlement(ctx context.Context, user *models.User, session *models.Session, entries []models.LedgerEntry) error {
	return s.closeSession(ctx, user, session, entries, models.SETTLING)
}

func (s *Store) ExpireSession(ctx context.Context, user *models.User, session *models.Session, entries []models.LedgerEntry) error {
	return s.closeSession(ctx, user, session, entries, models.OPEN)
}

// replaceSession overwrites a session only while the stored row is in the given state.
func (s *Store) replaceSession(ctx context.Context, session *models.Session, from models.SessionState) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := lockSession(ctx, tx, session.ID, from); err != nil {
			return err
		}
		return updateSession(ctx, tx, session)
	})
}

func (s *Store) closeSession(ctx context.Context, user *models.User, session *models.Session, entries []models.LedgerEntry, from models.SessionState) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := lockSession(ctx, tx, session.ID, from); err != nil {
			return err
		}
		stored, err := lockUser(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		if stored.Version != user.Version {
			return storage.ErrVersionConflict
		}
		if err := updateSession(ctx, tx, session); err != nil {
			return err
		}
		if err := updateUser(ctx, tx, user); err != nil {
			return err
		}
		return insertEntries(ctx, tx, entries)
	})
	if err != nil {
		return err
	}

	user.Version++
	return nil
}

func lockUser(ctx context.Context, tx *sql.Tx, userID string) (*models.User, error) {
	u, err := scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("lock user: %w", err)
	}
	return u, nil
}

func lockSession(ctx context.Context, tx *sql.Tx, sessionID string, want models.SessionState) error {
	var state string
	err := tx.QueryRowContext(ctx, `SELECT state FROM sessions WHERE id = $1 FOR UPDATE`, sessionID).Scan(&state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("lock session: %w", err)
	}
	if models.SessionState(state) != want {
		return storage.ErrStateConflict
	}
	return nil
}

func updateUser(ctx context.Context, tx *sql.Tx, u *models.User) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE users
		SET balance = $2, total_wagered = $3, total_won = $4, active_session_id = $5,
			updated_at = $6, version = version + 1
		WHERE id = $1
	`, u.ID, u.Balance, u.TotalWagered, u.TotalWon, nullable(u.ActiveSessionID), u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func updateSession(ctx context.Context, tx *sql.Tx, sess *models.Session) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE sessions
		SET state = $2, updated_at = $3, closed_at = $4,
			final_balance = $5, house_cut = $6, payout = $7, payout_amount = $8,
			payout_ref = $9, payout_valid_until = $10, settle_attempts = $11,
			settling_since = $12, last_failure = $13, held_for_review = $14
		WHERE id = $1
	`, sess.ID, string(sess.State), sess.UpdatedAt, sess.ClosedAt,
		sess.FinalBalance, sess.HouseCut, sess.Payout, sess.PayoutAmount,
		sess.PayoutRef, int64(sess.PayoutValidUntil), sess.SettleAttempts,
		sess.SettlingSince, sess.LastFailure, sess.HeldForReview)
	if err != nil {
		if name, ok := uniqueConstraint(err); ok && name == activeSessionConstraint {
			return storage.ErrActiveSession
		}
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

func insertEntries(ctx context.Context, tx *sql.Tx, entries []models.LedgerEntry) error {
	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_entries (entry_id, session_id, account_id, kind, debit, credit, description, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, e.EntryID, e.SessionID, e.AccountID, string(e.Kind), e.Debit, e.Credit, e.Description, e.Timestamp)
		if err != nil {
			return fmt.Errorf("insert ledger entry: %w", err)
		}
	}
	return nil
}
