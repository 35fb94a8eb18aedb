package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chris/custodial-ledger/pkg/audit"
	"github.com/chris/custodial-ledger/pkg/models"
	"github.com/chris/custodial-ledger/pkg/storage"
)

// ExpiryOutcome reports what ExpireSession did. Remaining is set when the session is
// still OPEN but not yet due.
type ExpiryOutcome struct {
	Expired   bool
	Remaining time.Duration
	Session   *models.Session
}

// ExpireStale expires every OPEN session older than the session TTL and returns how many
// were expired. Sessions that fail are skipped and their errors joined.
func (e *Engine) ExpireStale(ctx context.Context) (int, error) {
	cutoff := e.now().Add(-e.policy.SessionTTL)
	sessions, err := e.store.ListSessionsByState(ctx, models.OPEN, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list open sessions: %w", err)
	}

	expired := 0
	var errs []error
	for _, s := range sessions {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		out, err := e.ExpireSession(ctx, s.ID)
		if err != nil {
			e.logger.Error("failed to expire session", "session_id", s.ID, "error", err)
			errs = append(errs, fmt.Errorf("session %s: %w", s.ID, err))
			continue
		}
		if out.Expired {
			expired++
		}
	}
	return expired, errors.Join(errs...)
}

// ExpireSession expires one session if it is OPEN and past its TTL. Sessions in any other
// state are left alone.
func (e *Engine) ExpireSession(ctx context.Context, sessionID string) (*ExpiryOutcome, error) {
	session, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	release, err := e.lockUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	defer release()

	// Re-read under the lock.
	session, err = e.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State != models.OPEN {
		return &ExpiryOutcome{Session: session}, nil
	}

	now := e.now()
	due := session.OpenedAt.Add(e.policy.SessionTTL)
	if now.Before(due) {
		return &ExpiryOutcome{Remaining: due.Sub(now), Session: session}, nil
	}

	user, err := e.loadUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	updated := *user
	if updated.ActiveSessionID == session.ID {
		updated.ActiveSessionID = ""
	}
	updated.UpdatedAt = now

	closed := *session
	closed.State = models.EXPIRED
	closed.ClosedAt = &now
	closed.UpdatedAt = now

	var entries []models.LedgerEntry
	if e.policy.Expiry == ExpiryForfeit {
		stake := session.Stake()
		if updated.Balance < stake {
			e.record(ctx, audit.Event{
				Type:      audit.InvariantViolation,
				Severity:  audit.SeverityAlert,
				UserID:    user.ID,
				SessionID: session.ID,
				Message:   fmt.Sprintf("balance %d is below session stake %d at expiry", updated.Balance, stake),
			})
			return nil, newError(ErrInvariantViolation, nil, "balance %d is below session stake %d", updated.Balance, stake)
		}
		updated.Balance -= stake
		entries = []models.LedgerEntry{
			newEntry(session.ID, user.ID, models.EntryForfeit, stake, 0, fmt.Sprintf("Forfeit for expired session %s", session.ID), now),
			newEntry(session.ID, models.HouseAccount, models.EntryForfeit, 0, stake, fmt.Sprintf("Forfeit for expired session %s", session.ID), now),
		}
	}

	if err := e.store.ExpireSession(ctx, &updated, &closed, entries); err != nil {
		switch {
		case errors.Is(err, storage.ErrStateConflict):
			e.logger.Info("session changed state before expiry", "session_id", session.ID)
			return &ExpiryOutcome{Session: session}, nil
		case errors.Is(err, storage.ErrVersionConflict):
			return nil, newError(ErrConcurrentUpdate, err, "")
		default:
			return nil, newError(ErrUnavailable, err, "failed to expire session")
		}
	}

	e.record(ctx, audit.Event{
		Type:      audit.SessionExpired,
		UserID:    user.ID,
		SessionID: session.ID,
		Message:   fmt.Sprintf("session expired with policy %s", e.policy.Expiry),
		Fields:    map[string]any{"stake": session.Stake(), "policy": string(e.policy.Expiry)},
	})
	return &ExpiryOutcome{Expired: true, Session: &closed}, nil
}
