package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/chris/custodial-ledger/pkg/audit"
	"github.com/chris/custodial-ledger/pkg/custody"
	"github.com/chris/custodial-ledger/pkg/models"
	"github.com/chris/custodial-ledger/pkg/storage"
)

// ReconcileReport counts what a reconciliation pass did with each SETTLING session.
type ReconcileReport struct {
	Settled  int `json:"settled"`
	Reverted int `json:"reverted"`
	Held     int `json:"held"`
	Pending  int `json:"pending"`
}

type reconcileOutcome int

const (
	outcomeSkipped reconcileOutcome = iota
	outcomePending
	outcomeSettled
	outcomeReverted
	outcomeHeld
)

// ReconcileSettling resolves sessions stuck in SETTLING. A payout the network confirms is
// booked as SETTLED and never sent again. A payout that can no longer land reopens the
// session. Anything else older than the settling timeout is held for review.
func (e *Engine) ReconcileSettling(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	sessions, err := e.store.ListSessionsByState(ctx, models.SETTLING, e.now())
	if err != nil {
		return report, fmt.Errorf("failed to list settling sessions: %w", err)
	}

	var errs []error
	for _, s := range sessions {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		outcome, err := e.reconcileSession(ctx, s.ID)
		if err != nil {
			e.logger.Error("failed to reconcile session", "session_id", s.ID, "error", err)
			errs = append(errs, fmt.Errorf("session %s: %w", s.ID, err))
			continue
		}
		switch outcome {
		case outcomeSettled:
			report.Settled++
		case outcomeReverted:
			report.Reverted++
		case outcomeHeld:
			report.Held++
		case outcomePending:
			report.Pending++
		}
	}
	return report, errors.Join(errs...)
}

func (e *Engine) reconcileSession(ctx context.Context, sessionID string) (reconcileOutcome, error) {
	session, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return outcomeSkipped, err
	}

	release, err := e.lockUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrLockTimeout) && ctx.Err() == nil {
			// A settlement for this user is still running.
			return outcomePending, nil
		}
		return outcomeSkipped, err
	}
	defer release()

	session, err = e.loadSession(ctx, sessionID)
	if err != nil {
		return outcomeSkipped, err
	}
	if session.State != models.SETTLING {
		return outcomeSkipped, nil
	}
	if session.HeldForReview {
		return outcomeHeld, nil
	}

	if session.PayoutRef != "" {
		receipt := custody.Receipt{Ref: session.PayoutRef, ValidUntil: session.PayoutValidUntil}
		status, err := e.payer.PayoutStatus(ctx, receipt)
		if err != nil {
			e.logger.Warn("failed to query payout status", "session_id", session.ID, "payout_ref", session.PayoutRef, "error", err)
			status = custody.PayoutPending
		}

		switch status {
		case custody.PayoutConfirmed:
			user, err := e.loadUser(ctx, session.UserID)
			if err != nil {
				return outcomeSkipped, err
			}
			if _, err := e.completeSettlement(ctx, user, session, receipt, audit.SettlementReconciled); err != nil {
				return outcomeSkipped, err
			}
			return outcomeSettled, nil
		case custody.PayoutFailed:
			if err := e.reopen(ctx, session, fmt.Sprintf("payout %s did not land", session.PayoutRef)); err != nil {
				return outcomeSkipped, err
			}
			e.record(ctx, audit.Event{
				Type:      audit.SettlementReconciled,
				UserID:    session.UserID,
				SessionID: session.ID,
				Message:   fmt.Sprintf("payout %s expired without landing, session reopened", session.PayoutRef),
			})
			return outcomeReverted, nil
		}
	}

	since := session.OpenedAt
	if session.SettlingSince != nil {
		since = *session.SettlingSince
	}
	if e.now().Sub(since) <= e.policy.SettlingTimeout {
		return outcomePending, nil
	}

	held := *session
	held.HeldForReview = true
	held.UpdatedAt = e.now()
	if err := e.store.RecordSettlementAttempt(ctx, &held); err != nil {
		return outcomeSkipped, fmt.Errorf("failed to hold session for review: %w", err)
	}
	e.record(ctx, audit.Event{
		Type:      audit.SettlementHeld,
		Severity:  audit.SeverityAlert,
		UserID:    session.UserID,
		SessionID: session.ID,
		Message:   "settlement outcome could not be determined, held for manual review",
		Fields: map[string]any{
			"payout_ref":    session.PayoutRef,
			"payout_amount": session.PayoutAmount,
			"attempts":      session.SettleAttempts,
			"last_failure":  session.LastFailure,
		},
	})
	return outcomeHeld, nil
}

// reopen moves a SETTLING session back to OPEN.
func (e *Engine) reopen(ctx context.Context, session *models.Session, reason string) error {
	reopened := *session
	reopened.State = models.OPEN
	reopened.SettlingSince = nil
	reopened.HeldForReview = false
	reopened.LastFailure = reason
	reopened.UpdatedAt = e.now()
	if err := e.store.AbortSettlement(ctx, &reopened); err != nil {
		if errors.Is(err, storage.ErrStateConflict) {
			return newError(ErrSettlementInProgress, err, "session %s changed state", session.ID)
		}
		return newError(ErrUnavailable, err, "failed to reopen session")
	}
	return nil
}

// Resolution is an operator's verdict on a held settlement.
type Resolution struct {
	// Paid reports that the payout landed. PayoutRef identifies it when the session does
	// not already carry one.
	Paid      bool
	PayoutRef string
	Note      string
}

// ResolveSettlement lets an operator close out a SETTLING session by hand: as SETTLED
// when the payout is known to have landed, or back to OPEN when it is known not to have.
func (e *Engine) ResolveSettlement(ctx context.Context, sessionID string, res Resolution) (*models.Session, error) {
	session, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	release, err := e.lockUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	defer release()

	session, err = e.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch session.State {
	case models.SETTLED:
		return nil, newError(ErrAlreadySettled, nil, "session %s is already settled", session.ID)
	case models.EXPIRED:
		return nil, newError(ErrSessionExpired, nil, "session %s has expired", session.ID)
	case models.OPEN:
		return nil, newError(ErrValidation, nil, "session %s is not settling", session.ID)
	}

	var resolved *models.Session
	if res.Paid {
		ref := session.PayoutRef
		if res.PayoutRef != "" {
			ref = res.PayoutRef
		}
		if ref == "" && session.PayoutAmount > 0 {
			return nil, newError(ErrValidation, nil, "payout ref is required to resolve a paid settlement")
		}
		user, err := e.loadUser(ctx, session.UserID)
		if err != nil {
			return nil, err
		}
		receipt := custody.Receipt{Ref: ref, ValidUntil: session.PayoutValidUntil}
		settlement, err := e.completeSettlement(ctx, user, session, receipt, audit.SettlementResolved)
		if err != nil {
			return nil, err
		}
		resolved = settlement.Session
	} else {
		reason := "resolved as unpaid by operator"
		if res.Note != "" {
			reason += ": " + res.Note
		}
		if err := e.reopen(ctx, session, reason); err != nil {
			return nil, err
		}
		resolved, err = e.loadSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		e.record(ctx, audit.Event{
			Type:      audit.SettlementResolved,
			UserID:    session.UserID,
			SessionID: session.ID,
			Message:   reason,
		})
	}
	return resolved, nil
}
