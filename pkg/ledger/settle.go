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

// SettleRequest closes a session with the game's reported final balance.
type SettleRequest struct {
	UserID       string
	SessionID    string
	FinalBalance int64
}

// Settlement is the outcome of a completed settlement. Amounts are ledger units except
// PayoutAmount, which is base units.
type Settlement struct {
	Session      *models.Session
	FinalBalance int64
	HouseCut     int64
	Payout       int64
	PayoutAmount int64
	PayoutRef    string
	Balance      int64
}

// Settle pays out a session's final balance less the house fee and closes it.
//
// The session moves to SETTLING before any funds leave the pooled account. It only
// returns to OPEN when the payer reports a definite failure; an unknown outcome leaves
// it SETTLING for the reconciler.
func (e *Engine) Settle(ctx context.Context, req SettleRequest) (*Settlement, error) {
	switch {
	case req.UserID == "":
		return nil, newError(ErrValidation, nil, "user id is required")
	case req.SessionID == "":
		return nil, newError(ErrInvalidSession, nil, "session id is required")
	case req.FinalBalance < 0:
		return nil, newError(ErrValidation, nil, "final balance must not be negative")
	}

	release, err := e.lockUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	defer release()

	session, err := e.loadSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if err := checkSettleable(session, req.UserID); err != nil {
		return nil, err
	}
	user, err := e.loadUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	stake := session.Stake()
	if user.Balance < stake {
		e.record(ctx, audit.Event{
			Type:      audit.InvariantViolation,
			Severity:  audit.SeverityAlert,
			UserID:    user.ID,
			SessionID: session.ID,
			Message:   fmt.Sprintf("balance %d is below session stake %d", user.Balance, stake),
		})
		return nil, newError(ErrInvariantViolation, nil, "balance %d is below session stake %d", user.Balance, stake)
	}

	final := req.FinalBalance
	if limit := entitlementCap(stake, e.policy.MaxPayoutMultiplier); final > limit {
		e.logger.Warn("final balance exceeds entitlement cap, clamping",
			"session_id", session.ID, "reported", final, "cap", limit)
		final = limit
	}
	houseCut, payout := splitFee(final, e.policy.FeeBps)

	quote, err := e.prices.Quote(ctx)
	if err != nil {
		return nil, newError(ErrPriceUnavailable, err, "")
	}
	amount, err := quote.ToBase(payout)
	if err != nil {
		return nil, newError(ErrPriceUnavailable, err, "payout %d cannot be converted", payout)
	}

	now := e.now()
	settling := *session
	settling.State = models.SETTLING
	settling.FinalBalance = final
	settling.HouseCut = houseCut
	settling.Payout = payout
	settling.PayoutAmount = amount
	settling.PayoutRef = ""
	settling.PayoutValidUntil = 0
	settling.SettleAttempts++
	settling.SettlingSince = &now
	settling.LastFailure = ""
	settling.UpdatedAt = now

	if err := e.store.BeginSettlement(ctx, &settling); err != nil {
		if errors.Is(err, storage.ErrStateConflict) {
			return nil, newError(ErrSettlementInProgress, err, "")
		}
		return nil, newError(ErrUnavailable, err, "failed to begin settlement")
	}

	// Funds may move from here on; the caller going away must not interrupt it.
	ctx = context.WithoutCancel(ctx)

	var receipt custody.Receipt
	if amount > 0 {
		payCtx, cancel := context.WithTimeout(ctx, e.policy.PayoutTimeout)
		receipt, err = e.payer.Pay(payCtx, user.CustodyAddress, amount)
		cancel()
		if err != nil {
			return nil, e.handlePayoutError(ctx, &settling, receipt, err)
		}
	}

	return e.completeSettlement(ctx, user, &settling, receipt, audit.SessionSettled)
}

func checkSettleable(session *models.Session, userID string) error {
	if session.UserID != userID {
		return newError(ErrNotOwner, nil, "")
	}
	switch session.State {
	case models.SETTLED:
		return newError(ErrAlreadySettled, nil, "session %s is already settled", session.ID)
	case models.EXPIRED:
		return newError(ErrSessionExpired, nil, "session %s has expired", session.ID)
	case models.SETTLING:
		return newError(ErrSettlementInProgress, nil, "")
	}
	return nil
}

// payoutDefinitelyFailed reports whether the payer guarantees no funds moved.
// Errors it does not recognise are treated as unknown outcomes.
func payoutDefinitelyFailed(err error) bool {
	if errors.Is(err, custody.ErrOutcomeUnknown) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, custody.ErrInsufficientFunds) ||
		errors.Is(err, custody.ErrInvalidAddress) ||
		errors.Is(err, custody.ErrRPCFailure)
}

func (e *Engine) handlePayoutError(ctx context.Context, session *models.Session, receipt custody.Receipt, payErr error) error {
	if payoutDefinitelyFailed(payErr) {
		reopened := *session
		reopened.State = models.OPEN
		reopened.SettlingSince = nil
		reopened.LastFailure = payErr.Error()
		reopened.UpdatedAt = e.now()

		if err := e.store.AbortSettlement(ctx, &reopened); err != nil {
			e.logger.Error("failed to reopen session after failed payout", "session_id", session.ID, "error", err)
			e.record(ctx, audit.Event{
				Type:      audit.SettlementFailed,
				Severity:  audit.SeverityAlert,
				UserID:    session.UserID,
				SessionID: session.ID,
				Message:   fmt.Sprintf("payout failed and session could not be reopened: %v", err),
			})
			return newError(ErrPayoutFailed, payErr, "payout failed: %v", payErr)
		}

		e.record(ctx, audit.Event{
			Type:      audit.SettlementFailed,
			UserID:    session.UserID,
			SessionID: session.ID,
			Message:   fmt.Sprintf("payout failed, session reopened: %v", payErr),
		})
		return newError(ErrPayoutFailed, payErr, "payout failed: %v", payErr)
	}

	pending := *session
	pending.PayoutRef = receipt.Ref
	pending.PayoutValidUntil = receipt.ValidUntil
	pending.LastFailure = payErr.Error()
	pending.UpdatedAt = e.now()
	if err := e.store.RecordSettlementAttempt(ctx, &pending); err != nil {
		e.logger.Error("failed to record payout attempt", "session_id", session.ID, "payout_ref", receipt.Ref, "error", err)
	}

	e.record(ctx, audit.Event{
		Type:      audit.SettlementPending,
		Severity:  audit.SeverityAlert,
		UserID:    session.UserID,
		SessionID: session.ID,
		Message:   fmt.Sprintf("payout outcome unknown: %v", payErr),
		Fields:    map[string]any{"payout_ref": receipt.Ref, "payout_amount": session.PayoutAmount},
	})
	return newError(ErrPayoutPending, payErr, "")
}

// completeSettlement books a paid SETTLING session as SETTLED.
func (e *Engine) completeSettlement(ctx context.Context, user *models.User, session *models.Session, receipt custody.Receipt, evType audit.EventType) (*Settlement, error) {
	now := e.now()
	stake := session.Stake()

	updated := *user
	updated.Balance -= stake
	updated.TotalWon += session.Payout
	updated.ActiveSessionID = ""
	updated.UpdatedAt = now

	closed := *session
	closed.State = models.SETTLED
	if receipt.Ref != "" {
		closed.PayoutRef = receipt.Ref
		closed.PayoutValidUntil = receipt.ValidUntil
	}
	closed.LastFailure = ""
	closed.HeldForReview = false
	closed.ClosedAt = &now
	closed.UpdatedAt = now

	entries := []models.LedgerEntry{
		newEntry(closed.ID, user.ID, models.EntryStake, stake, 0, fmt.Sprintf("Stake for session %s", closed.ID), now),
	}
	if closed.HouseCut > 0 {
		entries = append(entries, newEntry(closed.ID, models.HouseAccount, models.EntryHouseFee, 0, closed.HouseCut,
			fmt.Sprintf("House fee for session %s", closed.ID), now))
	}

	if err := e.store.CompleteSettlement(ctx, &updated, &closed, entries); err != nil {
		// The payout has been sent. Keep the ref on the SETTLING session so the
		// reconciler can finish booking it.
		attempt := *session
		attempt.PayoutRef = closed.PayoutRef
		attempt.PayoutValidUntil = closed.PayoutValidUntil
		attempt.LastFailure = fmt.Sprintf("payout sent, ledger update failed: %v", err)
		attempt.UpdatedAt = now
		if recErr := e.store.RecordSettlementAttempt(ctx, &attempt); recErr != nil {
			e.logger.Error("failed to record payout ref after ledger update failure",
				"session_id", closed.ID, "payout_ref", closed.PayoutRef, "error", recErr)
		}
		e.record(ctx, audit.Event{
			Type:      audit.InvariantViolation,
			Severity:  audit.SeverityAlert,
			UserID:    user.ID,
			SessionID: closed.ID,
			Message:   fmt.Sprintf("payout sent but ledger update failed: %v", err),
			Fields:    map[string]any{"payout_ref": closed.PayoutRef, "payout_amount": closed.PayoutAmount},
		})
		return nil, newError(ErrPayoutPending, err, "payout sent, ledger update pending reconciliation")
	}

	e.record(ctx, audit.Event{
		Type:      evType,
		UserID:    user.ID,
		SessionID: closed.ID,
		Message:   fmt.Sprintf("settled with payout %d and house cut %d", closed.Payout, closed.HouseCut),
		Fields: map[string]any{
			"final_balance": closed.FinalBalance,
			"house_cut":     closed.HouseCut,
			"payout":        closed.Payout,
			"payout_amount": closed.PayoutAmount,
			"payout_ref":    closed.PayoutRef,
		},
	})

	return &Settlement{
		Session:      &closed,
		FinalBalance: closed.FinalBalance,
		HouseCut:     closed.HouseCut,
		Payout:       closed.Payout,
		PayoutAmount: closed.PayoutAmount,
		PayoutRef:    closed.PayoutRef,
		Balance:      updated.Balance,
	}, nil
}
