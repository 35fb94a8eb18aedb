package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/chris/custodial-ledger/pkg/audit"
	"github.com/chris/custodial-ledger/pkg/custody"
	"github.com/chris/custodial-ledger/pkg/models"
	"github.com/chris/custodial-ledger/pkg/scheduler"
	"github.com/chris/custodial-ledger/pkg/storage"
	"github.com/google/uuid"
)

const maxDepositRefLength = 128

// DepositRequest is a claim that DepositRef moved ClaimedAmount base units into the
// pooled account to fund a bet of BetAmount ledger units.
type DepositRequest struct {
	UserID        string
	DepositRef    string
	ClaimedAmount int64
	BetAmount     int64
}

// DepositResult is the outcome of a credited deposit.
type DepositResult struct {
	Session *models.Session
	Balance int64
}

// ProcessDeposit verifies an inbound transfer and opens a session funded by it.
// A deposit reference is credited at most once, whatever the outcome of earlier attempts
// that got as far as the store.
func (e *Engine) ProcessDeposit(ctx context.Context, req DepositRequest) (*DepositResult, error) {
	if err := e.validateDeposit(req); err != nil {
		return nil, err
	}

	release, err := e.lockUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	defer release()

	user, err := e.loadUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	reserved, err := e.guard.Reserve(ctx, req.DepositRef)
	if err != nil {
		return nil, newError(ErrUnavailable, err, "failed to reserve deposit reference")
	}
	if !reserved {
		return nil, newError(ErrDuplicateDeposit, nil, "deposit %s has already been processed", req.DepositRef)
	}

	// From here on the reservation is either committed or released.
	settled := false
	defer func() {
		if settled {
			return
		}
		if err := e.guard.Release(context.WithoutCancel(ctx), req.DepositRef); err != nil {
			e.logger.Error("failed to release deposit reference", "deposit_ref", req.DepositRef, "error", err)
		}
	}()

	if user.ActiveSessionID != "" {
		return nil, newError(ErrSessionActive, nil, "session %s is still active", user.ActiveSessionID)
	}

	transfer, err := e.verifyTransfer(ctx, req, user)
	if err != nil {
		return nil, err
	}

	quote, err := e.prices.Quote(ctx)
	if err != nil {
		return nil, newError(ErrPriceUnavailable, err, "")
	}
	credited, err := quote.ToLedger(transfer.Amount)
	if err != nil {
		return nil, newError(ErrVerificationFailed, err, "deposit amount %d cannot be valued", transfer.Amount)
	}
	if !coversBet(credited, req.BetAmount, e.policy.PriceSlippageBps) {
		return nil, newError(ErrVerificationFailed, nil, "deposit worth %d does not cover bet of %d", credited, req.BetAmount)
	}

	now := e.now()
	session := &models.Session{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		BetAmount:     req.BetAmount,
		CarriedAmount: user.Balance,
		DepositRef:    req.DepositRef,
		DepositAmount: transfer.Amount,
		State:         models.OPEN,
		OpenedAt:      now,
		ExpiresAt:     now.Add(e.policy.SessionTTL),
		UpdatedAt:     now,
	}

	updated := *user
	updated.Balance += req.BetAmount
	updated.TotalWagered += req.BetAmount
	updated.ActiveSessionID = session.ID
	updated.UpdatedAt = now

	entries := []models.LedgerEntry{
		newEntry(session.ID, user.ID, models.EntryDeposit, 0, req.BetAmount, fmt.Sprintf("Deposit %s", req.DepositRef), now),
	}

	if err := e.store.CommitDeposit(ctx, &updated, session, entries); err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicateDepositRef):
			// Already credited by another process: keep the reference consumed.
			settled = true
			e.commitRef(ctx, req.DepositRef)
			return nil, newError(ErrDuplicateDeposit, err, "deposit %s has already been processed", req.DepositRef)
		case errors.Is(err, storage.ErrActiveSession):
			return nil, newError(ErrSessionActive, err, "")
		case errors.Is(err, storage.ErrVersionConflict):
			return nil, newError(ErrConcurrentUpdate, err, "")
		default:
			return nil, newError(ErrUnavailable, err, "failed to commit deposit")
		}
	}
	settled = true
	e.commitRef(ctx, req.DepositRef)

	e.scheduleExpiry(ctx, session)
	e.record(ctx, audit.Event{
		Type:      audit.DepositCredited,
		UserID:    user.ID,
		SessionID: session.ID,
		Message:   fmt.Sprintf("credited %d for deposit %s", req.BetAmount, req.DepositRef),
		Fields: map[string]any{
			"deposit_ref":    req.DepositRef,
			"deposit_amount": transfer.Amount,
			"bet_amount":     req.BetAmount,
			"carried_amount": session.CarriedAmount,
		},
	})

	return &DepositResult{Session: session, Balance: updated.Balance}, nil
}

func (e *Engine) validateDeposit(req DepositRequest) error {
	switch {
	case req.UserID == "":
		return newError(ErrValidation, nil, "user id is required")
	case req.DepositRef == "":
		return newError(ErrValidation, nil, "deposit reference is required")
	case len(req.DepositRef) > maxDepositRefLength:
		return newError(ErrValidation, nil, "deposit reference is too long")
	case req.ClaimedAmount <= 0:
		return newError(ErrValidation, nil, "claimed amount must be positive")
	case req.BetAmount < e.policy.MinBet || req.BetAmount > e.policy.MaxBet:
		return newError(ErrValidation, nil, "bet amount must be between %d and %d", e.policy.MinBet, e.policy.MaxBet)
	}
	return nil
}

// verifyTransfer checks the transfer against the network and the user's claim.
func (e *Engine) verifyTransfer(ctx context.Context, req DepositRequest, user *models.User) (*custody.Transfer, error) {
	transfer, err := e.verifier.Verify(ctx, req.DepositRef)
	if err != nil {
		if errors.Is(err, custody.ErrNotFound) {
			return nil, newError(ErrVerificationFailed, err, "transfer %s not found", req.DepositRef)
		}
		return nil, newError(ErrVerifierUnavailable, err, "")
	}
	if transfer == nil {
		return nil, newError(ErrVerifierUnavailable, nil, "verifier returned no transfer for %s", req.DepositRef)
	}

	switch {
	case !transfer.Confirmed:
		return nil, newError(ErrVerificationFailed, nil, "transfer %s is not confirmed", req.DepositRef)
	case transfer.To != e.policy.CustodyAddress:
		return nil, newError(ErrVerificationFailed, nil, "transfer %s was not sent to the custody account", req.DepositRef)
	case user.CustodyAddress != "" && transfer.From != user.CustodyAddress:
		return nil, newError(ErrVerificationFailed, nil, "transfer %s was not sent from the registered address", req.DepositRef)
	case transfer.Amount != req.ClaimedAmount:
		return nil, newError(ErrVerificationFailed, nil, "transfer amount %d does not match claimed amount %d", transfer.Amount, req.ClaimedAmount)
	}
	return transfer, nil
}

func (e *Engine) commitRef(ctx context.Context, ref string) {
	if err := e.guard.Commit(context.WithoutCancel(ctx), ref); err != nil {
		e.logger.Error("failed to mark deposit reference consumed", "deposit_ref", ref, "error", err)
	}
}

// scheduleExpiry is best effort. The periodic reaper still expires the session if the
// check is never delivered.
func (e *Engine) scheduleExpiry(ctx context.Context, session *models.Session) {
	if e.scheduler == nil {
		return
	}
	check := scheduler.ExpiryCheck{SessionID: session.ID, UserID: session.UserID, DueAt: session.ExpiresAt}
	if err := e.scheduler.ScheduleExpiryCheck(ctx, check, e.policy.SessionTTL); err != nil {
		e.logger.Error("CRITICAL: failed to schedule session expiry check", "session_id", session.ID, "error", err)
	}
}
