// Package ledger is the custodial ledger and settlement engine.
//
// Every operation that reads or writes a user's balance, or a session owned by that
// user, runs while holding that user's lock. Deposit references are additionally
// reserved in a global idempotency guard before any external call is made.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chris/custodial-ledger/pkg/audit"
	"github.com/chris/custodial-ledger/pkg/custody"
	"github.com/chris/custodial-ledger/pkg/idempotency"
	"github.com/chris/custodial-ledger/pkg/models"
	"github.com/chris/custodial-ledger/pkg/pricing"
	"github.com/chris/custodial-ledger/pkg/scheduler"
	"github.com/chris/custodial-ledger/pkg/storage"
	"github.com/google/uuid"
)

// Engine implements deposits, settlement, expiry and reconciliation.
type Engine struct {
	store    storage.Storage
	verifier custody.Verifier
	payer    custody.Payer
	prices   pricing.Source
	guard    idempotency.Guard
	policy   Policy

	scheduler scheduler.Scheduler
	audit     audit.Recorder
	addresses custody.AddressValidator
	logger    *slog.Logger
	now       func() time.Time

	locks *userLocks
}

// Option configures optional Engine collaborators.
type Option func(*Engine)

// WithScheduler enqueues an expiry check for every opened session.
func WithScheduler(s scheduler.Scheduler) Option {
	return func(e *Engine) { e.scheduler = s }
}

// WithAudit replaces the default log-based audit recorder.
func WithAudit(r audit.Recorder) Option {
	return func(e *Engine) { e.audit = r }
}

// WithAddressValidator validates custody addresses at registration.
func WithAddressValidator(v custody.AddressValidator) Option {
	return func(e *Engine) { e.addresses = v }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine. The policy is validated.
func New(store storage.Storage, verifier custody.Verifier, payer custody.Payer, prices pricing.Source, guard idempotency.Guard, policy Policy, opts ...Option) (*Engine, error) {
	if store == nil || verifier == nil || payer == nil || prices == nil || guard == nil {
		return nil, errors.New("ledger: store, verifier, payer, prices and guard are required")
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("ledger: invalid policy: %w", err)
	}

	e := &Engine{
		store:    store,
		verifier: verifier,
		payer:    payer,
		prices:   prices,
		guard:    guard,
		policy:   policy,
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
		locks:    newUserLocks(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.audit == nil {
		e.audit = audit.NewLogRecorder(e.logger)
	}
	return e, nil
}

// CustodyAddress returns the pooled account deposits must be sent to.
func (e *Engine) CustodyAddress() string {
	return e.policy.CustodyAddress
}

// Policy returns the rules the engine enforces.
func (e *Engine) Policy() Policy {
	return e.policy
}

// lockUser waits at most LockTimeout for the user's lock.
func (e *Engine) lockUser(ctx context.Context, userID string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, e.policy.LockTimeout)
	defer cancel()

	release, err := e.locks.acquire(lockCtx, userID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, newError(ErrLockTimeout, ctx.Err(), "request cancelled while waiting for user lock")
		}
		return nil, newError(ErrLockTimeout, err, "")
	}
	return release, nil
}

func (e *Engine) loadUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newError(ErrUserNotFound, nil, "user %s not found", userID)
		}
		return nil, newError(ErrUnavailable, err, "failed to load user")
	}
	return user, nil
}

func (e *Engine) loadSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newError(ErrInvalidSession, nil, "session %s not found", sessionID)
		}
		return nil, newError(ErrUnavailable, err, "failed to load session")
	}
	return session, nil
}

// record writes an audit event. Audit failures are logged and never fail the caller.
func (e *Engine) record(ctx context.Context, ev audit.Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Severity == "" {
		ev.Severity = audit.SeverityInfo
	}
	ev.At = e.now().UTC()
	if err := e.audit.Record(ctx, ev); err != nil {
		e.logger.Error("failed to record audit event", "type", ev.Type, "session_id", ev.SessionID, "error", err)
	}
}

func newEntry(sessionID, accountID string, kind models.EntryKind, debit, credit int64, description string, at time.Time) models.LedgerEntry {
	return models.LedgerEntry{
		EntryID:     uuid.NewString(),
		SessionID:   sessionID,
		AccountID:   accountID,
		Kind:        kind,
		Debit:       debit,
		Credit:      credit,
		Description: description,
		Timestamp:   at,
		GSI1PK:      "LEDGER_ENTRIES",
	}
}
