package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/chris/custodial-ledger/pkg/audit"
	"github.com/chris/custodial-ledger/pkg/custody"
	"github.com/chris/custodial-ledger/pkg/models"
	"github.com/chris/custodial-ledger/pkg/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSettle(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		res := f.deposit(t, "txA", 10)
		f.payer.On("Pay", mock.Anything, aliceAddress, int64(36*lamportsPerCent)).
			Return(custody.Receipt{Ref: "sig1", ValidUntil: 900}, nil).Once()

		out, err := f.engine.Settle(ctx, SettleRequest{UserID: "alice", SessionID: res.Session.ID, FinalBalance: 40})
		require.NoError(t, err)

		assert.Equal(t, int64(40), out.FinalBalance)
		assert.Equal(t, int64(4), out.HouseCut)
		assert.Equal(t, int64(36), out.Payout)
		assert.Equal(t, int64(1_800_000), out.PayoutAmount)
		assert.Equal(t, "sig1", out.PayoutRef)
		assert.Equal(t, int64(0), out.Balance)

		session := f.session(t, res.Session.ID)
		assert.Equal(t, models.SETTLED, session.State)
		assert.Equal(t, "sig1", session.PayoutRef)
		assert.Equal(t, 1, session.SettleAttempts)
		assert.NotNil(t, session.ClosedAt)

		user := f.user(t, "alice")
		assert.Equal(t, int64(0), user.Balance)
		assert.Equal(t, int64(36), user.TotalWon)
		assert.Empty(t, user.ActiveSessionID)

		entries, err := f.store.ListLedgerEntries(ctx, 10)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, models.EntryHouseFee, entries[0].Kind)
		assert.Equal(t, models.HouseAccount, entries[0].AccountID)
		assert.Equal(t, int64(4), entries[0].Credit)
		assert.Equal(t, models.EntryStake, entries[1].Kind)
		assert.Equal(t, int64(10), entries[1].Debit)

		assert.Len(t, f.audit.ofType(audit.SessionSettled), 1)
	})

	t.Run("Second Settle Is Rejected", func(t *testing.T) {
		f := newFixture(t)
		res := f.deposit(t, "txA", 10)
		f.payer.On("Pay", mock.Anything, aliceAddress, mock.Anything).Return(custody.Receipt{Ref: "sig1"}, nil).Once()

		_, err := f.engine.Settle(ctx, SettleRequest{UserID: "alice", SessionID: res.Session.ID, FinalBalance: 40})
		require.NoError(t, err)

		_, err = f.engine.Settle(ctx, SettleRequest{UserID: "alice", SessionID: res.Session.ID, FinalBalance: 40})
		assert.ErrorIs(t, err, ErrAlreadySettled)
		assert.Equal(t, int64(36), f.user(t, "alice").TotalWon)
	})

	t.Run("Not Owner", func(t *testing.T) {
		f := newFixture(t)
		f.addUser(t, "bob", bobAddress)
		res := f.deposit(t, "txA", 10)

		_, err := f.engine.Settle(ctx, SettleRequest{UserID: "bob", SessionID: res.Session.ID, FinalBalance: 40})
		assert.ErrorIs(t, err, ErrNotOwner)
		assert.Equal(t, models.OPEN, f.session(t, res.Session.ID).State)
	})

	t.Run("Unknown Session", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.Settle(ctx, SettleRequest{UserID: "alice", SessionID: "missing", FinalBalance: 40})
		assert.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("Negative Final Balance", func(t *testing.T) {
		f := newFixture(t)
		res := f.deposit(t, "txA", 10)
		_, err := f.engine.Settle(ctx, SettleRequest{UserID: "alice", SessionID: res.Session.ID, FinalBalance: -1})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Final Balance Is Capped", func(t *testing.T) {
		f := newFixture(t)
		res := f.deposit(t, "txA", 10)
		f.payer.On("Pay", mock.Anything, aliceAddress, int64(90*lamportsPerCent)).Return(custody.Receipt{Ref: "sig1"}, nil).Once()

		out, err := f.engine.Settle(ctx, SettleRequest{UserID: "alice", SessionID: res.Session.ID, FinalBalance: 1_000_000})
		require.NoError(t, err)
		assert.Equal(t, int64(100), out.FinalBalance)
		assert.Equal(t, int64(10), out.HouseCut)
		assert.Equal(t, int64(90), out.Payout)
	})

	t.Run("Zero Payout Skips Transfer", func(t *testing.T) {
		f := newFixture(t)
		res := f.deposit(t, "txA", 10)

		out, err := f.engine.Settle(ctx, SettleRequest{UserID: "alice", SessionID: res.Session.ID, FinalBalance: 0})
		require.NoError(t, err)
		assert.Equal(t, int64(0), out.Payout)
		assert.Empty(t, out.PayoutRef)
		assert.Equal(t, models.SETTLED, f.session(t, res.Session.ID).State)
		f.payer.AssertNotCalled(t, "Pay", mock.Anything, mock.Anything, mock.Anything)

		entries, err := f.store.ListLedgerEntries(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("Definite Payout Failure Reopens Session", func(t *testing.T) {
		f := newFixture(t)
		res := f.deposit(t, "txA", 10)
		f.payer.On("Pay", mock.Anything, aliceAddress, mock.Anything).Return(custody.Receipt{}, custody.ErrInsufficientFunds).Once()

		_, err := f.engine.Settle(ctx, SettleRequest{UserID: "alice", SessionID: res.Session.ID, FinalBalance: 40})
		assert.ErrorIs(t, err, ErrPayoutFailed)

		session := f.session(t, res.Session.ID)
		assert.Equal(t, models.OPEN, session.State)
		assert.Contains(t, session.LastFailure, "insufficient funds")
		assert.Equal(t, int64(10), f.user(t, "alice").Balance)

		f.payer.On("Pay", mock.Anything, aliceAddress, mock.Anything).Return(custody.Receipt{Ref: "sig2"}, nil).Once()
		out, err := f.engine.Settle(ctx, SettleRequest{UserID: "alice", SessionID: res.Session.ID, FinalBalance: 40})
		require.NoError(t, err)
		assert.Equal(t, 2, out.Session.SettleAttempts)
		assert.Equal(t, int64(0), out.Balance)
	})

	t.Run("Unknown Payout Outcome Stays Settling", func(t *testing.T) {
		f := newFixture(t)
		res := f.deposit(t, "txA", 10)
		f.payer.On("Pay", mock.Anything, aliceAddress, mock.Anything).
			Return(custody.Receipt{Ref: "sig1", ValidUntil: 900}, custody.ErrOutcomeUnknown).Once()

		_, err := f.engine.Settle(ctx, SettleRequest{UserID: "alice", SessionID: res.Session.ID, FinalBalance: 40})
		assert.ErrorIs(t, err, ErrPayoutPending)

		session := f.session(t, res.Session.ID)
		assert.Equal(t, models.SETTLING, session.State)
		assert.Equal(t, "sig1", session.PayoutRef)
		assert.Equal(t, uint64(900), session.PayoutValidUntil)
		assert.Equal(t, int64(10), f.user(t, "alice").Balance)

		_, err = f.engine.Settle(ctx, SettleRequest{UserID: "alice", SessionID: res.Session.ID, FinalBalance: 40})
		assert.ErrorIs(t, err, ErrSettlementInProgress)
		assert.Len(t, f.audit.ofType(audit.SettlementPending), 1)
	})

	t.Run("Payout Timeout Stays Settling", func(t *testing.T) {
		f := newFixture(t, func(p *Policy) {
			p.PayoutTimeout = 20 * time.Millisecond
			p.LockTimeout = time.Second
		})
		res := f.deposit(t, "txA", 10)
		f.payer.On("Pay", mock.Anything, aliceAddress, mock.Anything).
			Run(func(args mock.Arguments) {
				<-args.Get(0).(context.Context).Done()
			}).
			Return(custody.Receipt{}, context.DeadlineExceeded).Once()

		_, err := f.engine.Settle(ctx, SettleRequest{UserID: "alice", SessionID: res.Session.ID, FinalBalance: 40})
		assert.ErrorIs(t, err, ErrPayoutPending)
		assert.Equal(t, models.SETTLING, f.session(t, res.Session.ID).State)
	})

	t.Run("Caller Cancellation Does Not Interrupt Payout", func(t *testing.T) {
		f := newFixture(t)
		res := f.deposit(t, "txA", 10)
		callCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		var payErr error
		f.payer.On("Pay", mock.Anything, aliceAddress, mock.Anything).
			Run(func(args mock.Arguments) {
				cancel()
				payErr = args.Get(0).(context.Context).Err()
			}).
			Return(custody.Receipt{Ref: "sig1"}, nil).Once()

		_, err := f.engine.Settle(callCtx, SettleRequest{UserID: "alice", SessionID: res.Session.ID, FinalBalance: 40})
		require.NoError(t, err)
		assert.NoError(t, payErr)
		assert.Equal(t, models.SETTLED, f.session(t, res.Session.ID).State)
	})

	t.Run("Price Unavailable Leaves Session Open", func(t *testing.T) {
		f := newFixture(t)
		res := f.deposit(t, "txA", 10)
		f.prices.fail(pricing.ErrUnavailable)

		_, err := f.engine.Settle(ctx, SettleRequest{UserID: "alice", SessionID: res.Session.ID, FinalBalance: 40})
		assert.ErrorIs(t, err, ErrPriceUnavailable)
		assert.Equal(t, models.OPEN, f.session(t, res.Session.ID).State)
	})

	t.Run("Balance Below Stake", func(t *testing.T) {
		f := newFixture(t)
		user := f.user(t, "alice")
		user.Balance = 5
		user.ActiveSessionID = "s1"
		require.NoError(t, f.store.CommitDeposit(ctx, user, &models.Session{
			ID: "s1", UserID: "alice", BetAmount: 10, DepositRef: "txA", State: models.OPEN, OpenedAt: f.clock.Now(),
		}, nil))

		_, err := f.engine.Settle(ctx, SettleRequest{UserID: "alice", SessionID: "s1", FinalBalance: 40})
		assert.ErrorIs(t, err, ErrInvariantViolation)
		assert.Equal(t, KindFatal, KindOf(err))

		alerts := f.audit.ofType(audit.InvariantViolation)
		require.Len(t, alerts, 1)
		assert.Equal(t, audit.SeverityAlert, alerts[0].Severity)
	})

	t.Run("Lock Timeout", func(t *testing.T) {
		f := newFixture(t, func(p *Policy) {
			p.PayoutTimeout = 20 * time.Millisecond
			p.LockTimeout = 50 * time.Millisecond
		})
		res := f.deposit(t, "txA", 10)

		release := make(chan struct{})
		started := make(chan struct{})
		f.payer.On("Pay", mock.Anything, aliceAddress, mock.Anything).
			Run(func(mock.Arguments) {
				close(started)
				<-release
			}).
			Return(custody.Receipt{Ref: "sig1"}, nil).Once()

		done := make(chan error, 1)
		go func() {
			_, err := f.engine.Settle(ctx, SettleRequest{UserID: "alice", SessionID: res.Session.ID, FinalBalance: 40})
			done <- err
		}()
		<-started

		_, err := f.engine.ProcessDeposit(ctx, DepositRequest{UserID: "alice", DepositRef: "txB", ClaimedAmount: 500_000, BetAmount: 10})
		assert.ErrorIs(t, err, ErrLockTimeout)
		assert.Equal(t, KindTransient, KindOf(err))

		close(release)
		require.NoError(t, <-done)
	})
}

func TestSettleAfterRefundCarriesBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first := f.deposit(t, "txA", 10)
	f.clock.Advance(31 * time.Minute)
	n, err := f.engine.ExpireStale(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, models.EXPIRED, f.session(t, first.Session.ID).State)

	second := f.deposit(t, "txB", 20)
	assert.Equal(t, int64(10), second.Session.CarriedAmount)
	assert.Equal(t, int64(30), second.Balance)

	f.payer.On("Pay", mock.Anything, aliceAddress, int64(45*lamportsPerCent)).Return(custody.Receipt{Ref: "sig1"}, nil).Once()
	out, err := f.engine.Settle(ctx, SettleRequest{UserID: "alice", SessionID: second.Session.ID, FinalBalance: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(0), out.Balance)

	_, err = f.engine.Settle(ctx, SettleRequest{UserID: "alice", SessionID: first.Session.ID, FinalBalance: 50})
	assert.ErrorIs(t, err, ErrSessionExpired)
}
