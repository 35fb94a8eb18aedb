package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/chris/custodial-ledger/pkg/audit"
	"github.com/chris/custodial-ledger/pkg/custody"
	"github.com/chris/custodial-ledger/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// pendingSettlement leaves alice's session SETTLING with an unknown payout outcome.
func pendingSettlement(t *testing.T, f *fixture, receipt custody.Receipt) *models.Session {
	t.Helper()
	res := f.deposit(t, "txA", 10)
	f.payer.On("Pay", mock.Anything, aliceAddress, int64(36*lamportsPerCent)).
		Return(receipt, custody.ErrOutcomeUnknown).Once()

	_, err := f.engine.Settle(context.Background(), SettleRequest{UserID: "alice", SessionID: res.Session.ID, FinalBalance: 40})
	require.ErrorIs(t, err, ErrPayoutPending)
	return f.session(t, res.Session.ID)
}

func TestReconcileSettling(t *testing.T) {
	ctx := context.Background()
	receipt := custody.Receipt{Ref: "sig1", ValidUntil: 900}

	t.Run("Confirmed Payout Is Booked Without Paying Again", func(t *testing.T) {
		f := newFixture(t)
		session := pendingSettlement(t, f, receipt)
		f.payer.On("PayoutStatus", mock.Anything, receipt).Return(custody.PayoutConfirmed, nil).Once()

		report, err := f.engine.ReconcileSettling(ctx)
		require.NoError(t, err)
		assert.Equal(t, ReconcileReport{Settled: 1}, report)

		stored := f.session(t, session.ID)
		assert.Equal(t, models.SETTLED, stored.State)
		assert.Equal(t, "sig1", stored.PayoutRef)

		user := f.user(t, "alice")
		assert.Equal(t, int64(0), user.Balance)
		assert.Equal(t, int64(36), user.TotalWon)
		assert.Empty(t, user.ActiveSessionID)
		f.payer.AssertNumberOfCalls(t, "Pay", 1)
		assert.Len(t, f.audit.ofType(audit.SettlementReconciled), 1)
	})

	t.Run("Expired Payout Reopens Session", func(t *testing.T) {
		f := newFixture(t)
		session := pendingSettlement(t, f, receipt)
		f.payer.On("PayoutStatus", mock.Anything, receipt).Return(custody.PayoutFailed, nil).Once()

		report, err := f.engine.ReconcileSettling(ctx)
		require.NoError(t, err)
		assert.Equal(t, ReconcileReport{Reverted: 1}, report)

		stored := f.session(t, session.ID)
		assert.Equal(t, models.OPEN, stored.State)
		assert.Contains(t, stored.LastFailure, "sig1")
		assert.Equal(t, int64(10), f.user(t, "alice").Balance)

		f.payer.On("Pay", mock.Anything, aliceAddress, mock.Anything).Return(custody.Receipt{Ref: "sig2"}, nil).Once()
		out, err := f.engine.Settle(ctx, SettleRequest{UserID: "alice", SessionID: session.ID, FinalBalance: 40})
		require.NoError(t, err)
		assert.Equal(t, "sig2", out.PayoutRef)
	})

	t.Run("Pending Within Timeout", func(t *testing.T) {
		f := newFixture(t)
		session := pendingSettlement(t, f, receipt)
		f.payer.On("PayoutStatus", mock.Anything, receipt).Return(custody.PayoutPending, nil).Once()

		report, err := f.engine.ReconcileSettling(ctx)
		require.NoError(t, err)
		assert.Equal(t, ReconcileReport{Pending: 1}, report)
		assert.Equal(t, models.SETTLING, f.session(t, session.ID).State)
	})

	t.Run("Status Lookup Failure Counts As Pending", func(t *testing.T) {
		f := newFixture(t)
		pendingSettlement(t, f, receipt)
		f.payer.On("PayoutStatus", mock.Anything, receipt).Return(custody.PayoutStatus(""), custody.ErrRPCFailure).Once()

		report, err := f.engine.ReconcileSettling(ctx)
		require.NoError(t, err)
		assert.Equal(t, ReconcileReport{Pending: 1}, report)
	})

	t.Run("Held For Review After Timeout", func(t *testing.T) {
		f := newFixture(t)
		session := pendingSettlement(t, f, receipt)
		f.payer.On("PayoutStatus", mock.Anything, receipt).Return(custody.PayoutPending, nil).Once()
		f.clock.Advance(11 * time.Minute)

		report, err := f.engine.ReconcileSettling(ctx)
		require.NoError(t, err)
		assert.Equal(t, ReconcileReport{Held: 1}, report)

		stored := f.session(t, session.ID)
		assert.Equal(t, models.SETTLING, stored.State)
		assert.True(t, stored.HeldForReview)

		alerts := f.audit.ofType(audit.SettlementHeld)
		require.Len(t, alerts, 1)
		assert.Equal(t, audit.SeverityAlert, alerts[0].Severity)

		// Held sessions are left to the operator.
		report, err = f.engine.ReconcileSettling(ctx)
		require.NoError(t, err)
		assert.Equal(t, ReconcileReport{Held: 1}, report)
		f.payer.AssertNumberOfCalls(t, "PayoutStatus", 1)
	})

	t.Run("No Payout Ref", func(t *testing.T) {
		f := newFixture(t)
		session := pendingSettlement(t, f, custody.Receipt{})
		f.clock.Advance(11 * time.Minute)

		report, err := f.engine.ReconcileSettling(ctx)
		require.NoError(t, err)
		assert.Equal(t, ReconcileReport{Held: 1}, report)
		assert.True(t, f.session(t, session.ID).HeldForReview)
		f.payer.AssertNotCalled(t, "PayoutStatus", mock.Anything, mock.Anything)
	})
}

func TestResolveSettlement(t *testing.T) {
	ctx := context.Background()

	t.Run("Paid", func(t *testing.T) {
		f := newFixture(t)
		session := pendingSettlement(t, f, custody.Receipt{})

		resolved, err := f.engine.ResolveSettlement(ctx, session.ID, Resolution{Paid: true, PayoutRef: "sig-manual"})
		require.NoError(t, err)
		assert.Equal(t, models.SETTLED, resolved.State)
		assert.Equal(t, "sig-manual", resolved.PayoutRef)
		assert.Equal(t, int64(0), f.user(t, "alice").Balance)
		assert.Len(t, f.audit.ofType(audit.SettlementResolved), 1)
	})

	t.Run("Paid Without Ref", func(t *testing.T) {
		f := newFixture(t)
		session := pendingSettlement(t, f, custody.Receipt{})

		_, err := f.engine.ResolveSettlement(ctx, session.ID, Resolution{Paid: true})
		assert.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, models.SETTLING, f.session(t, session.ID).State)
	})

	t.Run("Unpaid", func(t *testing.T) {
		f := newFixture(t)
		session := pendingSettlement(t, f, custody.Receipt{Ref: "sig1"})

		resolved, err := f.engine.ResolveSettlement(ctx, session.ID, Resolution{Paid: false, Note: "dropped by network"})
		require.NoError(t, err)
		assert.Equal(t, models.OPEN, resolved.State)
		assert.Contains(t, resolved.LastFailure, "dropped by network")
		assert.Equal(t, int64(10), f.user(t, "alice").Balance)
	})

	t.Run("Open Session", func(t *testing.T) {
		f := newFixture(t)
		res := f.deposit(t, "txA", 10)

		_, err := f.engine.ResolveSettlement(ctx, res.Session.ID, Resolution{Paid: true, PayoutRef: "sig1"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Settled Session", func(t *testing.T) {
		f := newFixture(t)
		res := f.deposit(t, "txA", 10)
		_, err := f.engine.Settle(ctx, SettleRequest{UserID: "alice", SessionID: res.Session.ID, FinalBalance: 0})
		require.NoError(t, err)

		_, err = f.engine.ResolveSettlement(ctx, res.Session.ID, Resolution{Paid: false})
		assert.ErrorIs(t, err, ErrAlreadySettled)
	})
}
