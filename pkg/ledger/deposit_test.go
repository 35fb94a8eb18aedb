package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chris/custodial-ledger/pkg/audit"
	"github.com/chris/custodial-ledger/pkg/custody"
	"github.com/chris/custodial-ledger/pkg/models"
	"github.com/chris/custodial-ledger/pkg/pricing"
	"github.com/chris/custodial-ledger/pkg/scheduler"
	schedmocks "github.com/chris/custodial-ledger/pkg/scheduler/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestProcessDeposit(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)

		res := f.deposit(t, "txA", 10)

		assert.Equal(t, int64(10), res.Balance)
		assert.Equal(t, models.OPEN, res.Session.State)
		assert.Equal(t, int64(10), res.Session.BetAmount)
		assert.Equal(t, int64(0), res.Session.CarriedAmount)
		assert.Equal(t, int64(500_000), res.Session.DepositAmount)
		assert.Equal(t, f.clock.Now().Add(30*time.Minute), res.Session.ExpiresAt)

		user := f.user(t, "alice")
		assert.Equal(t, int64(10), user.Balance)
		assert.Equal(t, int64(10), user.TotalWagered)
		assert.Equal(t, res.Session.ID, user.ActiveSessionID)

		entries, err := f.store.ListLedgerEntries(ctx, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, models.EntryDeposit, entries[0].Kind)
		assert.Equal(t, int64(10), entries[0].Credit)
		assert.Equal(t, "alice", entries[0].AccountID)

		assert.Len(t, f.audit.ofType(audit.DepositCredited), 1)
	})

	t.Run("Replay Is Rejected", func(t *testing.T) {
		f := newFixture(t)
		f.deposit(t, "txA", 10)

		_, err := f.engine.ProcessDeposit(ctx, DepositRequest{UserID: "alice", DepositRef: "txA", ClaimedAmount: 500_000, BetAmount: 10})
		assert.ErrorIs(t, err, ErrDuplicateDeposit)
		assert.Equal(t, int64(10), f.user(t, "alice").Balance)
	})

	t.Run("Replay After Settlement Is Rejected", func(t *testing.T) {
		f := newFixture(t)
		res := f.deposit(t, "txA", 10)
		f.payer.On("Pay", mock.Anything, aliceAddress, int64(450_000)).Return(custody.Receipt{Ref: "sig1"}, nil).Once()
		_, err := f.engine.Settle(ctx, SettleRequest{UserID: "alice", SessionID: res.Session.ID, FinalBalance: 10})
		require.NoError(t, err)

		_, err = f.engine.ProcessDeposit(ctx, DepositRequest{UserID: "alice", DepositRef: "txA", ClaimedAmount: 500_000, BetAmount: 10})
		assert.ErrorIs(t, err, ErrDuplicateDeposit)
		assert.Equal(t, int64(0), f.user(t, "alice").Balance)
	})

	t.Run("Validation", func(t *testing.T) {
		testCases := []struct {
			name string
			req  DepositRequest
		}{
			{"Missing User", DepositRequest{DepositRef: "txA", ClaimedAmount: 1, BetAmount: 10}},
			{"Missing Ref", DepositRequest{UserID: "alice", ClaimedAmount: 1, BetAmount: 10}},
			{"Zero Claimed Amount", DepositRequest{UserID: "alice", DepositRef: "txA", BetAmount: 10}},
			{"Bet Below Minimum", DepositRequest{UserID: "alice", DepositRef: "txA", ClaimedAmount: 1, BetAmount: 0}},
			{"Bet Above Maximum", DepositRequest{UserID: "alice", DepositRef: "txA", ClaimedAmount: 1, BetAmount: 10_001}},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				f := newFixture(t)
				_, err := f.engine.ProcessDeposit(ctx, tc.req)
				assert.ErrorIs(t, err, ErrValidation)
				assert.Equal(t, KindValidation, KindOf(err))
			})
		}
	})

	t.Run("Unknown User", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.ProcessDeposit(ctx, DepositRequest{UserID: "mallory", DepositRef: "txA", ClaimedAmount: 500_000, BetAmount: 10})
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("Active Session", func(t *testing.T) {
		f := newFixture(t)
		f.deposit(t, "txA", 10)

		_, err := f.engine.ProcessDeposit(ctx, DepositRequest{UserID: "alice", DepositRef: "txB", ClaimedAmount: 500_000, BetAmount: 10})
		assert.ErrorIs(t, err, ErrSessionActive)
		assert.Equal(t, int64(10), f.user(t, "alice").Balance)

		// txB was never credited, so it stays usable.
		ok, err := f.guard.Reserve(ctx, "txB")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Verification Failures", func(t *testing.T) {
		testCases := []struct {
			name     string
			transfer *custody.Transfer
			err      error
		}{
			{"Not Found", nil, custody.ErrNotFound},
			{"Unconfirmed", &custody.Transfer{Ref: "txA", From: aliceAddress, To: poolAddress, Amount: 500_000}, nil},
			{"Wrong Recipient", &custody.Transfer{Ref: "txA", Confirmed: true, From: aliceAddress, To: bobAddress, Amount: 500_000}, nil},
			{"Wrong Sender", &custody.Transfer{Ref: "txA", Confirmed: true, From: bobAddress, To: poolAddress, Amount: 500_000}, nil},
			{"Amount Mismatch", &custody.Transfer{Ref: "txA", Confirmed: true, From: aliceAddress, To: poolAddress, Amount: 499_999}, nil},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				f := newFixture(t)
				f.verifier.On("Verify", mock.Anything, "txA").Return(tc.transfer, tc.err).Once()

				_, err := f.engine.ProcessDeposit(ctx, DepositRequest{UserID: "alice", DepositRef: "txA", ClaimedAmount: 500_000, BetAmount: 10})
				assert.ErrorIs(t, err, ErrVerificationFailed)
				assert.Equal(t, KindVerification, KindOf(err))

				user := f.user(t, "alice")
				assert.Equal(t, int64(0), user.Balance)
				assert.Empty(t, user.ActiveSessionID)

				// A failed verification does not burn the reference.
				f.deposit(t, "txA", 10)
			})
		}
	})

	t.Run("Verifier Unavailable", func(t *testing.T) {
		f := newFixture(t)
		f.verifier.On("Verify", mock.Anything, "txA").Return(nil, custody.ErrRPCFailure).Once()

		_, err := f.engine.ProcessDeposit(ctx, DepositRequest{UserID: "alice", DepositRef: "txA", ClaimedAmount: 500_000, BetAmount: 10})
		assert.ErrorIs(t, err, ErrVerifierUnavailable)
		assert.Equal(t, KindTransient, KindOf(err))

		f.deposit(t, "txA", 10)
	})

	t.Run("Verifier Returns No Transfer", func(t *testing.T) {
		f := newFixture(t)
		f.verifier.On("Verify", mock.Anything, "txA").Return(nil, nil).Once()

		_, err := f.engine.ProcessDeposit(ctx, DepositRequest{UserID: "alice", DepositRef: "txA", ClaimedAmount: 500_000, BetAmount: 10})
		assert.ErrorIs(t, err, ErrVerifierUnavailable)
		assert.Equal(t, int64(0), f.user(t, "alice").Balance)

		f.deposit(t, "txA", 10)
	})

	t.Run("Price Unavailable", func(t *testing.T) {
		f := newFixture(t)
		f.prices.fail(pricing.ErrUnavailable)
		f.expectTransfer("txA", aliceAddress, 500_000).Once()

		_, err := f.engine.ProcessDeposit(ctx, DepositRequest{UserID: "alice", DepositRef: "txA", ClaimedAmount: 500_000, BetAmount: 10})
		assert.ErrorIs(t, err, ErrPriceUnavailable)
		assert.Equal(t, int64(0), f.user(t, "alice").Balance)
	})

	t.Run("Deposit Must Cover Bet", func(t *testing.T) {
		f := newFixture(t)

		// 99 cents covers a 1 USD bet within the default 1% slippage.
		f.expectTransfer("txA", aliceAddress, 99*lamportsPerCent).Once()
		_, err := f.engine.ProcessDeposit(ctx, DepositRequest{UserID: "alice", DepositRef: "txA", ClaimedAmount: 99 * lamportsPerCent, BetAmount: 100})
		require.NoError(t, err)

		g := newFixture(t)
		g.expectTransfer("txB", aliceAddress, 98*lamportsPerCent).Once()
		_, err = g.engine.ProcessDeposit(ctx, DepositRequest{UserID: "alice", DepositRef: "txB", ClaimedAmount: 98 * lamportsPerCent, BetAmount: 100})
		assert.ErrorIs(t, err, ErrVerificationFailed)
	})

	t.Run("Schedules Expiry Check", func(t *testing.T) {
		f := newFixture(t)
		sched := schedmocks.NewScheduler(t)
		f.engine.scheduler = sched

		sched.On("ScheduleExpiryCheck", mock.Anything, mock.MatchedBy(func(c scheduler.ExpiryCheck) bool {
			return c.UserID == "alice" && c.DueAt.Equal(f.clock.Now().Add(30*time.Minute))
		}), 30*time.Minute).Return(nil).Once()

		f.deposit(t, "txA", 10)
	})

	t.Run("Scheduler Failure Does Not Fail Deposit", func(t *testing.T) {
		f := newFixture(t)
		sched := schedmocks.NewScheduler(t)
		f.engine.scheduler = sched
		sched.On("ScheduleExpiryCheck", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("queue down")).Once()

		res := f.deposit(t, "txA", 10)
		assert.Equal(t, int64(10), res.Balance)
	})
}

func TestProcessDepositConcurrency(t *testing.T) {
	ctx := context.Background()
	const workers = 8

	t.Run("Same Reference Credits Once", func(t *testing.T) {
		f := newFixture(t)
		f.expectTransfer("txA", aliceAddress, 500_000).Maybe()

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			dupes     int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.engine.ProcessDeposit(ctx, DepositRequest{UserID: "alice", DepositRef: "txA", ClaimedAmount: 500_000, BetAmount: 10})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case errors.Is(err, ErrDuplicateDeposit):
					dupes++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, workers-1, dupes)
		assert.Equal(t, int64(10), f.user(t, "alice").Balance)
		assert.Equal(t, 0, f.engine.locks.size())
	})

	t.Run("One Active Session Per User", func(t *testing.T) {
		f := newFixture(t)
		f.verifier.On("Verify", mock.Anything, mock.Anything).Return(func(_ context.Context, ref string) (*custody.Transfer, error) {
			return &custody.Transfer{Ref: ref, Confirmed: true, From: aliceAddress, To: poolAddress, Amount: 500_000}, nil
		}).Maybe()

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			active    int
		)
		refs := []string{"tx1", "tx2", "tx3", "tx4", "tx5", "tx6", "tx7", "tx8"}
		for _, ref := range refs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.engine.ProcessDeposit(ctx, DepositRequest{UserID: "alice", DepositRef: ref, ClaimedAmount: 500_000, BetAmount: 10})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case errors.Is(err, ErrSessionActive):
					active++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, len(refs)-1, active)
		assert.Equal(t, int64(10), f.user(t, "alice").Balance)
	})

	t.Run("Users Do Not Block Each Other", func(t *testing.T) {
		f := newFixture(t)
		f.addUser(t, "bob", bobAddress)
		f.expectTransfer("txA", aliceAddress, 500_000).Once()
		f.expectTransfer("txB", bobAddress, 500_000).Once()

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, req := range []DepositRequest{
			{UserID: "alice", DepositRef: "txA", ClaimedAmount: 500_000, BetAmount: 10},
			{UserID: "bob", DepositRef: "txB", ClaimedAmount: 500_000, BetAmount: 10},
		} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = f.engine.ProcessDeposit(ctx, req)
			}()
		}
		wg.Wait()

		assert.NoError(t, errs[0])
		assert.NoError(t, errs[1])
		assert.Equal(t, int64(10), f.user(t, "bob").Balance)
	})
}
