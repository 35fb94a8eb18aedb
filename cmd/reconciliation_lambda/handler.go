package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/chris/custodial-ledger/pkg/ledger"
)

// newHandler returns the EventBridge-scheduled sweep. It resolves sessions stuck in
// SETTLING and expires sessions whose TTL passed without an expiry check arriving. Both
// passes always run; their errors are joined.
func newHandler(m ledger.Maintenance) func(ctx context.Context) (ledger.ReconcileReport, error) {
	return func(ctx context.Context) (ledger.ReconcileReport, error) {
		slog.Info("starting reconciliation of settling sessions")

		report, reconcileErr := m.ReconcileSettling(ctx)
		if reconcileErr != nil {
			slog.Error("reconciliation failed", "error", reconcileErr)
		}
		slog.Info("reconciliation finished", "settled", report.Settled, "reverted", report.Reverted,
			"held", report.Held, "pending", report.Pending)

		expired, expireErr := m.ExpireStale(ctx)
		if expireErr != nil {
			slog.Error("expiry sweep failed", "error", expireErr)
		}
		if expired > 0 {
			slog.Info("expired stale sessions", "count", expired)
		}
		return report, errors.Join(reconcileErr, expireErr)
	}
}
