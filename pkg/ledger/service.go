package ledger

import (
	"context"

	"github.com/chris/custodial-ledger/pkg/models"
)

// Service is the set of engine operations exposed to the HTTP layer.
type Service interface {
	RegisterUser(ctx context.Context, userID, custodyAddress string) (*models.User, bool, error)
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	GetSession(ctx context.Context, userID, sessionID string) (*models.Session, error)
	ProcessDeposit(ctx context.Context, req DepositRequest) (*DepositResult, error)
	Settle(ctx context.Context, req SettleRequest) (*Settlement, error)
	ResolveSettlement(ctx context.Context, sessionID string, res Resolution) (*models.Session, error)
	CustodyAddress() string
}

// Maintenance is the set of background operations run by the reaper and reconciler.
type Maintenance interface {
	ExpireStale(ctx context.Context) (int, error)
	ExpireSession(ctx context.Context, sessionID string) (*ExpiryOutcome, error)
	ReconcileSettling(ctx context.Context) (ReconcileReport, error)
}

var (
	_ Service     = (*Engine)(nil)
	_ Maintenance = (*Engine)(nil)
)
