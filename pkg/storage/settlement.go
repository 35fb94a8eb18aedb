package storage

import (
	"context"

	"github.com/chris/custodial-ledger/pkg/models"
)

// SettlementStore defines the privileged transitions that close or unwind a session.
// Every method is a conditional write on the session state and returns ErrStateConflict
// when the stored session is not in the required state.
type SettlementStore interface {
	// BeginSettlement moves an OPEN session to SETTLING and stores its settlement record.
	BeginSettlement(ctx context.Context, session *models.Session) error

	// RecordSettlementAttempt updates the attempt fields of a SETTLING session.
	RecordSettlementAttempt(ctx context.Context, session *models.Session) error

	// CompleteSettlement moves a SETTLING session to SETTLED and writes the user.
	CompleteSettlement(ctx context.Context, user *models.User, session *models.Session, entries []models.LedgerEntry) error

	// AbortSettlement moves a SETTLING session back to OPEN, keeping the failure reason.
	AbortSettlement(ctx context.Context, session *models.Session) error

	// ExpireSession moves an OPEN session to EXPIRED and writes the user.
	ExpireSession(ctx context.Context, user *models.User, session *models.Session, entries []models.LedgerEntry) error
}
