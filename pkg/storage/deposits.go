package storage

import (
	"context"

	"github.com/chris/custodial-ledger/pkg/models"
)

// DepositStore defines the write path used when a verified deposit opens a session.
type DepositStore interface {
	// CommitDeposit atomically creates the session and writes the credited user.
	// The user write is conditional on user.Version matching the stored version and on
	// the stored user holding no active session. On success user.Version is advanced.
	// It returns ErrDuplicateDepositRef, ErrActiveSession or ErrVersionConflict.
	CommitDeposit(ctx context.Context, user *models.User, session *models.Session, entries []models.LedgerEntry) error
}
