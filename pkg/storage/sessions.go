package storage

import (
	"context"
	"time"

	"github.com/chris/custodial-ledger/pkg/models"
)

// SessionReader defines the read side of the session registry.
type SessionReader interface {
	// GetSession retrieves a session by id. It returns ErrNotFound if it does not exist.
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)

	// ListSessionsByState returns sessions in the given state opened at or before the cutoff,
	// oldest first.
	ListSessionsByState(ctx context.Context, state models.SessionState, openedBy time.Time) ([]models.Session, error)
}
