package storage

import (
	"context"

	"github.com/chris/custodial-ledger/pkg/models"
)

// UserStore defines the interface for managing user ledger records.
type UserStore interface {
	// GetUser retrieves a user by id. It returns ErrNotFound if the user does not exist.
	GetUser(ctx context.Context, userID string) (*models.User, error)

	// CreateUser inserts a new user. It returns ErrUserExists if the id is taken.
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
}
