package ledger

import (
	"context"
	"errors"

	"github.com/chris/custodial-ledger/pkg/models"
	"github.com/chris/custodial-ledger/pkg/storage"
)

// Profile is a user's ledger record with the session currently holding its stake.
type Profile struct {
	User          *models.User
	ActiveSession *models.Session
}

// GetProfile returns the user's balance, totals and active session.
func (e *Engine) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, newError(ErrValidation, nil, "user id is required")
	}
	user, err := e.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &Profile{User: user}
	if user.ActiveSessionID != "" {
		session, err := e.store.GetSession(ctx, user.ActiveSessionID)
		switch {
		case err == nil:
			profile.ActiveSession = session
		case errors.Is(err, storage.ErrNotFound):
			e.logger.Warn("active session not found", "user_id", userID, "session_id", user.ActiveSessionID)
		default:
			return nil, newError(ErrUnavailable, err, "failed to load active session")
		}
	}
	return profile, nil
}

// GetSession returns a session owned by userID.
func (e *Engine) GetSession(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	session, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, newError(ErrNotOwner, nil, "")
	}
	return session, nil
}

// RegisterUser creates the ledger record for userID bound to custodyAddress, or returns
// the existing one. The bool reports whether the user was created. A user's custody
// address cannot be changed once set.
func (e *Engine) RegisterUser(ctx context.Context, userID, custodyAddress string) (*models.User, bool, error) {
	if userID == "" {
		return nil, false, newError(ErrValidation, nil, "user id is required")
	}
	if custodyAddress == "" {
		return nil, false, newError(ErrValidation, nil, "custody address is required")
	}
	if e.addresses != nil {
		if err := e.addresses.ValidateAddress(custodyAddress); err != nil {
			return nil, false, newError(ErrValidation, err, "invalid custody address")
		}
	}

	release, err := e.lockUser(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	defer release()

	existing, err := e.store.GetUser(ctx, userID)
	switch {
	case err == nil:
		return checkAddress(existing, custodyAddress)
	case !errors.Is(err, storage.ErrNotFound):
		return nil, false, newError(ErrUnavailable, err, "failed to load user")
	}

	now := e.now()
	created, err := e.store.CreateUser(ctx, &models.User{
		ID:             userID,
		CustodyAddress: custodyAddress,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			existing, err := e.loadUser(ctx, userID)
			if err != nil {
				return nil, false, err
			}
			return checkAddress(existing, custodyAddress)
		}
		return nil, false, newError(ErrUnavailable, err, "failed to create user")
	}

	e.logger.Info("registered user", "user_id", userID)
	return created, true, nil
}

func checkAddress(user *models.User, custodyAddress string) (*models.User, bool, error) {
	if user.CustodyAddress != custodyAddress {
		return nil, false, newError(ErrCustodyAddressLocked, nil, "")
	}
	return user, false, nil
}
