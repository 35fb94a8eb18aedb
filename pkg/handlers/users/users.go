package users

import (
	"net/http"

	"github.com/chris/custodial-ledger/pkg/api"
	"github.com/chris/custodial-ledger/pkg/handlers/respond"
	"github.com/chris/custodial-ledger/pkg/identity"
	"github.com/chris/custodial-ledger/pkg/ledger"
	"github.com/chris/custodial-ledger/pkg/mapping"
)

// UsersHandler holds the dependencies for user-related handlers.
type UsersHandler struct {
	Service ledger.Service
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(service ledger.Service) *UsersHandler {
	return &UsersHandler{Service: service}
}

// RegisterUser binds the caller to a custody address, creating the ledger record on
// first use. Repeating the call with the same address is a no-op.
func (h *UsersHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.FromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing principal")
		return
	}

	var body api.NewUser
	if err := respond.Decode(w, r, &body); err != nil {
		respond.BadRequest(w, err)
		return
	}

	user, created, err := h.Service.RegisterUser(r.Context(), p.UserID, body.CustodyAddress)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respond.JSON(w, status, mapping.ToApiUser(user))
}

func (h *UsersHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.FromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing principal")
		return
	}

	profile, err := h.Service.GetProfile(r.Context(), p.UserID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, mapping.ToApiProfile(profile))
}
