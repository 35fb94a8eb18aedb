package handlers

import (
	"log/slog"
	"net/http"

	"github.com/chris/custodial-ledger/pkg/api"
	"github.com/chris/custodial-ledger/pkg/handlers/ledger"
	"github.com/chris/custodial-ledger/pkg/handlers/respond"
	"github.com/chris/custodial-ledger/pkg/handlers/sessions"
	"github.com/chris/custodial-ledger/pkg/handlers/users"
	engine "github.com/chris/custodial-ledger/pkg/ledger"
	"github.com/chris/custodial-ledger/pkg/ratelimit"
	"github.com/chris/custodial-ledger/pkg/storage"
	"github.com/chris/custodial-ledger/pkg/websockets"
)

// ApiHandler implements the generated server interface by composing the
// per-resource handlers.
type ApiHandler struct {
	*users.UsersHandler
	*sessions.SessionsHandler
	*ledger.LedgerHandler

	service engine.Service
}

// NewApiHandler creates a new ApiHandler.
func NewApiHandler(service engine.Service, store storage.LedgerReader, publisher websockets.Publisher, settleLimit ratelimit.Limiter, logger *slog.Logger) *ApiHandler {
	return &ApiHandler{
		UsersHandler:    users.NewUsersHandler(service),
		SessionsHandler: sessions.NewSessionsHandler(service, publisher, settleLimit, logger),
		LedgerHandler:   ledger.NewLedgerHandler(store),
		service:         service,
	}
}

// Make sure we conform to the interface
var _ api.ServerInterface = (*ApiHandler)(nil)

// GetHealth reports liveness and the pooled account players deposit into.
func (h *ApiHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, api.Health{
		Status:         "ok",
		CustodyAddress: h.service.CustodyAddress(),
	})
}
