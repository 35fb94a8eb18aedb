package websockets

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/chris/custodial-ledger/pkg/identity"
	"github.com/chris/custodial-ledger/pkg/websockets"
)

// Handler upgrades authenticated requests and registers the connection for the
// caller's balance updates.
type Handler struct {
	connManager websockets.ConnectionManager
	upgrader    websocket.Upgrader
	logger      *slog.Logger
}

// NewHandler creates a new Handler. An empty allowedOrigins accepts any origin.
func NewHandler(connManager websockets.ConnectionManager, allowedOrigins []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{connManager: connManager, logger: logger}
	h.upgrader.CheckOrigin = func(r *http.Request) bool {
		if len(allowedOrigins) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		for _, o := range allowedOrigins {
			if o == origin {
				return true
			}
		}
		return false
	}
	return h
}

// ServeHTTP must run behind identity.RequireUser.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", "error", err)
		return
	}

	connectionID := h.connManager.AddConnection(p.UserID, conn)
	defer h.connManager.RemoveConnection(connectionID)

	// Clients only listen; reading detects when they go away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("unexpected close error", "connectionId", connectionID, "error", err)
			}
			return
		}
	}
}
