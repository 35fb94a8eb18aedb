package sessions

import (
	"context"
	"log/slog"
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/chris/custodial-ledger/pkg/api"
	"github.com/chris/custodial-ledger/pkg/handlers/respond"
	"github.com/chris/custodial-ledger/pkg/identity"
	"github.com/chris/custodial-ledger/pkg/ledger"
	"github.com/chris/custodial-ledger/pkg/mapping"
	"github.com/chris/custodial-ledger/pkg/ratelimit"
	"github.com/chris/custodial-ledger/pkg/websockets"
)

// SessionsHandler holds the dependencies for deposit and settlement handlers.
type SessionsHandler struct {
	Service     ledger.Service
	Publisher   websockets.Publisher
	SettleLimit ratelimit.Limiter
	Logger      *slog.Logger
}

// NewSessionsHandler creates a new SessionsHandler. A nil limiter disables settle
// rate limiting.
func NewSessionsHandler(service ledger.Service, publisher websockets.Publisher, settleLimit ratelimit.Limiter, logger *slog.Logger) *SessionsHandler {
	if publisher == nil {
		publisher = &websockets.NoOpPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionsHandler{Service: service, Publisher: publisher, SettleLimit: settleLimit, Logger: logger}
}

// CreateDeposit verifies the caller's transfer and opens a session for the bet.
func (h *SessionsHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var body api.NewDeposit
	if err := respond.Decode(w, r, &body); err != nil {
		respond.BadRequest(w, err)
		return
	}
	req, err := mapping.ToDomainDepositRequest(p.UserID, &body)
	if err != nil {
		respond.BadRequest(w, err)
		return
	}

	result, err := h.Service.ProcessDeposit(r.Context(), req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	h.publish(r.Context(), websockets.BalanceUpdate(p.UserID, result.Session.ID, string(result.Session.State),
		result.Session.BetAmount, result.Balance))
	respond.JSON(w, http.StatusCreated, mapping.ToApiDepositResult(result))
}

// GetSessionById returns one of the caller's sessions.
func (h *SessionsHandler) GetSessionById(w http.ResponseWriter, r *http.Request, sessionId openapi_types.UUID) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	session, err := h.Service.GetSession(r.Context(), p.UserID, sessionId.String())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, mapping.ToApiSession(session))
}

// SettleSession pays out the caller's session. Attempts are rate limited per user.
func (h *SessionsHandler) SettleSession(w http.ResponseWriter, r *http.Request, sessionId openapi_types.UUID) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var body api.SettleRequest
	if err := respond.Decode(w, r, &body); err != nil {
		respond.BadRequest(w, err)
		return
	}

	if h.SettleLimit != nil {
		allowed, retryAfter, err := h.SettleLimit.Allow(r.Context(), "settle:"+p.UserID)
		if err != nil {
			// A limiter outage must not block payouts.
			h.Logger.Warn("settle rate limit check failed", "user_id", p.UserID, "error", err)
		} else if !allowed {
			respond.TooManyRequests(w, retryAfter)
			return
		}
	}

	settlement, err := h.Service.Settle(r.Context(), ledger.SettleRequest{
		UserID:       p.UserID,
		SessionID:    sessionId.String(),
		FinalBalance: body.FinalBalance,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	h.publish(r.Context(), websockets.BalanceUpdate(p.UserID, settlement.Session.ID, string(settlement.Session.State),
		-settlement.Session.Stake(), settlement.Balance))
	respond.JSON(w, http.StatusOK, mapping.ToApiSettlement(settlement))
}

// ResolveSettlement records an operator's verdict on a held settlement.
func (h *SessionsHandler) ResolveSettlement(w http.ResponseWriter, r *http.Request, sessionId openapi_types.UUID) {
	var body api.Resolution
	if err := respond.Decode(w, r, &body); err != nil {
		respond.BadRequest(w, err)
		return
	}

	session, err := h.Service.ResolveSettlement(r.Context(), sessionId.String(), mapping.ToDomainResolution(&body))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	operator, _ := identity.FromContext(r.Context())
	h.Logger.Info("settlement resolved",
		"session_id", session.ID, "operator", operator.UserID, "paid", body.Paid, "state", session.State)
	respond.JSON(w, http.StatusOK, mapping.ToApiSession(session))
}

func (h *SessionsHandler) publish(ctx context.Context, msg websockets.Message) {
	if err := h.Publisher.Publish(ctx, msg); err != nil {
		h.Logger.Error("failed to publish balance update", "user_id", msg.UserID, "error", err)
	}
}

func principal(w http.ResponseWriter, r *http.Request) (identity.Principal, bool) {
	p, ok := identity.FromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing principal")
	}
	return p, ok
}
