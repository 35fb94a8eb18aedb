package ledger

import (
	"net/http"

	"github.com/chris/custodial-ledger/pkg/api"
	"github.com/chris/custodial-ledger/pkg/handlers/respond"
	"github.com/chris/custodial-ledger/pkg/mapping"
	"github.com/chris/custodial-ledger/pkg/storage"
)

const (
	defaultLimit = int32(20)
	maxLimit     = int32(500)
)

// LedgerHandler holds the dependencies for ledger-related handlers.
type LedgerHandler struct {
	Store storage.LedgerReader
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(store storage.LedgerReader) *LedgerHandler {
	return &LedgerHandler{Store: store}
}

func (h *LedgerHandler) ListLedgerEntries(w http.ResponseWriter, r *http.Request, params api.ListLedgerEntriesParams) {
	limit := defaultLimit
	if params.Limit != nil {
		limit = *params.Limit
	}
	if limit <= 0 || limit > maxLimit {
		respond.Fail(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be between 1 and 500")
		return
	}

	domainEntries, err := h.Store.ListLedgerEntries(r.Context(), limit)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	apiEntries := make([]api.LedgerEntry, len(domainEntries))
	for i := range domainEntries {
		apiEntries[i] = mapping.ToApiLedgerEntry(&domainEntries[i])
	}
	respond.JSON(w, http.StatusOK, apiEntries)
}
