package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chris/custodial-ledger/pkg/api"
	"github.com/chris/custodial-ledger/pkg/identity"
	"github.com/chris/custodial-ledger/pkg/ledger"
	ledgermocks "github.com/chris/custodial-ledger/pkg/ledger/mocks"
	"github.com/chris/custodial-ledger/pkg/models"
	"github.com/chris/custodial-ledger/pkg/ratelimit"
	storagemocks "github.com/chris/custodial-ledger/pkg/storage/mocks"
	"github.com/chris/custodial-ledger/pkg/websockets"
	wsmocks "github.com/chris/custodial-ledger/pkg/websockets/mocks"
)

type testServer struct {
	router    http.Handler
	service   *ledgermocks.Service
	store     *storagemocks.LedgerReader
	publisher *wsmocks.Publisher
	verifier  *identity.Verifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	verifier, err := identity.NewVerifier([]byte("secret"), "")
	require.NoError(t, err)

	ts := &testServer{
		service:   ledgermocks.NewService(t),
		store:     storagemocks.NewLedgerReader(t),
		publisher: wsmocks.NewPublisher(t),
		verifier:  verifier,
	}
	h := NewApiHandler(ts.service, ts.store, ts.publisher, ratelimit.NewMemory(1, time.Minute), nil)
	ts.router = api.HandlerWithOptions(h, api.ChiServerOptions{
		BaseRouter:  chi.NewRouter(),
		Middlewares: []api.MiddlewareFunc{verifier.Authenticate},
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, p *identity.Principal, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if p != nil {
		token, err := ts.verifier.Issue(*p, time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}

var (
	alice = &identity.Principal{UserID: "alice"}
	admin = &identity.Principal{UserID: "ops", Admin: true}
)

func TestGetHealth(t *testing.T) {
	ts := newTestServer(t)
	ts.service.On("CustodyAddress").Return("Pool1111")

	rr := ts.do(t, http.MethodGet, "/health", nil, nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, api.Health{Status: "ok", CustodyAddress: "Pool1111"}, decode[api.Health](t, rr))
}

func TestRegisterUser(t *testing.T) {
	user := &models.User{ID: "alice", CustodyAddress: "Addr1111", CreatedAt: time.Now()}

	t.Run("Created", func(t *testing.T) {
		ts := newTestServer(t)
		ts.service.On("RegisterUser", mock.Anything, "alice", "Addr1111").Return(user, true, nil)

		rr := ts.do(t, http.MethodPost, "/users", alice, api.NewUser{CustodyAddress: "Addr1111"})

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "Addr1111", decode[api.User](t, rr).CustodyAddress)
	})

	t.Run("Existing", func(t *testing.T) {
		ts := newTestServer(t)
		ts.service.On("RegisterUser", mock.Anything, "alice", "Addr1111").Return(user, false, nil)

		rr := ts.do(t, http.MethodPost, "/users", alice, api.NewUser{CustodyAddress: "Addr1111"})

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Address Locked", func(t *testing.T) {
		ts := newTestServer(t)
		ts.service.On("RegisterUser", mock.Anything, "alice", "Other").Return(nil, false, ledger.ErrCustodyAddressLocked)

		rr := ts.do(t, http.MethodPost, "/users", alice, api.NewUser{CustodyAddress: "Other"})

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "CUSTODY_ADDRESS_LOCKED", decode[api.Error](t, rr).Code)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		ts := newTestServer(t)

		rr := ts.do(t, http.MethodPost, "/users", nil, api.NewUser{CustodyAddress: "Addr1111"})

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestGetProfile(t *testing.T) {
	ts := newTestServer(t)
	profile := &ledger.Profile{
		User:          &models.User{ID: "alice", Balance: 1500, ActiveSessionID: "s1"},
		ActiveSession: &models.Session{ID: "s1", UserID: "alice", State: models.OPEN, BetAmount: 1000},
	}
	ts.service.On("GetProfile", mock.Anything, "alice").Return(profile, nil)

	rr := ts.do(t, http.MethodGet, "/profile", alice, nil)

	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[api.Profile](t, rr)
	assert.Equal(t, "15.00", got.User.BalanceUsd)
	require.NotNil(t, got.ActiveSession)
	assert.Equal(t, api.SessionStateOPEN, got.ActiveSession.State)
}

func TestCreateDeposit(t *testing.T) {
	bet := int64(1000)
	body := api.NewDeposit{DepositRef: "txA", ClaimedAmount: 500000, BetAmount: &bet}

	t.Run("Success", func(t *testing.T) {
		ts := newTestServer(t)
		session := &models.Session{ID: "s1", UserID: "alice", State: models.OPEN, BetAmount: bet, DepositRef: "txA"}
		ts.service.On("ProcessDeposit", mock.Anything, ledger.DepositRequest{
			UserID: "alice", DepositRef: "txA", ClaimedAmount: 500000, BetAmount: bet,
		}).Return(&ledger.DepositResult{Session: session, Balance: bet}, nil)
		ts.publisher.On("Publish", mock.Anything, mock.MatchedBy(func(m websockets.Message) bool {
			return m.UserID == "alice" && m.Type == websockets.MessageTypeBalanceUpdate
		})).Return(nil)

		rr := ts.do(t, http.MethodPost, "/deposits", alice, body)

		assert.Equal(t, http.StatusCreated, rr.Code)
		got := decode[api.DepositResult](t, rr)
		assert.Equal(t, bet, got.Balance)
		assert.Equal(t, "txA", got.Session.DepositRef)
	})

	t.Run("Duplicate", func(t *testing.T) {
		ts := newTestServer(t)
		ts.service.On("ProcessDeposit", mock.Anything, mock.Anything).Return(nil, ledger.ErrDuplicateDeposit)

		rr := ts.do(t, http.MethodPost, "/deposits", alice, body)

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "DUPLICATE_DEPOSIT", decode[api.Error](t, rr).Code)
	})

	t.Run("Verification Failed", func(t *testing.T) {
		ts := newTestServer(t)
		ts.service.On("ProcessDeposit", mock.Anything, mock.Anything).Return(nil, ledger.ErrVerificationFailed)

		rr := ts.do(t, http.MethodPost, "/deposits", alice, body)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("Missing Bet", func(t *testing.T) {
		ts := newTestServer(t)

		rr := ts.do(t, http.MethodPost, "/deposits", alice, api.NewDeposit{DepositRef: "txA", ClaimedAmount: 1})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Unknown Field", func(t *testing.T) {
		ts := newTestServer(t)
		raw := json.RawMessage(`{"depositRef":"txA","claimedAmount":1,"betAmount":10,"recipient":"elsewhere"}`)

		rr := ts.do(t, http.MethodPost, "/deposits", alice, raw)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decode[api.Error](t, rr).Message, "recipient")
	})

	t.Run("Empty Body", func(t *testing.T) {
		ts := newTestServer(t)

		rr := ts.do(t, http.MethodPost, "/deposits", alice, nil)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "empty body", decode[api.Error](t, rr).Message)
	})
}

func TestSettleSession(t *testing.T) {
	sessionID := uuid.NewString()
	path := "/sessions/" + sessionID + "/settle"

	t.Run("Success", func(t *testing.T) {
		ts := newTestServer(t)
		session := &models.Session{ID: sessionID, UserID: "alice", State: models.SETTLED, BetAmount: 1000}
		ts.service.On("Settle", mock.Anything, ledger.SettleRequest{UserID: "alice", SessionID: sessionID, FinalBalance: 4000}).
			Return(&ledger.Settlement{Session: session, FinalBalance: 4000, HouseCut: 400, Payout: 3600, PayoutRef: "sig"}, nil)
		ts.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

		rr := ts.do(t, http.MethodPost, path, alice, api.SettleRequest{FinalBalance: 4000})

		require.Equal(t, http.StatusOK, rr.Code)
		got := decode[api.Settlement](t, rr)
		assert.Equal(t, int64(400), got.HouseCut)
		assert.Equal(t, int64(3600), got.Payout)
		assert.Equal(t, api.SessionStateSETTLED, got.State)
	})

	t.Run("Rate Limited", func(t *testing.T) {
		ts := newTestServer(t)
		ts.service.On("Settle", mock.Anything, mock.Anything).Return(nil, ledger.ErrPayoutFailed).Once()

		first := ts.do(t, http.MethodPost, path, alice, api.SettleRequest{FinalBalance: 4000})
		second := ts.do(t, http.MethodPost, path, alice, api.SettleRequest{FinalBalance: 4000})

		assert.Equal(t, http.StatusServiceUnavailable, first.Code)
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
		assert.NotEmpty(t, second.Header().Get("Retry-After"))
	})

	t.Run("Not Owner", func(t *testing.T) {
		ts := newTestServer(t)
		ts.service.On("Settle", mock.Anything, mock.Anything).Return(nil, ledger.ErrNotOwner)

		rr := ts.do(t, http.MethodPost, path, alice, api.SettleRequest{FinalBalance: 4000})

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "NOT_OWNER", decode[api.Error](t, rr).Code)
	})

	t.Run("Malformed Session Id", func(t *testing.T) {
		ts := newTestServer(t)

		rr := ts.do(t, http.MethodPost, "/sessions/not-a-uuid/settle", alice, api.SettleRequest{FinalBalance: 4000})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestGetSessionById(t *testing.T) {
	ts := newTestServer(t)
	sessionID := uuid.NewString()
	ts.service.On("GetSession", mock.Anything, "alice", sessionID).Return(nil, ledger.ErrInvalidSession)

	rr := ts.do(t, http.MethodGet, "/sessions/"+sessionID, alice, nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdminRoutes(t *testing.T) {
	sessionID := uuid.NewString()

	t.Run("Ledger Requires Admin", func(t *testing.T) {
		ts := newTestServer(t)

		rr := ts.do(t, http.MethodGet, "/ledger", alice, nil)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("Ledger As Admin", func(t *testing.T) {
		ts := newTestServer(t)
		ts.store.On("ListLedgerEntries", mock.Anything, int32(5)).Return([]models.LedgerEntry{}, nil)

		rr := ts.do(t, http.MethodGet, "/ledger?limit=5", admin, nil)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Resolve", func(t *testing.T) {
		ts := newTestServer(t)
		ts.service.On("ResolveSettlement", mock.Anything, sessionID, ledger.Resolution{Paid: true, PayoutRef: "sig", Note: "confirmed on chain"}).
			Return(&models.Session{ID: sessionID, State: models.SETTLED}, nil)

		ref := "sig"
		rr := ts.do(t, http.MethodPost, "/admin/sessions/"+sessionID+"/resolve", admin,
			api.Resolution{Paid: true, PayoutRef: &ref, Note: "confirmed on chain"})

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, api.SessionStateSETTLED, decode[api.Session](t, rr).State)
	})
}
