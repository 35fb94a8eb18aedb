package websockets_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handler "github.com/chris/custodial-ledger/pkg/handlers/websockets"
	"github.com/chris/custodial-ledger/pkg/identity"
	"github.com/chris/custodial-ledger/pkg/websockets"
)

func TestBalanceUpdates(t *testing.T) {
	verifier, err := identity.NewVerifier([]byte("secret"), "")
	require.NoError(t, err)
	hub := websockets.NewHub(nil)
	srv := httptest.NewServer(verifier.RequireUser(handler.NewHandler(hub, nil, nil)))
	defer srv.Close()

	dial := func(t *testing.T, userID string) *websocket.Conn {
		token, err := verifier.Issue(identity.Principal{UserID: userID}, time.Minute)
		require.NoError(t, err)
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?access_token=" + token
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}

	alice := dial(t, "alice")
	bob := dial(t, "bob")
	require.Eventually(t, func() bool {
		return hub.Connections("alice") == 1 && hub.Connections("bob") == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), websockets.BalanceUpdate("alice", "s1", "OPEN", 100, 100)))

	var msg struct {
		Type    string                           `json:"type"`
		Payload websockets.BalanceUpdatePayload `json:"payload"`
	}
	require.NoError(t, alice.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, alice.ReadJSON(&msg))
	assert.Equal(t, "balanceUpdate", msg.Type)
	assert.Equal(t, int64(100), msg.Payload.NewBalance)
	assert.Equal(t, "s1", msg.Payload.SessionID)

	// Bob is not addressed and must see nothing.
	require.NoError(t, bob.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = bob.ReadMessage()
	assert.Error(t, err)

	t.Run("Disconnect Unregisters", func(t *testing.T) {
		alice.Close()
		assert.Eventually(t, func() bool { return hub.Connections("alice") == 0 }, time.Second, 10*time.Millisecond)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, 401, resp.StatusCode)
	})
}
