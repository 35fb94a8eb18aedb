package websockets

import (
	"context"

	"github.com/gorilla/websocket"
)

// ConnectionManager tracks live client connections by user.
type ConnectionManager interface {
	AddConnection(userID string, conn *websocket.Conn) (connectionID string)
	RemoveConnection(connectionID string)
}

// Publisher defines the interface for publishing messages to WebSocket clients.
type Publisher interface {
	Publish(ctx context.Context, message Message) error
}
