package websockets

// MessageType defines the type of a WebSocket message.
type MessageType string

const (
	// MessageTypeBalanceUpdate is sent after a deposit, settlement or expiry changes a balance.
	MessageTypeBalanceUpdate MessageType = "balanceUpdate"
)

// Message represents a generic WebSocket message. UserID addresses the message and is
// not sent to the client; an empty UserID broadcasts to every connection.
type Message struct {
	Type    MessageType `json:"type"`
	UserID  string      `json:"-"`
	Payload interface{} `json:"payload"`
}

// BalanceUpdatePayload is the payload for a balanceUpdate message.
type BalanceUpdatePayload struct {
	UserID       string `json:"user_id"`
	SessionID    string `json:"session_id"`
	SessionState string `json:"session_state"`
	Change       int64  `json:"change"`
	NewBalance   int64  `json:"new_balance"`
}

// BalanceUpdate builds a balanceUpdate message addressed to userID.
func BalanceUpdate(userID, sessionID, state string, change, newBalance int64) Message {
	return Message{
		Type:   MessageTypeBalanceUpdate,
		UserID: userID,
		Payload: BalanceUpdatePayload{
			UserID:       userID,
			SessionID:    sessionID,
			SessionState: state,
			Change:       change,
			NewBalance:   newBalance,
		},
	}
}
