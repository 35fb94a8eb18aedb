package websockets

import "context"

// NoOpPublisher discards every message. It is used where no clients can connect,
// such as the background lambdas.
type NoOpPublisher struct{}

// Publish does nothing.
func (p *NoOpPublisher) Publish(ctx context.Context, message Message) error {
	return nil
}
