package scheduler

import (
	"context"
	"time"
)

// ExpiryCheck asks for a session to be examined for expiry once DueAt has passed.
type ExpiryCheck struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	DueAt     time.Time `json:"due_at"`
}

// Scheduler defines the interface for a component that schedules work for later processing.
type Scheduler interface {
	// ScheduleExpiryCheck enqueues an expiry check to be delivered after delay.
	ScheduleExpiryCheck(ctx context.Context, check ExpiryCheck, delay time.Duration) error
}
