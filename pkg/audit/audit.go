// Package audit records money-path events and operator alerts.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Severity separates routine events from conditions an operator must act on.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityAlert Severity = "alert"
)

// EventType names what happened.
type EventType string

const (
	DepositCredited      EventType = "deposit.credited"
	SessionSettled       EventType = "session.settled"
	SettlementFailed     EventType = "settlement.failed"
	SettlementPending    EventType = "settlement.pending"
	SettlementHeld       EventType = "settlement.held"
	SettlementReconciled EventType = "settlement.reconciled"
	SettlementResolved   EventType = "settlement.resolved"
	SessionExpired       EventType = "session.expired"
	InvariantViolation   EventType = "invariant.violation"
)

// Event is a single audit record.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Severity  Severity       `json:"severity"`
	UserID    string         `json:"user_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
	At        time.Time      `json:"at"`
}

// Recorder persists audit events.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// LogRecorder writes events to a structured logger. Alerts are logged at error level.
type LogRecorder struct {
	logger *slog.Logger
}

// NewLogRecorder creates a LogRecorder. A nil logger uses slog.Default.
func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogRecorder{logger: logger}
}

func (r *LogRecorder) Record(ctx context.Context, ev Event) error {
	attrs := []any{
		slog.String("event_id", ev.ID),
		slog.String("type", string(ev.Type)),
		slog.String("user_id", ev.UserID),
		slog.String("session_id", ev.SessionID),
	}
	if len(ev.Fields) > 0 {
		fields := make([]any, 0, len(ev.Fields))
		for k, v := range ev.Fields {
			fields = append(fields, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("fields", fields...))
	}

	level := slog.LevelInfo
	if ev.Severity == SeverityAlert {
		level = slog.LevelError
	}
	r.logger.Log(ctx, level, ev.Message, attrs...)
	return nil
}

// Multi fans an event out to several recorders and joins their errors.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, ev Event) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
