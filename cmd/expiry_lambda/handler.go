package main

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/chris/custodial-ledger/pkg/ledger"
	"github.com/chris/custodial-ledger/pkg/scheduler"
)

// newHandler returns the SQS handler for scheduled expiry checks. A check that arrives
// early, because SQS caps delays, is enqueued again for the remaining time. Failed
// records are reported individually so SQS only redelivers those.
func newHandler(m ledger.Maintenance, requeue scheduler.Scheduler) func(context.Context, events.SQSEvent) (events.SQSEventResponse, error) {
	return func(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
		var resp events.SQSEventResponse
		retry := func(id string) {
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: id})
		}

		for _, message := range sqsEvent.Records {
			var check scheduler.ExpiryCheck
			if err := json.Unmarshal([]byte(message.Body), &check); err != nil {
				// Redelivery cannot fix a malformed body.
				slog.Error("failed to unmarshal expiry check", "messageId", message.MessageId, "error", err)
				continue
			}

			outcome, err := m.ExpireSession(ctx, check.SessionID)
			if err != nil {
				if ledger.KindOf(err) == ledger.KindTransient {
					slog.Warn("expiry check failed, will retry", "session_id", check.SessionID, "error", err)
					retry(message.MessageId)
					continue
				}
				slog.Error("expiry check dropped", "session_id", check.SessionID, "error", err)
				continue
			}

			switch {
			case outcome.Expired:
				slog.Info("session expired", "session_id", check.SessionID, "user_id", check.UserID)
			case outcome.Remaining > 0:
				if err := requeue.ScheduleExpiryCheck(ctx, check, outcome.Remaining); err != nil {
					slog.Error("failed to requeue expiry check", "session_id", check.SessionID, "error", err)
					retry(message.MessageId)
				}
			default:
				slog.Info("session already closed", "session_id", check.SessionID)
			}
		}
		return resp, nil
	}
}
