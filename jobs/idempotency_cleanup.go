package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tillpoint/tillpoint/internal/shared"
)

const (
	// TaskIdempotencyCleanup prunes aged idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"

	idempotencyRetention = 7 * 24 * time.Hour
)

// IdempotencyCleanupPayload carries scheduling metadata.
type IdempotencyCleanupPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewIdempotencyCleanupTask constructs an Asynq task for the cleanup.
func NewIdempotencyCleanupTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}

// NewIdempotencyCleanupHandler returns the handler that prunes keys older
// than the retention window.
func NewIdempotencyCleanupHandler(store *shared.IdempotencyStore, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload IdempotencyCleanupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if err := store.Cleanup(ctx, idempotencyRetention); err != nil {
			return err
		}
		logger.Info("idempotency keys pruned", slog.Duration("retention", idempotencyRetention))
		return nil
	}
}
