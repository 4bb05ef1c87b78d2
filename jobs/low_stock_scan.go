package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// TaskLowStockScan reports items that fell under their minimum level.
	TaskLowStockScan = "stock:low-scan"
)

// LowStockScanPayload carries scheduling metadata.
type LowStockScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockScanTask constructs an Asynq task for the nightly scan.
func NewLowStockScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}

// NewLowStockScanHandler returns the handler that logs every active item
// whose on-hand quantity fell under its minimum level.
func NewLowStockScanHandler(pool *pgxpool.Pool, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload LowStockScanPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		rows, err := pool.Query(ctx, `SELECT code, description, qty_on_hand, min_level
FROM stock_items WHERE is_active AND min_level > 0 AND qty_on_hand < min_level
ORDER BY code ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		count := 0
		for rows.Next() {
			var code, description string
			var onHand, minLevel float64
			if err := rows.Scan(&code, &description, &onHand, &minLevel); err != nil {
				return err
			}
			count++
			logger.Warn("stock below minimum",
				slog.String("code", code),
				slog.String("description", description),
				slog.Float64("on_hand", onHand),
				slog.Float64("min_level", minLevel))
		}
		if err := rows.Err(); err != nil {
			return err
		}
		logger.Info("low stock scan complete", slog.Int("flagged", count))
		return nil
	}
}
