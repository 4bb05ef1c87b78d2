package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReceiptArchive stores a rendered receipt on disk.
	TaskReceiptArchive = "receipt:archive"
)

// ReceiptArchivePayload carries the rendered receipt of a finalized sale.
type ReceiptArchivePayload struct {
	SaleNumber string `json:"sale_number"`
	Text       string `json:"text"`
}

// NewReceiptArchiveTask constructs an Asynq task.
func NewReceiptArchiveTask(payload ReceiptArchivePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReceiptArchive, data), nil
}

// ArchiveMetrics reports archived receipts.
type ArchiveMetrics interface {
	ReceiptArchived()
}

// NewReceiptArchiveHandler returns the handler that writes receipts under dir,
// one file per sale number.
func NewReceiptArchiveHandler(dir string, metrics ArchiveMetrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ReceiptArchivePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.SaleNumber == "" {
			return asynq.SkipRetry
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		path := filepath.Join(dir, payload.SaleNumber+".txt")
		if err := os.WriteFile(path, []byte(payload.Text), 0o644); err != nil {
			return err
		}
		if metrics != nil {
			metrics.ReceiptArchived()
		}
		logger.Info("receipt archived", slog.String("sale", payload.SaleNumber), slog.String("path", path))
		return nil
	}
}
