package procurement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	Create(ctx context.Context, grv GRV) error
	GetByNumber(ctx context.Context, number string) (GRV, error)
	List(ctx context.Context, status GRVStatus, limit int) ([]GRV, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards voucher completion against replays.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// MetricsPort reports completed vouchers.
type MetricsPort interface {
	GRVCompleted()
}

// Service coordinates goods received vouchers.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	metrics     MetricsPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idempotency IdempotencyPort, metrics MetricsPort) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idempotency, metrics: metrics}
}

// Create captures a draft voucher. Stock is not touched until completion.
func (s *Service) Create(ctx context.Context, input CreateGRVInput) (GRV, error) {
	input.Number = strings.TrimSpace(input.Number)
	input.SupplierCode = strings.TrimSpace(input.SupplierCode)
	if input.Number == "" || input.SupplierCode == "" {
		return GRV{}, fmt.Errorf("%w: number and supplier code required", ErrInvalidGRV)
	}
	if len(input.Lines) == 0 {
		return GRV{}, fmt.Errorf("%w: at least one line required", ErrInvalidGRV)
	}

	grv := GRV{
		ID:           uuid.NewString(),
		Number:       input.Number,
		SupplierCode: input.SupplierCode,
		Status:       StatusDraft,
		Notes:        strings.TrimSpace(input.Notes),
		CreatedAt:    time.Now().UTC(),
	}
	for i, line := range input.Lines {
		if strings.TrimSpace(line.StockCode) == "" {
			return GRV{}, fmt.Errorf("%w: line %d missing stock code", ErrInvalidGRV, i+1)
		}
		if line.Qty <= 0 || math.IsNaN(line.Qty) || math.IsInf(line.Qty, 0) {
			return GRV{}, fmt.Errorf("%w: line %d quantity must be > 0", ErrInvalidGRV, i+1)
		}
		if line.CostPrice < 0 || line.SellingPrice < 0 {
			return GRV{}, fmt.Errorf("%w: line %d prices must be >= 0", ErrInvalidGRV, i+1)
		}
		lineTotal := round2(line.CostPrice * line.Qty)
		grv.Lines = append(grv.Lines, GRVLine{
			StockCode:    strings.TrimSpace(line.StockCode),
			Description:  line.Description,
			Qty:          line.Qty,
			CostPrice:    line.CostPrice,
			SellingPrice: line.SellingPrice,
			LineTotal:    lineTotal,
		})
		grv.Total = round2(grv.Total + lineTotal)
	}

	if err := s.repo.Create(ctx, grv); err != nil {
		return GRV{}, err
	}
	s.recordAudit(ctx, input.ActorID, "GRV_CREATE", grv.Number, map[string]any{
		"supplier": grv.SupplierCode,
		"total":    grv.Total,
		"lines":    len(grv.Lines),
	})
	return grv, nil
}

// Complete applies a draft voucher: each line grows on-hand stock and
// overwrites the item prices, then the supplier balance grows by the voucher
// total. The whole application runs in one transaction and a completed
// voucher cannot be applied twice.
func (s *Service) Complete(ctx context.Context, number string, actorID int64) (GRV, error) {
	grv, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return GRV{}, err
	}
	if grv.Status != StatusDraft {
		return GRV{}, ErrAlreadyCompleted
	}

	idempotencyKey := "GRV:" + strings.ToUpper(grv.Number)
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, "procurement"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return GRV{}, ErrAlreadyCompleted
			}
			return GRV{}, err
		}
	}

	completedAt := time.Now().UTC()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, line := range grv.Lines {
			onHand, err := tx.ReceiveLine(ctx, line)
			if err != nil {
				return fmt.Errorf("line %s: %w", line.StockCode, err)
			}
			if err := tx.InsertMovement(ctx, line.StockCode, line.Qty, onHand, grv.Number); err != nil {
				return err
			}
		}
		if err := tx.BumpSupplierBalance(ctx, grv.SupplierCode, grv.Total); err != nil {
			return err
		}
		return tx.MarkCompleted(ctx, grv.Number, completedAt)
	})
	if err != nil {
		if s.idempotency != nil {
			_ = s.idempotency.Delete(ctx, idempotencyKey)
		}
		return GRV{}, err
	}

	grv.Status = StatusCompleted
	grv.CompletedAt = &completedAt
	if s.metrics != nil {
		s.metrics.GRVCompleted()
	}
	s.recordAudit(ctx, actorID, "GRV_COMPLETE", grv.Number, map[string]any{
		"supplier": grv.SupplierCode,
		"total":    grv.Total,
	})
	return grv, nil
}

// Get loads one voucher with its lines.
func (s *Service) Get(ctx context.Context, number string) (GRV, error) {
	return s.repo.GetByNumber(ctx, number)
}

// List returns recent vouchers, optionally filtered by status.
func (s *Service) List(ctx context.Context, status GRVStatus, limit int) ([]GRV, error) {
	if status != "" && status != StatusDraft && status != StatusCompleted {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidGRV, status)
	}
	return s.repo.List(ctx, status, limit)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, number string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "grv",
		EntityID: number,
		Meta:     meta,
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
