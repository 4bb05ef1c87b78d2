package inventory

import (
	"context"
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
	ListMovements(ctx context.Context, code string, limit int) ([]Entry, error)
	GetAdjustment(ctx context.Context, id string) (Adjustment, error)
	ListAdjustments(ctx context.Context, limit int) ([]Adjustment, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates warehouse transfers, adjustments and the movement log.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Transfer moves quantity between the warehouse and the shop floor for one
// item. The sum of the two sides is unchanged by a transfer.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (TransferResult, error) {
	input.StockCode = strings.TrimSpace(input.StockCode)
	if input.StockCode == "" {
		return TransferResult{}, ErrItemNotFound
	}
	if input.Qty <= 0 || math.IsNaN(input.Qty) || math.IsInf(input.Qty, 0) {
		return TransferResult{}, ErrInvalidQuantity
	}
	if input.Direction != ToStore && input.Direction != ToWarehouse {
		return TransferResult{}, ErrUnknownDirection
	}

	var result TransferResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		onHand, inWarehouse, err := tx.ItemQuantitiesForUpdate(ctx, input.StockCode)
		if err != nil {
			return err
		}
		var delta float64
		switch input.Direction {
		case ToStore:
			if inWarehouse < input.Qty {
				return fmt.Errorf("%w: warehouse has %.2f, need %.2f", ErrInsufficientStock, inWarehouse, input.Qty)
			}
			inWarehouse -= input.Qty
			onHand += input.Qty
			delta = input.Qty
		case ToWarehouse:
			if onHand < input.Qty {
				return fmt.Errorf("%w: store has %.2f, need %.2f", ErrInsufficientStock, onHand, input.Qty)
			}
			onHand -= input.Qty
			inWarehouse += input.Qty
			delta = -input.Qty
		}
		if err := tx.SetItemQuantities(ctx, input.StockCode, onHand, inWarehouse); err != nil {
			return err
		}
		if err := tx.InsertMovement(ctx, Entry{
			StockCode:   input.StockCode,
			Movement:    MovementTransfer,
			QtyDelta:    delta,
			OnHandAfter: onHand,
			Ref:         string(input.Direction),
			Note:        input.Note,
		}); err != nil {
			return err
		}
		result = TransferResult{StockCode: input.StockCode, QtyOnHand: onHand, QtyInWarehouse: inWarehouse}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}

	s.recordAudit(ctx, input.ActorID, "STOCK_TRANSFER", input.StockCode, map[string]any{
		"qty":       input.Qty,
		"direction": string(input.Direction),
	})
	return result, nil
}

// RecordAdjustment stores an adjustment for review. Quantities on the catalog
// are left untouched; each line carries the quantity the operation would
// produce at the time of recording.
func (s *Service) RecordAdjustment(ctx context.Context, input AdjustmentInput) (Adjustment, error) {
	input.Reference = strings.TrimSpace(input.Reference)
	input.Reason = strings.TrimSpace(input.Reason)
	if input.Reference == "" {
		return Adjustment{}, fmt.Errorf("%w: reference required", ErrInvalidAdjustment)
	}
	if input.Reason == "" {
		return Adjustment{}, fmt.Errorf("%w: reason required", ErrInvalidAdjustment)
	}
	if len(input.Lines) == 0 {
		return Adjustment{}, fmt.Errorf("%w: at least one line required", ErrInvalidAdjustment)
	}
	for i, line := range input.Lines {
		if strings.TrimSpace(line.StockCode) == "" {
			return Adjustment{}, fmt.Errorf("%w: line %d missing stock code", ErrInvalidAdjustment, i+1)
		}
		if line.Quantity < 0 || math.IsNaN(line.Quantity) || math.IsInf(line.Quantity, 0) {
			return Adjustment{}, fmt.Errorf("%w: line %d quantity must be >= 0", ErrInvalidAdjustment, i+1)
		}
		switch line.Operation {
		case OpAdd, OpMinus, OpReplace:
		default:
			return Adjustment{}, fmt.Errorf("%w: line %d unknown operation %q", ErrInvalidAdjustment, i+1, line.Operation)
		}
	}

	adjustment := Adjustment{
		ID:        uuid.NewString(),
		Reference: input.Reference,
		Reason:    input.Reason,
		CreatedAt: time.Now().UTC(),
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, line := range input.Lines {
			onHand, _, err := tx.ItemQuantitiesForUpdate(ctx, line.StockCode)
			if err != nil {
				return fmt.Errorf("line %s: %w", line.StockCode, err)
			}
			projected := onHand
			switch line.Operation {
			case OpAdd:
				projected = onHand + line.Quantity
			case OpMinus:
				projected = onHand - line.Quantity
			case OpReplace:
				projected = line.Quantity
			}
			adjustment.Lines = append(adjustment.Lines, AdjustmentLine{
				StockCode:    line.StockCode,
				Name:         line.Name,
				Operation:    line.Operation,
				Quantity:     line.Quantity,
				ProjectedQty: projected,
			})
			if err := tx.InsertMovement(ctx, Entry{
				StockCode:   line.StockCode,
				Movement:    MovementAdjust,
				QtyDelta:    0,
				OnHandAfter: onHand,
				Ref:         adjustment.ID,
				Note:        adjustment.Reason,
			}); err != nil {
				return err
			}
		}
		return tx.InsertAdjustment(ctx, adjustment)
	})
	if err != nil {
		return Adjustment{}, err
	}

	s.recordAudit(ctx, input.ActorID, "STOCK_ADJUSTMENT", adjustment.ID, map[string]any{
		"reference": adjustment.Reference,
		"lines":     len(adjustment.Lines),
	})
	return adjustment, nil
}

// Movements returns recent movement log entries, newest first.
func (s *Service) Movements(ctx context.Context, code string, limit int) ([]Entry, error) {
	return s.repo.ListMovements(ctx, strings.TrimSpace(code), limit)
}

// Adjustment loads a single adjustment with its lines.
func (s *Service) Adjustment(ctx context.Context, id string) (Adjustment, error) {
	return s.repo.GetAdjustment(ctx, id)
}

// Adjustments lists recent adjustment headers.
func (s *Service) Adjustments(ctx context.Context, limit int) ([]Adjustment, error) {
	return s.repo.ListAdjustments(ctx, limit)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "inventory",
		EntityID: entityID,
		Meta:     meta,
	})
}
