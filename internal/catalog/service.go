package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/tillpoint/tillpoint/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	Create(ctx context.Context, item StockItem) (StockItem, error)
	GetByCode(ctx context.Context, code string) (StockItem, error)
	Update(ctx context.Context, code string, updates map[string]any) (StockItem, error)
	Delete(ctx context.Context, code string) error
	List(ctx context.Context, filter ListFilter) ([]StockItem, int, error)
	LowStock(ctx context.Context) ([]StockItem, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates catalog operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Create validates and inserts a new stock item.
func (s *Service) Create(ctx context.Context, input CreateItemInput) (StockItem, error) {
	input.Code = strings.TrimSpace(input.Code)
	if input.Code == "" || strings.TrimSpace(input.Description) == "" {
		return StockItem{}, fmt.Errorf("%w: code and description required", ErrInvalidItem)
	}
	if input.CostPrice < 0 || input.SellingPrice < 0 {
		return StockItem{}, fmt.Errorf("%w: prices must be >= 0", ErrInvalidItem)
	}
	if input.QtyOnHand < 0 || input.QtyInWarehouse < 0 {
		return StockItem{}, fmt.Errorf("%w: quantities must be >= 0", ErrInvalidItem)
	}
	if input.VATPercent < 0 || input.VATPercent > 100 {
		return StockItem{}, fmt.Errorf("%w: vat percent out of range", ErrInvalidItem)
	}
	item := StockItem{
		Code:           input.Code,
		Description:    strings.TrimSpace(input.Description),
		Category:       input.Category,
		Size:           input.Size,
		CostPrice:      input.CostPrice,
		SellingPrice:   input.SellingPrice,
		QtyOnHand:      input.QtyOnHand,
		QtyInWarehouse: input.QtyInWarehouse,
		SupplierCode:   input.SupplierCode,
		VATPercent:     input.VATPercent,
		MinLevel:       input.MinLevel,
		MaxLevel:       input.MaxLevel,
		ImageRef:       input.ImageRef,
	}
	created, err := s.repo.Create(ctx, item)
	if err != nil {
		return StockItem{}, err
	}
	s.recordAudit(ctx, "ITEM_CREATE", created.Code, map[string]any{"description": created.Description})
	return created, nil
}

// Update applies partial updates; the stock code itself cannot change.
func (s *Service) Update(ctx context.Context, code string, input UpdateItemInput) (StockItem, error) {
	updates := map[string]any{}
	if input.Description != nil {
		if strings.TrimSpace(*input.Description) == "" {
			return StockItem{}, fmt.Errorf("%w: description required", ErrInvalidItem)
		}
		updates["description"] = *input.Description
	}
	if input.Category != nil {
		updates["category"] = *input.Category
	}
	if input.Size != nil {
		updates["size"] = *input.Size
	}
	if input.CostPrice != nil {
		if *input.CostPrice < 0 {
			return StockItem{}, fmt.Errorf("%w: cost price must be >= 0", ErrInvalidItem)
		}
		updates["cost_price"] = *input.CostPrice
	}
	if input.SellingPrice != nil {
		if *input.SellingPrice < 0 {
			return StockItem{}, fmt.Errorf("%w: selling price must be >= 0", ErrInvalidItem)
		}
		updates["selling_price"] = *input.SellingPrice
	}
	if input.SupplierCode != nil {
		updates["supplier_code"] = *input.SupplierCode
	}
	if input.VATPercent != nil {
		if *input.VATPercent < 0 || *input.VATPercent > 100 {
			return StockItem{}, fmt.Errorf("%w: vat percent out of range", ErrInvalidItem)
		}
		updates["vat_percent"] = *input.VATPercent
	}
	if input.MinLevel != nil {
		updates["min_level"] = *input.MinLevel
	}
	if input.MaxLevel != nil {
		updates["max_level"] = *input.MaxLevel
	}
	if input.ImageRef != nil {
		updates["image_ref"] = *input.ImageRef
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		return s.repo.GetByCode(ctx, code)
	}
	item, err := s.repo.Update(ctx, code, updates)
	if err != nil {
		return StockItem{}, err
	}
	s.recordAudit(ctx, "ITEM_UPDATE", item.Code, map[string]any{"fields": len(updates)})
	return item, nil
}

// Remove deletes the item.
func (s *Service) Remove(ctx context.Context, code string) error {
	if err := s.repo.Delete(ctx, code); err != nil {
		return err
	}
	s.recordAudit(ctx, "ITEM_DELETE", code, nil)
	return nil
}

// Get fetches one item by code.
func (s *Service) Get(ctx context.Context, code string) (StockItem, error) {
	return s.repo.GetByCode(ctx, code)
}

// List returns items matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]StockItem, int, error) {
	return s.repo.List(ctx, filter)
}

// LowStock lists active items under their minimum level.
func (s *Service) LowStock(ctx context.Context) ([]StockItem, error) {
	return s.repo.LowStock(ctx)
}

func (s *Service) recordAudit(ctx context.Context, action, code string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "stock_item", EntityID: code, Meta: meta})
}
