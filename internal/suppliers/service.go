package suppliers

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tillpoint/tillpoint/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	Create(ctx context.Context, s Supplier) (Supplier, error)
	GetByCode(ctx context.Context, code string) (Supplier, error)
	Update(ctx context.Context, code string, updates map[string]any) (Supplier, error)
	List(ctx context.Context) ([]Supplier, error)
	Pay(ctx context.Context, code string, amount float64) (float64, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates supplier operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Create validates and registers a supplier.
func (s *Service) Create(ctx context.Context, input CreateSupplierInput) (Supplier, error) {
	input.Code = strings.TrimSpace(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	if input.Code == "" || input.Name == "" {
		return Supplier{}, fmt.Errorf("%w: code and name required", ErrInvalidSupplier)
	}
	created, err := s.repo.Create(ctx, Supplier{
		Code:       input.Code,
		Name:       input.Name,
		Address:    input.Address,
		CellNumber: input.CellNumber,
		Contra:     input.Contra,
	})
	if err != nil {
		return Supplier{}, err
	}
	s.recordAudit(ctx, "SUPPLIER_CREATE", created.Code, map[string]any{"name": created.Name})
	return created, nil
}

// Update applies partial updates.
func (s *Service) Update(ctx context.Context, code string, input UpdateSupplierInput) (Supplier, error) {
	updates := map[string]any{}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return Supplier{}, fmt.Errorf("%w: name required", ErrInvalidSupplier)
		}
		updates["name"] = *input.Name
	}
	if input.Address != nil {
		updates["address"] = *input.Address
	}
	if input.CellNumber != nil {
		updates["cell_number"] = *input.CellNumber
	}
	if input.Contra != nil {
		updates["contra"] = *input.Contra
	}
	if len(updates) == 0 {
		return s.repo.GetByCode(ctx, code)
	}
	return s.repo.Update(ctx, code, updates)
}

// Get fetches one supplier.
func (s *Service) Get(ctx context.Context, code string) (Supplier, error) {
	return s.repo.GetByCode(ctx, code)
}

// List returns all suppliers.
func (s *Service) List(ctx context.Context) ([]Supplier, error) {
	return s.repo.List(ctx)
}

// Pay settles part of the supplier balance. The resulting balance never goes
// below zero; overpayment clamps to zero.
func (s *Service) Pay(ctx context.Context, code string, amount float64, reference string) (Payment, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Payment{}, ErrInvalidAmount
	}
	balance, err := s.repo.Pay(ctx, code, amount)
	if err != nil {
		return Payment{}, err
	}
	payment := Payment{
		SupplierCode: code,
		Amount:       amount,
		Reference:    reference,
		PaidAt:       time.Now().UTC(),
		NewBalance:   balance,
	}
	s.recordAudit(ctx, "SUPPLIER_PAY", code, map[string]any{"amount": amount, "new_balance": balance})
	return payment, nil
}

func (s *Service) recordAudit(ctx context.Context, action, code string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "supplier", EntityID: code, Meta: meta})
}
