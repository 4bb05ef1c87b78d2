package suppliers

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	suppliers map[string]Supplier
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{suppliers: map[string]Supplier{}}
}

func (m *memoryRepo) Create(_ context.Context, s Supplier) (Supplier, error) {
	key := strings.ToLower(s.Code)
	if _, ok := m.suppliers[key]; ok {
		return Supplier{}, ErrDuplicateCode
	}
	m.nextID++
	s.ID = m.nextID
	m.suppliers[key] = s
	return s, nil
}

func (m *memoryRepo) GetByCode(_ context.Context, code string) (Supplier, error) {
	s, ok := m.suppliers[strings.ToLower(code)]
	if !ok {
		return Supplier{}, ErrSupplierNotFound
	}
	return s, nil
}

func (m *memoryRepo) Update(_ context.Context, code string, updates map[string]any) (Supplier, error) {
	key := strings.ToLower(code)
	s, ok := m.suppliers[key]
	if !ok {
		return Supplier{}, ErrSupplierNotFound
	}
	if v, ok := updates["name"].(string); ok {
		s.Name = v
	}
	if v, ok := updates["address"].(string); ok {
		s.Address = v
	}
	m.suppliers[key] = s
	return s, nil
}

func (m *memoryRepo) List(_ context.Context) ([]Supplier, error) {
	out := []Supplier{}
	for _, s := range m.suppliers {
		out = append(out, s)
	}
	return out, nil
}

func (m *memoryRepo) Pay(_ context.Context, code string, amount float64) (float64, error) {
	key := strings.ToLower(code)
	s, ok := m.suppliers[key]
	if !ok {
		return 0, ErrSupplierNotFound
	}
	s.CurrentBalance -= amount
	if s.CurrentBalance < 0 {
		s.CurrentBalance = 0
	}
	m.suppliers[key] = s
	return s.CurrentBalance, nil
}

func TestCreateSupplier(t *testing.T) {
	service := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	supplier, err := service.Create(ctx, CreateSupplierInput{Code: "ACME", Name: "Acme Wholesale"})
	require.NoError(t, err)
	require.Zero(t, supplier.CurrentBalance)

	_, err = service.Create(ctx, CreateSupplierInput{Code: "acme", Name: "dup"})
	require.ErrorIs(t, err, ErrDuplicateCode)

	_, err = service.Create(ctx, CreateSupplierInput{Code: "", Name: "no code"})
	require.ErrorIs(t, err, ErrInvalidSupplier)
}

func TestPayClampsAtZero(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, nil)
	ctx := context.Background()

	_, err := service.Create(ctx, CreateSupplierInput{Code: "ACME", Name: "Acme"})
	require.NoError(t, err)
	s := repo.suppliers["acme"]
	s.CurrentBalance = 500
	repo.suppliers["acme"] = s

	payment, err := service.Pay(ctx, "ACME", 200, "EFT-1")
	require.NoError(t, err)
	require.InDelta(t, 300, payment.NewBalance, 0.001)

	// Overpayment clamps to zero rather than going negative.
	payment, err = service.Pay(ctx, "ACME", 1000, "EFT-2")
	require.NoError(t, err)
	require.Zero(t, payment.NewBalance)

	_, err = service.Pay(ctx, "ACME", 0, "")
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = service.Pay(ctx, "ACME", -5, "")
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = service.Pay(ctx, "ACME", math.NaN(), "")
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = service.Pay(ctx, "ACME", math.Inf(1), "")
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = service.Pay(ctx, "GHOST", 10, "")
	require.ErrorIs(t, err, ErrSupplierNotFound)
}
