package procurement

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tillpoint/tillpoint/internal/shared"
)

type memoryItem struct {
	onHand       float64
	costPrice    float64
	sellingPrice float64
}

type memoryRepo struct {
	items     map[string]*memoryItem
	suppliers map[string]float64
	grvs      map[string]GRV
	movements int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		items:     map[string]*memoryItem{},
		suppliers: map[string]float64{},
		grvs:      map[string]GRV{},
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) ReceiveLine(_ context.Context, line GRVLine) (float64, error) {
	item, ok := m.items[strings.ToLower(line.StockCode)]
	if !ok {
		return 0, ErrItemNotFound
	}
	item.onHand += line.Qty
	item.costPrice = line.CostPrice
	item.sellingPrice = line.SellingPrice
	return item.onHand, nil
}

func (m *memoryRepo) InsertMovement(_ context.Context, _ string, _, _ float64, _ string) error {
	m.movements++
	return nil
}

func (m *memoryRepo) BumpSupplierBalance(_ context.Context, code string, amount float64) error {
	key := strings.ToLower(code)
	if _, ok := m.suppliers[key]; !ok {
		return ErrSupplierNotFound
	}
	m.suppliers[key] += amount
	return nil
}

func (m *memoryRepo) MarkCompleted(_ context.Context, number string, at time.Time) error {
	grv, ok := m.grvs[strings.ToLower(number)]
	if !ok || grv.Status != StatusDraft {
		return ErrAlreadyCompleted
	}
	grv.Status = StatusCompleted
	grv.CompletedAt = &at
	m.grvs[strings.ToLower(number)] = grv
	return nil
}

func (m *memoryRepo) Create(_ context.Context, grv GRV) error {
	key := strings.ToLower(grv.Number)
	if _, ok := m.grvs[key]; ok {
		return ErrDuplicateNumber
	}
	m.grvs[key] = grv
	return nil
}

func (m *memoryRepo) GetByNumber(_ context.Context, number string) (GRV, error) {
	grv, ok := m.grvs[strings.ToLower(number)]
	if !ok {
		return GRV{}, ErrGRVNotFound
	}
	return grv, nil
}

func (m *memoryRepo) List(_ context.Context, status GRVStatus, _ int) ([]GRV, error) {
	out := []GRV{}
	for _, grv := range m.grvs {
		if status == "" || grv.Status == status {
			out = append(out, grv)
		}
	}
	return out, nil
}

type memoryIdempotency struct {
	keys map[string]bool
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, _ string) error {
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memoryIdempotency) Delete(_ context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

func TestCreateComputesTotals(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, nil, nil, nil)

	grv, err := service.Create(context.Background(), CreateGRVInput{
		Number:       "GRV-1001",
		SupplierCode: "ACME",
		Lines: []GRVLineInput{
			{StockCode: "widget", Qty: 10, CostPrice: 120, SellingPrice: 180},
			{StockCode: "bolt", Qty: 3, CostPrice: 2.5, SellingPrice: 5},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, grv.Status)
	require.InDelta(t, 1207.5, grv.Total, 0.001)
	require.InDelta(t, 1200, grv.Lines[0].LineTotal, 0.001)
	require.InDelta(t, 7.5, grv.Lines[1].LineTotal, 0.001)
}

func TestCreateValidation(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, nil, nil, nil)

	_, err := service.Create(context.Background(), CreateGRVInput{SupplierCode: "ACME"})
	require.ErrorIs(t, err, ErrInvalidGRV)

	_, err = service.Create(context.Background(), CreateGRVInput{Number: "GRV-1", SupplierCode: "ACME"})
	require.ErrorIs(t, err, ErrInvalidGRV)

	_, err = service.Create(context.Background(), CreateGRVInput{
		Number: "GRV-1", SupplierCode: "ACME",
		Lines: []GRVLineInput{{StockCode: "widget", Qty: 0, CostPrice: 1}},
	})
	require.ErrorIs(t, err, ErrInvalidGRV)

	_, err = service.Create(context.Background(), CreateGRVInput{
		Number: "GRV-1", SupplierCode: "ACME",
		Lines: []GRVLineInput{{StockCode: "widget", Qty: 1, CostPrice: -1}},
	})
	require.ErrorIs(t, err, ErrInvalidGRV)
}

func TestCompleteAppliesStockAndBalance(t *testing.T) {
	repo := newMemoryRepo()
	repo.items["widget"] = &memoryItem{onHand: 25, costPrice: 100, sellingPrice: 150}
	repo.suppliers["acme"] = 0
	service := NewService(repo, nil, &memoryIdempotency{}, nil)

	_, err := service.Create(context.Background(), CreateGRVInput{
		Number:       "GRV-1001",
		SupplierCode: "ACME",
		Lines:        []GRVLineInput{{StockCode: "widget", Qty: 10, CostPrice: 120, SellingPrice: 180}},
	})
	require.NoError(t, err)

	grv, err := service.Complete(context.Background(), "GRV-1001", 1)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, grv.Status)
	require.NotNil(t, grv.CompletedAt)

	item := repo.items["widget"]
	require.InDelta(t, 35, item.onHand, 0.001)
	require.InDelta(t, 120, item.costPrice, 0.001)
	require.InDelta(t, 180, item.sellingPrice, 0.001)
	require.InDelta(t, 1200, repo.suppliers["acme"], 0.001)
	require.Equal(t, 1, repo.movements)
}

func TestCompleteIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	repo.items["widget"] = &memoryItem{onHand: 25}
	repo.suppliers["acme"] = 0
	service := NewService(repo, nil, &memoryIdempotency{}, nil)

	_, err := service.Create(context.Background(), CreateGRVInput{
		Number:       "GRV-1001",
		SupplierCode: "ACME",
		Lines:        []GRVLineInput{{StockCode: "widget", Qty: 10, CostPrice: 120, SellingPrice: 180}},
	})
	require.NoError(t, err)

	_, err = service.Complete(context.Background(), "GRV-1001", 1)
	require.NoError(t, err)

	_, err = service.Complete(context.Background(), "GRV-1001", 1)
	require.ErrorIs(t, err, ErrAlreadyCompleted)

	// Applied exactly once.
	require.InDelta(t, 35, repo.items["widget"].onHand, 0.001)
	require.InDelta(t, 1200, repo.suppliers["acme"], 0.001)
}

func TestCompleteRollsBackIdempotencyKeyOnFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.suppliers["acme"] = 0
	keys := &memoryIdempotency{}
	service := NewService(repo, nil, keys, nil)

	// Voucher references an unknown item, so the transaction fails.
	_, err := service.Create(context.Background(), CreateGRVInput{
		Number:       "GRV-1002",
		SupplierCode: "ACME",
		Lines:        []GRVLineInput{{StockCode: "ghost", Qty: 1, CostPrice: 10, SellingPrice: 20}},
	})
	require.NoError(t, err)

	_, err = service.Complete(context.Background(), "GRV-1002", 1)
	require.ErrorIs(t, err, ErrItemNotFound)
	require.Empty(t, keys.keys)
}
