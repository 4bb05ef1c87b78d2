package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	items  map[string]StockItem
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: map[string]StockItem{}}
}

func (m *memoryRepo) Create(_ context.Context, item StockItem) (StockItem, error) {
	key := strings.ToLower(item.Code)
	if _, ok := m.items[key]; ok {
		return StockItem{}, ErrDuplicateCode
	}
	m.nextID++
	item.ID = m.nextID
	item.IsActive = true
	m.items[key] = item
	return item, nil
}

func (m *memoryRepo) GetByCode(_ context.Context, code string) (StockItem, error) {
	item, ok := m.items[strings.ToLower(code)]
	if !ok {
		return StockItem{}, ErrItemNotFound
	}
	return item, nil
}

func (m *memoryRepo) Update(_ context.Context, code string, updates map[string]any) (StockItem, error) {
	key := strings.ToLower(code)
	item, ok := m.items[key]
	if !ok {
		return StockItem{}, ErrItemNotFound
	}
	if v, ok := updates["description"].(string); ok {
		item.Description = v
	}
	if v, ok := updates["cost_price"].(float64); ok {
		item.CostPrice = v
	}
	if v, ok := updates["selling_price"].(float64); ok {
		item.SellingPrice = v
	}
	if v, ok := updates["is_active"].(bool); ok {
		item.IsActive = v
	}
	m.items[key] = item
	return item, nil
}

func (m *memoryRepo) Delete(_ context.Context, code string) error {
	key := strings.ToLower(code)
	if _, ok := m.items[key]; !ok {
		return ErrItemNotFound
	}
	delete(m.items, key)
	return nil
}

func (m *memoryRepo) List(_ context.Context, filter ListFilter) ([]StockItem, int, error) {
	out := []StockItem{}
	for _, item := range m.items {
		if filter.Category != "" && item.Category != filter.Category {
			continue
		}
		out = append(out, item)
	}
	return out, len(out), nil
}

func (m *memoryRepo) LowStock(_ context.Context) ([]StockItem, error) {
	out := []StockItem{}
	for _, item := range m.items {
		if item.IsActive && item.MinLevel > 0 && item.QtyOnHand < item.MinLevel {
			out = append(out, item)
		}
	}
	return out, nil
}

func TestCreateItem(t *testing.T) {
	service := NewService(newMemoryRepo(), nil)

	item, err := service.Create(context.Background(), CreateItemInput{
		Code:         "WIDGET",
		Description:  "Widget",
		CostPrice:    80,
		SellingPrice: 100,
		QtyOnHand:    5,
		VATPercent:   15,
	})
	require.NoError(t, err)
	require.Equal(t, "WIDGET", item.Code)
	require.False(t, item.BelowCost())

	// Codes are unique case-insensitively.
	_, err = service.Create(context.Background(), CreateItemInput{Code: "widget", Description: "dup"})
	require.ErrorIs(t, err, ErrDuplicateCode)
}

func TestCreateItemValidation(t *testing.T) {
	service := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	cases := []CreateItemInput{
		{Description: "no code"},
		{Code: "X", Description: " "},
		{Code: "X", Description: "d", CostPrice: -1},
		{Code: "X", Description: "d", QtyOnHand: -1},
		{Code: "X", Description: "d", VATPercent: 120},
	}
	for _, input := range cases {
		_, err := service.Create(ctx, input)
		require.ErrorIs(t, err, ErrInvalidItem)
	}
}

func TestUpdateItem(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, nil)
	ctx := context.Background()

	_, err := service.Create(ctx, CreateItemInput{Code: "WIDGET", Description: "Widget", SellingPrice: 100})
	require.NoError(t, err)

	price := 110.0
	item, err := service.Update(ctx, "widget", UpdateItemInput{SellingPrice: &price})
	require.NoError(t, err)
	require.InDelta(t, 110, item.SellingPrice, 0.001)

	bad := -5.0
	_, err = service.Update(ctx, "widget", UpdateItemInput{SellingPrice: &bad})
	require.ErrorIs(t, err, ErrInvalidItem)

	// No fields set returns the current item unchanged.
	item, err = service.Update(ctx, "widget", UpdateItemInput{})
	require.NoError(t, err)
	require.InDelta(t, 110, item.SellingPrice, 0.001)

	_, err = service.Update(ctx, "ghost", UpdateItemInput{SellingPrice: &price})
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveItem(t *testing.T) {
	service := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	_, err := service.Create(ctx, CreateItemInput{Code: "WIDGET", Description: "Widget"})
	require.NoError(t, err)

	require.NoError(t, service.Remove(ctx, "WIDGET"))
	_, err = service.Get(ctx, "WIDGET")
	require.ErrorIs(t, err, ErrItemNotFound)

	require.ErrorIs(t, service.Remove(ctx, "WIDGET"), ErrItemNotFound)
}

func TestLowStock(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, nil)
	ctx := context.Background()

	_, err := service.Create(ctx, CreateItemInput{Code: "LOW", Description: "low", QtyOnHand: 2, MinLevel: 5})
	require.NoError(t, err)
	_, err = service.Create(ctx, CreateItemInput{Code: "OK", Description: "ok", QtyOnHand: 10, MinLevel: 5})
	require.NoError(t, err)

	low, err := service.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, "LOW", low[0].Code)
}
