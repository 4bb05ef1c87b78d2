package inventory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryItem struct {
	onHand      float64
	inWarehouse float64
}

type memoryRepo struct {
	items       map[string]*memoryItem
	movements   []Entry
	adjustments []Adjustment
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: map[string]*memoryItem{}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) ItemQuantitiesForUpdate(_ context.Context, code string) (float64, float64, error) {
	item, ok := m.items[strings.ToLower(code)]
	if !ok {
		return 0, 0, ErrItemNotFound
	}
	return item.onHand, item.inWarehouse, nil
}

func (m *memoryRepo) SetItemQuantities(_ context.Context, code string, onHand, inWarehouse float64) error {
	item, ok := m.items[strings.ToLower(code)]
	if !ok {
		return ErrItemNotFound
	}
	item.onHand = onHand
	item.inWarehouse = inWarehouse
	return nil
}

func (m *memoryRepo) InsertMovement(_ context.Context, e Entry) error {
	m.movements = append(m.movements, e)
	return nil
}

func (m *memoryRepo) InsertAdjustment(_ context.Context, a Adjustment) error {
	m.adjustments = append(m.adjustments, a)
	return nil
}

func (m *memoryRepo) ListMovements(_ context.Context, code string, _ int) ([]Entry, error) {
	if code == "" {
		return m.movements, nil
	}
	out := []Entry{}
	for _, e := range m.movements {
		if strings.EqualFold(e.StockCode, code) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryRepo) GetAdjustment(_ context.Context, id string) (Adjustment, error) {
	for _, a := range m.adjustments {
		if a.ID == id {
			return a, nil
		}
	}
	return Adjustment{}, ErrItemNotFound
}

func (m *memoryRepo) ListAdjustments(_ context.Context, _ int) ([]Adjustment, error) {
	return m.adjustments, nil
}

func TestTransferPreservesSideSum(t *testing.T) {
	repo := newMemoryRepo()
	repo.items["widget"] = &memoryItem{onHand: 4, inWarehouse: 10}
	service := NewService(repo, nil)

	result, err := service.Transfer(context.Background(), TransferInput{
		StockCode: "WIDGET",
		Qty:       6,
		Direction: ToStore,
	})
	require.NoError(t, err)
	require.InDelta(t, 10, result.QtyOnHand, 0.001)
	require.InDelta(t, 4, result.QtyInWarehouse, 0.001)
	require.InDelta(t, 14, result.QtyOnHand+result.QtyInWarehouse, 0.001)

	require.Len(t, repo.movements, 1)
	require.Equal(t, MovementTransfer, repo.movements[0].Movement)
	require.InDelta(t, 6, repo.movements[0].QtyDelta, 0.001)
}

func TestTransferToWarehouse(t *testing.T) {
	repo := newMemoryRepo()
	repo.items["widget"] = &memoryItem{onHand: 8, inWarehouse: 2}
	service := NewService(repo, nil)

	result, err := service.Transfer(context.Background(), TransferInput{
		StockCode: "widget",
		Qty:       3,
		Direction: ToWarehouse,
	})
	require.NoError(t, err)
	require.InDelta(t, 5, result.QtyOnHand, 0.001)
	require.InDelta(t, 5, result.QtyInWarehouse, 0.001)
}

func TestTransferRejectsInsufficientSource(t *testing.T) {
	repo := newMemoryRepo()
	repo.items["widget"] = &memoryItem{onHand: 4, inWarehouse: 2}
	service := NewService(repo, nil)

	_, err := service.Transfer(context.Background(), TransferInput{
		StockCode: "widget",
		Qty:       5,
		Direction: ToStore,
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	// Counters untouched on rejection.
	require.InDelta(t, 4, repo.items["widget"].onHand, 0.001)
	require.InDelta(t, 2, repo.items["widget"].inWarehouse, 0.001)
	require.Empty(t, repo.movements)
}

func TestTransferRejectsBadInput(t *testing.T) {
	repo := newMemoryRepo()
	repo.items["widget"] = &memoryItem{onHand: 4, inWarehouse: 2}
	service := NewService(repo, nil)

	_, err := service.Transfer(context.Background(), TransferInput{StockCode: "widget", Qty: 0, Direction: ToStore})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = service.Transfer(context.Background(), TransferInput{StockCode: "widget", Qty: -1, Direction: ToStore})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = service.Transfer(context.Background(), TransferInput{StockCode: "widget", Qty: 1, Direction: "sideways"})
	require.ErrorIs(t, err, ErrUnknownDirection)

	_, err = service.Transfer(context.Background(), TransferInput{StockCode: "missing", Qty: 1, Direction: ToStore})
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestRecordAdjustmentDoesNotMutateStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.items["widget"] = &memoryItem{onHand: 20, inWarehouse: 5}
	service := NewService(repo, nil)

	adjustment, err := service.RecordAdjustment(context.Background(), AdjustmentInput{
		Reference: "STOCKTAKE-08",
		Reason:    "monthly count",
		Lines: []AdjustmentLineInput{
			{StockCode: "widget", Operation: OpMinus, Quantity: 3},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, adjustment.ID)
	require.Len(t, adjustment.Lines, 1)
	require.InDelta(t, 17, adjustment.Lines[0].ProjectedQty, 0.001)

	// On-hand stays as it was. The adjustment is a record, not an application.
	require.InDelta(t, 20, repo.items["widget"].onHand, 0.001)

	require.Len(t, repo.movements, 1)
	require.Equal(t, MovementAdjust, repo.movements[0].Movement)
	require.InDelta(t, 0, repo.movements[0].QtyDelta, 0.001)
}

func TestRecordAdjustmentProjections(t *testing.T) {
	repo := newMemoryRepo()
	repo.items["a"] = &memoryItem{onHand: 10}
	repo.items["b"] = &memoryItem{onHand: 10}
	repo.items["c"] = &memoryItem{onHand: 10}
	service := NewService(repo, nil)

	adjustment, err := service.RecordAdjustment(context.Background(), AdjustmentInput{
		Reference: "STOCKTAKE-09",
		Reason:    "shelf count",
		Lines: []AdjustmentLineInput{
			{StockCode: "a", Operation: OpAdd, Quantity: 4},
			{StockCode: "b", Operation: OpMinus, Quantity: 4},
			{StockCode: "c", Operation: OpReplace, Quantity: 4},
		},
	})
	require.NoError(t, err)
	require.InDelta(t, 14, adjustment.Lines[0].ProjectedQty, 0.001)
	require.InDelta(t, 6, adjustment.Lines[1].ProjectedQty, 0.001)
	require.InDelta(t, 4, adjustment.Lines[2].ProjectedQty, 0.001)
}

func TestRecordAdjustmentValidation(t *testing.T) {
	repo := newMemoryRepo()
	repo.items["widget"] = &memoryItem{onHand: 20}
	service := NewService(repo, nil)

	_, err := service.RecordAdjustment(context.Background(), AdjustmentInput{})
	require.ErrorIs(t, err, ErrInvalidAdjustment)

	line := AdjustmentLineInput{StockCode: "widget", Operation: OpMinus, Quantity: 2}

	// The header is required alongside the lines.
	_, err = service.RecordAdjustment(context.Background(), AdjustmentInput{
		Lines: []AdjustmentLineInput{line},
	})
	require.ErrorIs(t, err, ErrInvalidAdjustment)

	_, err = service.RecordAdjustment(context.Background(), AdjustmentInput{
		Reference: "STOCKTAKE-10",
		Reason:    "   ",
		Lines:     []AdjustmentLineInput{line},
	})
	require.ErrorIs(t, err, ErrInvalidAdjustment)

	_, err = service.RecordAdjustment(context.Background(), AdjustmentInput{
		Reference: "STOCKTAKE-10",
		Reason:    "count",
		Lines:     []AdjustmentLineInput{},
	})
	require.ErrorIs(t, err, ErrInvalidAdjustment)

	_, err = service.RecordAdjustment(context.Background(), AdjustmentInput{
		Reference: "STOCKTAKE-10",
		Reason:    "count",
		Lines:     []AdjustmentLineInput{{StockCode: "widget", Operation: "halve", Quantity: 2}},
	})
	require.ErrorIs(t, err, ErrInvalidAdjustment)

	_, err = service.RecordAdjustment(context.Background(), AdjustmentInput{
		Reference: "STOCKTAKE-10",
		Reason:    "count",
		Lines:     []AdjustmentLineInput{{StockCode: "widget", Operation: OpAdd, Quantity: -2}},
	})
	require.ErrorIs(t, err, ErrInvalidAdjustment)

	require.Empty(t, repo.adjustments)
	require.Empty(t, repo.movements)
}
