package pos

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/tillpoint/tillpoint/internal/catalog"
	"github.com/tillpoint/tillpoint/internal/shared"
)

type memoryRepo struct {
	items     map[string]*catalog.StockItem
	counters  map[string]int64
	sales     map[string]SaleRecord
	balances  map[string]float64
	movements int
	failNext  bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		items:    map[string]*catalog.StockItem{},
		counters: map[string]int64{},
		sales:    map[string]SaleRecord{},
		balances: map[string]float64{},
	}
}

func (m *memoryRepo) Get(_ context.Context, code string) (catalog.StockItem, error) {
	item, ok := m.items[strings.ToUpper(code)]
	if !ok {
		return catalog.StockItem{}, catalog.ErrItemNotFound
	}
	return *item, nil
}

func (m *memoryRepo) LowStock(_ context.Context) ([]catalog.StockItem, error) {
	out := []catalog.StockItem{}
	for _, item := range m.items {
		if item.IsActive && item.MinLevel > 0 && item.QtyOnHand < item.MinLevel {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	if m.failNext {
		m.failNext = false
		return fmt.Errorf("simulated tx failure")
	}
	return fn(ctx, m)
}

func (m *memoryRepo) NextSaleSeq(_ context.Context, day string) (int64, error) {
	m.counters[day]++
	return m.counters[day], nil
}

func (m *memoryRepo) DecrementStock(_ context.Context, code string, qty float64, allowNegative bool) (float64, error) {
	item, ok := m.items[strings.ToUpper(code)]
	if !ok {
		return 0, ErrInsufficientStock
	}
	if !allowNegative && item.QtyOnHand < qty {
		return 0, ErrInsufficientStock
	}
	item.QtyOnHand -= qty
	return item.QtyOnHand, nil
}

func (m *memoryRepo) InsertMovement(_ context.Context, _ string, _, _ float64, _ string) error {
	m.movements++
	return nil
}

func (m *memoryRepo) InsertSale(_ context.Context, sale SaleRecord) error {
	m.sales[sale.Number] = sale
	return nil
}

func (m *memoryRepo) BumpCustomerBalance(_ context.Context, code string, amount float64) error {
	m.balances[code] += amount
	return nil
}

func (m *memoryRepo) GetSale(_ context.Context, number string) (SaleRecord, error) {
	sale, ok := m.sales[number]
	if !ok {
		return SaleRecord{}, ErrSaleNotFound
	}
	return sale, nil
}

func (m *memoryRepo) CountSalesForDay(_ context.Context, day string) (int, error) {
	count := 0
	for number := range m.sales {
		if strings.HasPrefix(number, "S-"+day+"-") {
			count++
		}
	}
	return count, nil
}

func (m *memoryRepo) TotalsForDay(_ context.Context, day string) (float64, float64, error) {
	var gross, tax float64
	for number, sale := range m.sales {
		if strings.HasPrefix(number, "S-"+day+"-") {
			gross += sale.Total
			tax += sale.Tax
		}
	}
	return gross, tax, nil
}

func (m *memoryRepo) CashTotalForDay(_ context.Context, day string) (float64, error) {
	var cash float64
	for number, sale := range m.sales {
		if strings.HasPrefix(number, "S-"+day+"-") && sale.Method == PayCash {
			cash += sale.Total
		}
	}
	return cash, nil
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

type recordingEnqueuer struct {
	saleNumbers []string
}

func (r *recordingEnqueuer) EnqueueReceiptArchive(_ context.Context, saleNumber, _ string) error {
	r.saleNumbers = append(r.saleNumbers, saleNumber)
	return nil
}

func newSaleService(t *testing.T) (*Service, *memoryRepo, *recordingEnqueuer) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemoryRepo()
	repo.items["WIDGET"] = &catalog.StockItem{Code: "WIDGET", Description: "Widget", CostPrice: 80, SellingPrice: 100, QtyOnHand: 10, VATPercent: 15, IsActive: true}
	repo.items["BOLT"] = &catalog.StockItem{Code: "BOLT", Description: "Bolt M6", CostPrice: 1, SellingPrice: 2.5, QtyOnHand: 100, VATPercent: 15, IsActive: true}

	enqueuer := &recordingEnqueuer{}
	service := NewService(ServiceConfig{
		Carts:       NewCartStore(client, time.Hour),
		Items:       repo,
		Repo:        repo,
		Idempotency: &memoryIdempotency{},
		Receipts:    enqueuer,
		ReceiptInfo: ReceiptInfo{CompanyName: "Test Store", Footer: "Thanks"},
	})
	return service, repo, enqueuer
}

func ringUpAndValidate(t *testing.T, service *Service, terminal string) Cart {
	t.Helper()
	ctx := context.Background()
	_, err := service.AddItem(ctx, terminal, "WIDGET", 2, nil)
	require.NoError(t, err)
	cart, err := service.Validate(ctx, terminal)
	require.NoError(t, err)
	return cart
}

func TestFinalizeCashSale(t *testing.T) {
	service, repo, enqueuer := newSaleService(t)
	ctx := context.Background()
	cart := ringUpAndValidate(t, service, "till-1")

	sale, receipt, err := service.Finalize(ctx, FinalizeInput{
		TerminalID: "till-1",
		Method:     PayCash,
		Tendered:   250,
		Output:     OutputPrint,
	})
	require.NoError(t, err)

	day := time.Now().UTC().Format("20060102")
	require.Equal(t, "S-"+day+"-0001", sale.Number)
	require.InDelta(t, cart.Total, sale.Total, 0.001)
	require.InDelta(t, cart.Total, sale.Subtotal+sale.Tax, 0.001)
	require.InDelta(t, 250-cart.Total, sale.Change, 0.001)
	require.Contains(t, receipt, sale.Number)

	// Stock decremented and the movement logged.
	require.InDelta(t, 8, repo.items["WIDGET"].QtyOnHand, 0.001)
	require.Equal(t, 1, repo.movements)
	require.Equal(t, []string{sale.Number}, enqueuer.saleNumbers)

	// Cart cleared after the sale.
	_, err = service.Cart(ctx, "till-1")
	require.ErrorIs(t, err, ErrCartNotFound)
}

func TestSaleNumbersAreGaplessPerDay(t *testing.T) {
	service, _, _ := newSaleService(t)
	ctx := context.Background()
	day := time.Now().UTC().Format("20060102")

	for i := 1; i <= 3; i++ {
		ringUpAndValidate(t, service, "till-1")
		sale, _, err := service.Finalize(ctx, FinalizeInput{TerminalID: "till-1", Method: PayCard})
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("S-%s-%04d", day, i), sale.Number)
	}
}

func TestFinalizeRequiresValidation(t *testing.T) {
	service, _, _ := newSaleService(t)
	ctx := context.Background()

	_, err := service.AddItem(ctx, "till-1", "WIDGET", 1, nil)
	require.NoError(t, err)

	_, _, err = service.Finalize(ctx, FinalizeInput{TerminalID: "till-1", Method: PayCard})
	require.ErrorIs(t, err, ErrNotValidated)
}

func TestFinalizePaymentRules(t *testing.T) {
	service, repo, _ := newSaleService(t)
	ctx := context.Background()
	cart := ringUpAndValidate(t, service, "till-1")

	_, _, err := service.Finalize(ctx, FinalizeInput{TerminalID: "till-1", Method: PayCash, Tendered: cart.Total - 1})
	require.ErrorIs(t, err, ErrInsufficientTender)

	_, _, err = service.Finalize(ctx, FinalizeInput{TerminalID: "till-1", Method: PayAccount})
	require.ErrorIs(t, err, ErrCustomerRequired)

	_, _, err = service.Finalize(ctx, FinalizeInput{TerminalID: "till-1", Method: "barter"})
	require.ErrorIs(t, err, ErrUnknownMethod)

	// A rejected finalize leaves stock untouched.
	require.InDelta(t, 10, repo.items["WIDGET"].QtyOnHand, 0.001)
}

func TestFinalizeAccountSaleBumpsCustomerBalance(t *testing.T) {
	service, repo, _ := newSaleService(t)
	ctx := context.Background()
	cart := ringUpAndValidate(t, service, "till-1")

	sale, _, err := service.Finalize(ctx, FinalizeInput{
		TerminalID:   "till-1",
		Method:       PayAccount,
		CustomerCode: "CUST-7",
	})
	require.NoError(t, err)
	require.Equal(t, "account", sale.SaleType)
	require.Equal(t, "CUST-7", sale.CustomerCode)
	require.InDelta(t, cart.Total, repo.balances["CUST-7"], 0.001)
}

func TestFinalizeReplayRejected(t *testing.T) {
	service, repo, _ := newSaleService(t)
	ctx := context.Background()
	ringUpAndValidate(t, service, "till-1")

	_, _, err := service.Finalize(ctx, FinalizeInput{TerminalID: "till-1", Method: PayCard, RequestID: "req-1"})
	require.NoError(t, err)

	ringUpAndValidate(t, service, "till-1")
	_, _, err = service.Finalize(ctx, FinalizeInput{TerminalID: "till-1", Method: PayCard, RequestID: "req-1"})
	require.ErrorIs(t, err, ErrDuplicateRequest)

	// Only the first request decremented stock.
	require.InDelta(t, 8, repo.items["WIDGET"].QtyOnHand, 0.001)
}

func TestFinalizeFailureReleasesRequestID(t *testing.T) {
	service, repo, _ := newSaleService(t)
	ctx := context.Background()
	ringUpAndValidate(t, service, "till-1")

	repo.failNext = true
	_, _, err := service.Finalize(ctx, FinalizeInput{TerminalID: "till-1", Method: PayCard, RequestID: "req-2"})
	require.Error(t, err)

	// Retry with the same request id succeeds after the failure.
	_, _, err = service.Finalize(ctx, FinalizeInput{TerminalID: "till-1", Method: PayCard, RequestID: "req-2"})
	require.NoError(t, err)
}

func TestDailySummary(t *testing.T) {
	service, repo, _ := newSaleService(t)
	ctx := context.Background()

	ringUpAndValidate(t, service, "till-1")
	cashSale, _, err := service.Finalize(ctx, FinalizeInput{TerminalID: "till-1", Method: PayCash, Tendered: 500})
	require.NoError(t, err)

	ringUpAndValidate(t, service, "till-2")
	cardSale, _, err := service.Finalize(ctx, FinalizeInput{TerminalID: "till-2", Method: PayCard})
	require.NoError(t, err)

	repo.items["WIDGET"].MinLevel = 50

	summary, err := service.DailySummary(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 2, summary.SaleCount)
	require.InDelta(t, cashSale.Total+cardSale.Total, summary.GrossTotal, 0.001)
	require.InDelta(t, cashSale.Total, summary.CashTotal, 0.001)
	require.Len(t, summary.LowStock, 1)
	require.Equal(t, "WIDGET", summary.LowStock[0].Code)
}
