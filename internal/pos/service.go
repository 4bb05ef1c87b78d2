package pos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tillpoint/tillpoint/internal/catalog"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// ItemPort looks up live catalog items for availability and price checks and
// lists items under their minimum level for the daily summary.
type ItemPort interface {
	Get(ctx context.Context, code string) (catalog.StockItem, error)
	LowStock(ctx context.Context) ([]catalog.StockItem, error)
}

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	GetSale(ctx context.Context, number string) (SaleRecord, error)
	CountSalesForDay(ctx context.Context, day string) (int, error)
	TotalsForDay(ctx context.Context, day string) (gross, tax float64, err error)
	CashTotalForDay(ctx context.Context, day string) (float64, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards finalize against request replays.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// MetricsPort reports finalized sales.
type MetricsPort interface {
	SaleFinalized()
}

// ReceiptEnqueuer hands a rendered receipt to the background archiver.
type ReceiptEnqueuer interface {
	EnqueueReceiptArchive(ctx context.Context, saleNumber, text string) error
}

// ReceiptInfo is the static header and footer printed on every receipt.
type ReceiptInfo struct {
	CompanyName    string
	CompanyAddress string
	CompanyPhone   string
	Footer         string
}

// Service drives the terminal sale flow: accumulate a cart, validate it,
// then finalize into a numbered sale.
type Service struct {
	carts       *CartStore
	items       ItemPort
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	metrics     MetricsPort
	receipts    ReceiptEnqueuer
	receiptInfo ReceiptInfo

	blockBelowCost     bool
	allowNegativeStock bool
}

// ServiceConfig bundles the collaborators for NewService.
type ServiceConfig struct {
	Carts              *CartStore
	Items              ItemPort
	Repo               RepositoryPort
	Audit              AuditPort
	Idempotency        IdempotencyPort
	Metrics            MetricsPort
	Receipts           ReceiptEnqueuer
	ReceiptInfo        ReceiptInfo
	BlockBelowCost     bool
	AllowNegativeStock bool
}

// NewService builds Service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		carts:              cfg.Carts,
		items:              cfg.Items,
		repo:               cfg.Repo,
		audit:              cfg.Audit,
		idempotency:        cfg.Idempotency,
		metrics:            cfg.Metrics,
		receipts:           cfg.Receipts,
		receiptInfo:        cfg.ReceiptInfo,
		blockBelowCost:     cfg.BlockBelowCost,
		allowNegativeStock: cfg.AllowNegativeStock,
	}
}

// Finalize turns a validated cart into a sale. Stock decrements, the sale
// number draw and the sale insert happen in one transaction, so numbers stay
// gapless per day and stock never decrements without a matching sale.
func (s *Service) Finalize(ctx context.Context, input FinalizeInput) (SaleRecord, string, error) {
	cart, err := s.carts.Get(ctx, input.TerminalID)
	if err != nil {
		return SaleRecord{}, "", err
	}
	if len(cart.Lines) == 0 {
		return SaleRecord{}, "", ErrEmptyCart
	}
	if cart.Status != CartAwaitingOutput {
		return SaleRecord{}, "", ErrNotValidated
	}

	switch input.Method {
	case PayCash:
		if input.Tendered < cart.Total {
			return SaleRecord{}, "", fmt.Errorf("%w: tendered %.2f, total %.2f", ErrInsufficientTender, input.Tendered, cart.Total)
		}
	case PayCard:
	case PayAccount:
		if strings.TrimSpace(input.CustomerCode) == "" {
			return SaleRecord{}, "", ErrCustomerRequired
		}
	default:
		return SaleRecord{}, "", ErrUnknownMethod
	}

	idempotencyKey := ""
	if input.RequestID != "" && s.idempotency != nil {
		idempotencyKey = "SALE:" + input.RequestID
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, "pos"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return SaleRecord{}, "", ErrDuplicateRequest
			}
			return SaleRecord{}, "", err
		}
	}

	soldAt := time.Now().UTC()
	day := soldAt.Format("20060102")
	saleType := "new"
	if input.Method == PayAccount {
		saleType = "account"
	}
	sale := SaleRecord{
		ID:           uuid.NewString(),
		TerminalID:   input.TerminalID,
		SaleType:     saleType,
		Method:       input.Method,
		CustomerCode: strings.TrimSpace(input.CustomerCode),
		Subtotal:     cart.Subtotal,
		Tax:          cart.Tax,
		Total:        cart.Total,
		SoldAt:       soldAt,
	}
	if input.Method == PayCash {
		sale.Tendered = input.Tendered
		sale.Change = round2(input.Tendered - cart.Total)
	}
	for _, line := range cart.Lines {
		sale.Lines = append(sale.Lines, SaleLine{
			StockCode:   line.StockCode,
			Description: line.Description,
			Qty:         line.Qty,
			UnitPrice:   line.UnitPrice,
			VATPercent:  line.VATPercent,
			LineTotal:   line.LineTotal,
		})
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		seq, err := tx.NextSaleSeq(ctx, day)
		if err != nil {
			return err
		}
		sale.Number = fmt.Sprintf("S-%s-%04d", day, seq)
		for _, line := range sale.Lines {
			onHand, err := tx.DecrementStock(ctx, line.StockCode, line.Qty, s.allowNegativeStock)
			if err != nil {
				return fmt.Errorf("line %s: %w", line.StockCode, err)
			}
			if err := tx.InsertMovement(ctx, line.StockCode, -line.Qty, onHand, sale.Number); err != nil {
				return err
			}
		}
		if err := tx.InsertSale(ctx, sale); err != nil {
			return err
		}
		if sale.Method == PayAccount {
			return tx.BumpCustomerBalance(ctx, sale.CustomerCode, sale.Total)
		}
		return nil
	})
	if err != nil {
		if idempotencyKey != "" {
			_ = s.idempotency.Delete(ctx, idempotencyKey)
		}
		return SaleRecord{}, "", err
	}

	if err := s.carts.Delete(ctx, input.TerminalID); err != nil {
		return SaleRecord{}, "", err
	}

	receipt := RenderReceipt(s.receiptInfo, sale)
	if s.receipts != nil {
		_ = s.receipts.EnqueueReceiptArchive(ctx, sale.Number, receipt)
	}
	if s.metrics != nil {
		s.metrics.SaleFinalized()
	}
	s.recordAudit(ctx, input.ActorID, "SALE_FINALIZE", sale.Number, map[string]any{
		"terminal": sale.TerminalID,
		"method":   string(sale.Method),
		"total":    sale.Total,
	})

	if input.Output == OutputPrint {
		return sale, receipt, nil
	}
	return sale, "", nil
}

// Sale loads one finalized sale.
func (s *Service) Sale(ctx context.Context, number string) (SaleRecord, error) {
	return s.repo.GetSale(ctx, number)
}

// Receipt re-renders the receipt for a finalized sale.
func (s *Service) Receipt(ctx context.Context, number string) (string, error) {
	sale, err := s.repo.GetSale(ctx, number)
	if err != nil {
		return "", err
	}
	return RenderReceipt(s.receiptInfo, sale), nil
}

// DailySummary aggregates one day of sales. The aggregates are independent
// queries and run concurrently.
func (s *Service) DailySummary(ctx context.Context, day string) (DailySummary, error) {
	if day == "" {
		day = time.Now().UTC().Format("20060102")
	}
	summary := DailySummary{Day: day}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		count, err := s.repo.CountSalesForDay(groupCtx, day)
		summary.SaleCount = count
		return err
	})
	group.Go(func() error {
		gross, tax, err := s.repo.TotalsForDay(groupCtx, day)
		summary.GrossTotal = gross
		summary.TaxTotal = tax
		return err
	})
	group.Go(func() error {
		cash, err := s.repo.CashTotalForDay(groupCtx, day)
		summary.CashTotal = cash
		return err
	})
	group.Go(func() error {
		low, err := s.items.LowStock(groupCtx)
		summary.LowStock = low
		return err
	})
	if err := group.Wait(); err != nil {
		return DailySummary{}, err
	}
	return summary, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, number string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "sale",
		EntityID: number,
		Meta:     meta,
	})
}
