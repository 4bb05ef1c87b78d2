package pos

import (
	"errors"
	"time"

	"github.com/tillpoint/tillpoint/internal/catalog"
)

// CartStatus tracks where a terminal cart is in the sale flow.
type CartStatus string

const (
	// CartOpen means lines can still be added or changed.
	CartOpen CartStatus = "open"
	// CartAwaitingOutput means the cart passed validation and waits for the
	// payment and output choice. Any line change drops it back to open.
	CartAwaitingOutput CartStatus = "awaiting_output"
)

// CartLine snapshots one item in a cart. Prices are copied from the catalog
// at the time the line is added so a concurrent price change does not move a
// ring-up under the cashier.
type CartLine struct {
	StockCode   string  `json:"stock_code"`
	Description string  `json:"description"`
	Qty         float64 `json:"qty"`
	UnitPrice   float64 `json:"unit_price"`
	CostPrice   float64 `json:"cost_price"`
	VATPercent  float64 `json:"vat_percent"`
	LineTotal   float64 `json:"line_total"`
}

// Cart is the per-terminal accumulator for an in-progress sale.
type Cart struct {
	TerminalID string     `json:"terminal_id"`
	Status     CartStatus `json:"status"`
	Lines      []CartLine `json:"lines"`
	Subtotal   float64    `json:"subtotal"`
	Tax        float64    `json:"tax"`
	Total      float64    `json:"total"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// PaymentMethod enumerates how a sale is settled.
type PaymentMethod string

const (
	// PayCash settles with tendered cash and change.
	PayCash PaymentMethod = "cash"
	// PayCard settles with a card for the exact total.
	PayCard PaymentMethod = "card"
	// PayAccount books the total onto a customer account.
	PayAccount PaymentMethod = "account"
)

// OutputChoice selects what happens with the receipt after finalizing.
type OutputChoice string

const (
	// OutputPrint renders the receipt for printing.
	OutputPrint OutputChoice = "print"
	// OutputArchive stores the receipt without printing.
	OutputArchive OutputChoice = "archive"
)

// FinalizeInput carries the payment and output decision for a cart.
type FinalizeInput struct {
	TerminalID   string
	Method       PaymentMethod
	Tendered     float64
	CustomerCode string
	Output       OutputChoice
	RequestID    string
	ActorID      int64
}

// SaleLine is one persisted line of a finalized sale.
type SaleLine struct {
	StockCode   string  `json:"stock_code"`
	Description string  `json:"description"`
	Qty         float64 `json:"qty"`
	UnitPrice   float64 `json:"unit_price"`
	VATPercent  float64 `json:"vat_percent"`
	LineTotal   float64 `json:"line_total"`
}

// SaleRecord is a finalized sale. SaleType is "account" for sales booked to
// a customer balance and "new" otherwise.
type SaleRecord struct {
	ID           string        `json:"id"`
	Number       string        `json:"number"`
	TerminalID   string        `json:"terminal_id"`
	SaleType     string        `json:"sale_type"`
	Method       PaymentMethod `json:"method"`
	CustomerCode string        `json:"customer_code,omitempty"`
	Subtotal     float64       `json:"subtotal"`
	Tax          float64       `json:"tax"`
	Total        float64       `json:"total"`
	Tendered     float64       `json:"tendered,omitempty"`
	Change       float64       `json:"change,omitempty"`
	Lines        []SaleLine    `json:"lines"`
	SoldAt       time.Time     `json:"sold_at"`
}

// DailySummary aggregates the finalized sales of one day alongside the items
// currently under their minimum level.
type DailySummary struct {
	Day        string              `json:"day"`
	SaleCount  int                 `json:"sale_count"`
	GrossTotal float64             `json:"gross_total"`
	TaxTotal   float64             `json:"tax_total"`
	CashTotal  float64             `json:"cash_total"`
	LowStock   []catalog.StockItem `json:"low_stock"`
}

var (
	// ErrCartNotFound indicates no cart exists for the terminal.
	ErrCartNotFound = errors.New("pos: no cart for terminal")
	// ErrEmptyCart indicates a validate or finalize on an empty cart.
	ErrEmptyCart = errors.New("pos: cart is empty")
	// ErrItemNotFound indicates an unknown or inactive stock code.
	ErrItemNotFound = errors.New("pos: stock item not found")
	// ErrInvalidQuantity indicates a non-positive line quantity.
	ErrInvalidQuantity = errors.New("pos: quantity must be > 0")
	// ErrInsufficientStock indicates the requested quantity exceeds on-hand.
	ErrInsufficientStock = errors.New("pos: insufficient stock on hand")
	// ErrBelowCost indicates a price under cost while the policy blocks it.
	ErrBelowCost = errors.New("pos: price below cost is not allowed")
	// ErrLineNotFound indicates the stock code is not in the cart.
	ErrLineNotFound = errors.New("pos: line not in cart")
	// ErrNotValidated indicates finalize on a cart that skipped validation.
	ErrNotValidated = errors.New("pos: cart must be validated first")
	// ErrInsufficientTender indicates cash tendered below the sale total.
	ErrInsufficientTender = errors.New("pos: tendered amount below total")
	// ErrCustomerRequired indicates an account sale without a customer.
	ErrCustomerRequired = errors.New("pos: account sale requires a customer code")
	// ErrUnknownMethod indicates an unsupported payment method.
	ErrUnknownMethod = errors.New("pos: unknown payment method")
	// ErrSaleNotFound indicates an unknown sale number.
	ErrSaleNotFound = errors.New("pos: sale not found")
	// ErrDuplicateRequest indicates a finalize replay with the same request id.
	ErrDuplicateRequest = errors.New("pos: sale request already processed")
)
