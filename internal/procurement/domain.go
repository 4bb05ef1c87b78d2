package procurement

import (
	"errors"
	"time"
)

// GRVStatus tracks the lifecycle of a goods received voucher.
type GRVStatus string

const (
	// StatusDraft means the voucher is captured but stock is not yet applied.
	StatusDraft GRVStatus = "draft"
	// StatusCompleted means stock and supplier balance have been applied.
	StatusCompleted GRVStatus = "completed"
)

// GRV is a goods received voucher. Completing it increments on-hand stock,
// overwrites item prices with the received values and grows the supplier
// balance by the voucher total.
type GRV struct {
	ID           string     `json:"id"`
	Number       string     `json:"number"`
	SupplierCode string     `json:"supplier_code"`
	Status       GRVStatus  `json:"status"`
	Notes        string     `json:"notes,omitempty"`
	Total        float64    `json:"total"`
	Lines        []GRVLine  `json:"lines"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// GRVLine is one received item on a voucher.
type GRVLine struct {
	StockCode    string  `json:"stock_code"`
	Description  string  `json:"description,omitempty"`
	Qty          float64 `json:"qty"`
	CostPrice    float64 `json:"cost_price"`
	SellingPrice float64 `json:"selling_price"`
	LineTotal    float64 `json:"line_total"`
}

// CreateGRVInput describes a new draft voucher.
type CreateGRVInput struct {
	Number       string
	SupplierCode string
	Notes        string
	Lines        []GRVLineInput
	ActorID      int64
}

// GRVLineInput is one requested voucher line.
type GRVLineInput struct {
	StockCode    string
	Description  string
	Qty          float64
	CostPrice    float64
	SellingPrice float64
}

var (
	// ErrGRVNotFound indicates an unknown voucher number.
	ErrGRVNotFound = errors.New("procurement: grv not found")
	// ErrDuplicateNumber indicates the voucher number is already taken.
	ErrDuplicateNumber = errors.New("procurement: grv number already exists")
	// ErrInvalidGRV indicates rejected voucher input.
	ErrInvalidGRV = errors.New("procurement: invalid grv")
	// ErrAlreadyCompleted indicates a voucher that was completed before.
	ErrAlreadyCompleted = errors.New("procurement: grv already completed")
	// ErrItemNotFound indicates a voucher line referencing an unknown item.
	ErrItemNotFound = errors.New("procurement: stock item not found")
	// ErrSupplierNotFound indicates an unknown supplier code.
	ErrSupplierNotFound = errors.New("procurement: supplier not found")
)
