package catalog

import (
	"errors"
	"time"
)

// StockItem is a sellable item in the stock catalog. Codes are unique
// case-insensitively; quantities never go negative.
type StockItem struct {
	ID             int64     `json:"id"`
	Code           string    `json:"code"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	Size           string    `json:"size,omitempty"`
	CostPrice      float64   `json:"cost_price"`
	SellingPrice   float64   `json:"selling_price"`
	QtyOnHand      float64   `json:"qty_on_hand"`
	QtyInWarehouse float64   `json:"qty_in_warehouse"`
	SupplierCode   string    `json:"supplier_code,omitempty"`
	VATPercent     float64   `json:"vat_percent"`
	MinLevel       float64   `json:"min_level"`
	MaxLevel       float64   `json:"max_level"`
	ImageRef       string    `json:"image_ref,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BelowCost reports whether the item sells for less than it cost.
func (i StockItem) BelowCost() bool {
	return i.SellingPrice < i.CostPrice
}

// CreateItemInput describes a new catalog entry.
type CreateItemInput struct {
	Code           string
	Description    string
	Category       string
	Size           string
	CostPrice      float64
	SellingPrice   float64
	QtyOnHand      float64
	QtyInWarehouse float64
	SupplierCode   string
	VATPercent     float64
	MinLevel       float64
	MaxLevel       float64
	ImageRef       string
}

// UpdateItemInput carries optional field updates; the code is immutable.
type UpdateItemInput struct {
	Description  *string
	Category     *string
	Size         *string
	CostPrice    *float64
	SellingPrice *float64
	SupplierCode *string
	VATPercent   *float64
	MinLevel     *float64
	MaxLevel     *float64
	ImageRef     *string
	IsActive     *bool
}

// ListFilter narrows catalog listings.
type ListFilter struct {
	Search   string
	Category string
	IsActive *bool
	Page     int
	PerPage  int
}

var (
	// ErrItemNotFound indicates an unknown stock code.
	ErrItemNotFound = errors.New("catalog: stock item not found")
	// ErrDuplicateCode indicates the stock code is already taken.
	ErrDuplicateCode = errors.New("catalog: stock code already exists")
	// ErrInvalidItem indicates rejected item input.
	ErrInvalidItem = errors.New("catalog: invalid stock item")
)
