package suppliers

import (
	"errors"
	"time"
)

// Supplier is a stock vendor with a running balance. The balance grows when
// goods are received and is paid down via Pay, clamped at zero.
type Supplier struct {
	ID             int64     `json:"id"`
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	Address        string    `json:"address,omitempty"`
	CellNumber     string    `json:"cell_number,omitempty"`
	CurrentBalance float64   `json:"current_balance"`
	AgeingBalance  float64   `json:"ageing_balance"`
	Contra         string    `json:"contra,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreateSupplierInput describes a new supplier.
type CreateSupplierInput struct {
	Code       string
	Name       string
	Address    string
	CellNumber string
	Contra     string
}

// UpdateSupplierInput carries optional field updates.
type UpdateSupplierInput struct {
	Name       *string
	Address    *string
	CellNumber *string
	Contra     *string
}

// Payment records a settlement against the supplier balance.
type Payment struct {
	SupplierCode string    `json:"supplier_code"`
	Amount       float64   `json:"amount"`
	Reference    string    `json:"reference,omitempty"`
	PaidAt       time.Time `json:"paid_at"`
	NewBalance   float64   `json:"new_balance"`
}

var (
	// ErrSupplierNotFound indicates an unknown supplier code.
	ErrSupplierNotFound = errors.New("suppliers: supplier not found")
	// ErrDuplicateCode indicates the supplier code is already taken.
	ErrDuplicateCode = errors.New("suppliers: supplier code already exists")
	// ErrInvalidSupplier indicates rejected supplier input.
	ErrInvalidSupplier = errors.New("suppliers: invalid supplier")
	// ErrInvalidAmount indicates a non-positive payment amount.
	ErrInvalidAmount = errors.New("suppliers: payment amount must be > 0")
)
