package inventory

import (
	"errors"
	"time"
)

// Movement enumerates ledger movements recorded against a stock item.
type Movement string

const (
	// MovementSale is an on-hand decrement from a finalized sale.
	MovementSale Movement = "SALE"
	// MovementGRV is an on-hand increment from a completed goods receipt.
	MovementGRV Movement = "GRV"
	// MovementTransfer moves quantity between warehouse and store.
	MovementTransfer Movement = "TRANSFER"
	// MovementAdjust records a manual adjustment entry.
	MovementAdjust Movement = "ADJUST"
)

// Entry is one row of the append-only movement log.
type Entry struct {
	ID          int64     `json:"id"`
	StockCode   string    `json:"stock_code"`
	Movement    Movement  `json:"movement"`
	QtyDelta    float64   `json:"qty_delta"`
	OnHandAfter float64   `json:"on_hand_after"`
	Ref         string    `json:"ref,omitempty"`
	Note        string    `json:"note,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// TransferDirection selects which way a warehouse transfer moves quantity.
type TransferDirection string

const (
	// ToStore moves quantity from the warehouse onto the shop floor.
	ToStore TransferDirection = "to_store"
	// ToWarehouse moves quantity from the shop floor into the warehouse.
	ToWarehouse TransferDirection = "to_warehouse"
)

// TransferInput describes a warehouse transfer request.
type TransferInput struct {
	StockCode string
	Qty       float64
	Direction TransferDirection
	Note      string
	ActorID   int64
}

// TransferResult reports both counters after a transfer.
type TransferResult struct {
	StockCode      string  `json:"stock_code"`
	QtyOnHand      float64 `json:"qty_on_hand"`
	QtyInWarehouse float64 `json:"qty_in_warehouse"`
}

// AdjustmentOperation enumerates supported adjustment line operations.
type AdjustmentOperation string

const (
	// OpAdd increases the projected quantity.
	OpAdd AdjustmentOperation = "add"
	// OpMinus decreases the projected quantity.
	OpMinus AdjustmentOperation = "minus"
	// OpReplace sets the projected quantity outright.
	OpReplace AdjustmentOperation = "replace"
)

// AdjustmentLine is one item entry of an adjustment record.
type AdjustmentLine struct {
	StockCode    string              `json:"stock_code"`
	Name         string              `json:"name"`
	Operation    AdjustmentOperation `json:"operation"`
	Quantity     float64             `json:"quantity"`
	ProjectedQty float64             `json:"projected_qty"`
}

// Adjustment is a persisted stock adjustment record. It is audit-only: the
// projected quantities are stored but the catalog is not mutated.
type Adjustment struct {
	ID        string           `json:"id"`
	Reference string           `json:"reference"`
	Reason    string           `json:"reason"`
	Lines     []AdjustmentLine `json:"lines"`
	CreatedAt time.Time        `json:"created_at"`
}

// AdjustmentInput describes a new adjustment.
type AdjustmentInput struct {
	Reference string
	Reason    string
	Lines     []AdjustmentLineInput
	ActorID   int64
}

// AdjustmentLineInput is one requested adjustment line.
type AdjustmentLineInput struct {
	StockCode string
	Name      string
	Operation AdjustmentOperation
	Quantity  float64
}

var (
	// ErrInvalidQuantity indicates a non-positive transfer quantity.
	ErrInvalidQuantity = errors.New("inventory: quantity must be > 0")
	// ErrInsufficientStock triggered when the source side cannot cover the move.
	ErrInsufficientStock = errors.New("inventory: insufficient quantity on source side")
	// ErrUnknownDirection indicates an unsupported transfer direction.
	ErrUnknownDirection = errors.New("inventory: unknown transfer direction")
	// ErrInvalidAdjustment indicates a rejected adjustment request.
	ErrInvalidAdjustment = errors.New("inventory: invalid adjustment")
	// ErrItemNotFound indicates an unknown stock code.
	ErrItemNotFound = errors.New("inventory: stock item not found")
)
