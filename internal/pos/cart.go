package pos

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tillpoint/tillpoint/internal/catalog"
)

// AddItem rings an item onto the terminal cart. The price is snapshotted from
// the catalog unless an override is supplied. The combined line quantity may
// not exceed on-hand stock unless negative stock is allowed.
func (s *Service) AddItem(ctx context.Context, terminalID, stockCode string, qty float64, priceOverride *float64) (Cart, error) {
	if qty <= 0 || math.IsNaN(qty) || math.IsInf(qty, 0) {
		return Cart{}, ErrInvalidQuantity
	}
	item, err := s.lookupItem(ctx, stockCode)
	if err != nil {
		return Cart{}, err
	}

	price := item.SellingPrice
	if priceOverride != nil {
		price = *priceOverride
	}
	if price < item.CostPrice && s.blockBelowCost {
		return Cart{}, fmt.Errorf("%w: %s sells at %.2f, cost %.2f", ErrBelowCost, item.Code, price, item.CostPrice)
	}

	cart, err := s.carts.Get(ctx, terminalID)
	if err != nil {
		if !errors.Is(err, ErrCartNotFound) {
			return Cart{}, err
		}
		cart = Cart{TerminalID: terminalID, Status: CartOpen}
	}

	idx := cart.lineIndex(item.Code)
	newQty := qty
	if idx >= 0 {
		newQty += cart.Lines[idx].Qty
	}
	if !s.allowNegativeStock && newQty > item.QtyOnHand {
		return Cart{}, fmt.Errorf("%w: %s has %.2f on hand", ErrInsufficientStock, item.Code, item.QtyOnHand)
	}

	if idx >= 0 {
		cart.Lines[idx].Qty = newQty
		// The line keeps its add-time price snapshot unless the cashier
		// supplies a new override.
		if priceOverride != nil {
			cart.Lines[idx].UnitPrice = price
		}
	} else {
		cart.Lines = append(cart.Lines, CartLine{
			StockCode:   item.Code,
			Description: item.Description,
			Qty:         qty,
			UnitPrice:   price,
			CostPrice:   item.CostPrice,
			VATPercent:  item.VATPercent,
		})
	}
	return s.saveCart(ctx, cart)
}

// UpdateQty sets the quantity of an existing line. A non-positive requested
// quantity clamps to one; the availability ceiling still applies.
func (s *Service) UpdateQty(ctx context.Context, terminalID, stockCode string, qty float64) (Cart, error) {
	if math.IsNaN(qty) || math.IsInf(qty, 0) {
		return Cart{}, ErrInvalidQuantity
	}
	if qty < 1 {
		qty = 1
	}
	cart, err := s.carts.Get(ctx, terminalID)
	if err != nil {
		return Cart{}, err
	}
	idx := cart.lineIndex(stockCode)
	if idx < 0 {
		return Cart{}, ErrLineNotFound
	}
	item, err := s.lookupItem(ctx, stockCode)
	if err != nil {
		return Cart{}, err
	}
	if !s.allowNegativeStock && qty > item.QtyOnHand {
		return Cart{}, fmt.Errorf("%w: %s has %.2f on hand", ErrInsufficientStock, item.Code, item.QtyOnHand)
	}
	cart.Lines[idx].Qty = qty
	return s.saveCart(ctx, cart)
}

// RemoveLine drops one line from the cart.
func (s *Service) RemoveLine(ctx context.Context, terminalID, stockCode string) (Cart, error) {
	cart, err := s.carts.Get(ctx, terminalID)
	if err != nil {
		return Cart{}, err
	}
	idx := cart.lineIndex(stockCode)
	if idx < 0 {
		return Cart{}, ErrLineNotFound
	}
	cart.Lines = append(cart.Lines[:idx], cart.Lines[idx+1:]...)
	return s.saveCart(ctx, cart)
}

// Cart returns the current cart for a terminal.
func (s *Service) Cart(ctx context.Context, terminalID string) (Cart, error) {
	return s.carts.Get(ctx, terminalID)
}

// ClearCart abandons the cart without selling.
func (s *Service) ClearCart(ctx context.Context, terminalID string) error {
	return s.carts.Delete(ctx, terminalID)
}

// Validate re-checks every line against live stock and moves the cart to the
// awaiting-output state. Totals are recomputed from the snapshots.
func (s *Service) Validate(ctx context.Context, terminalID string) (Cart, error) {
	cart, err := s.carts.Get(ctx, terminalID)
	if err != nil {
		return Cart{}, err
	}
	if len(cart.Lines) == 0 {
		return Cart{}, ErrEmptyCart
	}
	for _, line := range cart.Lines {
		item, err := s.lookupItem(ctx, line.StockCode)
		if err != nil {
			return Cart{}, fmt.Errorf("line %s: %w", line.StockCode, err)
		}
		if !s.allowNegativeStock && line.Qty > item.QtyOnHand {
			return Cart{}, fmt.Errorf("%w: %s has %.2f on hand", ErrInsufficientStock, item.Code, item.QtyOnHand)
		}
		if line.UnitPrice < item.CostPrice && s.blockBelowCost {
			return Cart{}, fmt.Errorf("%w: %s", ErrBelowCost, item.Code)
		}
	}
	cart.Status = CartAwaitingOutput
	cart.recompute()
	cart.UpdatedAt = time.Now().UTC()
	if err := s.carts.Save(ctx, cart); err != nil {
		return Cart{}, err
	}
	return cart, nil
}

func (s *Service) lookupItem(ctx context.Context, code string) (catalog.StockItem, error) {
	item, err := s.items.Get(ctx, strings.TrimSpace(code))
	if err != nil {
		return catalog.StockItem{}, ErrItemNotFound
	}
	if !item.IsActive {
		return catalog.StockItem{}, ErrItemNotFound
	}
	return item, nil
}

// saveCart reopens the cart after any mutation, recomputes totals and persists.
func (s *Service) saveCart(ctx context.Context, cart Cart) (Cart, error) {
	cart.Status = CartOpen
	cart.recompute()
	cart.UpdatedAt = time.Now().UTC()
	if err := s.carts.Save(ctx, cart); err != nil {
		return Cart{}, err
	}
	return cart, nil
}

func (c *Cart) lineIndex(stockCode string) int {
	for i, line := range c.Lines {
		if strings.EqualFold(line.StockCode, stockCode) {
			return i
		}
	}
	return -1
}

// recompute derives totals from the line snapshots. VAT is charged on top of
// the unit price per line; total is subtotal plus tax at two decimals.
func (c *Cart) recompute() {
	var subtotal, tax float64
	for i := range c.Lines {
		line := &c.Lines[i]
		line.LineTotal = round2(line.UnitPrice * line.Qty)
		subtotal += line.LineTotal
		tax += line.LineTotal * line.VATPercent / 100
	}
	c.Subtotal = round2(subtotal)
	c.Tax = round2(tax)
	c.Total = round2(c.Subtotal + c.Tax)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
