package pos

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillpoint/tillpoint/internal/platform/db"
)

// Repository persists finalized sales in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations used while finalizing a sale.
type TxRepository interface {
	NextSaleSeq(ctx context.Context, day string) (int64, error)
	DecrementStock(ctx context.Context, code string, qty float64, allowNegative bool) (onHandAfter float64, err error)
	InsertMovement(ctx context.Context, code string, qtyDelta, onHandAfter float64, ref string) error
	InsertSale(ctx context.Context, sale SaleRecord) error
	BumpCustomerBalance(ctx context.Context, customerCode string, amount float64) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx runs fn inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// NextSaleSeq draws the next per-day sale sequence. The counter row is
// upserted inside the sale transaction, so an aborted sale never burns a
// number and the sequence stays gapless.
func (t *txRepository) NextSaleSeq(ctx context.Context, day string) (int64, error) {
	var seq int64
	err := t.tx.QueryRow(ctx, `INSERT INTO sale_counters (day, last_seq) VALUES ($1, 1)
ON CONFLICT (day) DO UPDATE SET last_seq = sale_counters.last_seq + 1
RETURNING last_seq`, day).Scan(&seq)
	return seq, err
}

// DecrementStock takes qty off on-hand. Unless negative stock is allowed the
// update is conditional; zero rows means another terminal got there first.
func (t *txRepository) DecrementStock(ctx context.Context, code string, qty float64, allowNegative bool) (float64, error) {
	query := `UPDATE stock_items SET qty_on_hand = qty_on_hand - $2, updated_at = NOW()
WHERE LOWER(code)=LOWER($1)`
	if !allowNegative {
		query += ` AND qty_on_hand >= $2`
	}
	query += ` RETURNING qty_on_hand`

	var onHand float64
	err := t.tx.QueryRow(ctx, query, code, qty).Scan(&onHand)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrInsufficientStock
		}
		return 0, err
	}
	return onHand, nil
}

// InsertMovement appends one sale movement log row.
func (t *txRepository) InsertMovement(ctx context.Context, code string, qtyDelta, onHandAfter float64, ref string) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO stock_movements
(stock_code, movement, qty_delta, on_hand_after, ref, note, occurred_at)
VALUES ($1,'SALE',$2,$3,$4,'',NOW())`, code, qtyDelta, onHandAfter, ref)
	return err
}

// InsertSale stores the sale header and its lines.
func (t *txRepository) InsertSale(ctx context.Context, sale SaleRecord) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO sales
(id, number, terminal_id, sale_type, method, customer_code, subtotal, tax, total, tendered, change, sold_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		sale.ID, sale.Number, sale.TerminalID, sale.SaleType, string(sale.Method), sale.CustomerCode,
		sale.Subtotal, sale.Tax, sale.Total, sale.Tendered, sale.Change, sale.SoldAt)
	if err != nil {
		return err
	}
	for _, line := range sale.Lines {
		_, err := t.tx.Exec(ctx, `INSERT INTO sale_lines
(sale_id, stock_code, description, qty, unit_price, vat_percent, line_total)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			sale.ID, line.StockCode, line.Description, line.Qty, line.UnitPrice, line.VATPercent, line.LineTotal)
		if err != nil {
			return err
		}
	}
	return nil
}

// BumpCustomerBalance books an account sale onto the customer balance. The
// balance row is created on first use.
func (t *txRepository) BumpCustomerBalance(ctx context.Context, customerCode string, amount float64) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO customer_balances (customer_code, balance, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (customer_code) DO UPDATE SET balance = customer_balances.balance + $2, updated_at = NOW()`,
		customerCode, amount)
	return err
}

// GetSale loads one finalized sale with its lines.
func (r *Repository) GetSale(ctx context.Context, number string) (SaleRecord, error) {
	var sale SaleRecord
	var method string
	err := r.pool.QueryRow(ctx, `SELECT id, number, terminal_id, sale_type, method, customer_code, subtotal, tax, total, tendered, change, sold_at
FROM sales WHERE LOWER(number)=LOWER($1)`, number).
		Scan(&sale.ID, &sale.Number, &sale.TerminalID, &sale.SaleType, &method, &sale.CustomerCode,
			&sale.Subtotal, &sale.Tax, &sale.Total, &sale.Tendered, &sale.Change, &sale.SoldAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SaleRecord{}, ErrSaleNotFound
		}
		return SaleRecord{}, err
	}
	sale.Method = PaymentMethod(method)

	rows, err := r.pool.Query(ctx, `SELECT stock_code, description, qty, unit_price, vat_percent, line_total
FROM sale_lines WHERE sale_id=$1 ORDER BY stock_code ASC`, sale.ID)
	if err != nil {
		return SaleRecord{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line SaleLine
		if err := rows.Scan(&line.StockCode, &line.Description, &line.Qty, &line.UnitPrice, &line.VATPercent, &line.LineTotal); err != nil {
			return SaleRecord{}, err
		}
		sale.Lines = append(sale.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return SaleRecord{}, err
	}
	return sale, nil
}

// CountSalesForDay counts finalized sales carrying the day's number prefix.
func (r *Repository) CountSalesForDay(ctx context.Context, day string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales WHERE number LIKE 'S-' || $1 || '-%'`, day).Scan(&count)
	return count, err
}

// TotalsForDay sums gross and tax for the day.
func (r *Repository) TotalsForDay(ctx context.Context, day string) (float64, float64, error) {
	var gross, tax float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total),0), COALESCE(SUM(tax),0)
FROM sales WHERE number LIKE 'S-' || $1 || '-%'`, day).Scan(&gross, &tax)
	return gross, tax, err
}

// CashTotalForDay sums the cash takings for the day.
func (r *Repository) CashTotalForDay(ctx context.Context, day string) (float64, error) {
	var cash float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total),0)
FROM sales WHERE method='cash' AND number LIKE 'S-' || $1 || '-%'`, day).Scan(&cash)
	return cash, err
}
