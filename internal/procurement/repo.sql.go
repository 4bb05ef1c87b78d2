package procurement

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillpoint/tillpoint/internal/platform/db"
)

// Repository persists vouchers in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations used while completing a voucher.
type TxRepository interface {
	ReceiveLine(ctx context.Context, line GRVLine) (onHandAfter float64, err error)
	InsertMovement(ctx context.Context, stockCode string, qtyDelta, onHandAfter float64, ref string) error
	BumpSupplierBalance(ctx context.Context, supplierCode string, amount float64) error
	MarkCompleted(ctx context.Context, number string, at time.Time) error
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

// ReceiveLine applies one voucher line to the catalog: on-hand grows by the
// received quantity and both prices are overwritten with the received values.
func (t *txRepository) ReceiveLine(ctx context.Context, line GRVLine) (float64, error) {
	var onHand float64
	err := t.tx.QueryRow(ctx, `UPDATE stock_items
SET qty_on_hand = qty_on_hand + $2, cost_price = $3, selling_price = $4, updated_at = NOW()
WHERE LOWER(code)=LOWER($1) RETURNING qty_on_hand`,
		line.StockCode, line.Qty, line.CostPrice, line.SellingPrice).Scan(&onHand)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrItemNotFound
		}
		return 0, err
	}
	return onHand, nil
}

// InsertMovement appends one GRV movement log row.
func (t *txRepository) InsertMovement(ctx context.Context, stockCode string, qtyDelta, onHandAfter float64, ref string) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO stock_movements
(stock_code, movement, qty_delta, on_hand_after, ref, note, occurred_at)
VALUES ($1,'GRV',$2,$3,$4,'',NOW())`, stockCode, qtyDelta, onHandAfter, ref)
	return err
}

// BumpSupplierBalance grows the supplier balance by the voucher total.
func (t *txRepository) BumpSupplierBalance(ctx context.Context, supplierCode string, amount float64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE suppliers
SET current_balance = current_balance + $2, updated_at = NOW()
WHERE LOWER(code)=LOWER($1)`, supplierCode, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSupplierNotFound
	}
	return nil
}

// MarkCompleted flips the voucher status. Zero rows means the voucher was not
// a draft anymore.
func (t *txRepository) MarkCompleted(ctx context.Context, number string, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE grvs
SET status='completed', completed_at=$2
WHERE LOWER(number)=LOWER($1) AND status='draft'`, number, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyCompleted
	}
	return nil
}

// Create inserts the voucher header with its lines.
func (r *Repository) Create(ctx context.Context, grv GRV) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO grvs (id, number, supplier_code, status, notes, total, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			grv.ID, grv.Number, grv.SupplierCode, string(grv.Status), grv.Notes, grv.Total, grv.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrDuplicateNumber
			}
			return err
		}
		for _, line := range grv.Lines {
			_, err := tx.Exec(ctx, `INSERT INTO grv_lines
(grv_id, stock_code, description, qty, cost_price, selling_price, line_total)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				grv.ID, line.StockCode, line.Description, line.Qty, line.CostPrice, line.SellingPrice, line.LineTotal)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByNumber loads one voucher with its lines.
func (r *Repository) GetByNumber(ctx context.Context, number string) (GRV, error) {
	var grv GRV
	var status string
	err := r.pool.QueryRow(ctx, `SELECT id, number, supplier_code, status, notes, total, created_at, completed_at
FROM grvs WHERE LOWER(number)=LOWER($1)`, number).
		Scan(&grv.ID, &grv.Number, &grv.SupplierCode, &status, &grv.Notes, &grv.Total, &grv.CreatedAt, &grv.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GRV{}, ErrGRVNotFound
		}
		return GRV{}, err
	}
	grv.Status = GRVStatus(status)

	rows, err := r.pool.Query(ctx, `SELECT stock_code, description, qty, cost_price, selling_price, line_total
FROM grv_lines WHERE grv_id=$1 ORDER BY stock_code ASC`, grv.ID)
	if err != nil {
		return GRV{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line GRVLine
		if err := rows.Scan(&line.StockCode, &line.Description, &line.Qty, &line.CostPrice, &line.SellingPrice, &line.LineTotal); err != nil {
			return GRV{}, err
		}
		grv.Lines = append(grv.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return GRV{}, err
	}
	return grv, nil
}

// List returns recent voucher headers without lines, optionally by status.
func (r *Repository) List(ctx context.Context, status GRVStatus, limit int) ([]GRV, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `SELECT id, number, supplier_code, status, notes, total, created_at, completed_at FROM grvs`
	args := []any{}
	if status != "" {
		query += ` WHERE status=$1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC LIMIT ` + strconv.Itoa(limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []GRV{}
	for rows.Next() {
		var grv GRV
		var st string
		if err := rows.Scan(&grv.ID, &grv.Number, &grv.SupplierCode, &st, &grv.Notes, &grv.Total, &grv.CreatedAt, &grv.CompletedAt); err != nil {
			return nil, err
		}
		grv.Status = GRVStatus(st)
		result = append(result, grv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
