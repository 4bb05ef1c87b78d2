package inventory

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillpoint/tillpoint/internal/platform/db"
)

// Repository persists movements and adjustments in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations valid inside one transaction.
type TxRepository interface {
	ItemQuantitiesForUpdate(ctx context.Context, code string) (onHand, inWarehouse float64, err error)
	SetItemQuantities(ctx context.Context, code string, onHand, inWarehouse float64) error
	InsertMovement(ctx context.Context, e Entry) error
	InsertAdjustment(ctx context.Context, a Adjustment) error
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

// ItemQuantitiesForUpdate locks the stock item row and returns both counters.
func (t *txRepository) ItemQuantitiesForUpdate(ctx context.Context, code string) (float64, float64, error) {
	var onHand, inWarehouse float64
	err := t.tx.QueryRow(ctx, `SELECT qty_on_hand, qty_in_warehouse FROM stock_items
WHERE LOWER(code)=LOWER($1) FOR UPDATE`, code).Scan(&onHand, &inWarehouse)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, ErrItemNotFound
		}
		return 0, 0, err
	}
	return onHand, inWarehouse, nil
}

// SetItemQuantities writes both counters for a stock item.
func (t *txRepository) SetItemQuantities(ctx context.Context, code string, onHand, inWarehouse float64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE stock_items
SET qty_on_hand=$2, qty_in_warehouse=$3, updated_at=NOW()
WHERE LOWER(code)=LOWER($1)`, code, onHand, inWarehouse)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// InsertMovement appends one movement log row.
func (t *txRepository) InsertMovement(ctx context.Context, e Entry) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO stock_movements
(stock_code, movement, qty_delta, on_hand_after, ref, note, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW())`,
		e.StockCode, string(e.Movement), e.QtyDelta, e.OnHandAfter, e.Ref, e.Note)
	return err
}

// InsertAdjustment stores the adjustment header and its lines.
func (t *txRepository) InsertAdjustment(ctx context.Context, a Adjustment) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO adjustments (id, reference, reason, created_at)
VALUES ($1,$2,$3,$4)`, a.ID, a.Reference, a.Reason, a.CreatedAt)
	if err != nil {
		return err
	}
	for _, line := range a.Lines {
		_, err := t.tx.Exec(ctx, `INSERT INTO adjustment_lines
(adjustment_id, stock_code, name, operation, quantity, projected_qty)
VALUES ($1,$2,$3,$4,$5,$6)`,
			a.ID, line.StockCode, line.Name, string(line.Operation), line.Quantity, line.ProjectedQty)
		if err != nil {
			return err
		}
	}
	return nil
}

// ListMovements returns the most recent movement rows, optionally filtered by
// stock code.
func (r *Repository) ListMovements(ctx context.Context, code string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `SELECT id, stock_code, movement, qty_delta, on_hand_after, ref, note, occurred_at
FROM stock_movements`
	args := []any{}
	if code != "" {
		query += ` WHERE LOWER(stock_code)=LOWER($1)`
		args = append(args, code)
	}
	query += ` ORDER BY id DESC LIMIT ` + strconv.Itoa(limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []Entry{}
	for rows.Next() {
		var e Entry
		var movement string
		if err := rows.Scan(&e.ID, &e.StockCode, &movement, &e.QtyDelta, &e.OnHandAfter, &e.Ref, &e.Note, &e.OccurredAt); err != nil {
			return nil, err
		}
		e.Movement = Movement(movement)
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetAdjustment loads one adjustment with its lines.
func (r *Repository) GetAdjustment(ctx context.Context, id string) (Adjustment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Adjustment{}, ErrInvalidAdjustment
	}
	var a Adjustment
	err := r.pool.QueryRow(ctx, `SELECT id, reference, reason, created_at
FROM adjustments WHERE id=$1`, id).Scan(&a.ID, &a.Reference, &a.Reason, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Adjustment{}, ErrItemNotFound
		}
		return Adjustment{}, err
	}

	rows, err := r.pool.Query(ctx, `SELECT stock_code, name, operation, quantity, projected_qty
FROM adjustment_lines WHERE adjustment_id=$1 ORDER BY stock_code ASC`, id)
	if err != nil {
		return Adjustment{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line AdjustmentLine
		var op string
		if err := rows.Scan(&line.StockCode, &line.Name, &op, &line.Quantity, &line.ProjectedQty); err != nil {
			return Adjustment{}, err
		}
		line.Operation = AdjustmentOperation(op)
		a.Lines = append(a.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return Adjustment{}, err
	}
	return a, nil
}

// ListAdjustments returns recent adjustment headers without lines.
func (r *Repository) ListAdjustments(ctx context.Context, limit int) ([]Adjustment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT id, reference, reason, created_at
FROM adjustments ORDER BY created_at DESC LIMIT `+strconv.Itoa(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []Adjustment{}
	for rows.Next() {
		var a Adjustment
		if err := rows.Scan(&a.ID, &a.Reference, &a.Reason, &a.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
