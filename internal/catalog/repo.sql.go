package catalog

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists the stock catalog in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const itemColumns = `id, code, description, category, size, cost_price, selling_price,
qty_on_hand, qty_in_warehouse, supplier_code, vat_percent, min_level, max_level,
image_ref, is_active, created_at, updated_at`

func scanItem(row pgx.Row) (StockItem, error) {
	var item StockItem
	err := row.Scan(&item.ID, &item.Code, &item.Description, &item.Category, &item.Size,
		&item.CostPrice, &item.SellingPrice, &item.QtyOnHand, &item.QtyInWarehouse,
		&item.SupplierCode, &item.VATPercent, &item.MinLevel, &item.MaxLevel,
		&item.ImageRef, &item.IsActive, &item.CreatedAt, &item.UpdatedAt)
	return item, err
}

// Create inserts a new stock item.
func (r *Repository) Create(ctx context.Context, item StockItem) (StockItem, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO stock_items
(code, description, category, size, cost_price, selling_price, qty_on_hand, qty_in_warehouse,
 supplier_code, vat_percent, min_level, max_level, image_ref, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,TRUE,NOW(),NOW())
RETURNING `+itemColumns,
		item.Code, item.Description, item.Category, item.Size, item.CostPrice, item.SellingPrice,
		item.QtyOnHand, item.QtyInWarehouse, item.SupplierCode, item.VATPercent,
		item.MinLevel, item.MaxLevel, item.ImageRef)
	created, err := scanItem(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return StockItem{}, ErrDuplicateCode
		}
		return StockItem{}, err
	}
	return created, nil
}

// GetByCode fetches one item, matching the code case-insensitively.
func (r *Repository) GetByCode(ctx context.Context, code string) (StockItem, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM stock_items WHERE LOWER(code)=LOWER($1)`, code)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockItem{}, ErrItemNotFound
		}
		return StockItem{}, err
	}
	return item, nil
}

// Update applies partial field updates to the item with the given code.
func (r *Repository) Update(ctx context.Context, code string, updates map[string]any) (StockItem, error) {
	query := `UPDATE stock_items SET updated_at=NOW()`
	args := []any{}
	argCount := 0
	for _, col := range []string{"description", "category", "size", "cost_price", "selling_price",
		"supplier_code", "vat_percent", "min_level", "max_level", "image_ref", "is_active"} {
		if value, ok := updates[col]; ok {
			argCount++
			query += `, ` + col + `=$` + strconv.Itoa(argCount)
			args = append(args, value)
		}
	}
	argCount++
	query += ` WHERE LOWER(code)=LOWER($` + strconv.Itoa(argCount) + `) RETURNING ` + itemColumns
	args = append(args, code)

	item, err := scanItem(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockItem{}, ErrItemNotFound
		}
		return StockItem{}, err
	}
	return item, nil
}

// Delete removes the item permanently.
func (r *Repository) Delete(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM stock_items WHERE LOWER(code)=LOWER($1)`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// List returns filtered items plus the unfiltered-by-page total.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]StockItem, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filter.Search != "" {
		argCount++
		ph := `$` + strconv.Itoa(argCount)
		where += ` AND (code ILIKE ` + ph + ` OR description ILIKE ` + ph + `)`
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Category != "" {
		argCount++
		where += ` AND category = $` + strconv.Itoa(argCount)
		args = append(args, filter.Category)
	}
	if filter.IsActive != nil {
		argCount++
		where += ` AND is_active = $` + strconv.Itoa(argCount)
		args = append(args, *filter.IsActive)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_items`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	argCount++
	query := `SELECT ` + itemColumns + ` FROM stock_items` + where + ` ORDER BY code ASC LIMIT $` + strconv.Itoa(argCount)
	args = append(args, perPage)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []StockItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// LowStock returns active items with on-hand quantity under their minimum level.
func (r *Repository) LowStock(ctx context.Context) ([]StockItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM stock_items
WHERE is_active AND min_level > 0 AND qty_on_hand < min_level ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []StockItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
