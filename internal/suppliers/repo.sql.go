package suppliers

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists suppliers in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const supplierColumns = `id, code, name, address, cell_number, current_balance, ageing_balance, contra, created_at, updated_at`

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Address, &s.CellNumber,
		&s.CurrentBalance, &s.AgeingBalance, &s.Contra, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// Create inserts a new supplier with a zero balance.
func (r *Repository) Create(ctx context.Context, s Supplier) (Supplier, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO suppliers
(code, name, address, cell_number, current_balance, ageing_balance, contra, created_at, updated_at)
VALUES ($1,$2,$3,$4,0,0,$5,NOW(),NOW()) RETURNING `+supplierColumns,
		s.Code, s.Name, s.Address, s.CellNumber, s.Contra)
	created, err := scanSupplier(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Supplier{}, ErrDuplicateCode
		}
		return Supplier{}, err
	}
	return created, nil
}

// GetByCode fetches one supplier.
func (r *Repository) GetByCode(ctx context.Context, code string) (Supplier, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE LOWER(code)=LOWER($1)`, code)
	s, err := scanSupplier(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Supplier{}, ErrSupplierNotFound
		}
		return Supplier{}, err
	}
	return s, nil
}

// Update applies partial field updates.
func (r *Repository) Update(ctx context.Context, code string, updates map[string]any) (Supplier, error) {
	query := `UPDATE suppliers SET updated_at=NOW()`
	args := []any{}
	argCount := 0
	for _, col := range []string{"name", "address", "cell_number", "contra"} {
		if value, ok := updates[col]; ok {
			argCount++
			query += `, ` + col + `=$` + strconv.Itoa(argCount)
			args = append(args, value)
		}
	}
	argCount++
	query += ` WHERE LOWER(code)=LOWER($` + strconv.Itoa(argCount) + `) RETURNING ` + supplierColumns
	args = append(args, code)

	s, err := scanSupplier(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Supplier{}, ErrSupplierNotFound
		}
		return Supplier{}, err
	}
	return s, nil
}

// List returns all suppliers ordered by code.
func (r *Repository) List(ctx context.Context) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []Supplier{}
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Pay reduces the current balance, clamping at zero, and returns the new balance.
func (r *Repository) Pay(ctx context.Context, code string, amount float64) (float64, error) {
	var balance float64
	err := r.pool.QueryRow(ctx, `UPDATE suppliers
SET current_balance = GREATEST(current_balance - $2, 0), updated_at = NOW()
WHERE LOWER(code)=LOWER($1) RETURNING current_balance`, code, amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrSupplierNotFound
		}
		return 0, err
	}
	return balance, nil
}
