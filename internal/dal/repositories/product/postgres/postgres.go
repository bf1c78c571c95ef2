package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/pedidos-svc/internal/dal/postgres"
	"github.com/corray333/pedidos-svc/internal/service/models/currency"
	"github.com/corray333/pedidos-svc/internal/service/models/product"
	"github.com/jackc/pgx/v5"
)

// ProductRepository implements the product repository for PostgreSQL.
type ProductRepository struct {
	conn postgres.Querier
}

// NewProductRepository creates a new product repository bound to conn, which
// may be a pool or an open transaction.
func NewProductRepository(conn postgres.Querier) *ProductRepository {
	return &ProductRepository{
		conn: conn,
	}
}

var productColumns = []string{"id", "name", "price_cents", "price_currency", "active"}

func scanProduct(row pgx.Row) (*product.Product, error) {
	var (
		p   product.Product
		cur string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.PriceCents, &cur, &p.Active); err != nil {
		return nil, err
	}

	parsed, err := currency.ParseCurrency(cur)
	if err != nil {
		return nil, err
	}
	p.PriceCurrency = parsed

	return &p, nil
}

// List retrieves all products, active and inactive.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	query, args, err := sq.Select(productColumns...).
		From("products").
		OrderBy("id ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list products query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var result []product.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		result = append(result, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

func (r *ProductRepository) getBy(ctx context.Context, pred any) (*product.Product, error) {
	query, args, err := sq.Select(productColumns...).
		From("products").
		Where(pred).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get product query: %w", err)
	}

	p, err := scanProduct(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return p, nil
}

// GetByID retrieves a product by id regardless of the active flag. Returns
// (nil, nil) when no product matches.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	return r.getBy(ctx, sq.Eq{"id": id})
}

// GetActiveByID retrieves an active product by id. Returns (nil, nil) when no
// product matches.
func (r *ProductRepository) GetActiveByID(ctx context.Context, id int64) (*product.Product, error) {
	return r.getBy(ctx, sq.Eq{"id": id, "active": true})
}

// ExistsActiveByName reports whether an active product with the exact name
// exists, excluding excludeID when non-zero.
func (r *ProductRepository) ExistsActiveByName(
	ctx context.Context,
	name string,
	excludeID int64,
) (bool, error) {
	builder := sq.Select("COUNT(*)").
		From("products").
		Where(sq.Eq{"name": name, "active": true})
	if excludeID != 0 {
		builder = builder.Where(sq.NotEq{"id": excludeID})
	}

	query, args, err := builder.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build product exists query: %w", err)
	}

	var count int64
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check product existence: %w", err)
	}

	return count > 0, nil
}

// Insert adds a new product and returns it with its assigned id.
func (r *ProductRepository) Insert(
	ctx context.Context,
	p product.Product,
) (*product.Product, error) {
	query, args, err := sq.Insert("products").
		Columns("name", "price_cents", "price_currency", "active").
		Values(p.Name, p.PriceCents, p.PriceCurrency.String(), p.Active).
		Suffix("RETURNING id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert product query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, query, args...).Scan(&p.ID); err != nil {
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}

	return &p, nil
}

// Update rewrites name, price and active flag of an existing product.
func (r *ProductRepository) Update(ctx context.Context, p product.Product) error {
	query, args, err := sq.Update("products").
		Set("name", p.Name).
		Set("price_cents", p.PriceCents).
		Set("price_currency", p.PriceCurrency.String()).
		Set("active", p.Active).
		Where(sq.Eq{"id": p.ID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update product query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	return nil
}

// SetActive flips the soft-delete flag.
func (r *ProductRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query, args, err := sq.Update("products").
		Set("active", active).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build set product active query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to set product active flag: %w", err)
	}

	return nil
}
