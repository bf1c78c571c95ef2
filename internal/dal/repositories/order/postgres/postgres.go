package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/pedidos-svc/internal/dal/postgres"
	"github.com/corray333/pedidos-svc/internal/service/models/currency"
	"github.com/corray333/pedidos-svc/internal/service/models/order"
	"github.com/jackc/pgx/v5"
)

// OrderRepository implements the order header repository for PostgreSQL.
type OrderRepository struct {
	conn postgres.Querier
}

// NewOrderRepository creates a new order header repository bound to conn,
// which may be a pool or an open transaction.
func NewOrderRepository(conn postgres.Querier) *OrderRepository {
	return &OrderRepository{
		conn: conn,
	}
}

var headerColumns = []string{"id", "order_number", "ordered_at", "status", "customer_id"}

func scanHeader(row pgx.Row) (*order.Header, error) {
	var (
		h      order.Header
		status string
	)
	if err := row.Scan(&h.ID, &h.OrderNumber, &h.OrderedAt, &status, &h.CustomerID); err != nil {
		return nil, err
	}
	h.Status = order.Status(status)

	return &h, nil
}

// GetLast returns the header with the highest internal id. Returns (nil, nil)
// when no header exists.
func (r *OrderRepository) GetLast(ctx context.Context) (*order.Header, error) {
	query, args, err := sq.Select(headerColumns...).
		From("order_headers").
		OrderBy("id DESC").
		Limit(1).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get last header query: %w", err)
	}

	h, err := scanHeader(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last header: %w", err)
	}

	return h, nil
}

// Count returns the total number of headers, any status.
func (r *OrderRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.conn.QueryRow(ctx, "SELECT COUNT(*) FROM order_headers").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count headers: %w", err)
	}

	return count, nil
}

// Insert adds a new header and returns it with its assigned id.
func (r *OrderRepository) Insert(ctx context.Context, h order.Header) (*order.Header, error) {
	query, args, err := sq.Insert("order_headers").
		Columns("order_number", "ordered_at", "status", "customer_id").
		Values(h.OrderNumber, h.OrderedAt, h.Status.String(), h.CustomerID).
		Suffix("RETURNING id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert header query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, query, args...).Scan(&h.ID); err != nil {
		return nil, fmt.Errorf("failed to insert header: %w", err)
	}

	return &h, nil
}

// GetActiveByNumber retrieves a header by order number among active
// customers, any status. Returns (nil, nil) when no header matches.
func (r *OrderRepository) GetActiveByNumber(
	ctx context.Context,
	orderNumber string,
) (*order.Header, error) {
	query, args, err := sq.Select(
		"h.id", "h.order_number", "h.ordered_at", "h.status", "h.customer_id",
	).
		From("order_headers h").
		Join("customers c ON c.id = h.customer_id").
		Where(sq.Eq{"h.order_number": orderNumber, "c.active": true}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get header query: %w", err)
	}

	h, err := scanHeader(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get header by number: %w", err)
	}

	return h, nil
}

// UpdateStatus persists a new status for the header.
func (r *OrderRepository) UpdateStatus(
	ctx context.Context,
	headerID int64,
	status order.Status,
) error {
	query, args, err := sq.Update("order_headers").
		Set("status", status.String()).
		Where(sq.Eq{"id": headerID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update header status query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update header status: %w", err)
	}

	return nil
}

// viewBuilder selects header projections with the total derived from
// active-product lines.
func viewBuilder() sq.SelectBuilder {
	return sq.Select(
		"h.order_number",
		"c.name",
		"c.email",
		"h.ordered_at",
		"h.status",
		"COALESCE(SUM(p.price_cents * l.quantity) FILTER (WHERE p.active), 0) AS total_cents",
	).
		From("order_headers h").
		Join("customers c ON c.id = h.customer_id").
		LeftJoin("order_lines l ON l.header_id = h.id").
		LeftJoin("products p ON p.id = l.product_id").
		GroupBy("h.id", "c.name", "c.email")
}

func scanView(row pgx.Row) (*order.HeaderView, error) {
	var (
		v      order.HeaderView
		status string
	)
	err := row.Scan(&v.OrderNumber, &v.CustomerName, &v.CustomerEmail, &v.OrderedAt, &status, &v.TotalCents)
	if err != nil {
		return nil, err
	}
	v.Status = order.Status(status)
	v.TotalCurrency = currency.CurrencyEUR

	return &v, nil
}

// ListViews retrieves projections of all non-cancelled headers owned by
// active customers, with derived totals.
func (r *OrderRepository) ListViews(ctx context.Context) ([]order.HeaderView, error) {
	query, args, err := viewBuilder().
		Where(sq.Eq{"c.active": true}).
		Where(sq.NotEq{"h.status": order.StatusCancelled.String()}).
		OrderBy("h.id ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list header views query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query header views: %w", err)
	}
	defer rows.Close()

	var result []order.HeaderView
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan header view: %w", err)
		}
		result = append(result, *v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// GetViewByID retrieves the projection of one header regardless of status.
// Returns (nil, nil) when no header matches.
func (r *OrderRepository) GetViewByID(
	ctx context.Context,
	headerID int64,
) (*order.HeaderView, error) {
	query, args, err := viewBuilder().
		Where(sq.Eq{"h.id": headerID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get header view query: %w", err)
	}

	v, err := scanView(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get header view: %w", err)
	}

	return v, nil
}

// ExistsNonCancelledByCustomer reports whether the customer owns any header
// whose status is not Cancelled.
func (r *OrderRepository) ExistsNonCancelledByCustomer(
	ctx context.Context,
	customerID int64,
) (bool, error) {
	query, args, err := sq.Select("COUNT(*)").
		From("order_headers").
		Where(sq.Eq{"customer_id": customerID}).
		Where(sq.NotEq{"status": order.StatusCancelled.String()}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build header exists query: %w", err)
	}

	var count int64
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check header existence: %w", err)
	}

	return count > 0, nil
}
