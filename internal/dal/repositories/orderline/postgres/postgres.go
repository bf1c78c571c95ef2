package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/pedidos-svc/internal/dal/postgres"
	"github.com/corray333/pedidos-svc/internal/service/models/currency"
	"github.com/corray333/pedidos-svc/internal/service/models/order"
	"github.com/corray333/pedidos-svc/internal/service/models/orderline"
	"github.com/jackc/pgx/v5"
)

// OrderLineRepository implements the order line repository for PostgreSQL.
type OrderLineRepository struct {
	conn postgres.Querier
}

// NewOrderLineRepository creates a new order line repository bound to conn,
// which may be a pool or an open transaction.
func NewOrderLineRepository(conn postgres.Querier) *OrderLineRepository {
	return &OrderLineRepository{
		conn: conn,
	}
}

var lineColumns = []string{"id", "line_number", "quantity", "header_id", "product_id"}

func scanLine(row pgx.Row) (*orderline.Line, error) {
	var l orderline.Line
	if err := row.Scan(&l.ID, &l.LineNumber, &l.Quantity, &l.HeaderID, &l.ProductID); err != nil {
		return nil, err
	}

	return &l, nil
}

// ListViewsByHeader retrieves line projections of one header, active products
// only, ordered by line number.
func (r *OrderLineRepository) ListViewsByHeader(
	ctx context.Context,
	headerID int64,
) ([]orderline.View, error) {
	query, args, err := sq.Select(
		"l.line_number",
		"p.name",
		"l.quantity",
		"p.price_cents",
		"p.price_cents * l.quantity AS subtotal_cents",
	).
		From("order_lines l").
		Join("products p ON p.id = l.product_id").
		Where(sq.Eq{"l.header_id": headerID, "p.active": true}).
		OrderBy("l.line_number ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list line views query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query line views: %w", err)
	}
	defer rows.Close()

	var result []orderline.View
	for rows.Next() {
		var v orderline.View
		err := rows.Scan(&v.LineNumber, &v.ProductName, &v.Quantity, &v.UnitPriceCents, &v.SubtotalCents)
		if err != nil {
			return nil, fmt.Errorf("failed to scan line view: %w", err)
		}
		v.SubtotalCurrency = currency.CurrencyEUR
		result = append(result, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// GetByHeaderAndNumber retrieves one line by its header and line number.
// Returns (nil, nil) when no line matches.
func (r *OrderLineRepository) GetByHeaderAndNumber(
	ctx context.Context,
	headerID int64,
	lineNumber int,
) (*orderline.Line, error) {
	query, args, err := sq.Select(lineColumns...).
		From("order_lines").
		Where(sq.Eq{"header_id": headerID, "line_number": lineNumber}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get line query: %w", err)
	}

	l, err := scanLine(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get line: %w", err)
	}

	return l, nil
}

// MaxLineNumber returns the highest line number in the header, 0 when the
// header has no lines.
func (r *OrderLineRepository) MaxLineNumber(ctx context.Context, headerID int64) (int, error) {
	query, args, err := sq.Select("COALESCE(MAX(line_number), 0)").
		From("order_lines").
		Where(sq.Eq{"header_id": headerID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build max line number query: %w", err)
	}

	var maxNumber int
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&maxNumber); err != nil {
		return 0, fmt.Errorf("failed to get max line number: %w", err)
	}

	return maxNumber, nil
}

// CountByHeader returns the number of lines attached to the header.
func (r *OrderLineRepository) CountByHeader(ctx context.Context, headerID int64) (int, error) {
	query, args, err := sq.Select("COUNT(*)").
		From("order_lines").
		Where(sq.Eq{"header_id": headerID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count lines query: %w", err)
	}

	var count int
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count lines: %w", err)
	}

	return count, nil
}

// BulkInsert inserts multiple lines and returns them with their assigned ids.
func (r *OrderLineRepository) BulkInsert(
	ctx context.Context,
	lines []orderline.Line,
) ([]orderline.Line, error) {
	if len(lines) == 0 {
		return []orderline.Line{}, nil
	}

	builder := sq.Insert("order_lines").
		Columns("line_number", "quantity", "header_id", "product_id").
		Suffix("RETURNING id").
		PlaceholderFormat(sq.Dollar)
	for _, l := range lines {
		builder = builder.Values(l.LineNumber, l.Quantity, l.HeaderID, l.ProductID)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build bulk insert lines query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to bulk insert lines: %w", err)
	}
	defer rows.Close()

	result := make([]orderline.Line, 0, len(lines))
	i := 0
	for rows.Next() {
		l := lines[i]
		if err := rows.Scan(&l.ID); err != nil {
			return nil, fmt.Errorf("failed to scan inserted line id: %w", err)
		}
		result = append(result, l)
		i++
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// Insert adds one line and returns it with its assigned id.
func (r *OrderLineRepository) Insert(
	ctx context.Context,
	line orderline.Line,
) (*orderline.Line, error) {
	inserted, err := r.BulkInsert(ctx, []orderline.Line{line})
	if err != nil {
		return nil, err
	}

	return &inserted[0], nil
}

// UpdateQuantity updates the quantity of one line in place.
func (r *OrderLineRepository) UpdateQuantity(ctx context.Context, lineID int64, quantity int) error {
	query, args, err := sq.Update("order_lines").
		Set("quantity", quantity).
		Where(sq.Eq{"id": lineID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update line quantity query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update line quantity: %w", err)
	}

	return nil
}

// Delete removes one line physically.
func (r *OrderLineRepository) Delete(ctx context.Context, lineID int64) error {
	query, args, err := sq.Delete("order_lines").
		Where(sq.Eq{"id": lineID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete line query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete line: %w", err)
	}

	return nil
}

// ExistsNonCancelledByProduct reports whether any line referencing the
// product belongs to a header whose status is not Cancelled.
func (r *OrderLineRepository) ExistsNonCancelledByProduct(
	ctx context.Context,
	productID int64,
) (bool, error) {
	query, args, err := sq.Select("COUNT(*)").
		From("order_lines l").
		Join("order_headers h ON h.id = l.header_id").
		Where(sq.Eq{"l.product_id": productID}).
		Where(sq.NotEq{"h.status": order.StatusCancelled.String()}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build line exists query: %w", err)
	}

	var count int64
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check line existence: %w", err)
	}

	return count > 0, nil
}
