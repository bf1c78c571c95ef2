package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/pedidos-svc/internal/dal/postgres"
	"github.com/corray333/pedidos-svc/internal/service/models/customer"
	"github.com/jackc/pgx/v5"
)

// CustomerRepository implements the customer repository for PostgreSQL.
type CustomerRepository struct {
	conn postgres.Querier
}

// NewCustomerRepository creates a new customer repository bound to conn,
// which may be a pool or an open transaction.
func NewCustomerRepository(conn postgres.Querier) *CustomerRepository {
	return &CustomerRepository{
		conn: conn,
	}
}

var customerColumns = []string{"id", "name", "email", "active"}

func scanCustomer(row pgx.Row) (*customer.Customer, error) {
	var c customer.Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Active); err != nil {
		return nil, err
	}

	return &c, nil
}

// ListActive retrieves all active customers ordered by name.
func (r *CustomerRepository) ListActive(ctx context.Context) ([]customer.Customer, error) {
	query, args, err := sq.Select(customerColumns...).
		From("customers").
		Where(sq.Eq{"active": true}).
		OrderBy("name ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list customers query: %w", err)
	}

	return r.queryCustomers(ctx, query, args)
}

// SearchActiveByName retrieves active customers whose name contains the term,
// case-insensitively, ordered by name.
func (r *CustomerRepository) SearchActiveByName(
	ctx context.Context,
	name string,
) ([]customer.Customer, error) {
	query, args, err := sq.Select(customerColumns...).
		From("customers").
		Where(sq.Eq{"active": true}).
		Where(sq.ILike{"name": "%" + name + "%"}).
		OrderBy("name ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build search customers query: %w", err)
	}

	return r.queryCustomers(ctx, query, args)
}

func (r *CustomerRepository) queryCustomers(
	ctx context.Context,
	query string,
	args []any,
) ([]customer.Customer, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var result []customer.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		result = append(result, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// GetActiveByEmail retrieves an active customer by email, case-insensitively.
// Returns (nil, nil) when no customer matches.
func (r *CustomerRepository) GetActiveByEmail(
	ctx context.Context,
	email string,
) (*customer.Customer, error) {
	query, args, err := sq.Select(customerColumns...).
		From("customers").
		Where(sq.Expr("LOWER(email) = LOWER(?)", email)).
		Where(sq.Eq{"active": true}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get customer query: %w", err)
	}

	c, err := scanCustomer(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer by email: %w", err)
	}

	return c, nil
}

// ExistsActiveByEmail reports whether an active customer with the email
// exists, case-insensitively, excluding excludeID when non-zero.
func (r *CustomerRepository) ExistsActiveByEmail(
	ctx context.Context,
	email string,
	excludeID int64,
) (bool, error) {
	builder := sq.Select("COUNT(*)").
		From("customers").
		Where(sq.Expr("LOWER(email) = LOWER(?)", email)).
		Where(sq.Eq{"active": true})
	if excludeID != 0 {
		builder = builder.Where(sq.NotEq{"id": excludeID})
	}

	query, args, err := builder.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build customer exists query: %w", err)
	}

	var count int64
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check customer existence: %w", err)
	}

	return count > 0, nil
}

// Insert adds a new customer and returns it with its assigned id.
func (r *CustomerRepository) Insert(
	ctx context.Context,
	c customer.Customer,
) (*customer.Customer, error) {
	query, args, err := sq.Insert("customers").
		Columns("name", "email", "active").
		Values(c.Name, c.Email, c.Active).
		Suffix("RETURNING id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert customer query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, query, args...).Scan(&c.ID); err != nil {
		return nil, fmt.Errorf("failed to insert customer: %w", err)
	}

	return &c, nil
}

// Update rewrites name and email of an existing customer.
func (r *CustomerRepository) Update(ctx context.Context, c customer.Customer) error {
	query, args, err := sq.Update("customers").
		Set("name", c.Name).
		Set("email", c.Email).
		Where(sq.Eq{"id": c.ID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update customer query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}

	return nil
}

// SetActive flips the soft-delete flag.
func (r *CustomerRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query, args, err := sq.Update("customers").
		Set("active", active).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build set customer active query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to set customer active flag: %w", err)
	}

	return nil
}
