package uow

import (
	"context"

	"github.com/corray333/pedidos-svc/internal/dal/interfaces/icustomerrepo"
	"github.com/corray333/pedidos-svc/internal/dal/interfaces/iorderlinerepo"
	"github.com/corray333/pedidos-svc/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/pedidos-svc/internal/dal/interfaces/iproductrepo"
	"github.com/corray333/pedidos-svc/internal/dal/postgres"
	customerrepo "github.com/corray333/pedidos-svc/internal/dal/repositories/customer/postgres"
	orderrepo "github.com/corray333/pedidos-svc/internal/dal/repositories/order/postgres"
	orderlinerepo "github.com/corray333/pedidos-svc/internal/dal/repositories/orderline/postgres"
	productrepo "github.com/corray333/pedidos-svc/internal/dal/repositories/product/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// unitOfWork binds the four entity repositories to one connection source.
// Before Begin they run directly on the pool; after Begin they all share a
// single transaction until Commit or Rollback.
type unitOfWork struct {
	pool *pgxpool.Pool
	tx   pgx.Tx

	customerRepo  icustomerrepo.ICustomerRepository
	productRepo   iproductrepo.IProductRepository
	orderRepo     iorderrepo.IOrderRepository
	orderLineRepo iorderlinerepo.IOrderLineRepository
}

// NewUnitOfWork creates a unit of work on the client's pool.
func NewUnitOfWork(client *postgres.Client) *unitOfWork {
	u := &unitOfWork{pool: client.Pool()}
	u.bind(client.Pool())

	return u
}

func (u *unitOfWork) bind(conn postgres.Querier) {
	u.customerRepo = customerrepo.NewCustomerRepository(conn)
	u.productRepo = productrepo.NewProductRepository(conn)
	u.orderRepo = orderrepo.NewOrderRepository(conn)
	u.orderLineRepo = orderlinerepo.NewOrderLineRepository(conn)
}

func (u *unitOfWork) CustomerRepository() icustomerrepo.ICustomerRepository {
	return u.customerRepo
}

func (u *unitOfWork) ProductRepository() iproductrepo.IProductRepository {
	return u.productRepo
}

func (u *unitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *unitOfWork) OrderLineRepository() iorderlinerepo.IOrderLineRepository {
	return u.orderLineRepo
}

// Begin opens a transaction and rebinds all repositories to it.
func (u *unitOfWork) Begin(ctx context.Context) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return err
	}

	u.tx = tx
	u.bind(tx)

	return nil
}

// Commit commits the open transaction, if any.
func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	return u.tx.Commit(ctx)
}

// Rollback rolls back the open transaction, if any. Safe to defer after
// Begin: rolling back an already committed transaction is a no-op error that
// callers discard.
func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	return u.tx.Rollback(ctx)
}
