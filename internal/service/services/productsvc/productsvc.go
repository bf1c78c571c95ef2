package productsvc

import (
	"context"
	"fmt"

	"github.com/corray333/pedidos-svc/internal/audit/reqlog"
	"github.com/corray333/pedidos-svc/internal/audit/sqlcapture"
	"github.com/corray333/pedidos-svc/internal/dal/interfaces/iorderlinerepo"
	"github.com/corray333/pedidos-svc/internal/dal/interfaces/iproductrepo"
	"github.com/corray333/pedidos-svc/internal/dal/postgres"
	"github.com/corray333/pedidos-svc/internal/dal/uow"
	"github.com/corray333/pedidos-svc/internal/service/models/apperr"
	"github.com/corray333/pedidos-svc/internal/service/models/currency"
	"github.com/corray333/pedidos-svc/internal/service/models/logentry"
	"github.com/corray333/pedidos-svc/internal/service/models/product"
)

// unitOfWork spans one logical mutation over the product and line stores.
type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	ProductRepository() iproductrepo.IProductRepository
	OrderLineRepository() iorderlinerepo.IOrderLineRepository
}

// requestAuditor receives service outcomes for the correlation log.
type requestAuditor interface {
	AnnotateOutcome(id, message, sql, result string)
}

// ProductService manages the product aggregate: unique active name, bounded
// price, soft delete blocked by lines on non-cancelled orders.
type ProductService struct {
	uowFactory func() unitOfWork
	auditor    requestAuditor
}

// option is a function that configures the ProductService.
type option func(*ProductService)

// MustNewProductService creates a new ProductService.
func MustNewProductService(opts ...option) *ProductService {
	s := &ProductService{}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithPostgresClient sets the Postgres client for the ProductService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *ProductService) {
		s.uowFactory = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient)
		}
	}
}

// WithUnitOfWorkFactory overrides the unit of work source.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *ProductService) {
		s.uowFactory = factory
	}
}

// WithRequestAuditor sets the correlation log receiving service outcomes.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithRequestAuditor(auditor requestAuditor) option {
	return func(s *ProductService) {
		s.auditor = auditor
	}
}

func (s *ProductService) annotate(ctx context.Context, successMessage string, err error) {
	if s.auditor == nil {
		return
	}

	id := reqlog.IDFromContext(ctx)
	sql := sqlcapture.Drain(ctx)

	switch {
	case err == nil:
		s.auditor.AnnotateOutcome(id, successMessage, sql, logentry.ResultSuccess)
	default:
		if _, ok := apperr.KindOf(err); ok {
			s.auditor.AnnotateOutcome(id, err.Error(), sql, logentry.ResultError)
		} else {
			s.auditor.AnnotateOutcome(id, "Error inesperado", sql, logentry.ResultError)
		}
	}
}

// List returns all products, active and inactive.
func (s *ProductService) List(ctx context.Context) (products []product.Product, err error) {
	defer func() {
		s.annotate(ctx, fmt.Sprintf("Se consultaron %d productos.", len(products)), err)
	}()

	work := s.uowFactory()

	products, err = work.ProductRepository().List(ctx)
	if err != nil {
		return nil, err
	}

	return products, nil
}

// GetByID returns one product regardless of its active flag.
func (s *ProductService) GetByID(ctx context.Context, id int64) (p *product.Product, err error) {
	defer func() {
		if p != nil {
			s.annotate(ctx, fmt.Sprintf("Producto %s consultado correctamente.", p.Name), err)
		} else {
			s.annotate(ctx, "", err)
		}
	}()

	work := s.uowFactory()

	p, err = work.ProductRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.Newf(apperr.KindNotFound, "Producto con ID %d no encontrado.", id)
	}

	return p, nil
}

// Create registers a new product. The name must not collide with any active
// product, case-sensitively, and the price must be within bounds.
func (s *ProductService) Create(
	ctx context.Context,
	name string,
	priceCents int64,
) (p *product.Product, err error) {
	defer func() {
		s.annotate(ctx, fmt.Sprintf("Producto %s creado correctamente.", name), err)
	}()

	if err := product.ValidatePriceCents(priceCents); err != nil {
		return nil, err
	}

	work := s.uowFactory()
	if err := work.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = work.Rollback(ctx) }()

	exists, err := work.ProductRepository().ExistsActiveByName(ctx, name, 0)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.New(apperr.KindConflict, "Ya existe un producto con ese nombre.")
	}

	p, err = work.ProductRepository().Insert(ctx, product.Product{
		Name:          name,
		PriceCents:    priceCents,
		PriceCurrency: currency.CurrencyEUR,
		Active:        true,
	})
	if err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return p, nil
}

// Update rewrites name, price and active flag of an existing product. The new
// name must not collide with another active product.
func (s *ProductService) Update(
	ctx context.Context,
	id int64,
	name string,
	priceCents int64,
	active bool,
) (p *product.Product, err error) {
	defer func() {
		s.annotate(ctx, fmt.Sprintf("Producto %s actualizado correctamente.", name), err)
	}()

	if err := product.ValidatePriceCents(priceCents); err != nil {
		return nil, err
	}

	work := s.uowFactory()
	if err := work.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = work.Rollback(ctx) }()

	p, err = work.ProductRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.Active {
		return nil, apperr.Newf(apperr.KindNotFound, "Producto con ID %d no encontrado.", id)
	}

	exists, err := work.ProductRepository().ExistsActiveByName(ctx, name, id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.New(apperr.KindConflict, "Ya existe otro producto con ese nombre.")
	}

	p.Name = name
	p.PriceCents = priceCents
	p.Active = active
	if err := work.ProductRepository().Update(ctx, *p); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return p, nil
}

// Delete soft-deletes a product. Blocked while any line referencing it
// belongs to a header whose status is not Cancelled.
func (s *ProductService) Delete(ctx context.Context, id int64) (err error) {
	defer func() {
		s.annotate(ctx, fmt.Sprintf("Producto %d eliminado correctamente.", id), err)
	}()

	work := s.uowFactory()
	if err := work.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = work.Rollback(ctx) }()

	p, err := work.ProductRepository().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil || !p.Active {
		return apperr.Newf(apperr.KindNotFound, "Producto con ID %d no encontrado.", id)
	}

	referenced, err := work.OrderLineRepository().ExistsNonCancelledByProduct(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return apperr.New(apperr.KindBlocked,
			"No se puede eliminar el producto porque tiene pedidos asociados.")
	}

	if err := work.ProductRepository().SetActive(ctx, id, false); err != nil {
		return err
	}

	if err := work.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
