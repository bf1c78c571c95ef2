package customersvc

import (
	"context"
	"fmt"

	"github.com/corray333/pedidos-svc/internal/audit/reqlog"
	"github.com/corray333/pedidos-svc/internal/audit/sqlcapture"
	"github.com/corray333/pedidos-svc/internal/dal/interfaces/icustomerrepo"
	"github.com/corray333/pedidos-svc/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/pedidos-svc/internal/dal/postgres"
	"github.com/corray333/pedidos-svc/internal/dal/uow"
	"github.com/corray333/pedidos-svc/internal/service/models/apperr"
	"github.com/corray333/pedidos-svc/internal/service/models/customer"
	"github.com/corray333/pedidos-svc/internal/service/models/logentry"
)

// unitOfWork spans one logical mutation over the customer and order stores.
type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	CustomerRepository() icustomerrepo.ICustomerRepository
	OrderRepository() iorderrepo.IOrderRepository
}

// requestAuditor receives service outcomes for the correlation log.
type requestAuditor interface {
	AnnotateOutcome(id, message, sql, result string)
}

// CustomerService manages the customer aggregate: unique active email,
// soft delete blocked by non-cancelled orders.
type CustomerService struct {
	uowFactory func() unitOfWork
	auditor    requestAuditor
}

// option is a function that configures the CustomerService.
type option func(*CustomerService)

// MustNewCustomerService creates a new CustomerService.
func MustNewCustomerService(opts ...option) *CustomerService {
	s := &CustomerService{}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithPostgresClient sets the Postgres client for the CustomerService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *CustomerService) {
		s.uowFactory = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient)
		}
	}
}

// WithUnitOfWorkFactory overrides the unit of work source.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *CustomerService) {
		s.uowFactory = factory
	}
}

// WithRequestAuditor sets the correlation log receiving service outcomes.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithRequestAuditor(auditor requestAuditor) option {
	return func(s *CustomerService) {
		s.auditor = auditor
	}
}

func (s *CustomerService) annotate(ctx context.Context, successMessage string, err error) {
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

// List returns all active customers.
func (s *CustomerService) List(ctx context.Context) (views []customer.View, err error) {
	defer func() {
		s.annotate(ctx, fmt.Sprintf("Se consultaron %d clientes activos.", len(views)), err)
	}()

	work := s.uowFactory()

	customers, err := work.CustomerRepository().ListActive(ctx)
	if err != nil {
		return nil, err
	}

	views = make([]customer.View, 0, len(customers))
	for _, c := range customers {
		views = append(views, c.ToView())
	}

	return views, nil
}

// SearchByName returns active customers whose name contains the term,
// case-insensitively, ordered by name.
func (s *CustomerService) SearchByName(
	ctx context.Context,
	name string,
) (views []customer.View, err error) {
	defer func() {
		s.annotate(ctx, fmt.Sprintf("Se encontraron %d clientes que contienen '%s'.", len(views), name), err)
	}()

	work := s.uowFactory()

	customers, err := work.CustomerRepository().SearchActiveByName(ctx, name)
	if err != nil {
		return nil, err
	}

	views = make([]customer.View, 0, len(customers))
	for _, c := range customers {
		views = append(views, c.ToView())
	}

	return views, nil
}

// GetByEmail returns one active customer.
func (s *CustomerService) GetByEmail(
	ctx context.Context,
	email string,
) (view *customer.View, err error) {
	defer func() {
		if view != nil {
			s.annotate(ctx, fmt.Sprintf("Cliente %s consultado correctamente.", view.Name), err)
		} else {
			s.annotate(ctx, "", err)
		}
	}()

	work := s.uowFactory()

	c, err := work.CustomerRepository().GetActiveByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.New(apperr.KindNotFound, "Cliente no encontrado.")
	}

	v := c.ToView()

	return &v, nil
}

// Create registers a new active customer. The email must not collide with any
// active customer, case-insensitively.
func (s *CustomerService) Create(
	ctx context.Context,
	name, email string,
) (view *customer.View, err error) {
	defer func() {
		s.annotate(ctx, fmt.Sprintf("Cliente %s creado correctamente.", name), err)
	}()

	work := s.uowFactory()
	if err := work.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = work.Rollback(ctx) }()

	exists, err := work.CustomerRepository().ExistsActiveByEmail(ctx, email, 0)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.New(apperr.KindConflict, "Ese email ya esta registrado.")
	}

	created, err := work.CustomerRepository().Insert(ctx, customer.Customer{
		Name:   name,
		Email:  email,
		Active: true,
	})
	if err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	v := created.ToView()

	return &v, nil
}

// Update rewrites name and email of an active customer. The new email must
// not collide with another active customer.
func (s *CustomerService) Update(
	ctx context.Context,
	email, newName, newEmail string,
) (view *customer.View, err error) {
	defer func() {
		s.annotate(ctx, fmt.Sprintf("Cliente %s actualizado correctamente.", newName), err)
	}()

	work := s.uowFactory()
	if err := work.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = work.Rollback(ctx) }()

	c, err := work.CustomerRepository().GetActiveByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.New(apperr.KindNotFound, "Cliente no encontrado.")
	}

	exists, err := work.CustomerRepository().ExistsActiveByEmail(ctx, newEmail, c.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.New(apperr.KindConflict, "Ya existe otro cliente con ese email.")
	}

	c.Name = newName
	c.Email = newEmail
	if err := work.CustomerRepository().Update(ctx, *c); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	v := c.ToView()

	return &v, nil
}

// Delete soft-deletes an active customer. Blocked while the customer owns any
// header whose status is not Cancelled.
func (s *CustomerService) Delete(ctx context.Context, email string) (err error) {
	defer func() {
		s.annotate(ctx, fmt.Sprintf("Cliente %s eliminado correctamente.", email), err)
	}()

	work := s.uowFactory()
	if err := work.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = work.Rollback(ctx) }()

	c, err := work.CustomerRepository().GetActiveByEmail(ctx, email)
	if err != nil {
		return err
	}
	if c == nil {
		return apperr.New(apperr.KindNotFound, "Cliente no encontrado.")
	}

	hasOrders, err := work.OrderRepository().ExistsNonCancelledByCustomer(ctx, c.ID)
	if err != nil {
		return err
	}
	if hasOrders {
		return apperr.Newf(apperr.KindBlocked,
			"No se puede eliminar el cliente %s porque tiene pedidos asociados.", c.Name)
	}

	if err := work.CustomerRepository().SetActive(ctx, c.ID, false); err != nil {
		return err
	}

	if err := work.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
