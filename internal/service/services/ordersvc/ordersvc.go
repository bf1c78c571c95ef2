package ordersvc

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/corray333/pedidos-svc/internal/audit/reqlog"
	"github.com/corray333/pedidos-svc/internal/audit/sqlcapture"
	"github.com/corray333/pedidos-svc/internal/dal/interfaces/iauditrepo"
	"github.com/corray333/pedidos-svc/internal/dal/interfaces/icustomerrepo"
	"github.com/corray333/pedidos-svc/internal/dal/interfaces/iorderlinerepo"
	"github.com/corray333/pedidos-svc/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/pedidos-svc/internal/dal/interfaces/iproductrepo"
	"github.com/corray333/pedidos-svc/internal/dal/postgres"
	"github.com/corray333/pedidos-svc/internal/dal/uow"
	"github.com/corray333/pedidos-svc/internal/service/models/apperr"
	"github.com/corray333/pedidos-svc/internal/service/models/currency"
	"github.com/corray333/pedidos-svc/internal/service/models/logentry"
	"github.com/corray333/pedidos-svc/internal/service/models/order"
	"github.com/corray333/pedidos-svc/internal/service/models/orderline"
	"github.com/corray333/pedidos-svc/internal/service/models/product"
)

// unitOfWork spans one logical mutation. After Begin all repositories share a
// single transaction.
type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	CustomerRepository() icustomerrepo.ICustomerRepository
	ProductRepository() iproductrepo.IProductRepository
	OrderRepository() iorderrepo.IOrderRepository
	OrderLineRepository() iorderlinerepo.IOrderLineRepository
}

// requestAuditor receives service outcomes for the correlation log.
type requestAuditor interface {
	AnnotateOutcome(id, message, sql, result string)
}

// OrderService orchestrates order creation, status transitions and line
// mutation, enforcing the consistency rules across customers, products,
// headers and lines.
type OrderService struct {
	pgClient   *postgres.Client
	uowFactory func() unitOfWork
	auditRepo  iauditrepo.IAuditRepository
	auditor    requestAuditor
	now        func() time.Time
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.pgClient = pgClient
		s.uowFactory = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient)
		}
	}
}

// WithUnitOfWorkFactory overrides the unit of work source.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *OrderService) {
		s.uowFactory = factory
	}
}

// WithAuditRepository sets the best-effort audit event publisher.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithAuditRepository(repo iauditrepo.IAuditRepository) option {
	return func(s *OrderService) {
		s.auditRepo = repo
	}
}

// WithRequestAuditor sets the correlation log receiving service outcomes.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithRequestAuditor(auditor requestAuditor) option {
	return func(s *OrderService) {
		s.auditor = auditor
	}
}

// WithClock sets the time source for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *OrderService) {
		s.now = now
	}
}

// annotate attaches the operation outcome and the drained SQL capture to the
// correlation log record of the calling request, if any.
func (s *OrderService) annotate(ctx context.Context, successMessage string, err error) {
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

// CreateOrderLine is one requested line of a new order.
type CreateOrderLine struct {
	ProductID int64
	Quantity  int
}

// Create creates a header with its lines as one transaction and returns the
// header projection with the derived total. Any failure before commit rolls
// back everything: no partial header or line state is ever observable.
func (s *OrderService) Create(
	ctx context.Context,
	customerEmail string,
	requested []CreateOrderLine,
) (view *order.HeaderView, err error) {
	defer func() {
		if view != nil {
			s.annotate(ctx, fmt.Sprintf("Pedido %s creado correctamente.", view.OrderNumber), err)
		} else {
			s.annotate(ctx, "", err)
		}
	}()

	if len(requested) == 0 {
		return nil, apperr.New(apperr.KindInvalid, "El pedido debe tener al menos un detalle.")
	}
	for _, line := range requested {
		if err := orderline.ValidateQuantity(line.Quantity); err != nil {
			return nil, err
		}
	}

	work := s.uowFactory()
	if err := work.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = work.Rollback(ctx) }()

	cust, err := work.CustomerRepository().GetActiveByEmail(ctx, customerEmail)
	if err != nil {
		return nil, err
	}
	if cust == nil {
		return nil, apperr.New(apperr.KindNotFound, "Cliente no encontrado")
	}

	// Validate every product before any header or line row is written.
	products := make(map[int64]*product.Product, len(requested))
	for _, line := range requested {
		if _, ok := products[line.ProductID]; ok {
			continue
		}
		p, err := work.ProductRepository().GetActiveByID(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, apperr.Newf(apperr.KindNotFound, "Producto con ID %d no encontrado", line.ProductID)
		}
		products[line.ProductID] = p
	}

	orderNumber, err := s.nextOrderNumber(ctx, work.OrderRepository())
	if err != nil {
		return nil, err
	}

	header, err := work.OrderRepository().Insert(ctx, order.Header{
		OrderNumber: orderNumber,
		OrderedAt:   s.now(),
		Status:      order.StatusPending,
		CustomerID:  cust.ID,
	})
	if err != nil {
		return nil, err
	}

	lines := make([]orderline.Line, 0, len(requested))
	for i, line := range requested {
		lines = append(lines, orderline.Line{
			LineNumber: i + 1,
			Quantity:   line.Quantity,
			HeaderID:   header.ID,
			ProductID:  line.ProductID,
		})
	}
	lines, err = work.OrderLineRepository().BulkInsert(ctx, lines)
	if err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	var totalCents int64
	for _, line := range lines {
		totalCents += products[line.ProductID].PriceCents * int64(line.Quantity)
	}

	s.publishCreated(ctx, *header, lines)

	return &order.HeaderView{
		OrderNumber:   header.OrderNumber,
		CustomerName:  cust.Name,
		CustomerEmail: cust.Email,
		OrderedAt:     header.OrderedAt,
		Status:        header.Status,
		TotalCents:    totalCents,
		TotalCurrency: currency.CurrencyEUR,
	}, nil
}

// publishCreated sends audit events for the created order. Best-effort: a
// publish failure is logged and never surfaces to the caller.
func (s *OrderService) publishCreated(ctx context.Context, header order.Header, lines []orderline.Line) {
	if s.auditRepo == nil {
		return
	}
	if err := s.auditRepo.LogOrderCreated(ctx, header, lines); err != nil {
		slog.Error("failed to publish order created audit event",
			"order_number", header.OrderNumber,
			"error", err,
		)
	}
}

// nextOrderNumber allocates the next 4-digit order number from the highest
// existing header, "0001" when none exists, falling back to count+1 when the
// last number does not parse. Read-then-increment: concurrent creations can
// race to the same number; the unique index on order_number then fails one of
// them instead of silently duplicating.
func (s *OrderService) nextOrderNumber(
	ctx context.Context,
	repo iorderrepo.IOrderRepository,
) (string, error) {
	last, err := repo.GetLast(ctx)
	if err != nil {
		return "", err
	}
	if last == nil {
		return "0001", nil
	}

	if n, parseErr := strconv.Atoi(last.OrderNumber); parseErr == nil {
		return fmt.Sprintf("%04d", n+1), nil
	}

	count, err := repo.Count(ctx)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%04d", count+1), nil
}

// ListHeaders returns projections of all non-cancelled headers owned by
// active customers.
func (s *OrderService) ListHeaders(ctx context.Context) (views []order.HeaderView, err error) {
	defer func() {
		s.annotate(ctx, fmt.Sprintf("Se consultaron %d pedidos.", len(views)), err)
	}()

	work := s.uowFactory()

	views, err = work.OrderRepository().ListViews(ctx)
	if err != nil {
		return nil, err
	}

	return views, nil
}

// GetHeader returns the projection of one non-cancelled header.
func (s *OrderService) GetHeader(
	ctx context.Context,
	orderNumber string,
) (view *order.HeaderView, err error) {
	defer func() {
		s.annotate(ctx, fmt.Sprintf("Pedido %s consultado correctamente.", orderNumber), err)
	}()

	work := s.uowFactory()

	header, err := work.OrderRepository().GetActiveByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if header == nil || header.Status == order.StatusCancelled {
		return nil, apperr.New(apperr.KindNotFound, "Pedido no encontrado.")
	}

	return work.OrderRepository().GetViewByID(ctx, header.ID)
}

// UpdateStatus applies a status transition. Cancelled and Completed are
// terminal: any transition out of them is Blocked, including re-setting the
// same value.
func (s *OrderService) UpdateStatus(
	ctx context.Context,
	orderNumber string,
	newStatus string,
) (view *order.HeaderView, err error) {
	defer func() {
		s.annotate(ctx, fmt.Sprintf("Pedido %s actualizado a %s.", orderNumber, newStatus), err)
	}()

	status, err := order.ParseStatus(newStatus)
	if err != nil {
		return nil, err
	}

	work := s.uowFactory()

	header, err := work.OrderRepository().GetActiveByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, apperr.New(apperr.KindNotFound, "Pedido no encontrado.")
	}
	if header.Status.Terminal() {
		return nil, apperr.Newf(apperr.KindBlocked,
			"El pedido %s esta en estado %s y no admite mas cambios.", orderNumber, header.Status)
	}

	if err := work.OrderRepository().UpdateStatus(ctx, header.ID, status); err != nil {
		return nil, err
	}

	return work.OrderRepository().GetViewByID(ctx, header.ID)
}

// Cancel soft-deletes an order by setting its status to Cancelled. Only
// Pending orders may be cancelled through this path.
func (s *OrderService) Cancel(
	ctx context.Context,
	orderNumber string,
) (view *order.HeaderView, err error) {
	defer func() {
		s.annotate(ctx, fmt.Sprintf("Pedido %s cancelado exitosamente.", orderNumber), err)
	}()

	work := s.uowFactory()

	header, err := work.OrderRepository().GetActiveByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, apperr.New(apperr.KindNotFound, "Pedido no encontrado.")
	}
	if header.Status != order.StatusPending {
		return nil, apperr.New(apperr.KindBlocked, "Solo se pueden cancelar pedidos pendientes.")
	}

	if err := work.OrderRepository().UpdateStatus(ctx, header.ID, order.StatusCancelled); err != nil {
		return nil, err
	}

	return work.OrderRepository().GetViewByID(ctx, header.ID)
}

// resolvePending loads a Pending header of an active customer. Line mutations
// are only permitted while the header is Pending; anything else resolves to
// NotFound, mirroring the lookup filter.
func resolvePending(
	ctx context.Context,
	repo iorderrepo.IOrderRepository,
	orderNumber string,
) (*order.Header, error) {
	header, err := repo.GetActiveByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if header == nil || header.Status != order.StatusPending {
		return nil, apperr.New(apperr.KindNotFound, "Pedido pendiente no encontrado")
	}

	return header, nil
}

// ListLines returns line projections of a Pending header, active products
// only.
func (s *OrderService) ListLines(
	ctx context.Context,
	orderNumber string,
) (views []orderline.View, err error) {
	defer func() {
		s.annotate(ctx, fmt.Sprintf("Se consultaron %d detalles del pedido %s.", len(views), orderNumber), err)
	}()

	work := s.uowFactory()

	header, err := resolvePending(ctx, work.OrderRepository(), orderNumber)
	if err != nil {
		return nil, err
	}

	views, err = work.OrderLineRepository().ListViewsByHeader(ctx, header.ID)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "Pedido pendiente no encontrado")
	}

	return views, nil
}

// AddLine appends a line to a Pending header. The new line number is the
// current maximum plus one, or 1 for an empty header.
func (s *OrderService) AddLine(
	ctx context.Context,
	orderNumber string,
	productID int64,
	quantity int,
) (view *orderline.View, err error) {
	defer func() {
		s.annotate(ctx, fmt.Sprintf("Detalle agregado al pedido %s.", orderNumber), err)
	}()

	if err := orderline.ValidateQuantity(quantity); err != nil {
		return nil, err
	}

	work := s.uowFactory()

	header, err := resolvePending(ctx, work.OrderRepository(), orderNumber)
	if err != nil {
		return nil, err
	}

	p, err := work.ProductRepository().GetActiveByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.New(apperr.KindNotFound, "Producto no encontrado")
	}

	maxNumber, err := work.OrderLineRepository().MaxLineNumber(ctx, header.ID)
	if err != nil {
		return nil, err
	}

	line, err := work.OrderLineRepository().Insert(ctx, orderline.Line{
		LineNumber: maxNumber + 1,
		Quantity:   quantity,
		HeaderID:   header.ID,
		ProductID:  productID,
	})
	if err != nil {
		return nil, err
	}

	return lineView(line, p), nil
}

// UpdateLine updates the quantity of one line in place. The header must be
// Pending and the referenced product active.
func (s *OrderService) UpdateLine(
	ctx context.Context,
	orderNumber string,
	lineNumber int,
	quantity int,
) (view *orderline.View, err error) {
	defer func() {
		s.annotate(ctx, fmt.Sprintf("Detalle %d del pedido %s actualizado.", lineNumber, orderNumber), err)
	}()

	if err := orderline.ValidateQuantity(quantity); err != nil {
		return nil, err
	}

	work := s.uowFactory()

	header, err := resolvePending(ctx, work.OrderRepository(), orderNumber)
	if err != nil {
		return nil, err
	}

	line, err := work.OrderLineRepository().GetByHeaderAndNumber(ctx, header.ID, lineNumber)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, apperr.New(apperr.KindNotFound, "Detalle no encontrado.")
	}

	p, err := work.ProductRepository().GetActiveByID(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.New(apperr.KindNotFound, "Detalle no encontrado.")
	}

	if err := work.OrderLineRepository().UpdateQuantity(ctx, line.ID, quantity); err != nil {
		return nil, err
	}
	line.Quantity = quantity

	return lineView(line, p), nil
}

// DeleteLineOutcome tags the result of a line deletion.
type DeleteLineOutcome int

const (
	// DeleteOutcomeSuccess is a plain removal with at least two lines left.
	DeleteOutcomeSuccess DeleteLineOutcome = iota
	// DeleteOutcomeWarning is a removal leaving exactly one line: the next
	// deletion will auto-cancel the whole order.
	DeleteOutcomeWarning
	// DeleteOutcomeAutoCancelled is the removal of the only line, which
	// cancelled the header.
	DeleteOutcomeAutoCancelled
)

// DeleteLineResult is the closed result union of DeleteLine. Callers branch
// on Outcome; Header is set only for DeleteOutcomeAutoCancelled.
type DeleteLineResult struct {
	Outcome   DeleteLineOutcome
	Message   string
	Line      orderline.View
	Remaining int
	Header    *order.HeaderView
}

// DeleteLine removes one line of a Pending header inside one transaction.
// Removing the last remaining line cancels the header.
func (s *OrderService) DeleteLine(
	ctx context.Context,
	orderNumber string,
	lineNumber int,
) (result *DeleteLineResult, err error) {
	defer func() {
		if result != nil {
			s.annotate(ctx, result.Message, err)
		} else {
			s.annotate(ctx, "", err)
		}
	}()

	work := s.uowFactory()
	if err := work.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = work.Rollback(ctx) }()

	header, err := resolvePending(ctx, work.OrderRepository(), orderNumber)
	if err != nil {
		return nil, err
	}

	line, err := work.OrderLineRepository().GetByHeaderAndNumber(ctx, header.ID, lineNumber)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, apperr.New(apperr.KindNotFound, "Detalle no encontrado.")
	}

	p, err := work.ProductRepository().GetByID(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.New(apperr.KindNotFound, "Detalle no encontrado.")
	}

	// Counted before removal: 1 means this is the only line and the header
	// cascades to Cancelled; 2 means the caller is one deletion away from
	// that cascade.
	count, err := work.OrderLineRepository().CountByHeader(ctx, header.ID)
	if err != nil {
		return nil, err
	}

	if err := work.OrderLineRepository().Delete(ctx, line.ID); err != nil {
		return nil, err
	}

	deleted := *lineView(line, p)

	switch count {
	case 1:
		if err := work.OrderRepository().UpdateStatus(ctx, header.ID, order.StatusCancelled); err != nil {
			return nil, err
		}
		headerView, err := work.OrderRepository().GetViewByID(ctx, header.ID)
		if err != nil {
			return nil, err
		}
		result = &DeleteLineResult{
			Outcome:   DeleteOutcomeAutoCancelled,
			Message:   "Detalle eliminado. Como era el ultimo detalle, el pedido ha sido cancelado automaticamente.",
			Line:      deleted,
			Remaining: 0,
			Header:    headerView,
		}
	case 2:
		result = &DeleteLineResult{
			Outcome:   DeleteOutcomeWarning,
			Message:   "ADVERTENCIA: Al eliminar el proximo detalle, se cancelara automaticamente todo el pedido.",
			Line:      deleted,
			Remaining: 1,
		}
	default:
		result = &DeleteLineResult{
			Outcome:   DeleteOutcomeSuccess,
			Message:   "Detalle eliminado exitosamente.",
			Line:      deleted,
			Remaining: count - 1,
		}
	}

	if err := work.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}

func lineView(line *orderline.Line, p *product.Product) *orderline.View {
	return &orderline.View{
		LineNumber:       line.LineNumber,
		ProductName:      p.Name,
		Quantity:         line.Quantity,
		UnitPriceCents:   p.PriceCents,
		SubtotalCents:    p.PriceCents * int64(line.Quantity),
		SubtotalCurrency: currency.CurrencyEUR,
	}
}
