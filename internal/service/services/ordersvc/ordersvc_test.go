package ordersvc

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/corray333/pedidos-svc/internal/dal/interfaces/icustomerrepo"
	"github.com/corray333/pedidos-svc/internal/dal/interfaces/iorderlinerepo"
	"github.com/corray333/pedidos-svc/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/pedidos-svc/internal/dal/interfaces/iproductrepo"
	"github.com/corray333/pedidos-svc/internal/service/models/apperr"
	"github.com/corray333/pedidos-svc/internal/service/models/customer"
	"github.com/corray333/pedidos-svc/internal/service/models/order"
	"github.com/corray333/pedidos-svc/internal/service/models/orderline"
	"github.com/corray333/pedidos-svc/internal/service/models/product"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memState is the shared in-memory store behind the fake repositories.
type memState struct {
	customers map[int64]*customer.Customer
	products  map[int64]*product.Product
	headers   map[int64]*order.Header
	lines     map[int64]*orderline.Line
	nextID    int64

	bulkInsertErr error
}

func newMemState() *memState {
	return &memState{
		customers: make(map[int64]*customer.Customer),
		products:  make(map[int64]*product.Product),
		headers:   make(map[int64]*order.Header),
		lines:     make(map[int64]*orderline.Line),
	}
}

func (s *memState) id() int64 {
	s.nextID++

	return s.nextID
}

func (s *memState) clone() *memState {
	c := newMemState()
	c.nextID = s.nextID
	for k, v := range s.customers {
		cp := *v
		c.customers[k] = &cp
	}
	for k, v := range s.products {
		cp := *v
		c.products[k] = &cp
	}
	for k, v := range s.headers {
		cp := *v
		c.headers[k] = &cp
	}
	for k, v := range s.lines {
		cp := *v
		c.lines[k] = &cp
	}

	return c
}

func (s *memState) restore(from *memState) {
	s.customers = from.customers
	s.products = from.products
	s.headers = from.headers
	s.lines = from.lines
	s.nextID = from.nextID
}

func (s *memState) addCustomer(name, email string) *customer.Customer {
	c := &customer.Customer{ID: s.id(), Name: name, Email: email, Active: true}
	s.customers[c.ID] = c

	return c
}

func (s *memState) addProduct(name string, priceCents int64) *product.Product {
	p := &product.Product{ID: s.id(), Name: name, PriceCents: priceCents, Active: true}
	s.products[p.ID] = p

	return p
}

func (s *memState) addHeader(number string, status order.Status, customerID int64) *order.Header {
	h := &order.Header{
		ID:          s.id(),
		OrderNumber: number,
		OrderedAt:   time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC),
		Status:      status,
		CustomerID:  customerID,
	}
	s.headers[h.ID] = h

	return h
}

func (s *memState) addLine(headerID, productID int64, lineNumber, quantity int) *orderline.Line {
	l := &orderline.Line{
		ID:         s.id(),
		LineNumber: lineNumber,
		Quantity:   quantity,
		HeaderID:   headerID,
		ProductID:  productID,
	}
	s.lines[l.ID] = l

	return l
}

func (s *memState) headerView(h *order.Header) *order.HeaderView {
	c := s.customers[h.CustomerID]
	var total int64
	for _, l := range s.lines {
		if l.HeaderID != h.ID {
			continue
		}
		if p, ok := s.products[l.ProductID]; ok && p.Active {
			total += p.PriceCents * int64(l.Quantity)
		}
	}

	return &order.HeaderView{
		OrderNumber:   h.OrderNumber,
		CustomerName:  c.Name,
		CustomerEmail: c.Email,
		OrderedAt:     h.OrderedAt,
		Status:        h.Status,
		TotalCents:    total,
	}
}

type fakeCustomerRepo struct{ state *memState }

func (r *fakeCustomerRepo) ListActive(context.Context) ([]customer.Customer, error) {
	var out []customer.Customer
	for _, c := range r.state.customers {
		if c.Active {
			out = append(out, *c)
		}
	}

	return out, nil
}

func (r *fakeCustomerRepo) SearchActiveByName(_ context.Context, name string) ([]customer.Customer, error) {
	var out []customer.Customer
	for _, c := range r.state.customers {
		if c.Active && strings.Contains(strings.ToLower(c.Name), strings.ToLower(name)) {
			out = append(out, *c)
		}
	}

	return out, nil
}

func (r *fakeCustomerRepo) GetActiveByEmail(_ context.Context, email string) (*customer.Customer, error) {
	for _, c := range r.state.customers {
		if c.Active && strings.EqualFold(c.Email, email) {
			cp := *c

			return &cp, nil
		}
	}

	return nil, nil
}

func (r *fakeCustomerRepo) ExistsActiveByEmail(_ context.Context, email string, excludeID int64) (bool, error) {
	for _, c := range r.state.customers {
		if c.Active && c.ID != excludeID && strings.EqualFold(c.Email, email) {
			return true, nil
		}
	}

	return false, nil
}

func (r *fakeCustomerRepo) Insert(_ context.Context, c customer.Customer) (*customer.Customer, error) {
	c.ID = r.state.id()
	r.state.customers[c.ID] = &c
	cp := c

	return &cp, nil
}

func (r *fakeCustomerRepo) Update(_ context.Context, c customer.Customer) error {
	r.state.customers[c.ID] = &c

	return nil
}

func (r *fakeCustomerRepo) SetActive(_ context.Context, id int64, active bool) error {
	if c, ok := r.state.customers[id]; ok {
		c.Active = active
	}

	return nil
}

type fakeProductRepo struct{ state *memState }

func (r *fakeProductRepo) List(context.Context) ([]product.Product, error) {
	var out []product.Product
	for _, p := range r.state.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (r *fakeProductRepo) GetByID(_ context.Context, id int64) (*product.Product, error) {
	if p, ok := r.state.products[id]; ok {
		cp := *p

		return &cp, nil
	}

	return nil, nil
}

func (r *fakeProductRepo) GetActiveByID(_ context.Context, id int64) (*product.Product, error) {
	if p, ok := r.state.products[id]; ok && p.Active {
		cp := *p

		return &cp, nil
	}

	return nil, nil
}

func (r *fakeProductRepo) ExistsActiveByName(_ context.Context, name string, excludeID int64) (bool, error) {
	for _, p := range r.state.products {
		if p.Active && p.ID != excludeID && p.Name == name {
			return true, nil
		}
	}

	return false, nil
}

func (r *fakeProductRepo) Insert(_ context.Context, p product.Product) (*product.Product, error) {
	p.ID = r.state.id()
	r.state.products[p.ID] = &p
	cp := p

	return &cp, nil
}

func (r *fakeProductRepo) Update(_ context.Context, p product.Product) error {
	r.state.products[p.ID] = &p

	return nil
}

func (r *fakeProductRepo) SetActive(_ context.Context, id int64, active bool) error {
	if p, ok := r.state.products[id]; ok {
		p.Active = active
	}

	return nil
}

type fakeOrderRepo struct{ state *memState }

func (r *fakeOrderRepo) GetLast(context.Context) (*order.Header, error) {
	var last *order.Header
	for _, h := range r.state.headers {
		if last == nil || h.ID > last.ID {
			last = h
		}
	}
	if last == nil {
		return nil, nil
	}
	cp := *last

	return &cp, nil
}

func (r *fakeOrderRepo) Count(context.Context) (int64, error) {
	return int64(len(r.state.headers)), nil
}

func (r *fakeOrderRepo) Insert(_ context.Context, h order.Header) (*order.Header, error) {
	h.ID = r.state.id()
	r.state.headers[h.ID] = &h
	cp := h

	return &cp, nil
}

func (r *fakeOrderRepo) GetActiveByNumber(_ context.Context, orderNumber string) (*order.Header, error) {
	for _, h := range r.state.headers {
		if h.OrderNumber != orderNumber {
			continue
		}
		if c, ok := r.state.customers[h.CustomerID]; !ok || !c.Active {
			continue
		}
		cp := *h

		return &cp, nil
	}

	return nil, nil
}

func (r *fakeOrderRepo) UpdateStatus(_ context.Context, headerID int64, status order.Status) error {
	h, ok := r.state.headers[headerID]
	if !ok {
		return errors.New("header not found")
	}
	h.Status = status

	return nil
}

func (r *fakeOrderRepo) ListViews(context.Context) ([]order.HeaderView, error) {
	var out []order.HeaderView
	for _, h := range r.state.headers {
		if h.Status == order.StatusCancelled {
			continue
		}
		if c, ok := r.state.customers[h.CustomerID]; !ok || !c.Active {
			continue
		}
		out = append(out, *r.state.headerView(h))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber < out[j].OrderNumber })

	return out, nil
}

func (r *fakeOrderRepo) GetViewByID(_ context.Context, headerID int64) (*order.HeaderView, error) {
	h, ok := r.state.headers[headerID]
	if !ok {
		return nil, nil
	}

	return r.state.headerView(h), nil
}

func (r *fakeOrderRepo) ExistsNonCancelledByCustomer(_ context.Context, customerID int64) (bool, error) {
	for _, h := range r.state.headers {
		if h.CustomerID == customerID && h.Status != order.StatusCancelled {
			return true, nil
		}
	}

	return false, nil
}

type fakeOrderLineRepo struct{ state *memState }

func (r *fakeOrderLineRepo) ListViewsByHeader(_ context.Context, headerID int64) ([]orderline.View, error) {
	var out []orderline.View
	for _, l := range r.state.lines {
		if l.HeaderID != headerID {
			continue
		}
		p, ok := r.state.products[l.ProductID]
		if !ok || !p.Active {
			continue
		}
		out = append(out, orderline.View{
			LineNumber:     l.LineNumber,
			ProductName:    p.Name,
			Quantity:       l.Quantity,
			UnitPriceCents: p.PriceCents,
			SubtotalCents:  p.PriceCents * int64(l.Quantity),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LineNumber < out[j].LineNumber })

	return out, nil
}

func (r *fakeOrderLineRepo) GetByHeaderAndNumber(_ context.Context, headerID int64, lineNumber int) (*orderline.Line, error) {
	for _, l := range r.state.lines {
		if l.HeaderID == headerID && l.LineNumber == lineNumber {
			cp := *l

			return &cp, nil
		}
	}

	return nil, nil
}

func (r *fakeOrderLineRepo) MaxLineNumber(_ context.Context, headerID int64) (int, error) {
	maxNumber := 0
	for _, l := range r.state.lines {
		if l.HeaderID == headerID && l.LineNumber > maxNumber {
			maxNumber = l.LineNumber
		}
	}

	return maxNumber, nil
}

func (r *fakeOrderLineRepo) CountByHeader(_ context.Context, headerID int64) (int, error) {
	count := 0
	for _, l := range r.state.lines {
		if l.HeaderID == headerID {
			count++
		}
	}

	return count, nil
}

func (r *fakeOrderLineRepo) BulkInsert(_ context.Context, lines []orderline.Line) ([]orderline.Line, error) {
	if r.state.bulkInsertErr != nil {
		return nil, r.state.bulkInsertErr
	}
	out := make([]orderline.Line, 0, len(lines))
	for _, l := range lines {
		l := l
		l.ID = r.state.id()
		r.state.lines[l.ID] = &l
		out = append(out, l)
	}

	return out, nil
}

func (r *fakeOrderLineRepo) Insert(ctx context.Context, line orderline.Line) (*orderline.Line, error) {
	inserted, err := r.BulkInsert(ctx, []orderline.Line{line})
	if err != nil {
		return nil, err
	}

	return &inserted[0], nil
}

func (r *fakeOrderLineRepo) UpdateQuantity(_ context.Context, lineID int64, quantity int) error {
	l, ok := r.state.lines[lineID]
	if !ok {
		return errors.New("line not found")
	}
	l.Quantity = quantity

	return nil
}

func (r *fakeOrderLineRepo) Delete(_ context.Context, lineID int64) error {
	delete(r.state.lines, lineID)

	return nil
}

func (r *fakeOrderLineRepo) ExistsNonCancelledByProduct(_ context.Context, productID int64) (bool, error) {
	for _, l := range r.state.lines {
		if l.ProductID != productID {
			continue
		}
		if h, ok := r.state.headers[l.HeaderID]; ok && h.Status != order.StatusCancelled {
			return true, nil
		}
	}

	return false, nil
}

// fakeUOW snapshots the state on Begin and restores it on Rollback, so
// transactional semantics are observable in tests.
type fakeUOW struct {
	state    *memState
	snapshot *memState
}

func (u *fakeUOW) Begin(context.Context) error {
	u.snapshot = u.state.clone()

	return nil
}

func (u *fakeUOW) Commit(context.Context) error {
	u.snapshot = nil

	return nil
}

func (u *fakeUOW) Rollback(context.Context) error {
	if u.snapshot != nil {
		u.state.restore(u.snapshot)
		u.snapshot = nil
	}

	return nil
}

func (u *fakeUOW) CustomerRepository() icustomerrepo.ICustomerRepository {
	return &fakeCustomerRepo{state: u.state}
}

func (u *fakeUOW) ProductRepository() iproductrepo.IProductRepository {
	return &fakeProductRepo{state: u.state}
}

func (u *fakeUOW) OrderRepository() iorderrepo.IOrderRepository {
	return &fakeOrderRepo{state: u.state}
}

func (u *fakeUOW) OrderLineRepository() iorderlinerepo.IOrderLineRepository {
	return &fakeOrderLineRepo{state: u.state}
}

type auditEvent struct {
	header order.Header
	lines  []orderline.Line
}

type fakeAuditRepo struct {
	events []auditEvent
	err    error
}

func (r *fakeAuditRepo) LogOrderCreated(_ context.Context, header order.Header, lines []orderline.Line) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, auditEvent{header: header, lines: lines})

	return nil
}

type annotation struct {
	id      string
	message string
	sql     string
	result  string
}

type fakeAuditor struct {
	annotations []annotation
}

func (a *fakeAuditor) AnnotateOutcome(id, message, sql, result string) {
	a.annotations = append(a.annotations, annotation{id: id, message: message, sql: sql, result: result})
}

func newTestService(state *memState, opts ...option) *OrderService {
	opts = append([]option{
		WithUnitOfWorkFactory(func() unitOfWork { return &fakeUOW{state: state} }),
		WithClock(func() time.Time { return time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC) }),
	}, opts...)

	return MustNewOrderService(opts...)
}

func TestCreateOrder(t *testing.T) {
	state := newMemState()
	cust := state.addCustomer("Ana Garcia", "ana@example.com")
	laptop := state.addProduct("Laptop", 120000)
	mouse := state.addProduct("Mouse", 2500)

	audit := &fakeAuditRepo{}
	svc := newTestService(state, WithAuditRepository(audit))

	view, err := svc.Create(context.Background(), "ana@example.com", []CreateOrderLine{
		{ProductID: laptop.ID, Quantity: 2},
		{ProductID: mouse.ID, Quantity: 4},
	})

	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, "0001", view.OrderNumber)
	assert.Equal(t, order.StatusPending, view.Status)
	assert.Equal(t, cust.Name, view.CustomerName)
	assert.Equal(t, int64(2*120000+4*2500), view.TotalCents)

	require.Len(t, state.headers, 1)
	require.Len(t, state.lines, 2)

	numbers := make([]int, 0, 2)
	for _, l := range state.lines {
		numbers = append(numbers, l.LineNumber)
	}
	sort.Ints(numbers)
	assert.Equal(t, []int{1, 2}, numbers)

	require.Len(t, audit.events, 1)
	assert.Equal(t, "0001", audit.events[0].header.OrderNumber)
	assert.Len(t, audit.events[0].lines, 2)
}

func TestCreateOrderValidation(t *testing.T) {
	state := newMemState()
	state.addCustomer("Ana Garcia", "ana@example.com")
	p := state.addProduct("Laptop", 120000)
	svc := newTestService(state)

	t.Run("no lines", func(t *testing.T) {
		_, err := svc.Create(context.Background(), "ana@example.com", nil)
		assert.True(t, apperr.IsInvalid(err))
	})

	t.Run("quantity out of range", func(t *testing.T) {
		_, err := svc.Create(context.Background(), "ana@example.com", []CreateOrderLine{
			{ProductID: p.ID, Quantity: 1001},
		})
		assert.True(t, apperr.IsInvalid(err))
	})

	t.Run("zero quantity", func(t *testing.T) {
		_, err := svc.Create(context.Background(), "ana@example.com", []CreateOrderLine{
			{ProductID: p.ID, Quantity: 0},
		})
		assert.True(t, apperr.IsInvalid(err))
	})

	assert.Empty(t, state.headers)
	assert.Empty(t, state.lines)
}

func TestCreateOrderUnknownCustomer(t *testing.T) {
	state := newMemState()
	p := state.addProduct("Laptop", 120000)
	svc := newTestService(state)

	_, err := svc.Create(context.Background(), "nadie@example.com", []CreateOrderLine{
		{ProductID: p.ID, Quantity: 1},
	})

	assert.True(t, apperr.IsNotFound(err))
	assert.Empty(t, state.headers)
}

func TestCreateOrderUnknownProductLeavesNoState(t *testing.T) {
	state := newMemState()
	state.addCustomer("Ana Garcia", "ana@example.com")
	p := state.addProduct("Laptop", 120000)
	svc := newTestService(state)

	// Second product does not exist: nothing may be written for the first.
	_, err := svc.Create(context.Background(), "ana@example.com", []CreateOrderLine{
		{ProductID: p.ID, Quantity: 1},
		{ProductID: 999, Quantity: 1},
	})

	assert.True(t, apperr.IsNotFound(err))
	assert.Empty(t, state.headers)
	assert.Empty(t, state.lines)
}

func TestCreateOrderRollsBackOnInsertFailure(t *testing.T) {
	state := newMemState()
	state.addCustomer("Ana Garcia", "ana@example.com")
	p := state.addProduct("Laptop", 120000)
	state.bulkInsertErr = errors.New("disk full")
	svc := newTestService(state)

	_, err := svc.Create(context.Background(), "ana@example.com", []CreateOrderLine{
		{ProductID: p.ID, Quantity: 1},
	})

	require.Error(t, err)
	// The header written before the line failure is rolled back with it.
	assert.Empty(t, state.headers)
	assert.Empty(t, state.lines)
}

func TestOrderNumberSequence(t *testing.T) {
	t.Run("increments last numeric", func(t *testing.T) {
		state := newMemState()
		cust := state.addCustomer("Ana Garcia", "ana@example.com")
		p := state.addProduct("Laptop", 120000)
		state.addHeader("0041", order.StatusCompleted, cust.ID)
		svc := newTestService(state)

		view, err := svc.Create(context.Background(), "ana@example.com", []CreateOrderLine{
			{ProductID: p.ID, Quantity: 1},
		})

		require.NoError(t, err)
		assert.Equal(t, "0042", view.OrderNumber)
	})

	t.Run("falls back to count when unparsable", func(t *testing.T) {
		state := newMemState()
		cust := state.addCustomer("Ana Garcia", "ana@example.com")
		p := state.addProduct("Laptop", 120000)
		state.addHeader("LEGACY", order.StatusCompleted, cust.ID)
		svc := newTestService(state)

		view, err := svc.Create(context.Background(), "ana@example.com", []CreateOrderLine{
			{ProductID: p.ID, Quantity: 1},
		})

		require.NoError(t, err)
		assert.Equal(t, "0002", view.OrderNumber)
	})
}

func TestListHeaders(t *testing.T) {
	state := newMemState()
	cust := state.addCustomer("Ana Garcia", "ana@example.com")
	p := state.addProduct("Laptop", 120000)
	h1 := state.addHeader("0001", order.StatusPending, cust.ID)
	state.addHeader("0002", order.StatusCancelled, cust.ID)
	state.addLine(h1.ID, p.ID, 1, 2)
	svc := newTestService(state)

	views, err := svc.ListHeaders(context.Background())

	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "0001", views[0].OrderNumber)
	assert.Equal(t, int64(240000), views[0].TotalCents)
}

func TestGetHeader(t *testing.T) {
	state := newMemState()
	cust := state.addCustomer("Ana Garcia", "ana@example.com")
	state.addHeader("0001", order.StatusPending, cust.ID)
	state.addHeader("0002", order.StatusCancelled, cust.ID)
	svc := newTestService(state)

	t.Run("found", func(t *testing.T) {
		view, err := svc.GetHeader(context.Background(), "0001")
		require.NoError(t, err)
		assert.Equal(t, "0001", view.OrderNumber)
	})

	t.Run("cancelled is not found", func(t *testing.T) {
		_, err := svc.GetHeader(context.Background(), "0002")
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("missing", func(t *testing.T) {
		_, err := svc.GetHeader(context.Background(), "9999")
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestUpdateStatus(t *testing.T) {
	state := newMemState()
	cust := state.addCustomer("Ana Garcia", "ana@example.com")
	pending := state.addHeader("0001", order.StatusPending, cust.ID)
	completed := state.addHeader("0002", order.StatusCompleted, cust.ID)
	cancelled := state.addHeader("0003", order.StatusCancelled, cust.ID)
	svc := newTestService(state)

	t.Run("pending to completed", func(t *testing.T) {
		view, err := svc.UpdateStatus(context.Background(), "0001", "Completed")
		require.NoError(t, err)
		assert.Equal(t, order.StatusCompleted, view.Status)
		assert.Equal(t, order.StatusCompleted, state.headers[pending.ID].Status)
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := svc.UpdateStatus(context.Background(), "0001", "Shipped")
		assert.True(t, apperr.IsInvalid(err))
	})

	t.Run("completed is terminal", func(t *testing.T) {
		_, err := svc.UpdateStatus(context.Background(), "0002", "Pending")
		assert.True(t, apperr.IsBlocked(err))
		assert.Equal(t, order.StatusCompleted, state.headers[completed.ID].Status)
	})

	t.Run("terminal even to the same value", func(t *testing.T) {
		_, err := svc.UpdateStatus(context.Background(), "0003", "Cancelled")
		assert.True(t, apperr.IsBlocked(err))
		assert.Equal(t, order.StatusCancelled, state.headers[cancelled.ID].Status)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := svc.UpdateStatus(context.Background(), "9999", "Completed")
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestCancel(t *testing.T) {
	state := newMemState()
	cust := state.addCustomer("Ana Garcia", "ana@example.com")
	pending := state.addHeader("0001", order.StatusPending, cust.ID)
	state.addHeader("0002", order.StatusCompleted, cust.ID)
	svc := newTestService(state)

	t.Run("pending cancels", func(t *testing.T) {
		view, err := svc.Cancel(context.Background(), "0001")
		require.NoError(t, err)
		assert.Equal(t, order.StatusCancelled, view.Status)
		assert.Equal(t, order.StatusCancelled, state.headers[pending.ID].Status)
	})

	t.Run("completed is blocked", func(t *testing.T) {
		_, err := svc.Cancel(context.Background(), "0002")
		assert.True(t, apperr.IsBlocked(err))
	})

	t.Run("already cancelled is blocked", func(t *testing.T) {
		_, err := svc.Cancel(context.Background(), "0001")
		assert.True(t, apperr.IsBlocked(err))
	})
}

func TestListLines(t *testing.T) {
	state := newMemState()
	cust := state.addCustomer("Ana Garcia", "ana@example.com")
	laptop := state.addProduct("Laptop", 120000)
	mouse := state.addProduct("Mouse", 2500)
	h := state.addHeader("0001", order.StatusPending, cust.ID)
	state.addLine(h.ID, laptop.ID, 1, 2)
	state.addLine(h.ID, mouse.ID, 2, 4)
	state.addHeader("0002", order.StatusPending, cust.ID)
	state.addHeader("0003", order.StatusCompleted, cust.ID)
	svc := newTestService(state)

	t.Run("lists with subtotals", func(t *testing.T) {
		views, err := svc.ListLines(context.Background(), "0001")
		require.NoError(t, err)
		require.Len(t, views, 2)
		assert.Equal(t, "Laptop", views[0].ProductName)
		assert.Equal(t, int64(240000), views[0].SubtotalCents)
		assert.Equal(t, "Mouse", views[1].ProductName)
		assert.Equal(t, int64(10000), views[1].SubtotalCents)
	})

	t.Run("empty header is not found", func(t *testing.T) {
		_, err := svc.ListLines(context.Background(), "0002")
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("non pending is not found", func(t *testing.T) {
		_, err := svc.ListLines(context.Background(), "0003")
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestAddLine(t *testing.T) {
	state := newMemState()
	cust := state.addCustomer("Ana Garcia", "ana@example.com")
	laptop := state.addProduct("Laptop", 120000)
	mouse := state.addProduct("Mouse", 2500)
	h := state.addHeader("0001", order.StatusPending, cust.ID)
	state.addLine(h.ID, laptop.ID, 1, 1)
	state.addHeader("0002", order.StatusCompleted, cust.ID)
	svc := newTestService(state)

	t.Run("appends after current max", func(t *testing.T) {
		view, err := svc.AddLine(context.Background(), "0001", mouse.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, 2, view.LineNumber)
		assert.Equal(t, int64(7500), view.SubtotalCents)
	})

	t.Run("invalid quantity", func(t *testing.T) {
		_, err := svc.AddLine(context.Background(), "0001", mouse.ID, 0)
		assert.True(t, apperr.IsInvalid(err))
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := svc.AddLine(context.Background(), "0001", 999, 1)
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("non pending header", func(t *testing.T) {
		_, err := svc.AddLine(context.Background(), "0002", mouse.ID, 1)
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestUpdateLine(t *testing.T) {
	state := newMemState()
	cust := state.addCustomer("Ana Garcia", "ana@example.com")
	laptop := state.addProduct("Laptop", 120000)
	inactive := state.addProduct("Descatalogado", 500)
	inactive.Active = false
	h := state.addHeader("0001", order.StatusPending, cust.ID)
	line := state.addLine(h.ID, laptop.ID, 1, 1)
	state.addLine(h.ID, inactive.ID, 2, 1)
	svc := newTestService(state)

	t.Run("updates quantity", func(t *testing.T) {
		view, err := svc.UpdateLine(context.Background(), "0001", 1, 5)
		require.NoError(t, err)
		assert.Equal(t, 5, view.Quantity)
		assert.Equal(t, int64(600000), view.SubtotalCents)
		assert.Equal(t, 5, state.lines[line.ID].Quantity)
	})

	t.Run("unknown line", func(t *testing.T) {
		_, err := svc.UpdateLine(context.Background(), "0001", 9, 5)
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("inactive product hides the line", func(t *testing.T) {
		_, err := svc.UpdateLine(context.Background(), "0001", 2, 5)
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("invalid quantity", func(t *testing.T) {
		_, err := svc.UpdateLine(context.Background(), "0001", 1, 1001)
		assert.True(t, apperr.IsInvalid(err))
	})
}

func TestDeleteLineOutcomes(t *testing.T) {
	state := newMemState()
	cust := state.addCustomer("Ana Garcia", "ana@example.com")
	laptop := state.addProduct("Laptop", 120000)
	h := state.addHeader("0001", order.StatusPending, cust.ID)
	state.addLine(h.ID, laptop.ID, 1, 1)
	state.addLine(h.ID, laptop.ID, 2, 1)
	state.addLine(h.ID, laptop.ID, 3, 1)
	svc := newTestService(state)

	t.Run("plain removal", func(t *testing.T) {
		result, err := svc.DeleteLine(context.Background(), "0001", 3)
		require.NoError(t, err)
		assert.Equal(t, DeleteOutcomeSuccess, result.Outcome)
		assert.Equal(t, 2, result.Remaining)
		assert.Nil(t, result.Header)
	})

	t.Run("warning before the cascade", func(t *testing.T) {
		result, err := svc.DeleteLine(context.Background(), "0001", 2)
		require.NoError(t, err)
		assert.Equal(t, DeleteOutcomeWarning, result.Outcome)
		assert.Equal(t, 1, result.Remaining)
		assert.Contains(t, result.Message, "ADVERTENCIA")
	})

	t.Run("last line cancels the order", func(t *testing.T) {
		result, err := svc.DeleteLine(context.Background(), "0001", 1)
		require.NoError(t, err)
		assert.Equal(t, DeleteOutcomeAutoCancelled, result.Outcome)
		assert.Equal(t, 0, result.Remaining)
		require.NotNil(t, result.Header)
		assert.Equal(t, order.StatusCancelled, result.Header.Status)
		assert.Equal(t, order.StatusCancelled, state.headers[h.ID].Status)
		assert.Empty(t, state.lines)
	})

	t.Run("cancelled header no longer accepts deletions", func(t *testing.T) {
		_, err := svc.DeleteLine(context.Background(), "0001", 1)
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestDeleteLineUnknownLine(t *testing.T) {
	state := newMemState()
	cust := state.addCustomer("Ana Garcia", "ana@example.com")
	laptop := state.addProduct("Laptop", 120000)
	h := state.addHeader("0001", order.StatusPending, cust.ID)
	state.addLine(h.ID, laptop.ID, 1, 1)
	svc := newTestService(state)

	_, err := svc.DeleteLine(context.Background(), "0001", 7)
	assert.True(t, apperr.IsNotFound(err))
	assert.Len(t, state.lines, 1)
}

func TestCreateSurvivesAuditFailure(t *testing.T) {
	state := newMemState()
	state.addCustomer("Ana Garcia", "ana@example.com")
	p := state.addProduct("Laptop", 120000)
	audit := &fakeAuditRepo{err: errors.New("broker down")}
	svc := newTestService(state, WithAuditRepository(audit))

	view, err := svc.Create(context.Background(), "ana@example.com", []CreateOrderLine{
		{ProductID: p.ID, Quantity: 1},
	})

	require.NoError(t, err)
	assert.Equal(t, "0001", view.OrderNumber)
	assert.Len(t, state.headers, 1)
}

func TestOutcomeAnnotations(t *testing.T) {
	state := newMemState()
	state.addCustomer("Ana Garcia", "ana@example.com")
	p := state.addProduct("Laptop", 120000)
	auditor := &fakeAuditor{}
	svc := newTestService(state, WithRequestAuditor(auditor))

	_, err := svc.Create(context.Background(), "ana@example.com", []CreateOrderLine{
		{ProductID: p.ID, Quantity: 1},
	})
	require.NoError(t, err)

	_, err = svc.GetHeader(context.Background(), "9999")
	require.Error(t, err)

	require.Len(t, auditor.annotations, 2)
	assert.Equal(t, "Pedido 0001 creado correctamente.", auditor.annotations[0].message)
	assert.Equal(t, "Exito", auditor.annotations[0].result)
	assert.Equal(t, "Pedido no encontrado.", auditor.annotations[1].message)
	assert.Equal(t, "Error", auditor.annotations[1].result)
}
