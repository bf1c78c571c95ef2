package productsvc

import (
	"context"
	"errors"
	"testing"

	"github.com/corray333/pedidos-svc/internal/dal/interfaces/iorderlinerepo"
	"github.com/corray333/pedidos-svc/internal/dal/interfaces/iproductrepo"
	"github.com/corray333/pedidos-svc/internal/service/models/apperr"
	"github.com/corray333/pedidos-svc/internal/service/models/order"
	"github.com/corray333/pedidos-svc/internal/service/models/orderline"
	"github.com/corray333/pedidos-svc/internal/service/models/product"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memState struct {
	products map[int64]*product.Product
	headers  map[int64]*order.Header
	lines    map[int64]*orderline.Line
	nextID   int64
}

func newMemState() *memState {
	return &memState{
		products: make(map[int64]*product.Product),
		headers:  make(map[int64]*order.Header),
		lines:    make(map[int64]*orderline.Line),
	}
}

func (s *memState) id() int64 {
	s.nextID++

	return s.nextID
}

func (s *memState) addProduct(name string, priceCents int64, active bool) *product.Product {
	p := &product.Product{ID: s.id(), Name: name, PriceCents: priceCents, Active: active}
	s.products[p.ID] = p

	return p
}

func (s *memState) addHeaderWithLine(status order.Status, productID int64) {
	h := &order.Header{ID: s.id(), Status: status}
	s.headers[h.ID] = h
	l := &orderline.Line{ID: s.id(), LineNumber: 1, Quantity: 1, HeaderID: h.ID, ProductID: productID}
	s.lines[l.ID] = l
}

type fakeProductRepo struct{ state *memState }

func (r *fakeProductRepo) List(context.Context) ([]product.Product, error) {
	var out []product.Product
	for _, p := range r.state.products {
		out = append(out, *p)
	}

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
	if _, ok := r.state.products[p.ID]; !ok {
		return errors.New("product not found")
	}
	r.state.products[p.ID] = &p

	return nil
}

func (r *fakeProductRepo) SetActive(_ context.Context, id int64, active bool) error {
	if p, ok := r.state.products[id]; ok {
		p.Active = active
	}

	return nil
}

type fakeOrderLineRepo struct{ state *memState }

func (r *fakeOrderLineRepo) ListViewsByHeader(context.Context, int64) ([]orderline.View, error) {
	return nil, nil
}

func (r *fakeOrderLineRepo) GetByHeaderAndNumber(context.Context, int64, int) (*orderline.Line, error) {
	return nil, nil
}

func (r *fakeOrderLineRepo) MaxLineNumber(context.Context, int64) (int, error) { return 0, nil }

func (r *fakeOrderLineRepo) CountByHeader(context.Context, int64) (int, error) { return 0, nil }

func (r *fakeOrderLineRepo) BulkInsert(_ context.Context, lines []orderline.Line) ([]orderline.Line, error) {
	return lines, nil
}

func (r *fakeOrderLineRepo) Insert(_ context.Context, line orderline.Line) (*orderline.Line, error) {
	return &line, nil
}

func (r *fakeOrderLineRepo) UpdateQuantity(context.Context, int64, int) error { return nil }

func (r *fakeOrderLineRepo) Delete(context.Context, int64) error { return nil }

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

type fakeUOW struct{ state *memState }

func (u *fakeUOW) Begin(context.Context) error    { return nil }
func (u *fakeUOW) Commit(context.Context) error   { return nil }
func (u *fakeUOW) Rollback(context.Context) error { return nil }

func (u *fakeUOW) ProductRepository() iproductrepo.IProductRepository {
	return &fakeProductRepo{state: u.state}
}

func (u *fakeUOW) OrderLineRepository() iorderlinerepo.IOrderLineRepository {
	return &fakeOrderLineRepo{state: u.state}
}

func newTestService(state *memState) *ProductService {
	return MustNewProductService(
		WithUnitOfWorkFactory(func() unitOfWork { return &fakeUOW{state: state} }),
	)
}

func TestListIncludesInactive(t *testing.T) {
	state := newMemState()
	state.addProduct("Laptop", 120000, true)
	state.addProduct("Descatalogado", 500, false)
	svc := newTestService(state)

	products, err := svc.List(context.Background())

	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestGetByID(t *testing.T) {
	state := newMemState()
	inactive := state.addProduct("Descatalogado", 500, false)
	svc := newTestService(state)

	t.Run("inactive is still readable", func(t *testing.T) {
		p, err := svc.GetByID(context.Background(), inactive.ID)
		require.NoError(t, err)
		assert.False(t, p.Active)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := svc.GetByID(context.Background(), 999)
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestCreateProduct(t *testing.T) {
	state := newMemState()
	state.addProduct("Laptop", 120000, true)
	state.addProduct("Retirado", 500, false)
	svc := newTestService(state)

	t.Run("success", func(t *testing.T) {
		p, err := svc.Create(context.Background(), "Teclado", 4500)
		require.NoError(t, err)
		assert.True(t, p.Active)
		assert.Equal(t, int64(4500), p.PriceCents)
	})

	t.Run("duplicate active name conflicts", func(t *testing.T) {
		_, err := svc.Create(context.Background(), "Laptop", 99)
		assert.True(t, apperr.IsConflict(err))
	})

	t.Run("name comparison is case-sensitive", func(t *testing.T) {
		_, err := svc.Create(context.Background(), "LAPTOP", 99)
		require.NoError(t, err)
	})

	t.Run("inactive product frees its name", func(t *testing.T) {
		_, err := svc.Create(context.Background(), "Retirado", 99)
		require.NoError(t, err)
	})

	t.Run("price out of range", func(t *testing.T) {
		_, err := svc.Create(context.Background(), "Gratis", 0)
		assert.True(t, apperr.IsInvalid(err))

		_, err = svc.Create(context.Background(), "Carisimo", 10_000_000_000)
		assert.True(t, apperr.IsInvalid(err))
	})
}

func TestUpdateProduct(t *testing.T) {
	state := newMemState()
	laptop := state.addProduct("Laptop", 120000, true)
	state.addProduct("Mouse", 2500, true)
	inactive := state.addProduct("Descatalogado", 500, false)
	svc := newTestService(state)

	t.Run("success", func(t *testing.T) {
		p, err := svc.Update(context.Background(), laptop.ID, "Laptop Pro", 150000, true)
		require.NoError(t, err)
		assert.Equal(t, "Laptop Pro", p.Name)
		assert.Equal(t, "Laptop Pro", state.products[laptop.ID].Name)
	})

	t.Run("conflict with another active name", func(t *testing.T) {
		_, err := svc.Update(context.Background(), laptop.ID, "Mouse", 150000, true)
		assert.True(t, apperr.IsConflict(err))
	})

	t.Run("keeping own name is not a conflict", func(t *testing.T) {
		_, err := svc.Update(context.Background(), laptop.ID, "Laptop Pro", 160000, true)
		require.NoError(t, err)
	})

	t.Run("inactive is not found", func(t *testing.T) {
		_, err := svc.Update(context.Background(), inactive.ID, "Otra cosa", 100, true)
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("price out of range", func(t *testing.T) {
		_, err := svc.Update(context.Background(), laptop.ID, "Laptop Pro", 0, true)
		assert.True(t, apperr.IsInvalid(err))
	})
}

func TestDeleteProduct(t *testing.T) {
	state := newMemState()
	laptop := state.addProduct("Laptop", 120000, true)
	mouse := state.addProduct("Mouse", 2500, true)
	state.addHeaderWithLine(order.StatusPending, laptop.ID)
	state.addHeaderWithLine(order.StatusCancelled, mouse.ID)
	svc := newTestService(state)

	t.Run("blocked while referenced by live orders", func(t *testing.T) {
		err := svc.Delete(context.Background(), laptop.ID)
		assert.True(t, apperr.IsBlocked(err))
		assert.True(t, state.products[laptop.ID].Active)
	})

	t.Run("cancelled orders do not block", func(t *testing.T) {
		err := svc.Delete(context.Background(), mouse.ID)
		require.NoError(t, err)
		assert.False(t, state.products[mouse.ID].Active)
	})

	t.Run("already deleted is not found", func(t *testing.T) {
		err := svc.Delete(context.Background(), mouse.ID)
		assert.True(t, apperr.IsNotFound(err))
	})
}
