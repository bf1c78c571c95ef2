package iproductrepo

import (
	"context"

	"github.com/corray333/pedidos-svc/internal/service/models/product"
)

// IProductRepository is the product store. Lookups return (nil, nil) when
// nothing matches.
type IProductRepository interface {
	List(ctx context.Context) ([]product.Product, error)
	GetByID(ctx context.Context, id int64) (*product.Product, error)
	GetActiveByID(ctx context.Context, id int64) (*product.Product, error)
	ExistsActiveByName(ctx context.Context, name string, excludeID int64) (bool, error)
	Insert(ctx context.Context, p product.Product) (*product.Product, error)
	Update(ctx context.Context, p product.Product) error
	SetActive(ctx context.Context, id int64, active bool) error
}
