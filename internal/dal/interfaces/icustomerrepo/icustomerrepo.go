package icustomerrepo

import (
	"context"

	"github.com/corray333/pedidos-svc/internal/service/models/customer"
)

// ICustomerRepository is the customer store. Lookups return (nil, nil) when
// nothing matches; the service layer decides what absence means.
type ICustomerRepository interface {
	ListActive(ctx context.Context) ([]customer.Customer, error)
	SearchActiveByName(ctx context.Context, name string) ([]customer.Customer, error)
	GetActiveByEmail(ctx context.Context, email string) (*customer.Customer, error)
	ExistsActiveByEmail(ctx context.Context, email string, excludeID int64) (bool, error)
	Insert(ctx context.Context, c customer.Customer) (*customer.Customer, error)
	Update(ctx context.Context, c customer.Customer) error
	SetActive(ctx context.Context, id int64, active bool) error
}
