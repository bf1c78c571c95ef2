package iorderrepo

import (
	"context"

	"github.com/corray333/pedidos-svc/internal/service/models/order"
)

// IOrderRepository is the order header store. Header lookups are always
// scoped to headers owned by active customers. Lookups return (nil, nil) when
// nothing matches.
type IOrderRepository interface {
	// GetLast returns the header with the highest internal id, regardless of
	// status or customer. Used for order number allocation.
	GetLast(ctx context.Context) (*order.Header, error)
	Count(ctx context.Context) (int64, error)

	Insert(ctx context.Context, h order.Header) (*order.Header, error)
	GetActiveByNumber(ctx context.Context, orderNumber string) (*order.Header, error)
	UpdateStatus(ctx context.Context, headerID int64, status order.Status) error

	// Views carry the derived total over active-product lines.
	ListViews(ctx context.Context) ([]order.HeaderView, error)
	GetViewByID(ctx context.Context, headerID int64) (*order.HeaderView, error)

	// ExistsNonCancelledByCustomer reports whether the customer owns any
	// header whose status is not Cancelled.
	ExistsNonCancelledByCustomer(ctx context.Context, customerID int64) (bool, error)
}
