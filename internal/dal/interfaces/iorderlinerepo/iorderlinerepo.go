package iorderlinerepo

import (
	"context"

	"github.com/corray333/pedidos-svc/internal/service/models/orderline"
)

// IOrderLineRepository is the order line store. Lookups return (nil, nil)
// when nothing matches.
type IOrderLineRepository interface {
	ListViewsByHeader(ctx context.Context, headerID int64) ([]orderline.View, error)
	GetByHeaderAndNumber(ctx context.Context, headerID int64, lineNumber int) (*orderline.Line, error)
	MaxLineNumber(ctx context.Context, headerID int64) (int, error)
	CountByHeader(ctx context.Context, headerID int64) (int, error)

	BulkInsert(ctx context.Context, lines []orderline.Line) ([]orderline.Line, error)
	Insert(ctx context.Context, line orderline.Line) (*orderline.Line, error)
	UpdateQuantity(ctx context.Context, lineID int64, quantity int) error
	Delete(ctx context.Context, lineID int64) error

	// ExistsNonCancelledByProduct reports whether any line referencing the
	// product belongs to a header whose status is not Cancelled.
	ExistsNonCancelledByProduct(ctx context.Context, productID int64) (bool, error)
}
