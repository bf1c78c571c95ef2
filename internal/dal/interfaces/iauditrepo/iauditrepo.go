package iauditrepo

import (
	"context"

	"github.com/corray333/pedidos-svc/internal/service/models/order"
	"github.com/corray333/pedidos-svc/internal/service/models/orderline"
)

// IAuditRepository publishes audit events for order mutations. Publishing is
// best-effort and never fails the operation being audited.
type IAuditRepository interface {
	LogOrderCreated(ctx context.Context, header order.Header, lines []orderline.Line) error
}
