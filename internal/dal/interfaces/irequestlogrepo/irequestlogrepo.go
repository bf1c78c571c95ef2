package irequestlogrepo

import (
	"context"

	"github.com/corray333/pedidos-svc/internal/service/models/logentry"
)

// IRequestLogRepository is the secondary durable store for finished request
// log entries.
type IRequestLogRepository interface {
	Insert(ctx context.Context, entry logentry.LogEntry) error
}
