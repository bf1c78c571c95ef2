package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/pedidos-svc/internal/dal/postgres"
	"github.com/corray333/pedidos-svc/internal/service/models/logentry"
)

// RequestLogRepository implements the secondary request log store for
// PostgreSQL. Callers treat it as best-effort; errors are reported but must
// not be escalated past the correlation log.
type RequestLogRepository struct {
	pgClient *postgres.Client
}

// NewRequestLogRepository creates a new request log repository.
func NewRequestLogRepository(pgClient *postgres.Client) *RequestLogRepository {
	return &RequestLogRepository{
		pgClient: pgClient,
	}
}

// Insert saves one finished log entry.
func (r *RequestLogRepository) Insert(ctx context.Context, entry logentry.LogEntry) error {
	query, args, err := sq.Insert("request_log").
		Columns(
			"log_id",
			"ts",
			"target",
			"ip",
			"method",
			"headers",
			"status",
			"service_message",
			"sql_text",
			"service_result",
			"boundary_error",
		).
		Values(
			entry.LogID,
			entry.Timestamp,
			entry.Target,
			entry.IP,
			entry.Method,
			entry.Headers,
			entry.Status,
			entry.ServiceMessage,
			entry.SQL,
			entry.ServiceResult,
			entry.BoundaryError,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert request log query: %w", err)
	}

	if _, err := r.pgClient.Pool().Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert request log entry: %w", err)
	}

	return nil
}
