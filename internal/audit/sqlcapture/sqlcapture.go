package sqlcapture

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
)

type ctxKey struct{}

// buffer accumulates the statements of one logical operation. Guarded because
// pgx may report batched statements from helper goroutines.
type buffer struct {
	mu         sync.Mutex
	statements []string
}

func (b *buffer) append(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statements = append(b.statements, s)
}

func (b *buffer) drain() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	joined := strings.Join(b.statements, "; ")
	b.statements = nil

	return joined
}

// Begin returns a child context carrying a fresh, empty statement buffer.
// Statements executed with the returned context (or any context derived from
// it) are captured; sibling operations never see each other's buffers.
func Begin(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, &buffer{})
}

// Drain returns the captured statements joined with "; " and clears the
// buffer. Without a prior Begin it returns the empty string.
func Drain(ctx context.Context) string {
	buf, ok := ctx.Value(ctxKey{}).(*buffer)
	if !ok {
		return ""
	}

	return buf.drain()
}

// Tracer records every executed statement into the buffer of the active
// context. Plug it into pgxpool via config.ConnConfig.Tracer.
type Tracer struct{}

// TraceQueryStart implements pgx.QueryTracer.
func (Tracer) TraceQueryStart(
	ctx context.Context,
	_ *pgx.Conn,
	data pgx.TraceQueryStartData,
) context.Context {
	if buf, ok := ctx.Value(ctxKey{}).(*buffer); ok {
		buf.append(render(data.SQL, data.Args))
	}

	return ctx
}

// TraceQueryEnd implements pgx.QueryTracer.
func (Tracer) TraceQueryEnd(context.Context, *pgx.Conn, pgx.TraceQueryEndData) {}

func render(sql string, args []any) string {
	if len(args) == 0 {
		return sql
	}

	params := make([]string, len(args))
	for i, arg := range args {
		params[i] = fmt.Sprintf("$%d=%v", i+1, arg)
	}

	return fmt.Sprintf("%s [%s]", sql, strings.Join(params, ", "))
}
