package sqlcapture

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainWithoutBegin(t *testing.T) {
	assert.Empty(t, Drain(context.Background()))
}

func TestCaptureCycle(t *testing.T) {
	tracer := Tracer{}
	ctx := Begin(context.Background())

	tracer.TraceQueryStart(ctx, nil, pgx.TraceQueryStartData{
		SQL: "SELECT id FROM customers WHERE email = $1",
		Args: []any{
			"ana@example.com",
		},
	})
	tracer.TraceQueryStart(ctx, nil, pgx.TraceQueryStartData{
		SQL: "SELECT COUNT(*) FROM order_headers",
	})

	got := Drain(ctx)
	assert.Equal(t,
		"SELECT id FROM customers WHERE email = $1 [$1=ana@example.com]; SELECT COUNT(*) FROM order_headers",
		got,
	)

	// Drained once, the buffer starts over.
	assert.Empty(t, Drain(ctx))

	tracer.TraceQueryStart(ctx, nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	assert.Equal(t, "SELECT 1", Drain(ctx))
}

func TestSiblingIsolation(t *testing.T) {
	tracer := Tracer{}
	parent := context.Background()

	first := Begin(parent)
	second := Begin(parent)

	tracer.TraceQueryStart(first, nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	tracer.TraceQueryStart(second, nil, pgx.TraceQueryStartData{SQL: "SELECT 2"})

	assert.Equal(t, "SELECT 1", Drain(first))
	assert.Equal(t, "SELECT 2", Drain(second))
	assert.Empty(t, Drain(parent))
}

func TestRenderMultipleParams(t *testing.T) {
	tracer := Tracer{}
	ctx := Begin(context.Background())

	tracer.TraceQueryStart(ctx, nil, pgx.TraceQueryStartData{
		SQL:  "INSERT INTO order_lines (line_number, quantity) VALUES ($1, $2)",
		Args: []any{1, 25},
	})

	require.Equal(t,
		"INSERT INTO order_lines (line_number, quantity) VALUES ($1, $2) [$1=1, $2=25]",
		Drain(ctx),
	)
}

func TestTracerWithoutBuffer(t *testing.T) {
	tracer := Tracer{}
	ctx := context.Background()

	// No buffer on the context: the statement is dropped, not panicked on.
	out := tracer.TraceQueryStart(ctx, nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	assert.Equal(t, ctx, out)
}
