package reqlog

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/corray333/pedidos-svc/internal/service/models/logentry"
	"github.com/google/uuid"
)

// SecondaryStore persists finished log entries durably. It is strictly
// best-effort: a failing store never affects the primary response.
type SecondaryStore interface {
	Insert(ctx context.Context, entry logentry.LogEntry) error
}

// Logger tracks one in-flight log record per logical request and flushes each
// record exactly once: always to the rolling daily file, best-effort to the
// secondary store.
type Logger struct {
	dir      string
	store    SecondaryStore
	inflight sync.Map // log id -> *logentry.LogEntry

	// fileMu serializes every append so lines from concurrent requests never
	// interleave mid-line.
	fileMu sync.Mutex

	now   func() time.Time
	newID func() string
}

// option is a function that configures the Logger.
type option func(*Logger)

// MustNewLogger creates a Logger writing under dir, creating it if needed.
func MustNewLogger(dir string, opts ...option) *Logger {
	l := &Logger{
		dir:   dir,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		panic("failed to create log directory: " + err.Error())
	}

	return l
}

// WithSecondaryStore sets the best-effort durable store for the Logger.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithSecondaryStore(store SecondaryStore) option {
	return func(l *Logger) {
		l.store = store
	}
}

// WithClock sets the time source for the Logger.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(l *Logger) {
		l.now = now
	}
}

// WithIDGenerator sets the correlation id generator for the Logger.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithIDGenerator(newID func() string) option {
	return func(l *Logger) {
		l.newID = newID
	}
}

// Meta is the request metadata captured when a log record is opened.
type Meta struct {
	Timestamp time.Time
	Target    string
	IP        string
	Method    string
	Headers   string
	Status    int
}

// Open allocates a fresh correlation id and registers an in-flight record.
func (l *Logger) Open(meta Meta) string {
	entry := &logentry.LogEntry{
		LogID:     l.newID(),
		Timestamp: meta.Timestamp,
		Target:    meta.Target,
		IP:        NormalizeIP(meta.IP),
		Method:    meta.Method,
		Headers:   meta.Headers,
		Status:    meta.Status,
	}

	l.inflight.Store(entry.LogID, entry)

	return entry.LogID
}

// AnnotateOutcome merges the service outcome into the open record. Unknown or
// already closed ids are ignored. Last write wins per field; empty sql and
// result leave the previous values untouched.
func (l *Logger) AnnotateOutcome(id, message, sql, result string) {
	v, ok := l.inflight.Load(id)
	if !ok {
		return
	}
	entry := v.(*logentry.LogEntry)

	entry.ServiceMessage = message
	if sql != "" {
		entry.SQL = sql
	}
	if result != "" {
		entry.ServiceResult = result
	}
}

// AnnotateBoundaryError records an error detected at the boundary layer,
// separate from service outcome messages.
func (l *Logger) AnnotateBoundaryError(id, message string) {
	v, ok := l.inflight.Load(id)
	if !ok {
		return
	}
	v.(*logentry.LogEntry).BoundaryError = message
}

// Close removes the record from the in-flight set and flushes it: the file
// append must succeed or its failure is written to the error file; the
// secondary store is best-effort. Closing an unknown id is a no-op. Close
// never fails the caller.
func (l *Logger) Close(ctx context.Context, id string) {
	v, ok := l.inflight.LoadAndDelete(id)
	if !ok {
		return
	}
	entry := v.(*logentry.LogEntry)

	if err := l.appendToFile(renderLine(entry)); err != nil {
		slog.Error("failed to write request log line", "log_id", id, "error", err)
		l.writeErrorLine(fmt.Sprintf("Error al escribir log en TXT: %v", err))
	}

	if l.store == nil {
		return
	}
	if err := l.store.Insert(ctx, *entry); err != nil {
		slog.Error("failed to persist request log entry", "log_id", id, "error", err)
		l.writeErrorLine(fmt.Sprintf("Error al guardar log en BD: %v", err))
	}
}

// InFlight reports the number of records not yet closed.
func (l *Logger) InFlight() int {
	count := 0
	l.inflight.Range(func(any, any) bool {
		count++

		return true
	})

	return count
}

func (l *Logger) appendToFile(line string) error {
	l.fileMu.Lock()
	defer l.fileMu.Unlock()

	path := filepath.Join(l.dir, fmt.Sprintf("log_%s.txt", l.now().Format("20060102")))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n\n"); err != nil {
		return fmt.Errorf("failed to append log line: %w", err)
	}

	return nil
}

func (l *Logger) writeErrorLine(message string) {
	path := filepath.Join(l.dir, fmt.Sprintf("log_errores_%s.txt", l.now().Format("20060102")))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		// Nothing left to report to.
		return
	}
	defer f.Close()

	_, _ = fmt.Fprintf(f, "[%s] %s\n", l.now().Format("2006-01-02 15:04:05"), message)
}

// renderLine renders a single pipe-delimited, human-readable line. Fields
// with no value are omitted; newlines and tabs inside values are collapsed.
func renderLine(entry *logentry.LogEntry) string {
	var b strings.Builder

	b.WriteString(entry.Timestamp.Format("2006-01-02 15:04:05"))
	b.WriteString(" | Llamada: " + entry.Target)
	b.WriteString(" | IP: " + entry.IP)
	b.WriteString(" | Metodo: " + entry.Method)
	b.WriteString(fmt.Sprintf(" | Status: %d", entry.Status))
	b.WriteString(" | Headers: " + collapse(entry.Headers))

	if entry.BoundaryError != "" {
		b.WriteString(" | Error Controller: " + collapse(entry.BoundaryError))
	}
	if entry.ServiceMessage != "" {
		b.WriteString(" | Mensaje Servicio: " + collapse(entry.ServiceMessage))
	}
	if entry.SQL != "" {
		b.WriteString(" | SQL: " + collapse(entry.SQL))
	}
	if entry.ServiceResult != "" {
		b.WriteString(" | Resultado: " + collapse(entry.ServiceResult))
	}

	return b.String()
}

var collapser = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")

func collapse(s string) string {
	return collapser.Replace(s)
}

// NormalizeIP maps the IPv6 loopback to its IPv4 form for display.
func NormalizeIP(ip string) string {
	if ip == "::1" {
		return "127.0.0.1"
	}

	return ip
}

// SanitizeHeaders renders request headers as "Name: v1, v2" lines with the
// Authorization header redacted by omission.
func SanitizeHeaders(headers http.Header) string {
	names := make([]string, 0, len(headers))
	for name := range headers {
		if http.CanonicalHeaderKey(name) == "Authorization" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+strings.Join(headers.Values(name), ", "))
	}

	return strings.Join(parts, "; ")
}

type ctxKey struct{}

// WithID attaches a correlation id to ctx so downstream layers can annotate
// the record without knowing about the transport.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IDFromContext returns the correlation id attached to ctx, if any.
func IDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)

	return id
}
