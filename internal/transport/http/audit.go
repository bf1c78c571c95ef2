package httptransport

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/corray333/pedidos-svc/internal/audit/reqlog"
	"github.com/corray333/pedidos-svc/internal/audit/sqlcapture"
)

// newAuditMiddleware opens one correlation log record per request, puts its id
// and a fresh statement capture buffer on the context, and closes the record
// after the handler returns. Close runs on a detached context so a cancelled
// request still gets its line flushed.
func newAuditMiddleware(reqLogger *reqlog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := reqLogger.Open(reqlog.Meta{
				Timestamp: time.Now(),
				Target:    r.URL.Path,
				IP:        remoteIP(r),
				Method:    r.Method,
				Headers:   reqlog.SanitizeHeaders(r.Header),
				Status:    http.StatusOK,
			})

			ctx := reqlog.WithID(r.Context(), id)
			ctx = sqlcapture.Begin(ctx)
			defer reqLogger.Close(context.WithoutCancel(ctx), id)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
