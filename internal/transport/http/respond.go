package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/corray333/pedidos-svc/internal/audit/reqlog"
	"github.com/corray333/pedidos-svc/internal/service/models/apperr"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *HTTPTransport) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps a service failure to its HTTP shape. Typed failures carry
// their own user-facing message; anything untyped becomes an opaque 500 and is
// recorded on the correlation log as a boundary error.
func (h *HTTPTransport) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind, ok := apperr.KindOf(err)
	if !ok {
		slog.Error("unexpected service failure", "path", r.URL.Path, "error", err)
		h.reqLogger.AnnotateBoundaryError(reqlog.IDFromContext(r.Context()), err.Error())
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Error interno del servidor."})

		return
	}

	status := http.StatusInternalServerError
	switch kind {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindInvalid:
		status = http.StatusBadRequest
	case apperr.KindConflict, apperr.KindBlocked:
		status = http.StatusConflict
	}

	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decodeBody rejects malformed JSON before the service layer runs. The
// decoding failure is a boundary error, not a service outcome.
func (h *HTTPTransport) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.reqLogger.AnnotateBoundaryError(reqlog.IDFromContext(r.Context()), "Cuerpo de la peticion no valido: "+err.Error())
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Cuerpo de la peticion no valido."})

		return false
	}

	return true
}
