package httptransport

import (
	"net/http"
	"strconv"

	"github.com/corray333/pedidos-svc/internal/audit/reqlog"
	"github.com/corray333/pedidos-svc/internal/service/services/ordersvc"
)

type createPedidoDetalle struct {
	ProductoID int64 `json:"productoId"`
	Cantidad   int   `json:"cantidad"`
}

type createPedidoRequest struct {
	EmailCliente string                `json:"emailCliente"`
	Detalles     []createPedidoDetalle `json:"detalles"`
}

type updateEstadoRequest struct {
	Estado string `json:"estado"`
}

type updateDetalleRequest struct {
	Cantidad int `json:"cantidad"`
}

func (h *HTTPTransport) listOrderHeaders(w http.ResponseWriter, r *http.Request) {
	views, err := h.orders.ListHeaders(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, views)
}

func (h *HTTPTransport) getOrderHeader(w http.ResponseWriter, r *http.Request) {
	view, err := h.orders.GetHeader(r.Context(), pathParam(r, "numeroPedido"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, view)
}

func (h *HTTPTransport) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createPedidoRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	lines := make([]ordersvc.CreateOrderLine, 0, len(req.Detalles))
	for _, d := range req.Detalles {
		lines = append(lines, ordersvc.CreateOrderLine{
			ProductID: d.ProductoID,
			Quantity:  d.Cantidad,
		})
	}

	view, err := h.orders.Create(r.Context(), req.EmailCliente, lines)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, view)
}

func (h *HTTPTransport) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateEstadoRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	view, err := h.orders.UpdateStatus(r.Context(), pathParam(r, "numeroPedido"), req.Estado)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, view)
}

func (h *HTTPTransport) cancelOrder(w http.ResponseWriter, r *http.Request) {
	view, err := h.orders.Cancel(r.Context(), pathParam(r, "numeroPedido"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"message": "Pedido cancelado exitosamente.",
		"pedido":  view,
	})
}

func (h *HTTPTransport) listOrderLines(w http.ResponseWriter, r *http.Request) {
	views, err := h.orders.ListLines(r.Context(), pathParam(r, "numeroPedido"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, views)
}

func (h *HTTPTransport) addOrderLine(w http.ResponseWriter, r *http.Request) {
	var req createPedidoDetalle
	if !h.decodeBody(w, r, &req) {
		return
	}

	view, err := h.orders.AddLine(r.Context(), pathParam(r, "numeroPedido"), req.ProductoID, req.Cantidad)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, view)
}

func (h *HTTPTransport) updateOrderLine(w http.ResponseWriter, r *http.Request) {
	lineNumber, ok := h.lineNumber(w, r)
	if !ok {
		return
	}

	var req updateDetalleRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	view, err := h.orders.UpdateLine(r.Context(), pathParam(r, "numeroPedido"), lineNumber, req.Cantidad)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, view)
}

// deleteOrderLine removes one line and reports which of the three outcomes
// happened: a plain removal, a removal leaving the last line, or the removal
// of the only line, which cancels the whole order.
func (h *HTTPTransport) deleteOrderLine(w http.ResponseWriter, r *http.Request) {
	lineNumber, ok := h.lineNumber(w, r)
	if !ok {
		return
	}

	result, err := h.orders.DeleteLine(r.Context(), pathParam(r, "numeroPedido"), lineNumber)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	switch result.Outcome {
	case ordersvc.DeleteOutcomeAutoCancelled:
		h.writeJSON(w, http.StatusOK, map[string]any{
			"pedidoCancelado": true,
			"message":         result.Message,
			"detalle":         result.Line,
			"pedido":          result.Header,
		})
	case ordersvc.DeleteOutcomeWarning:
		h.writeJSON(w, http.StatusOK, map[string]any{
			"warning":           true,
			"message":           result.Message,
			"detalle":           result.Line,
			"detallesRestantes": result.Remaining,
		})
	default:
		h.writeJSON(w, http.StatusOK, map[string]any{
			"success":           true,
			"message":           result.Message,
			"detalle":           result.Line,
			"detallesRestantes": result.Remaining,
		})
	}
}

func (h *HTTPTransport) lineNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(pathParam(r, "numeroDetalle"))
	if err != nil {
		h.reqLogger.AnnotateBoundaryError(reqlog.IDFromContext(r.Context()), "Numero de detalle no valido: "+pathParam(r, "numeroDetalle"))
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Numero de detalle no valido."})

		return 0, false
	}

	return n, true
}
