package httptransport

import (
	"net/http"
	"strconv"

	"github.com/corray333/pedidos-svc/internal/audit/reqlog"
)

type createProductoRequest struct {
	Nombre      string `json:"nombre"`
	PrecioCents int64  `json:"precioCents"`
}

type updateProductoRequest struct {
	Nombre      string `json:"nombre"`
	PrecioCents int64  `json:"precioCents"`
	Activo      bool   `json:"activo"`
}

func (h *HTTPTransport) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, products)
}

func (h *HTTPTransport) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, p)
}

func (h *HTTPTransport) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductoRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	p, err := h.products.Create(r.Context(), req.Nombre, req.PrecioCents)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, p)
}

func (h *HTTPTransport) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	var req updateProductoRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	p, err := h.products.Update(r.Context(), id, req.Nombre, req.PrecioCents, req.Activo)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, p)
}

func (h *HTTPTransport) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	if err := h.products.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, messageResponse{Message: "Producto eliminado exitosamente."})
}

func (h *HTTPTransport) productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(pathParam(r, "id"), 10, 64)
	if err != nil {
		h.reqLogger.AnnotateBoundaryError(reqlog.IDFromContext(r.Context()), "ID de producto no valido: "+pathParam(r, "id"))
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "ID de producto no valido."})

		return 0, false
	}

	return id, true
}
