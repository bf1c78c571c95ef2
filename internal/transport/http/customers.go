package httptransport

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

type createClienteRequest struct {
	Nombre string `json:"nombre"`
	Email  string `json:"email"`
}

func (h *HTTPTransport) listCustomers(w http.ResponseWriter, r *http.Request) {
	views, err := h.customers.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, views)
}

func (h *HTTPTransport) searchCustomersByName(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "nombre")

	views, err := h.customers.SearchByName(r.Context(), name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, views)
}

func (h *HTTPTransport) getCustomerByEmail(w http.ResponseWriter, r *http.Request) {
	email := pathParam(r, "email")

	view, err := h.customers.GetByEmail(r.Context(), email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, view)
}

func (h *HTTPTransport) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req createClienteRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	view, err := h.customers.Create(r.Context(), req.Nombre, req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, view)
}

func (h *HTTPTransport) updateCustomer(w http.ResponseWriter, r *http.Request) {
	email := pathParam(r, "email")

	var req createClienteRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	view, err := h.customers.Update(r.Context(), email, req.Nombre, req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, view)
}

func (h *HTTPTransport) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	email := pathParam(r, "email")

	if err := h.customers.Delete(r.Context(), email); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, messageResponse{Message: "Cliente eliminado exitosamente."})
}

// pathParam returns a chi URL parameter with any percent-encoding undone, so
// emails and names with encoded characters match their stored form.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}

	return raw
}
