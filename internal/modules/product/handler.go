package product

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/markethub-backend/internal/httpx"
)

// Handler exposes product HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Post("/store/{store_id}", h.createProduct) // POST   /api/v1/products/store/{store_id}
		r.Get("/store/{store_id}", h.listProducts)   // GET    /api/v1/products/store/{store_id}?include_inactive=true
		r.Get("/{id}", h.getProduct)                 // GET    /api/v1/products/{id}
		r.Patch("/{id}", h.updateProduct)            // PATCH  /api/v1/products/{id}
		r.Delete("/{id}", h.deleteProduct)           // DELETE /api/v1/products/{id}
	})
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.UserID(r.Context())
	if !ok {
		httpx.Unauthorized(w, nil)
		return
	}
	storeID, err := httpx.URLUUID(r, "store_id")
	if !httpx.Must(w, r, err) {
		return
	}
	var req CreateProductRequest
	if !httpx.Must(w, r, httpx.Decode(r, &req)) {
		return
	}
	p, err := h.service.CreateProduct(r.Context(), actor, storeID, req)
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusCreated, p)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.UserID(r.Context())
	if !ok {
		httpx.Unauthorized(w, nil)
		return
	}
	storeID, err := httpx.URLUUID(r, "store_id")
	if !httpx.Must(w, r, err) {
		return
	}
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	products, err := h.service.ListProducts(r.Context(), actor, storeID, includeInactive)
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusOK, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.UserID(r.Context())
	if !ok {
		httpx.Unauthorized(w, nil)
		return
	}
	id, err := httpx.URLUUID(r, "id")
	if !httpx.Must(w, r, err) {
		return
	}
	p, err := h.service.GetProduct(r.Context(), actor, id)
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.UserID(r.Context())
	if !ok {
		httpx.Unauthorized(w, nil)
		return
	}
	id, err := httpx.URLUUID(r, "id")
	if !httpx.Must(w, r, err) {
		return
	}
	var req UpdateProductRequest
	if !httpx.Must(w, r, httpx.Decode(r, &req)) {
		return
	}
	p, err := h.service.UpdateProduct(r.Context(), actor, id, req)
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.UserID(r.Context())
	if !ok {
		httpx.Unauthorized(w, nil)
		return
	}
	id, err := httpx.URLUUID(r, "id")
	if !httpx.Must(w, r, err) {
		return
	}
	if !httpx.Must(w, r, h.service.DeleteProduct(r.Context(), actor, id)) {
		return
	}
	httpx.Respond(w, http.StatusOK, map[string]string{"status": "product deactivated"})
}
