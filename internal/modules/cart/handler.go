package cart

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/markethub-backend/internal/httpx"
)

// Handler exposes cart HTTP endpoints for the authenticated user.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Get("/", h.view)                            // GET    /api/v1/cart
		r.Post("/items", h.addItem)                   // POST   /api/v1/cart/items
		r.Patch("/items/{product_id}", h.updateItem)  // PATCH  /api/v1/cart/items/{product_id}
		r.Delete("/items/{product_id}", h.removeItem) // DELETE /api/v1/cart/items/{product_id}
		r.Delete("/", h.clear)                        // DELETE /api/v1/cart
	})
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserID(r.Context())
	if !ok {
		httpx.Unauthorized(w, nil)
		return
	}
	g, err := h.service.View(r.Context(), userID)
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusOK, g)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserID(r.Context())
	if !ok {
		httpx.Unauthorized(w, nil)
		return
	}
	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if !httpx.Must(w, r, httpx.Decode(r, &req)) {
		return
	}
	productID, err := httpx.ParseUUID("product_id", req.ProductID)
	if !httpx.Must(w, r, err) {
		return
	}
	item, err := h.service.AddItem(r.Context(), userID, productID, req.Quantity)
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusCreated, item)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserID(r.Context())
	if !ok {
		httpx.Unauthorized(w, nil)
		return
	}
	productID, err := httpx.URLUUID(r, "product_id")
	if !httpx.Must(w, r, err) {
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !httpx.Must(w, r, httpx.Decode(r, &req)) {
		return
	}
	if !httpx.Must(w, r, h.service.UpdateQuantity(r.Context(), userID, productID, req.Quantity)) {
		return
	}
	httpx.Respond(w, http.StatusOK, map[string]string{"status": "cart updated"})
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserID(r.Context())
	if !ok {
		httpx.Unauthorized(w, nil)
		return
	}
	productID, err := httpx.URLUUID(r, "product_id")
	if !httpx.Must(w, r, err) {
		return
	}
	if !httpx.Must(w, r, h.service.RemoveItem(r.Context(), userID, productID)) {
		return
	}
	httpx.Respond(w, http.StatusOK, map[string]string{"status": "item removed"})
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserID(r.Context())
	if !ok {
		httpx.Unauthorized(w, nil)
		return
	}
	if !httpx.Must(w, r, h.service.Clear(r.Context(), userID)) {
		return
	}
	httpx.Respond(w, http.StatusOK, map[string]string{"status": "cart cleared"})
}
