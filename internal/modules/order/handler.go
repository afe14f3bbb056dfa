package order

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/georgemunganga/markethub-backend/internal/apperror"
	"github.com/georgemunganga/markethub-backend/internal/httpx"
)

// Handler exposes order and checkout HTTP endpoints.
type Handler struct {
	service      Service
	orchestrator *Orchestrator
}

func NewHandler(service Service, orchestrator *Orchestrator) *Handler {
	return &Handler{service: service, orchestrator: orchestrator}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/checkout", h.checkout) // POST /api/v1/checkout

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Get("/", h.listMyOrders)                    // GET   /api/v1/orders
		r.Get("/{id}", h.getOrder)                    // GET   /api/v1/orders/{id}
		r.Patch("/{id}/status", h.updateStatus)       // PATCH /api/v1/orders/{id}/status
		r.Post("/{id}/cancel", h.cancelOrder)         // POST  /api/v1/orders/{id}/cancel
		r.Get("/store/{store_id}", h.listStoreOrders) // GET   /api/v1/orders/store/{store_id}?status=PENDING
		r.Get("/groups/{id}", h.getGroup)             // GET   /api/v1/orders/groups/{id}
		r.Patch("/groups/{id}/payment", h.setPayment) // PATCH /api/v1/orders/groups/{id}/payment
	})
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserID(r.Context())
	if !ok {
		httpx.Unauthorized(w, nil)
		return
	}
	var req struct {
		StoreIDs        []string `json:"store_ids"`
		ShippingAddress Address  `json:"shipping_address"`
	}
	if !httpx.Must(w, r, httpx.Decode(r, &req)) {
		return
	}
	creq := CheckoutRequest{ShippingAddress: req.ShippingAddress}
	for _, raw := range req.StoreIDs {
		id, err := httpx.ParseUUID("store_ids", raw)
		if !httpx.Must(w, r, err) {
			return
		}
		creq.StoreIDs = append(creq.StoreIDs, id)
	}

	result, err := h.orchestrator.Checkout(r.Context(), userID, creq)
	if err != nil && result != nil {
		// Every store failed: report each outcome under the first failure's status.
		e, _ := apperror.As(err)
		httpx.Respond(w, httpx.StatusFor(err), map[string]interface{}{
			"error":       e,
			"outcomes":    result.Outcomes,
			"unavailable": result.Unavailable,
		})
		return
	}
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusCreated, result)
}

func (h *Handler) listMyOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserID(r.Context())
	if !ok {
		httpx.Unauthorized(w, nil)
		return
	}
	orders, err := h.service.ListMyOrders(r.Context(), userID)
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.actorAnd(w, r, "id")
	if !ok {
		return
	}
	o, err := h.service.GetOrder(r.Context(), userID, id)
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusOK, o)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.actorAnd(w, r, "id")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !httpx.Must(w, r, httpx.Decode(r, &req)) {
		return
	}
	o, err := h.service.UpdateStatus(r.Context(), userID, id, req)
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusOK, o)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.actorAnd(w, r, "id")
	if !ok {
		return
	}
	o, err := h.service.CancelOrder(r.Context(), userID, id)
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusOK, o)
}

func (h *Handler) listStoreOrders(w http.ResponseWriter, r *http.Request) {
	userID, storeID, ok := h.actorAnd(w, r, "store_id")
	if !ok {
		return
	}
	orders, err := h.service.ListStoreOrders(r.Context(), userID, storeID, r.URL.Query().Get("status"))
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusOK, orders)
}

func (h *Handler) getGroup(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.actorAnd(w, r, "id")
	if !ok {
		return
	}
	g, err := h.service.GetGroup(r.Context(), userID, id)
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusOK, g)
}

func (h *Handler) setPayment(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.actorAnd(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		PaymentStatus string `json:"payment_status"`
	}
	if !httpx.Must(w, r, httpx.Decode(r, &req)) {
		return
	}
	g, err := h.service.SetPaymentStatus(r.Context(), userID, id, req.PaymentStatus)
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusOK, g)
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (h *Handler) actorAnd(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := httpx.UserID(r.Context())
	if !ok {
		httpx.Unauthorized(w, nil)
		return uuid.Nil, uuid.Nil, false
	}
	id, err := httpx.URLUUID(r, param)
	if !httpx.Must(w, r, err) {
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}
