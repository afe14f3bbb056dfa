package store

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/georgemunganga/markethub-backend/internal/httpx"
)

// Handler exposes store and membership HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/stores", func(r chi.Router) {
		r.Post("/", h.createStore)                          // POST   /api/v1/stores
		r.Get("/{id}", h.getStore)                          // GET    /api/v1/stores/{id}
		r.Patch("/{id}", h.updateStore)                     // PATCH  /api/v1/stores/{id}
		r.Patch("/{id}/status", h.changeStatus)             // PATCH  /api/v1/stores/{id}/status
		r.Post("/{id}/transfer", h.transferOwnership)       // POST   /api/v1/stores/{id}/transfer
		r.Get("/{id}/members", h.listMembers)               // GET    /api/v1/stores/{id}/members
		r.Post("/{id}/members", h.inviteMember)             // POST   /api/v1/stores/{id}/members
		r.Patch("/{id}/members/{user_id}", h.changeRole)    // PATCH  /api/v1/stores/{id}/members/{user_id}
		r.Delete("/{id}/members/{user_id}", h.removeMember) // DELETE /api/v1/stores/{id}/members/{user_id}
	})
}

func (h *Handler) createStore(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.UserID(r.Context())
	if !ok {
		httpx.Unauthorized(w, nil)
		return
	}
	var req CreateStoreRequest
	if !httpx.Must(w, r, httpx.Decode(r, &req)) {
		return
	}
	st, err := h.service.CreateStore(r.Context(), actor, req)
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusCreated, st)
}

func (h *Handler) getStore(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndStore(w, r)
	if !ok {
		return
	}
	st, err := h.service.GetStore(r.Context(), actor, id)
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusOK, st)
}

func (h *Handler) updateStore(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndStore(w, r)
	if !ok {
		return
	}
	var req UpdateStoreRequest
	if !httpx.Must(w, r, httpx.Decode(r, &req)) {
		return
	}
	st, err := h.service.UpdateStore(r.Context(), actor, id, req)
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusOK, st)
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndStore(w, r)
	if !ok {
		return
	}
	var req struct {
		Status Status `json:"status"`
	}
	if !httpx.Must(w, r, httpx.Decode(r, &req)) {
		return
	}
	st, err := h.service.ChangeStatus(r.Context(), actor, id, req.Status)
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusOK, st)
}

func (h *Handler) transferOwnership(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndStore(w, r)
	if !ok {
		return
	}
	var req struct {
		NewOwnerID string `json:"new_owner_id"`
	}
	if !httpx.Must(w, r, httpx.Decode(r, &req)) {
		return
	}
	newOwner, err := httpx.ParseUUID("new_owner_id", req.NewOwnerID)
	if !httpx.Must(w, r, err) {
		return
	}
	st, err := h.service.TransferOwnership(r.Context(), actor, id, newOwner)
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusOK, st)
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndStore(w, r)
	if !ok {
		return
	}
	members, err := h.service.ListMembers(r.Context(), actor, id)
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusOK, members)
}

func (h *Handler) inviteMember(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndStore(w, r)
	if !ok {
		return
	}
	var req InviteMemberRequest
	if !httpx.Must(w, r, httpx.Decode(r, &req)) {
		return
	}
	m, err := h.service.InviteMember(r.Context(), actor, id, req)
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusCreated, m)
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndStore(w, r)
	if !ok {
		return
	}
	target, err := httpx.URLUUID(r, "user_id")
	if !httpx.Must(w, r, err) {
		return
	}
	var req ChangeRoleRequest
	if !httpx.Must(w, r, httpx.Decode(r, &req)) {
		return
	}
	m, err := h.service.ChangeRole(r.Context(), actor, id, target, req)
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusOK, m)
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndStore(w, r)
	if !ok {
		return
	}
	target, err := httpx.URLUUID(r, "user_id")
	if !httpx.Must(w, r, err) {
		return
	}
	if !httpx.Must(w, r, h.service.RemoveMember(r.Context(), actor, id, target)) {
		return
	}
	httpx.Respond(w, http.StatusOK, map[string]string{"status": "member removed"})
}

func (h *Handler) actorAndStore(w http.ResponseWriter, r *http.Request) (actor, storeID uuid.UUID, ok bool) {
	actorID, ok := httpx.UserID(r.Context())
	if !ok {
		httpx.Unauthorized(w, nil)
		return actor, storeID, false
	}
	id, err := httpx.URLUUID(r, "id")
	if !httpx.Must(w, r, err) {
		return actor, storeID, false
	}
	return actorID, id, true
}
