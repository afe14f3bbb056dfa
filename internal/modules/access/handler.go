package access

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/markethub-backend/internal/httpx"
	"github.com/georgemunganga/markethub-backend/internal/modules/permission"
)

// Handler exposes grant management and permission checks over HTTP.
type Handler struct {
	resolver *Resolver
	grants   *GrantManager
}

func NewHandler(resolver *Resolver, grants *GrantManager) *Handler {
	return &Handler{resolver: resolver, grants: grants}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/grants", func(r chi.Router) {
		r.Post("/", h.grant)                        // POST   /api/v1/grants
		r.Get("/{store_id}", h.listGrants)          // GET    /api/v1/grants/{store_id}
		r.Delete("/{store_id}/{user_id}", h.revoke) // DELETE /api/v1/grants/{store_id}/{user_id}
	})
	r.Get("/api/v1/permissions/{store_id}/{capability}", h.check) // GET /api/v1/permissions/{store_id}/PLACE_ORDER
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.UserID(r.Context())
	if !ok {
		httpx.Unauthorized(w, nil)
		return
	}
	var req struct {
		StoreID   string                 `json:"store_id"`
		UserID    string                 `json:"user_id"`
		Level     permission.AccessLevel `json:"access_level"`
		ExpiresAt *time.Time             `json:"expires_at"`
	}
	if !httpx.Must(w, r, httpx.Decode(r, &req)) {
		return
	}
	storeID, err := httpx.ParseUUID("store_id", req.StoreID)
	if !httpx.Must(w, r, err) {
		return
	}
	target, err := httpx.ParseUUID("user_id", req.UserID)
	if !httpx.Must(w, r, err) {
		return
	}
	g, err := h.grants.Grant(r.Context(), storeID, actor, target, req.Level, req.ExpiresAt)
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusCreated, g)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.UserID(r.Context())
	if !ok {
		httpx.Unauthorized(w, nil)
		return
	}
	storeID, err := httpx.URLUUID(r, "store_id")
	if !httpx.Must(w, r, err) {
		return
	}
	target, err := httpx.URLUUID(r, "user_id")
	if !httpx.Must(w, r, err) {
		return
	}
	if !httpx.Must(w, r, h.grants.Revoke(r.Context(), storeID, actor, target)) {
		return
	}
	httpx.Respond(w, http.StatusOK, map[string]string{"status": "access revoked"})
}

func (h *Handler) listGrants(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.UserID(r.Context())
	if !ok {
		httpx.Unauthorized(w, nil)
		return
	}
	storeID, err := httpx.URLUUID(r, "store_id")
	if !httpx.Must(w, r, err) {
		return
	}
	grants, err := h.grants.ListGrants(r.Context(), storeID, actor)
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusOK, grants)
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.UserID(r.Context())
	if !ok {
		httpx.Unauthorized(w, nil)
		return
	}
	storeID, err := httpx.URLUUID(r, "store_id")
	if !httpx.Must(w, r, err) {
		return
	}
	c, err := permission.ParseCapability(chi.URLParam(r, "capability"))
	if err != nil {
		httpx.Respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	d, err := h.resolver.CanPerform(r.Context(), actor, storeID, c)
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusOK, d)
}
