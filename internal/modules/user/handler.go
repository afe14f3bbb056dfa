package user

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/markethub-backend/internal/httpx"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes mounts the routes reachable without a token.
func (h *Handler) RegisterPublicRoutes(router chi.Router) {
	router.Post("/users/register", h.registerUser)
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/users/{id}", h.getUser)
	router.Delete("/users/me", h.deactivateSelf)
}

func (h *Handler) registerUser(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}

	var req request
	if !httpx.Must(w, r, httpx.Decode(r, &req)) {
		return
	}

	user, err := h.service.RegisterUser(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusCreated, user)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLUUID(r, "id")
	if !httpx.Must(w, r, err) {
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if !httpx.Must(w, r, err) {
		return
	}
	httpx.Respond(w, http.StatusOK, user)
}

func (h *Handler) deactivateSelf(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.UserID(r.Context())
	if !ok {
		httpx.Unauthorized(w, nil)
		return
	}
	if !httpx.Must(w, r, h.service.DeactivateUser(r.Context(), id)) {
		return
	}
	httpx.Respond(w, http.StatusOK, map[string]string{"status": "user deactivated"})
}
