package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/georgemunganga/markethub-backend/internal/httpx"
	"github.com/georgemunganga/markethub-backend/internal/platform/logging"
)

// Middleware verifies the bearer token and stores the user ID on the request
// context. Downstream code trusts that ID without further checks.
func Middleware(svc Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httpx.Unauthorized(w, nil)
				return
			}
			id, err := svc.Authenticate(r.Context(), token)
			if err != nil {
				httpx.Unauthorized(w, err)
				return
			}
			ctx := httpx.WithUserID(r.Context(), id)
			ctx = logging.ContextWithLogger(ctx, logging.FromContext(ctx).With(zap.String("user_id", id.String())))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
