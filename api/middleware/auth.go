package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/commercive/commerce-sync/api/responses"
	pkgerrors "github.com/commercive/commerce-sync/pkg/errors"
	"github.com/commercive/commerce-sync/pkg/logger"
)

// AdminAuth requires the static admin bearer token. With no token configured
// every request is rejected.
func AdminAuth(token string, logg *logger.Logger) func(http.Handler) http.Handler {
	expected := []byte(strings.TrimSpace(token))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(expected) == 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin api disabled"))
				return
			}

			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
				raw = strings.TrimSpace(raw[7:])
			}
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			if subtle.ConstantTimeCompare([]byte(raw), expected) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials"))
				return
			}

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithField(ctx, "actor", "admin")
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
