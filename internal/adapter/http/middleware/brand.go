package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/iho/casinowallet/internal/domain"
)

// BrandScopeContextKey is the context key for the requested brand scope.
const BrandScopeContextKey ContextKey = "brand_scope"

// BrandHeader carries the brand a request operates in.
const BrandHeader = "X-Brand-ID"

// BrandScope records the brand context the caller asked for. It does not
// authorize anything; the ledgers resolve the scope against the actor.
func BrandScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope := domain.BrandScope{BrandID: r.Header.Get(BrandHeader)}

		if raw := r.URL.Query().Get("global"); raw != "" {
			global, err := strconv.ParseBool(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "global must be a boolean")
				return
			}
			scope.Global = global
		}

		ctx := context.WithValue(r.Context(), BrandScopeContextKey, scope)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BrandScopeFromContext returns the requested brand scope, or the zero
// scope when none was recorded.
func BrandScopeFromContext(ctx context.Context) domain.BrandScope {
	scope, _ := ctx.Value(BrandScopeContextKey).(domain.BrandScope)
	return scope
}
