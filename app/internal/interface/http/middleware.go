package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"example.com/storefront-cart/app/internal/infra/notify"
)

type ctxShopperKey struct{}

var (
	errUnauthenticated = errors.New("unauthenticated")
	errInvalidID       = errors.New("id must be a positive integer")
	errInternal        = errors.New("internal server error")
)

func (a *API) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			respondError(w, http.StatusUnauthorized, errUnauthenticated)
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := a.sessionSvc.Resolve(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, errUnauthenticated)
			return
		}

		ctx := context.WithValue(r.Context(), ctxShopperKey{}, claims.ShopperID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// noticeMiddleware lets handlers read back notices raised while serving
// the request.
func noticeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(notify.WithRecorder(r.Context())))
	})
}

func getShopperID(ctx context.Context) string {
	id, _ := ctx.Value(ctxShopperKey{}).(string)
	return id
}
