package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout cancela o context da request após timeoutSec segundos; queries e
// chamadas externas em andamento recebem o cancelamento. 0 desliga.
func Timeout(timeoutSec int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeoutSec <= 0 {
			return next
		}
		d := time.Duration(timeoutSec) * time.Second
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
