package middleware

import (
	"log"
	"net/http"
	"runtime/debug"
)

// Recover captura panics, loga a stack com o request id e devolve um JSON
// consistente. Nenhum detalhe interno vaza para o cliente.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				rid := RequestIDFromContext(r.Context())
				log.Printf("[panic] request_id=%s %s %s err=%v\n%s", rid, r.Method, r.URL.Path, rec, debug.Stack())
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"internal"}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
