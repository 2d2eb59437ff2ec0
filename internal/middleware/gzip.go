package middleware

import (
	"compress/gzip"
	"net/http"
	"strings"
	"sync"
)

var gzipPool = sync.Pool{
	New: func() interface{} { return gzip.NewWriter(nil) },
}

type gzipResponseWriter struct {
	http.ResponseWriter
	gz         *gzip.Writer
	headerSent bool
}

func (g *gzipResponseWriter) WriteHeader(code int) {
	if g.headerSent {
		return
	}
	g.headerSent = true
	h := g.ResponseWriter.Header()
	h.Set("Content-Encoding", "gzip")
	h.Del("Content-Length")
	g.ResponseWriter.WriteHeader(code)
	g.gz.Reset(g.ResponseWriter)
}

func (g *gzipResponseWriter) Write(p []byte) (int, error) {
	if !g.headerSent {
		g.WriteHeader(http.StatusOK)
	}
	return g.gz.Write(p)
}

// Gzip comprime a resposta quando o cliente aceita. Handlers não devem
// definir Content-Length; o middleware o remove ao comprimir.
func Gzip(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzipPool.Get().(*gzip.Writer)
		gw := &gzipResponseWriter{ResponseWriter: w, gz: gz}
		defer func() {
			if gw.headerSent {
				_ = gz.Close()
			}
			gzipPool.Put(gz)
		}()
		next.ServeHTTP(gw, r)
	})
}
