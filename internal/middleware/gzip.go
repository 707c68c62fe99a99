package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
)

var compressibleTypes = []string{
	"application/json",
	"text/html",
	"text/plain",
}

// Gzip распаковывает тела запросов в gzip и сжимает ответы, если клиент поддерживает gzip.
func Gzip(next http.Handler) http.Handler {
	return chimw.Compress(gzip.DefaultCompression, compressibleTypes...)(DecompressRequest(next))
}

// DecompressRequest подменяет тело запроса с Content-Encoding: gzip распакованным потоком.
func DecompressRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Content-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}

		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		r.Body = &gzipBody{Reader: gz, orig: r.Body}
		r.Header.Del("Content-Encoding")
		r.ContentLength = -1

		next.ServeHTTP(w, r)
	})
}

type gzipBody struct {
	*gzip.Reader
	orig io.ReadCloser
}

func (b *gzipBody) Close() error {
	if err := b.Reader.Close(); err != nil {
		_ = b.orig.Close()
		return err
	}
	return b.orig.Close()
}
