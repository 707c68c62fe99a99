package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipped(t *testing.T, s string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func gunzip(t *testing.T, b []byte) string {
	t.Helper()

	zr, err := gzip.NewReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer zr.Close()

	out, err := io.ReadAll(zr)
	require.NoError(t, err)
	return string(out)
}

type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

func TestGzipCompressesListedTypes(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		compressed  bool
	}{
		{name: "json", contentType: "application/json", compressed: true},
		{name: "json with charset", contentType: "application/json; charset=utf-8", compressed: true},
		{name: "html", contentType: "text/html", compressed: true},
		{name: "plain text", contentType: "text/plain", compressed: true},
		{name: "image", contentType: "image/png", compressed: false},
		{name: "octet stream", contentType: "application/octet-stream", compressed: false},
	}

	const payload = `{"status":"In progress","remains":50}`

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Gzip(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				_, _ = w.Write([]byte(payload))
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/user/orders", nil)
			req.Header.Set("Accept-Encoding", "gzip")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			if tt.compressed {
				assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
				assert.Equal(t, payload, gunzip(t, rec.Body.Bytes()))
				return
			}
			assert.Empty(t, rec.Header().Get("Content-Encoding"))
			assert.Equal(t, payload, rec.Body.String())
		})
	}
}

func TestGzipSkipsClientsWithoutGzip(t *testing.T) {
	h := Gzip(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/user/balance", nil))

	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, `{}`, rec.Body.String())
}

func TestDecompressRequest(t *testing.T) {
	const payload = `{"service_id":42,"link":"https://instagram.com/p/1","quantity":100}`

	var (
		got      string
		encoding string
		length   int64
	)
	h := DecompressRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		got = string(b)
		encoding = r.Header.Get("Content-Encoding")
		length = r.ContentLength
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/user/orders", bytes.NewReader(gzipped(t, payload)))
	req.Header.Set("Content-Encoding", "gzip")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, payload, got)
	assert.Empty(t, encoding)
	assert.Equal(t, int64(-1), length)
}

func TestDecompressRequestPassesPlainBody(t *testing.T) {
	var got string
	h := DecompressRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got = string(b)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("plain")))

	assert.Equal(t, "plain", got)
}

func TestDecompressRequestClosesOriginalBody(t *testing.T) {
	body := &trackingBody{Reader: bytes.NewReader(gzipped(t, "payload"))}

	h := DecompressRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.ReadAll(r.Body)
		require.NoError(t, r.Body.Close())
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Body = body
	req.Header.Set("Content-Encoding", "gzip")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, body.closed)
}

func TestDecompressRequestRejectsBrokenBody(t *testing.T) {
	called := false
	h := Gzip(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/user/orders", strings.NewReader("not gzip"))
	req.Header.Set("Content-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)
}
