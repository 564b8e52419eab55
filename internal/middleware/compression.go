// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

var gzipPool = sync.Pool{
	New: func() any { return gzip.NewWriter(io.Discard) },
}

// Compression gzips JSON responses for clients that accept gzip. The
// decision is made when the handler writes its header, so errors and
// empty responses (HEAD, 204, 304) go out uncompressed.
func Compression(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead || !acceptsGzip(r.Header.Get("Accept-Encoding")) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Add("Vary", "Accept-Encoding")

		lw := &lazyGzipWriter{ResponseWriter: w}
		defer lw.finish()
		next.ServeHTTP(lw, r)
	})
}

func acceptsGzip(header string) bool {
	for _, part := range strings.Split(header, ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(coding), "gzip") {
			continue
		}
		return strings.ReplaceAll(strings.TrimSpace(params), " ", "") != "q=0"
	}
	return false
}

// lazyGzipWriter picks identity or gzip on the first WriteHeader.
type lazyGzipWriter struct {
	http.ResponseWriter
	gz      *gzip.Writer
	decided bool
}

func (lw *lazyGzipWriter) WriteHeader(status int) {
	if lw.decided {
		return
	}
	lw.decided = true

	h := lw.Header()
	compressible := status != http.StatusNoContent &&
		status != http.StatusNotModified &&
		h.Get("Content-Encoding") == "" &&
		strings.HasPrefix(h.Get("Content-Type"), "application/json")
	if compressible {
		h.Set("Content-Encoding", "gzip")
		h.Del("Content-Length")
		gz := gzipPool.Get().(*gzip.Writer)
		gz.Reset(lw.ResponseWriter)
		lw.gz = gz
	}
	lw.ResponseWriter.WriteHeader(status)
}

func (lw *lazyGzipWriter) Write(b []byte) (int, error) {
	if !lw.decided {
		lw.WriteHeader(http.StatusOK)
	}
	if lw.gz != nil {
		return lw.gz.Write(b)
	}
	return lw.ResponseWriter.Write(b)
}

func (lw *lazyGzipWriter) finish() {
	if lw.gz == nil {
		return
	}
	_ = lw.gz.Close() //nolint:errcheck // response already committed
	gzipPool.Put(lw.gz)
	lw.gz = nil
}
