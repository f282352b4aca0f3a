package middleware

import (
	"net/http"
)

// BodySizeLimit caps incoming request bodies at maxBytes. Project
// import files are the largest payloads the API accepts; anything past
// the cap is a mistake or an attack, not a project. A non-positive
// limit disables the middleware.
func BodySizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			// A declared Content-Length over the cap is rejected before
			// any of the body is read.
			if r.ContentLength > maxBytes {
				http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
				return
			}

			// Chunked and mis-declared bodies hit the reader cap instead.
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

			next.ServeHTTP(w, r)
		})
	}
}
