package middleware

import "net/http"

// MaxRequestBodySize is the maximum size of request bodies (1MB). Cart and
// catalog payloads are small; anything larger is abuse.
const MaxRequestBodySize = 1 << 20

// ValidateRequestBody caps request body size on mutating methods.
func ValidateRequestBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
		}
		next.ServeHTTP(w, r)
	})
}
