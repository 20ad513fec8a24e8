package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/marketfold/shopedge/internal/apierr"
	"github.com/marketfold/shopedge/internal/auth"
)

// UserIDHeader carries the resolved user id to downstream handlers, matching
// what the edge gateway injects for internal services.
const UserIDHeader = "X-User-Id"

type principalKeyType struct{}

var principalKey principalKeyType

// Auth returns a middleware that authenticates requests with the given
// validator. Paths under a public prefix pass through untouched.
func Auth(validator auth.Validator, publicPrefixes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path, publicPrefixes) {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				apierr.WriteErrorWithContext(w, r, apierr.AuthMissing(""))
				return
			}

			principal, err := validator.Validate(r.Context(), token)
			if err != nil {
				apierr.WriteErrorWithContext(w, r, apierr.AuthInvalid(""))
				return
			}

			r.Header.Set(UserIDHeader, strconv.FormatInt(principal.UserID, 10))
			ctx := context.WithValue(r.Context(), principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFrom returns the authenticated principal, if any.
func PrincipalFrom(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey).(auth.Principal)
	return p, ok
}

func isPublicPath(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
