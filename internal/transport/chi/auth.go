package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// adminKeyHeader is accepted alongside "Authorization: Bearer" for the admin console,
// which cannot set the Authorization header on its upload form posts.
const adminKeyHeader = "X-Admin-Key"

// AdminAuth guards the ingest and re-embed routes. Keys are trimmed; blank keys
// are ignored, and with no keys left every request passes.
func AdminAuth(apiKeys []string) func(http.Handler) http.Handler {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, msg := credential(r)
			if msg == "" && !anyKeyMatches(keys, token) {
				msg = "invalid api key"
			}
			if msg != "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="faq-admin"`)
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// credential extracts the presented key, or a rejection message.
func credential(r *http.Request) (token, msg string) {
	if k := r.Header.Get(adminKeyHeader); k != "" {
		return k, ""
	}
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", "missing credentials"
	}
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", "authorization header must use Bearer scheme"
	}
	return token, ""
}

// anyKeyMatches compares against every key so timing does not reveal which one matched.
func anyKeyMatches(keys [][]byte, token string) bool {
	match := 0
	for _, k := range keys {
		match |= subtle.ConstantTimeCompare(k, []byte(token))
	}
	return match == 1
}
