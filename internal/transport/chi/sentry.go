package chi

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// SentryMiddleware puts a per-request hub on the context so captures carry request tags.
// Panics are reported and re-raised for the recoverer. It is a no-op without an initialized client.
func SentryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}
		hub.Scope().SetRequest(r)
		if id := chiMiddleware.GetReqID(r.Context()); id != "" {
			hub.Scope().SetTag("request_id", id)
		}
		r = r.WithContext(sentry.SetHubOnContext(r.Context(), hub))

		defer func() {
			if rvr := recover(); rvr != nil {
				hub.RecoverWithContext(r.Context(), rvr)
				panic(rvr)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
