package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"mercator-hq/gatehouse/pkg/admission"
)

// IdentityFunc extracts the caller identity from a request. Returning an
// empty string skips the admission check for that request.
type IdentityFunc func(*http.Request) string

// IdentityFromHeader returns an IdentityFunc reading the given header.
func IdentityFromHeader(header string) IdentityFunc {
	return func(r *http.Request) string {
		return r.Header.Get(header)
	}
}

// Admit guards a handler with an admission check for one operation class.
// Denied requests get 429 Too Many Requests with a Retry-After header;
// admitted requests carry X-RateLimit-Limit and X-RateLimit-Remaining.
//
// This is the embedding surface: services that vendor the admission core
// into their own HTTP stack wrap their sensitive handlers with it.
//
//	mux.Handle("/login", middleware.Admit(svc, "login", identify)(loginHandler))
func Admit(svc *admission.Service, operation string, identify IdentityFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := identify(r)
			if identity == "" {
				next.ServeHTTP(w, r)
				return
			}

			decision, err := svc.Check(identity, operation)
			if err != nil {
				if errors.Is(err, admission.ErrInvalidIdentity) ||
					errors.Is(err, admission.ErrInvalidOperation) {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
				http.Error(w, "internal error checking admission", http.StatusInternalServerError)
				return
			}

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", decision.Remaining))

			if !decision.Allowed {
				retrySeconds := int(math.Ceil(decision.RetryAfter.Seconds()))
				if retrySeconds < 1 {
					retrySeconds = 1
				}
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retrySeconds))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error":               "too many requests",
					"reason":              decision.Reason,
					"retry_after_seconds": retrySeconds,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
