package auth

import (
	"errors"
	"net/http"

	"github.com/aks-o/voxlink-sub005/observe"
)

// Require returns middleware admitting only requests that authn accepts and
// whose identity holds one of roles. Rejected credentials answer 401;
// a missing role answers 403. The identity is attached to the request
// context.
func Require(authn Authenticator, logger observe.Logger, roles ...string) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if !authn.Supports(r) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="voxlink"`)
				http.Error(w, ErrMissingCredentials.Error(), http.StatusUnauthorized)
				return
			}

			id, err := authn.Authenticate(ctx, r)
			if err != nil {
				if isRejection(err) {
					logger.Warn(ctx, "operator authentication rejected",
						observe.F("path", r.URL.Path),
						observe.Err(err),
					)
					http.Error(w, err.Error(), http.StatusUnauthorized)
					return
				}
				logger.Error(ctx, "operator authentication failed", observe.Err(err))
				http.Error(w, "authentication unavailable", http.StatusInternalServerError)
				return
			}

			if !id.HasAnyRole(roles...) {
				logger.Warn(ctx, "operator lacks role",
					observe.F("principal", id.Principal),
					observe.F("path", r.URL.Path),
				)
				http.Error(w, ErrForbidden.Error(), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, id)))
		})
	}
}

func isRejection(err error) bool {
	return errors.Is(err, ErrMissingCredentials) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenMalformed)
}
