package middleware

import (
	"net/http"

	"github.com/rankboard/portalgate/domain/entity"
	apperr "github.com/rankboard/portalgate/domain/error"
	"github.com/rankboard/portalgate/infrastructure/http/response"
)

// SessionReader reports the current session.
type SessionReader interface {
	Current() (entity.UserProfile, bool)
}

// RequireSession rejects requests while no session with a recognized role
// is held. The backend still checks the bearer token itself; this only saves
// it calls that cannot succeed.
func RequireSession(session SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile, ok := session.Current()
			if !ok {
				response.AppError(w, apperr.ErrNoSession())
				return
			}
			if !profile.Role.Valid() {
				response.AppError(w, apperr.ErrUnrecognizedRole(string(profile.Role)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
