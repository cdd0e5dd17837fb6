package middleware

import (
	"net/http"

	"github.com/rankboard/portalgate/domain/routing"
)

// PortalHeader names the portal a rendered page belongs to.
const PortalHeader = "X-Portal"

// Router is the part of the session the gate needs.
type Router interface {
	Route(path string) routing.Decision
}

// RoleGate evaluates the role gate for every page navigation. Redirects are
// answered with 302; renders are passed to next with the portal in
// PortalHeader. Only GET and HEAD are gated; other methods get 405.
func RoleGate(session Router) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				w.Header().Set("Allow", "GET, HEAD")
				http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
				return
			}

			decision := session.Route(r.URL.Path)
			w.Header().Set("Cache-Control", "no-store")
			if decision.IsRedirect() {
				http.Redirect(w, r, decision.Location, http.StatusFound)
				return
			}

			w.Header().Set(PortalHeader, string(decision.Portal))
			next.ServeHTTP(w, r)
		})
	}
}
