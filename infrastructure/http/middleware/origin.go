package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/rankboard/portalgate/infrastructure/http/response"
	"github.com/rankboard/portalgate/infrastructure/service/logger"
)

// SameOrigin refuses browser requests issued by pages outside the gateway's
// own origin and allowedOrigins. The gateway holds a single session for the
// whole process and attaches its bearer token to proxied calls, so a foreign
// page must not be able to reach the session API or the proxy, not even with
// "simple" requests that CORS lets through.
//
// Requests carrying neither Origin nor Sec-Fetch-Site (curl, server-side
// callers) pass.
func SameOrigin(allowedOrigins []string, log logger.Logger) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if originPermitted(r, allowed) {
				next.ServeHTTP(w, r)
				return
			}
			logger.LogSecurityEvent(r.Context(), log, "cross_site_request_refused", "HIGH", map[string]interface{}{
				"origin":         r.Header.Get("Origin"),
				"sec_fetch_site": r.Header.Get("Sec-Fetch-Site"),
				"method":         r.Method,
				"path":           r.URL.Path,
			})
			response.Error(w, http.StatusForbidden, "Cross-site request refused")
		})
	}
}

func originPermitted(r *http.Request, allowed map[string]struct{}) bool {
	if origin := r.Header.Get("Origin"); origin != "" {
		if _, ok := allowed[origin]; ok {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host != "" && strings.EqualFold(u.Host, r.Host)
	}

	switch r.Header.Get("Sec-Fetch-Site") {
	case "", "same-origin", "none":
		return true
	default:
		return false
	}
}
