// Package gateway assembles the portal gateway: the session API, the role
// gate in front of the SPA shell and the authenticated proxy to the backend.
//
// The gateway is single-user: one process holds one session and every
// proxied call carries its bearer token. Bind it to loopback (the default
// SERVER_HOST is localhost) or put it behind something that authenticates
// the user; cross-site browser requests are refused by SameOrigin.
package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"

	"github.com/rankboard/portalgate/application/port/inbound"
	"github.com/rankboard/portalgate/infrastructure/config"
	"github.com/rankboard/portalgate/infrastructure/http/handler"
	"github.com/rankboard/portalgate/infrastructure/http/middleware"
	"github.com/rankboard/portalgate/infrastructure/http/response"
	"github.com/rankboard/portalgate/infrastructure/service/logger"
)

type Dependencies struct {
	Config      *config.Config
	Logger      logger.Logger
	Auth        inbound.AuthUseCase
	Session     inbound.SessionUseCase
	RateLimiter inbound.RateLimitService
	// BackendTransport carries /api calls; normally a backend.BearerTransport.
	BackendTransport http.RoundTripper
}

// NewRouter wires every route of the gateway.
func NewRouter(deps Dependencies) (http.Handler, error) {
	cfg := deps.Config
	router := mux.NewRouter()

	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.CorrelationID(cfg.LogCorrelationIDHeader))
	router.Use(middleware.RequestLogger(deps.Logger))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, http.StatusOK, "healthy", nil)
	}).Methods(http.MethodGet)

	limiter := middleware.NewLoginRateLimit(
		deps.RateLimiter,
		deps.Logger,
		cfg.RateLimitLoginAttempts,
		cfg.RateLimitLoginWindow,
		cfg.RateLimitBlockDuration,
	).WithTrustedProxies(cfg.TrustedProxies)
	var trustedOrigins []string
	if cfg.CORSEnabled {
		trustedOrigins = cfg.CORSAllowedOrigins
	}
	sameOrigin := middleware.SameOrigin(trustedOrigins, deps.Logger)

	handler.NewSessionHandler(deps.Auth, deps.Session).RegisterRoutes(router, limiter.Middleware, sameOrigin)

	proxy, err := newBackendProxy(cfg.BackendBaseURL, deps.BackendTransport, deps.Logger)
	if err != nil {
		return nil, err
	}
	api := router.PathPrefix("/api/").Subrouter()
	api.Use(sameOrigin)
	api.Use(middleware.RequireSession(deps.Session))
	api.PathPrefix("/").Handler(proxy)

	if cfg.StaticDir != "" {
		assets := http.StripPrefix("/assets/", http.FileServer(http.Dir(filepath.Join(cfg.StaticDir, "assets"))))
		router.PathPrefix("/assets/").Handler(assets)
	}

	router.PathPrefix("/").Handler(middleware.RoleGate(deps.Session)(newShellHandler(cfg.StaticDir)))

	var h http.Handler = router
	if cfg.CORSEnabled && len(cfg.CORSAllowedOrigins) > 0 {
		h = middleware.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials)(h)
	}
	return h, nil
}

// newBackendProxy forwards /api/... unchanged to the backend.
func newBackendProxy(baseURL string, transport http.RoundTripper, log logger.Logger) (http.Handler, error) {
	target, err := url.Parse(baseURL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidBackendURL, baseURL)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.Transport = transport
	director := proxy.Director
	proxy.Director = func(r *http.Request) {
		director(r)
		r.Host = target.Host
		r.Header.Del("Cookie")
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error(r.Context(), "Backend proxy failed", err, map[string]interface{}{"path": r.URL.Path})
		response.Error(w, http.StatusBadGateway, "Backend is unreachable")
	}
	return proxy, nil
}

const defaultShell = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Rankboard</title></head>
<body><div id="root"></div><script type="module" src="/assets/index.js"></script></body>
</html>
`

// newShellHandler serves the SPA entry page for every rendered portal. The
// portal itself is picked client-side from the X-Portal header.
func newShellHandler(staticDir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if staticDir != "" {
			index := filepath.Join(staticDir, "index.html")
			if _, err := os.Stat(index); err == nil {
				http.ServeFile(w, r, index)
				return
			}
		}
		_, _ = w.Write([]byte(defaultShell))
	})
}
