package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/rankboard/portalgate/application/port/inbound"
	apperr "github.com/rankboard/portalgate/domain/error"
	"github.com/rankboard/portalgate/infrastructure/http/response"
	"github.com/rankboard/portalgate/infrastructure/service/logger"
)

// LoginRateLimit bounds login attempts per client IP. Once a client uses up
// Attempts within Window it is blocked for BlockDuration.
type LoginRateLimit struct {
	service       inbound.RateLimitService
	logger        logger.Logger
	attempts      int
	window        time.Duration
	blockDuration time.Duration
	trusted       []netip.Prefix
}

func NewLoginRateLimit(service inbound.RateLimitService, log logger.Logger, attempts int, window, blockDuration time.Duration) *LoginRateLimit {
	if attempts <= 0 {
		attempts = 10
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	if blockDuration <= 0 {
		blockDuration = 30 * time.Minute
	}
	return &LoginRateLimit{
		service:       service,
		logger:        log,
		attempts:      attempts,
		window:        window,
		blockDuration: blockDuration,
	}
}

// WithTrustedProxies lets the limiter read the client address from
// forwarding headers set by the given proxies.
func (m *LoginRateLimit) WithTrustedProxies(proxies []netip.Prefix) *LoginRateLimit {
	m.trusted = proxies
	return m
}

func (m *LoginRateLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.service == nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		clientIP := ClientIP(r, m.trusted)
		key := fmt.Sprintf("login:ip:%s", clientIP)

		// storage errors let the request through
		blocked, err := m.service.IsBlocked(ctx, key)
		if err != nil {
			m.logger.Error(ctx, "Failed to check block status", err, map[string]interface{}{"key": key})
		}
		if blocked {
			logger.LogSecurityEvent(ctx, m.logger, "rate_limit_blocked", "MEDIUM", map[string]interface{}{
				"ip":        clientIP,
				"path":      r.URL.Path,
				"userAgent": r.UserAgent(),
			})
			m.reject(w, m.blockDuration)
			return
		}

		allowed, err := m.service.CheckLimit(ctx, key, m.attempts, m.window)
		if err != nil {
			m.logger.Error(ctx, "Failed to check rate limit", err, map[string]interface{}{"key": key})
			allowed = true
		}
		if !allowed {
			if err := m.service.Block(ctx, key, m.blockDuration, "login rate limit exceeded"); err != nil {
				m.logger.Error(ctx, "Failed to block client", err, map[string]interface{}{"key": key})
			}
			logger.LogSecurityEvent(ctx, m.logger, "rate_limit_exceeded", "HIGH", map[string]interface{}{
				"ip":        clientIP,
				"path":      r.URL.Path,
				"userAgent": r.UserAgent(),
			})
			m.reject(w, m.blockDuration)
			return
		}

		if err := m.service.Increment(ctx, key, m.window); err != nil {
			m.logger.Error(ctx, "Failed to count login attempt", err, map[string]interface{}{"key": key})
		}
		next.ServeHTTP(w, r)
	})
}

func (m *LoginRateLimit) reject(w http.ResponseWriter, retryAfter time.Duration) {
	w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	response.AppError(w, apperr.ErrRateLimitExceeded(m.attempts, m.window.String()))
}

// ClientIP returns the socket address unless the peer is one of trusted. A
// trusted peer's X-Forwarded-For is walked from the right and the first hop
// outside trusted is the client; X-Real-IP is the fallback.
func ClientIP(r *http.Request, trusted []netip.Prefix) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !isTrustedProxy(peer, trusted) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop != "" && !isTrustedProxy(hop, trusted) {
				return hop
			}
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return peer
}

func isTrustedProxy(ip string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
