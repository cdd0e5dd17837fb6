package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rankboard/portalgate/application/port/outbound"
	apperr "github.com/rankboard/portalgate/domain/error"
	"github.com/rankboard/portalgate/infrastructure/config"
	"github.com/rankboard/portalgate/infrastructure/service/logger"
)

// maxResponseBytes caps how much of a login response is read.
const maxResponseBytes = 1 << 20

// LoginClient calls the backend login endpoints.
type LoginClient struct {
	baseURL    string
	paths      map[outbound.LoginPortal]string
	httpClient *http.Client
	logger     logger.Logger
}

var _ outbound.LoginGateway = (*LoginClient)(nil)

// NewLoginClient builds a client for the endpoints named in cfg.
func NewLoginClient(cfg *config.Config, log logger.Logger) *LoginClient {
	timeout := cfg.BackendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LoginClient{
		baseURL: strings.TrimRight(cfg.BackendBaseURL, "/"),
		paths: map[outbound.LoginPortal]string{
			outbound.LoginPortalMember: cfg.BackendMemberLoginPath,
			outbound.LoginPortalAdmin:  cfg.BackendAdminLoginPath,
			outbound.LoginPortalStaff:  cfg.BackendStaffLoginPath,
		},
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.WithFields(map[string]interface{}{"component": "backend_login"}),
	}
}

// Login posts credential as a JSON string. An explicit denial, whether
// carried by a 2xx or a 4xx answer, comes back as a result with Success
// false. Transport failures and unreadable answers are errors.
func (c *LoginClient) Login(ctx context.Context, portal outbound.LoginPortal, credential string) (*outbound.LoginResult, error) {
	path, ok := c.paths[portal]
	if !ok || path == "" {
		return nil, fmt.Errorf("no login endpoint configured for %q", portal)
	}
	endpoint := c.baseURL + path

	body, err := json.Marshal(credential)
	if err != nil {
		return nil, fmt.Errorf("failed to encode credential: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if id := logger.CorrelationID(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn(ctx, "Backend login request failed", map[string]interface{}{
			"portal": string(portal),
			"error":  err.Error(),
		})
		return nil, apperr.ErrNetworkFailure(string(portal), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperr.ErrNetworkFailure(string(portal), err)
	}

	var result outbound.LoginResult
	if err := json.Unmarshal(raw, &result); err != nil || resp.StatusCode >= http.StatusInternalServerError {
		c.logger.Warn(ctx, "Unexpected backend login response", map[string]interface{}{
			"portal": string(portal),
			"status": resp.StatusCode,
		})
		return nil, apperr.ErrUpstreamResponse(string(portal), resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		result.Success = false
	}

	c.logger.Debug(ctx, "Backend login answered", map[string]interface{}{
		"portal":  string(portal),
		"status":  resp.StatusCode,
		"success": result.Success,
	})
	return &result, nil
}
