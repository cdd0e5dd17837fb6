package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/rankboard/portalgate/application/port/outbound"
	"github.com/rankboard/portalgate/infrastructure/config"
	"github.com/rankboard/portalgate/infrastructure/service/logger"
)

// staticProvider treats the grant as the credential itself, for setups where
// the identity token is obtained outside this process.
type staticProvider struct {
	logger logger.Logger
}

func NewStaticProvider(log logger.Logger) outbound.IdentityProvider {
	return &staticProvider{logger: log}
}

func (s *staticProvider) Name() string {
	return config.IdentityStatic
}

func (s *staticProvider) Credential(ctx context.Context, grant string) (string, error) {
	grant = strings.TrimSpace(grant)
	if grant == "" {
		return "", fmt.Errorf("credential is required")
	}
	if s.logger != nil {
		s.logger.Debug(ctx, "static identity: grant passed through", nil)
	}
	return grant, nil
}

// New picks the provider named by cfg.IdentityProvider.
func New(cfg *config.Config, log logger.Logger) (outbound.IdentityProvider, error) {
	switch cfg.IdentityProvider {
	case "", config.IdentityStatic:
		return NewStaticProvider(log), nil
	case config.IdentityOAuth:
		return NewOAuthProvider(cfg, log), nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrInvalidIdentity, cfg.IdentityProvider)
	}
}
