// Package identity obtains the opaque credential the backend login
// endpoints accept.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/rankboard/portalgate/application/port/outbound"
	"github.com/rankboard/portalgate/infrastructure/config"
	"github.com/rankboard/portalgate/infrastructure/service/logger"
)

// oauthProvider exchanges an authorization code at the provider's token
// endpoint and returns the issued ID token.
type oauthProvider struct {
	oauth      *oauth2.Config
	logger     logger.Logger
	httpClient *http.Client
}

func NewOAuthProvider(cfg *config.Config, log logger.Logger) outbound.IdentityProvider {
	timeout := cfg.IdentityTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &oauthProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.OAuthTokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		logger:     log,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *oauthProvider) Name() string {
	return config.IdentityOAuth
}

// Credential trades grant (an authorization code) for the provider's ID
// token. Providers that issue no ID token fall back to the access token.
func (p *oauthProvider) Credential(ctx context.Context, grant string) (string, error) {
	grant = strings.TrimSpace(grant)
	if grant == "" {
		return "", fmt.Errorf("authorization code is required")
	}

	tok, err := p.oauth.Exchange(context.WithValue(ctx, oauth2.HTTPClient, p.httpClient), grant)
	if err != nil {
		return "", p.exchangeError(ctx, err)
	}

	if idToken, ok := tok.Extra("id_token").(string); ok && idToken != "" {
		return idToken, nil
	}
	return tok.AccessToken, nil
}

func (p *oauthProvider) exchangeError(ctx context.Context, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		p.logger.Warn(ctx, "Identity provider refused the code", map[string]interface{}{
			"status": status,
			"error":  retrieveErr.ErrorCode,
		})
		if retrieveErr.ErrorCode != "" {
			return fmt.Errorf("code exchange failed: %s: %s", retrieveErr.ErrorCode, retrieveErr.ErrorDescription)
		}
		return fmt.Errorf("code exchange failed with status %d", status)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		p.logger.Error(ctx, "Identity token request failed", err, nil)
		return fmt.Errorf("identity provider unavailable: %w", err)
	}
	return fmt.Errorf("unusable token response: %w", err)
}
