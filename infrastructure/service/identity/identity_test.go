package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankboard/portalgate/infrastructure/config"
	"github.com/rankboard/portalgate/infrastructure/service/logger"
)

func oauthConfig(tokenURL string) *config.Config {
	return &config.Config{
		IdentityProvider:  config.IdentityOAuth,
		OAuthTokenURL:     tokenURL,
		OAuthClientID:     "portal-client",
		OAuthClientSecret: "s3cret",
		OAuthRedirectURL:  "https://portal.example.com/callback",
	}
}

func TestOAuthProvider_ExchangesCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "abc123", r.PostForm.Get("code"))
		assert.Equal(t, "portal-client", r.PostForm.Get("client_id"))
		assert.Equal(t, "s3cret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "https://portal.example.com/callback", r.PostForm.Get("redirect_uri"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id_token":     "eyJ.id.token",
			"access_token": "provider-access",
		})
	}))
	defer server.Close()

	provider := NewOAuthProvider(oauthConfig(server.URL), logger.NewNopLogger())
	cred, err := provider.Credential(context.Background(), " abc123 ")
	require.NoError(t, err)
	assert.Equal(t, "eyJ.id.token", cred)
	assert.Equal(t, config.IdentityOAuth, provider.Name())
}

func TestOAuthProvider_FallsBackToAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "provider-access", "token_type": "Bearer"})
	}))
	defer server.Close()

	cred, err := NewOAuthProvider(oauthConfig(server.URL), logger.NewNopLogger()).Credential(context.Background(), "code")
	require.NoError(t, err)
	assert.Equal(t, "provider-access", cred)
}

func TestOAuthProvider_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"invalid grant", http.StatusBadRequest, `{"error":"invalid_grant","error_description":"code expired"}`, "invalid_grant: code expired"},
		{"bare error status", http.StatusUnauthorized, `{}`, "status 401"},
		{"not json", http.StatusOK, `<html/>`, "unusable token response"},
		{"no token", http.StatusOK, `{"token_type":"Bearer"}`, "missing access_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewOAuthProvider(oauthConfig(server.URL), logger.NewNopLogger()).Credential(context.Background(), "code")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOAuthProvider_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	tokenURL := server.URL
	server.Close()

	_, err := NewOAuthProvider(oauthConfig(tokenURL), logger.NewNopLogger()).Credential(context.Background(), "code")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identity provider unavailable")
}

func TestOAuthProvider_EmptyCode(t *testing.T) {
	_, err := NewOAuthProvider(oauthConfig("http://127.0.0.1:1"), logger.NewNopLogger()).Credential(context.Background(), "  ")
	assert.Error(t, err)
}

func TestStaticProvider(t *testing.T) {
	provider := NewStaticProvider(logger.NewNopLogger())

	cred, err := provider.Credential(context.Background(), "  id-token \n")
	require.NoError(t, err)
	assert.Equal(t, "id-token", cred)

	_, err = provider.Credential(context.Background(), "")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	p, err := New(&config.Config{}, logger.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, config.IdentityStatic, p.Name())

	p, err = New(oauthConfig("https://idp.example.com/token"), logger.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, config.IdentityOAuth, p.Name())

	_, err = New(&config.Config{IdentityProvider: "saml"}, logger.NewNopLogger())
	assert.ErrorIs(t, err, config.ErrInvalidIdentity)
}
