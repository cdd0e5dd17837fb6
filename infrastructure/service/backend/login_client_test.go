package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankboard/portalgate/application/port/outbound"
	apperr "github.com/rankboard/portalgate/domain/error"
	"github.com/rankboard/portalgate/infrastructure/config"
	"github.com/rankboard/portalgate/infrastructure/service/logger"
)

func newTestClient(baseURL string) *LoginClient {
	return NewLoginClient(&config.Config{
		BackendBaseURL:         baseURL + "/",
		BackendMemberLoginPath: "/api/auth/member/login",
		BackendAdminLoginPath:  "/api/auth/admin/login",
		BackendStaffLoginPath:  "/api/auth/staff/login",
		BackendTimeout:         2 * time.Second,
	}, logger.NewNopLogger())
}

func TestLoginClient_PostsCredentialAsJSONString(t *testing.T) {
	var gotPath, gotBody, gotType, gotCorrelation string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotCorrelation = r.Header.Get("X-Correlation-ID")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success":      true,
			"accessToken":  "T1",
			"refreshToken": "R1",
		})
	}))
	defer server.Close()

	ctx := logger.WithCorrelationID(context.Background(), "cid-9")
	result, err := newTestClient(server.URL).Login(ctx, outbound.LoginPortalAdmin, `tok"en`)
	require.NoError(t, err)

	assert.Equal(t, "/api/auth/admin/login", gotPath)
	assert.Equal(t, `"tok\"en"`, gotBody)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "cid-9", gotCorrelation)
	assert.True(t, result.Success)
	assert.Equal(t, "T1", result.AccessToken)
	assert.Equal(t, "R1", result.RefreshToken)
}

func TestLoginClient_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"explicit denial", http.StatusOK, `{"success":false,"message":"not staff"}`},
		{"unauthorized with body", http.StatusUnauthorized, `{"success":true,"message":"expired"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			result, err := newTestClient(server.URL).Login(context.Background(), outbound.LoginPortalStaff, "cred")
			require.NoError(t, err)
			assert.False(t, result.Success)
			assert.NotEmpty(t, result.Message)
		})
	}
}

func TestLoginClient_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusBadGateway, `{"success":false}`},
		{"html body", http.StatusOK, `<html>maintenance</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Login(context.Background(), outbound.LoginPortalMember, "cred")
			assert.ErrorIs(t, err, apperr.ErrUpstreamResponse("", 0))
			assert.True(t, apperr.IsRejection(err))
		})
	}
}

func TestLoginClient_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newTestClient(url).Login(context.Background(), outbound.LoginPortalAdmin, "cred")
	assert.ErrorIs(t, err, apperr.ErrNetworkFailure("", nil))
	assert.True(t, apperr.IsRejection(err))
}

func TestLoginClient_UnknownPortal(t *testing.T) {
	_, err := newTestClient("http://127.0.0.1:1").Login(context.Background(), outbound.LoginPortal("partner"), "cred")
	assert.Error(t, err)
	assert.False(t, apperr.IsRejection(err))
}
