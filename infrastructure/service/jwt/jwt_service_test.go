package jwt

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankboard/portalgate/domain/entity"
	"github.com/rankboard/portalgate/infrastructure/config"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return token
}

func TestJWTService(t *testing.T) {
	service, err := NewJWTService(&config.Config{})
	require.NoError(t, err)

	t.Run("DecodeMemberToken", func(t *testing.T) {
		issued := time.Unix(1700000000, 0).UTC()
		token := signedToken(t, jwt.MapClaims{
			"email":    "a@b.com",
			"fullName": "Ada Lovelace",
			"role":     "User",
			"userId":   "17",
			"exp":      issued.Add(time.Hour).Unix(),
			"iat":      issued.Unix(),
		})

		claims, err := service.DecodeAccessToken(token)
		require.NoError(t, err)
		assert.Equal(t, entity.RoleMember, claims.Role)
		assert.Equal(t, "a@b.com", claims.Email)
		assert.Equal(t, "Ada Lovelace", claims.FullName)
		require.NotNil(t, claims.UserID)
		assert.Equal(t, int64(17), *claims.UserID)
		require.NotNil(t, claims.IssuedAt)
		assert.True(t, issued.Equal(*claims.IssuedAt))
		require.NotNil(t, claims.ExpiresAt)
		assert.True(t, issued.Add(time.Hour).Equal(*claims.ExpiresAt))
		assert.Equal(t, "User", claims.Raw["role"])
	})

	t.Run("NumericUserID", func(t *testing.T) {
		claims, err := service.DecodeAccessToken(signedToken(t, jwt.MapClaims{"role": "Admin", "userId": 9}))
		require.NoError(t, err)
		require.NotNil(t, claims.UserID)
		assert.Equal(t, int64(9), *claims.UserID)
	})

	t.Run("MissingUserIDStaysAbsent", func(t *testing.T) {
		claims, err := service.DecodeAccessToken(signedToken(t, jwt.MapClaims{"role": "Staff"}))
		require.NoError(t, err)
		assert.Nil(t, claims.UserID)
		assert.Nil(t, claims.ExpiresAt)
	})

	t.Run("NonNumericUserIDStaysAbsent", func(t *testing.T) {
		claims, err := service.DecodeAccessToken(signedToken(t, jwt.MapClaims{"role": "Staff", "userId": "abc"}))
		require.NoError(t, err)
		assert.Nil(t, claims.UserID)
	})

	t.Run("ExpiredTokenStillDecodes", func(t *testing.T) {
		claims, err := service.DecodeAccessToken(signedToken(t, jwt.MapClaims{
			"role": "Member",
			"exp":  time.Now().Add(-time.Hour).Unix(),
		}))
		require.NoError(t, err)
		assert.Equal(t, entity.RoleMember, claims.Role)
	})

	t.Run("RoleArrayUsesFirstEntry", func(t *testing.T) {
		claims, err := service.DecodeAccessToken(signedToken(t, jwt.MapClaims{"role": []string{"Staff", "Member"}}))
		require.NoError(t, err)
		assert.Equal(t, entity.RoleStaff, claims.Role)
	})

	t.Run("UnrecognizedRoleRejected", func(t *testing.T) {
		_, err := service.DecodeAccessToken(signedToken(t, jwt.MapClaims{"role": "SuperUser"}))
		assert.True(t, errors.Is(err, entity.ErrUnrecognizedRole))
	})

	t.Run("MissingRoleRejected", func(t *testing.T) {
		_, err := service.DecodeAccessToken(signedToken(t, jwt.MapClaims{"email": "a@b.com"}))
		assert.ErrorIs(t, err, ErrMissingRole)
	})

	t.Run("MalformedTokenRejected", func(t *testing.T) {
		for _, token := range []string{"", "invalid-token", "a.b", "a.%%%.c"} {
			_, err := service.DecodeAccessToken(token)
			assert.Error(t, err, "token %q", token)
		}
	})
}

func TestNewJWTService_CustomClaimNames(t *testing.T) {
	service, err := NewJWTService(&config.Config{ClaimRole: "http://schemas.example.com/role", ClaimEmail: "upn"})
	require.NoError(t, err)

	claims, err := service.DecodeAccessToken(signedToken(t, jwt.MapClaims{
		"http://schemas.example.com/role": "Admin",
		"upn":                             "root@b.com",
	}))
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, claims.Role)
	assert.Equal(t, "root@b.com", claims.Email)
}
