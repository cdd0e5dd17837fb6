package outbound

import (
	"time"

	"github.com/rankboard/portalgate/domain/entity"
)

type TokenClaims struct {
	Email     string                 `json:"email"`
	FullName  string                 `json:"fullName"`
	Role      entity.Role            `json:"role"`
	UserID    *int64                 `json:"userId,omitempty"`
	ExpiresAt *time.Time             `json:"exp,omitempty"`
	IssuedAt  *time.Time             `json:"iat,omitempty"`
	Raw       map[string]interface{} `json:"-"`
}

// TokenService reads the payload of a backend-issued access token. The
// signature is not verified on this side.
type TokenService interface {
	DecodeAccessToken(token string) (*TokenClaims, error)
}
