package outbound

import (
	"context"
)

// LoginPortal selects which backend login endpoint is called.
type LoginPortal string

const (
	LoginPortalMember LoginPortal = "member"
	LoginPortalAdmin  LoginPortal = "admin"
	LoginPortalStaff  LoginPortal = "staff"
)

// LoginResult mirrors the backend login response body.
type LoginResult struct {
	Success      bool   `json:"success"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Message      string `json:"message,omitempty"`
}

// LoginGateway posts an identity credential to one of the backend login
// endpoints. Transport failures are returned as errors; an explicit denial
// comes back as a result with Success false.
type LoginGateway interface {
	Login(ctx context.Context, portal LoginPortal, credential string) (*LoginResult, error)
}

// IdentityProvider produces the opaque credential the backend login
// endpoints accept.
type IdentityProvider interface {
	Credential(ctx context.Context, grant string) (string, error)
	Name() string
}
