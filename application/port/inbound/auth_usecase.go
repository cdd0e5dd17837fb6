package inbound

import (
	"context"

	"github.com/rankboard/portalgate/application/port/outbound"
	"github.com/rankboard/portalgate/domain/entity"
	"github.com/rankboard/portalgate/domain/routing"
)

// LoginRequest carries either a ready credential or a grant (authorization
// code) to be exchanged with the identity provider first.
type LoginRequest struct {
	Credential string `json:"credential"`
	Code       string `json:"code"`
}

// ExchangeState is the state of one login attempt.
type ExchangeState string

const (
	StateIdle     ExchangeState = "idle"
	StateProbing  ExchangeState = "probing"
	StateResolved ExchangeState = "resolved"
	StateFailed   ExchangeState = "failed"
)

type LoginResponse struct {
	State    ExchangeState       `json:"state"`
	Role     entity.Role         `json:"role,omitempty"`
	Profile  *entity.UserProfile `json:"profile,omitempty"`
	Redirect routing.Decision    `json:"redirect"`
	Message  string              `json:"message,omitempty"`
}

// LoginKind selects the member login or the admin/staff probe.
type LoginKind string

const (
	LoginKindMember     LoginKind = "member"
	LoginKindBackOffice LoginKind = "backoffice"
)

// AuthUseCase drives member and back-office logins. A request carrying a Code
// instead of a Credential is first exchanged with the configured identity
// provider.
type AuthUseCase interface {
	LoginMember(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	LoginBackOffice(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	LoginWithProvider(ctx context.Context, kind LoginKind, provider outbound.IdentityProvider, grant string) (*LoginResponse, error)
	State() ExchangeState
}

// SessionUseCase exposes the session store to the outer layers.
type SessionUseCase interface {
	Current() (entity.UserProfile, bool)
	Logout(ctx context.Context) error
	Route(path string) routing.Decision
	AccessToken(ctx context.Context) (string, error)
}
