package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rankboard/portalgate/application/port/inbound"
	"github.com/rankboard/portalgate/application/port/outbound"
	"github.com/rankboard/portalgate/domain/entity"
	apperr "github.com/rankboard/portalgate/domain/error"
	"github.com/rankboard/portalgate/domain/routing"
	"github.com/rankboard/portalgate/domain/valueobject"
	"github.com/rankboard/portalgate/infrastructure/service/logger"
)

// AuthExchange runs one login attempt at a time against the backend login
// endpoints and hands the resolved session to the SessionStore.
type AuthExchange struct {
	gateway  outbound.LoginGateway
	tokens   outbound.TokenService
	session  *SessionStore
	identity outbound.IdentityProvider
	logger   logger.Logger

	// slot has capacity one; holding it means an attempt is running.
	slot chan struct{}

	mu    sync.RWMutex
	state inbound.ExchangeState
}

var _ inbound.AuthUseCase = (*AuthExchange)(nil)

// NewAuthExchange wires the exchange. identity may be nil when callers only
// ever pass ready credentials.
func NewAuthExchange(
	gateway outbound.LoginGateway,
	tokens outbound.TokenService,
	session *SessionStore,
	identity outbound.IdentityProvider,
	log logger.Logger,
) *AuthExchange {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &AuthExchange{
		gateway:  gateway,
		tokens:   tokens,
		session:  session,
		identity: identity,
		logger:   log.WithFields(map[string]interface{}{"component": "auth_exchange"}),
		slot:     make(chan struct{}, 1),
		state:    inbound.StateIdle,
	}
}

// State reports where the latest attempt stands.
func (a *AuthExchange) State() inbound.ExchangeState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *AuthExchange) setState(s inbound.ExchangeState) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

func (a *AuthExchange) LoginMember(ctx context.Context, req inbound.LoginRequest) (*inbound.LoginResponse, error) {
	if req.Credential == "" && req.Code != "" {
		return a.LoginWithProvider(ctx, inbound.LoginKindMember, a.identity, req.Code)
	}
	cred, err := valueobject.NewCredential(req.Credential)
	if err != nil {
		return nil, apperr.ErrInvalidCredential(err)
	}
	return a.run(ctx, inbound.LoginKindMember, cred)
}

func (a *AuthExchange) LoginBackOffice(ctx context.Context, req inbound.LoginRequest) (*inbound.LoginResponse, error) {
	if req.Credential == "" && req.Code != "" {
		return a.LoginWithProvider(ctx, inbound.LoginKindBackOffice, a.identity, req.Code)
	}
	cred, err := valueobject.NewCredential(req.Credential)
	if err != nil {
		return nil, apperr.ErrInvalidCredential(err)
	}
	return a.run(ctx, inbound.LoginKindBackOffice, cred)
}

// LoginWithProvider exchanges grant for an opaque credential with provider
// and then runs the login of the given kind.
func (a *AuthExchange) LoginWithProvider(ctx context.Context, kind inbound.LoginKind, provider outbound.IdentityProvider, grant string) (*inbound.LoginResponse, error) {
	if provider == nil {
		return nil, apperr.ErrInvalidCredential(errors.New("no identity provider configured"))
	}

	raw, err := provider.Credential(ctx, grant)
	if err != nil {
		logger.LogAuthEvent(ctx, a.logger, "identity_exchange", "", false, map[string]interface{}{
			"provider": provider.Name(),
			"error":    err.Error(),
		})
		return nil, apperr.ErrInvalidCredential(err)
	}
	cred, err := valueobject.NewCredential(raw)
	if err != nil {
		return nil, apperr.ErrInvalidCredential(err)
	}
	return a.run(ctx, kind, cred)
}

func (a *AuthExchange) run(ctx context.Context, kind inbound.LoginKind, cred *valueobject.Credential) (*inbound.LoginResponse, error) {
	select {
	case a.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, apperr.ErrLoginInProgress()
	}
	defer func() { <-a.slot }()

	a.setState(inbound.StateProbing)

	var (
		profile *entity.UserProfile
		tokens  *valueobject.TokenPair
		err     error
	)
	switch kind {
	case inbound.LoginKindMember:
		profile, tokens, err = a.attempt(ctx, outbound.LoginPortalMember, cred)
	case inbound.LoginKindBackOffice:
		profile, tokens, err = a.probeBackOffice(ctx, cred)
	default:
		err = fmt.Errorf("unknown login kind %q", kind)
	}
	if err != nil {
		return nil, a.fail(ctx, kind, err)
	}

	// Save wipes the space on failure, so nothing partial survives.
	if err := a.session.Save(ctx, *profile, *tokens); err != nil {
		return nil, a.fail(ctx, kind, err)
	}

	a.setState(inbound.StateResolved)
	logger.LogAuthEvent(ctx, a.logger, "login_"+string(kind), profile.Email, true, map[string]interface{}{
		"role": string(profile.Role),
	})

	resolved := profile.Clone()
	return &inbound.LoginResponse{
		State:    inbound.StateResolved,
		Role:     resolved.Role,
		Profile:  &resolved,
		Redirect: routing.DecideAfterLogin(&resolved),
	}, nil
}

func (a *AuthExchange) fail(ctx context.Context, kind inbound.LoginKind, err error) error {
	a.setState(inbound.StateFailed)
	logger.LogAuthEvent(ctx, a.logger, "login_"+string(kind), "", false, map[string]interface{}{
		"error": err.Error(),
	})
	return err
}

// probeBackOffice tries the admin endpoint and only after a conclusive
// rejection (or a transport failure) the staff endpoint. Never concurrent.
func (a *AuthExchange) probeBackOffice(ctx context.Context, cred *valueobject.Credential) (*entity.UserProfile, *valueobject.TokenPair, error) {
	profile, tokens, adminErr := a.attempt(ctx, outbound.LoginPortalAdmin, cred)
	if adminErr == nil {
		return profile, tokens, nil
	}
	if !apperr.IsRejection(adminErr) {
		return nil, nil, adminErr
	}

	profile, tokens, staffErr := a.attempt(ctx, outbound.LoginPortalStaff, cred)
	if staffErr == nil {
		return profile, tokens, nil
	}
	if !apperr.IsRejection(staffErr) {
		return nil, nil, staffErr
	}
	return nil, nil, apperr.ErrNotAuthorizedBackOffice(errors.Join(adminErr, staffErr))
}

// attempt makes a single call to one login endpoint and decodes the issued
// access token into a profile.
func (a *AuthExchange) attempt(ctx context.Context, portal outbound.LoginPortal, cred *valueobject.Credential) (*entity.UserProfile, *valueobject.TokenPair, error) {
	start := time.Now()
	result, err := a.gateway.Login(ctx, portal, cred.Value())
	logger.LogPerformance(ctx, a.logger, "login_probe_"+string(portal), time.Since(start), map[string]interface{}{
		"ok": err == nil && result != nil && result.Success,
	})

	if err != nil {
		var appErr *apperr.AppError
		if errors.As(err, &appErr) {
			return nil, nil, err
		}
		return nil, nil, apperr.ErrNetworkFailure(string(portal), err)
	}
	if result == nil || !result.Success {
		msg := ""
		if result != nil {
			msg = result.Message
		}
		return nil, nil, apperr.ErrAuthRejected(msg)
	}

	tokens, err := valueobject.NewTokenPair(result.AccessToken, result.RefreshToken)
	if err != nil {
		return nil, nil, apperr.ErrAuthRejected("login succeeded without an access token")
	}

	claims, err := a.tokens.DecodeAccessToken(tokens.AccessToken)
	if err != nil {
		if errors.Is(err, entity.ErrUnrecognizedRole) {
			return nil, nil, apperr.NewAppError(apperr.ErrCodeUnrecognizedRole, "Unrecognized role", string(portal), err)
		}
		return nil, nil, apperr.ErrDecode("access_token", err)
	}

	return profileFromClaims(claims), tokens, nil
}

func profileFromClaims(c *outbound.TokenClaims) *entity.UserProfile {
	return &entity.UserProfile{
		Email:     c.Email,
		FullName:  c.FullName,
		Role:      c.Role,
		UserID:    c.UserID,
		ExpiresAt: c.ExpiresAt,
		IssuedAt:  c.IssuedAt,
		Claims:    c.Raw,
	}
}
