package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/rankboard/portalgate/application/port/inbound"
	"github.com/rankboard/portalgate/application/port/outbound"
	"github.com/rankboard/portalgate/domain/entity"
	apperr "github.com/rankboard/portalgate/domain/error"
	"github.com/rankboard/portalgate/domain/routing"
	"github.com/rankboard/portalgate/domain/valueobject"
	"github.com/rankboard/portalgate/infrastructure/service/logger"
)

// Keys of the persistence space owned by the session.
const (
	KeyUser   = "user"
	KeyTokens = "tokens"
)

// SessionStore holds the decoded profile of the current session and keeps it
// in step with the persistence space. It is read at Init, written by Save and
// erased by Clear; nothing else touches the persisted keys.
type SessionStore struct {
	state  outbound.StateStore
	codec  outbound.SessionCodec
	logger logger.Logger

	mu      sync.RWMutex
	profile *entity.UserProfile

	initOnce sync.Once
	initErr  error
}

var _ inbound.SessionUseCase = (*SessionStore)(nil)

func NewSessionStore(state outbound.StateStore, codec outbound.SessionCodec, log logger.Logger) *SessionStore {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &SessionStore{
		state:  state,
		codec:  codec,
		logger: log.WithFields(map[string]interface{}{"component": "session_store"}),
	}
}

// Init loads the persisted session the first time it is called. Later calls
// return the first result without touching storage again.
func (s *SessionStore) Init(ctx context.Context) error {
	s.initOnce.Do(func() {
		_, s.initErr = s.LoadFromPersistence(ctx)
	})
	return s.initErr
}

// LoadFromPersistence reads the "user" key. A missing key yields no session.
// A blob that fails to decode, or a user without a readable "tokens"
// companion, is treated as corruption: the whole space is wiped and no
// session is returned. Only storage I/O failures are reported as errors.
func (s *SessionStore) LoadFromPersistence(ctx context.Context) (*entity.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := s.state.Get(ctx, KeyUser)
	if errors.Is(err, outbound.ErrStateNotFound) {
		s.profile = nil
		return nil, nil
	}
	if err != nil {
		return nil, apperr.ErrPersistenceFailure("load", err)
	}

	var profile entity.UserProfile
	if err := s.codec.Decode(blob, &profile); err != nil {
		return nil, s.recoverCorruption(ctx, KeyUser, err)
	}
	if _, err := s.readTokens(ctx); err != nil {
		var appErr *apperr.AppError
		if errors.As(err, &appErr) && appErr.Code == apperr.ErrCodePersistenceFailure {
			return nil, err
		}
		return nil, s.recoverCorruption(ctx, KeyTokens, err)
	}

	if !profile.Role.Valid() {
		// kept as-is; the router refuses it
		logger.LogSecurityEvent(ctx, s.logger, "unrecognized_role_loaded", "MEDIUM", map[string]interface{}{
			"role": string(profile.Role),
		})
	}

	s.profile = &profile
	out := profile.Clone()
	return &out, nil
}

// recoverCorruption must be called with mu held.
func (s *SessionStore) recoverCorruption(ctx context.Context, key string, cause error) error {
	logger.LogSecurityEvent(ctx, s.logger, "session_corrupted", "HIGH", map[string]interface{}{
		"key":   key,
		"cause": cause.Error(),
	})
	s.profile = nil
	if err := s.state.Clear(ctx); err != nil {
		return apperr.ErrPersistenceFailure("clear", err)
	}
	return nil
}

// Save replaces whatever is persisted with the given session. If any write
// fails the space is wiped again and the store is left without a session.
func (s *SessionStore) Save(ctx context.Context, profile entity.UserProfile, tokens valueobject.TokenPair) error {
	if tokens.AccessToken == "" {
		return apperr.ErrPersistenceFailure("save", valueobject.ErrMissingAccessToken)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.profile = nil
	if err := s.state.Clear(ctx); err != nil {
		return apperr.ErrPersistenceFailure("clear", err)
	}

	if err := s.write(ctx, profile, tokens); err != nil {
		if clearErr := s.state.Clear(ctx); clearErr != nil {
			s.logger.Error(ctx, "Failed to wipe partial session", clearErr, nil)
		}
		return err
	}

	stored := profile.Clone()
	s.profile = &stored
	return nil
}

func (s *SessionStore) write(ctx context.Context, profile entity.UserProfile, tokens valueobject.TokenPair) error {
	userBlob, err := s.codec.Encode(profile)
	if err != nil {
		return apperr.ErrPersistenceFailure("encode user", err)
	}
	tokenBlob, err := s.codec.Encode(tokens)
	if err != nil {
		return apperr.ErrPersistenceFailure("encode tokens", err)
	}

	if err := s.state.Set(ctx, KeyUser, userBlob); err != nil {
		return apperr.ErrPersistenceFailure("write user", err)
	}
	if err := s.state.Set(ctx, KeyTokens, tokenBlob); err != nil {
		return apperr.ErrPersistenceFailure("write tokens", err)
	}
	return nil
}

// Clear erases the whole persistence space, not only the session keys.
func (s *SessionStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profile = nil
	if err := s.state.Clear(ctx); err != nil {
		return apperr.ErrPersistenceFailure("clear", err)
	}
	return nil
}

func (s *SessionStore) Logout(ctx context.Context) error {
	err := s.Clear(ctx)
	logger.LogAuthEvent(ctx, s.logger, "logout", "", err == nil, nil)
	return err
}

// Current returns a copy of the in-memory profile.
func (s *SessionStore) Current() (entity.UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.profile == nil {
		return entity.UserProfile{}, false
	}
	return s.profile.Clone(), true
}

// Route evaluates the role gate against the current session.
func (s *SessionStore) Route(path string) routing.Decision {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return routing.Decide(path, s.profile)
}

// AccessToken reads the bearer token from persistence on every call so that
// outbound requests never use a token cached from before a logout or a new
// login.
func (s *SessionStore) AccessToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens, err := s.readTokens(ctx)
	if err != nil {
		return "", err
	}
	return tokens.AccessToken, nil
}

func (s *SessionStore) readTokens(ctx context.Context) (*valueobject.TokenPair, error) {
	blob, err := s.state.Get(ctx, KeyTokens)
	if errors.Is(err, outbound.ErrStateNotFound) {
		return nil, apperr.ErrNoSession()
	}
	if err != nil {
		return nil, apperr.ErrPersistenceFailure("read tokens", err)
	}

	var tokens valueobject.TokenPair
	if err := s.codec.Decode(blob, &tokens); err != nil {
		return nil, apperr.ErrDecode("tokens", err)
	}
	if tokens.AccessToken == "" {
		return nil, apperr.ErrDecode("tokens", valueobject.ErrMissingAccessToken)
	}
	return &tokens, nil
}
