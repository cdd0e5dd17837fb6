package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rankboard/portalgate/application/port/inbound"
	"github.com/rankboard/portalgate/application/usecase"
	"github.com/rankboard/portalgate/infrastructure/config"
	"github.com/rankboard/portalgate/infrastructure/persistence"
	"github.com/rankboard/portalgate/infrastructure/service/backend"
	"github.com/rankboard/portalgate/infrastructure/service/codec"
	"github.com/rankboard/portalgate/infrastructure/service/identity"
	"github.com/rankboard/portalgate/infrastructure/service/jwt"
	"github.com/rankboard/portalgate/infrastructure/service/logger"
)

// Runtime is what a command needs: the session and the login flow over it.
type Runtime struct {
	Session *usecase.SessionStore
	Auth    inbound.AuthUseCase
	closers []func() error
}

// NewRuntime wraps already built components; closers run on Close.
func NewRuntime(session *usecase.SessionStore, auth inbound.AuthUseCase, closers ...func() error) *Runtime {
	return &Runtime{Session: session, Auth: auth, closers: closers}
}

func (r *Runtime) Close() error {
	var errs []error
	for _, c := range r.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Builder creates the Runtime for one command invocation.
type Builder func(ctx context.Context) (*Runtime, error)

// BuildFromConfig wires the Runtime from cfg. A CLI session has to survive
// between invocations, so the memory driver is swapped for a SQLite file in
// the user's config directory.
func BuildFromConfig(cfg *config.Config, log logger.Logger) Builder {
	return func(ctx context.Context) (*Runtime, error) {
		storeCfg := *cfg
		if storeCfg.PersistenceDriver == "" || storeCfg.PersistenceDriver == config.DriverMemory {
			path, err := defaultStatePath()
			if err != nil {
				return nil, err
			}
			storeCfg.PersistenceDriver = config.DriverSQLite
			storeCfg.DatabaseURL = path
		}

		state, err := persistence.Open(ctx, &storeCfg)
		if err != nil {
			return nil, fmt.Errorf("open session storage: %w", err)
		}

		tokens, err := jwt.NewJWTService(cfg)
		if err != nil {
			_ = state.Close()
			return nil, err
		}
		provider, err := identity.New(cfg, log)
		if err != nil {
			_ = state.Close()
			return nil, err
		}

		session := usecase.NewSessionStore(state, codec.Codec{}, log)
		if err := session.Init(ctx); err != nil {
			_ = state.Close()
			return nil, err
		}
		auth := usecase.NewAuthExchange(backend.NewLoginClient(cfg, log), tokens, session, provider, log)
		return NewRuntime(session, auth, state.Close), nil
	}
}

func defaultStatePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	dir = filepath.Join(dir, "portalgate")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create state dir: %w", err)
	}
	return filepath.Join(dir, "state.db"), nil
}

// withRuntime builds the Runtime, runs fn and closes it.
func withRuntime(ctx context.Context, build Builder, fn func(rt *Runtime) error) error {
	rt, err := build(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}
