package main

import (
	"context"
	"errors"
	"os"

	"github.com/rankboard/portalgate/infrastructure/config"
	"github.com/rankboard/portalgate/infrastructure/service/logger"
	"github.com/rankboard/portalgate/internal/cli"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	root := cli.NewRootCmd(build, version)
	if err := root.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// build loads configuration only when a command actually needs a session.
func build(ctx context.Context) (*cli.Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "portalctl",
		Output:      os.Stderr,
	})
	return cli.BuildFromConfig(cfg, log)(ctx)
}
