package main

import (
	"context"
	"errors"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"github.com/vors-gg/vors/internal/services"
	"github.com/vors-gg/vors/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	// A missing .env is fine; the environment may already be populated.
	godotenv.Load()

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}
	config.ApplyEnv()

	server := services.NewServerClient(serverAddr(config), nil)

	runner := NewRunner(RunnerOpts{
		Config: config,
		Server: server,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "vors",
		Usage:    "Party game server with Spotify playback control",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrMissingConfig) {
			logger.Fatalf("configuration error: %v", err)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
