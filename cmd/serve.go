package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/vors-gg/vors/internal/repositories"
	"github.com/vors-gg/vors/internal/server"
	"github.com/vors-gg/vors/internal/services"
	"github.com/vors-gg/vors/internal/shared"
	"github.com/vors-gg/vors/internal/tokens"
)

const shutdownTimeout = 10 * time.Second

// Serve wires the token, playback and session layers together and runs the
// HTTP server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	if host := cmd.String("host"); host != "" {
		config.Server.Host = host
	}
	if port := cmd.Int("port"); port != 0 {
		config.Server.Port = int(port)
	}

	if err := config.Validate(); err != nil {
		return err
	}

	cipher, err := tokens.NewCipher(config.Security.EncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to initialize cookie cipher: %w", err)
	}

	store := tokens.NewStore(cipher, r.logger)
	manager := tokens.NewManager(tokens.ManagerOpts{
		Store:    store,
		ClientID: config.Credentials.Spotify.ClientID,
		Logger:   r.logger,
	})

	client := services.NewClient(services.ClientOpts{
		Manager: manager,
		Logger:  r.logger,
	})
	playback := services.NewPlaybackController(client,
		time.Duration(config.Playback.TransferDelayMS)*time.Millisecond, r.logger)
	queue := services.NewQueueManager(client,
		time.Duration(config.Playback.QueueDelayMS)*time.Millisecond, r.logger)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	sessions := repositories.NewSessionRepository(db)
	policy := tokens.DefaultPolicy(config.IsProduction())

	router := server.NewBasicRouter()
	router.Use(
		server.RequestLogger(r.logger),
		server.SecurityHeaders(config.IsProduction()),
		server.CORS(config.Server.AllowedOrigin),
	)

	router.Handler(server.NewAuthHandler(server.AuthHandlerOpts{
		Manager:     manager,
		Cipher:      cipher,
		ClientID:    config.Credentials.Spotify.ClientID,
		RedirectURI: config.Credentials.Spotify.RedirectURI,
		Policy:      policy,
		Logger:      r.logger,
	}))

	requireAuth := server.RequireAuth(store, policy)
	router.Handler(server.Protected(server.NewPlayerHandler(server.PlayerHandlerOpts{
		Client:   client,
		Playback: playback,
		Queue:    queue,
		Policy:   policy,
		Logger:   r.logger,
	}), requireAuth))
	router.Handler(server.Protected(server.NewSessionsHandler(sessions, r.logger), requireAuth))

	router.Handle("GET", "/health", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	notifyCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("server listening", "addr", addr, "environment", config.Server.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-notifyCtx.Done():
		r.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	return nil
}
