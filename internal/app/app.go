package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatpad-sync/internal/auth"
	"github.com/vovakirdan/chatpad-sync/internal/backend/graphql"
	"github.com/vovakirdan/chatpad-sync/internal/composer"
	"github.com/vovakirdan/chatpad-sync/internal/config"
	"github.com/vovakirdan/chatpad-sync/internal/session"
	transporthttp "github.com/vovakirdan/chatpad-sync/internal/transport/http"
)

// App wires together the backend client, the session and the local API.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	session         *session.Coordinator
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	self, err := auth.ParseIdentity(cfg.Token, []byte(cfg.TokenSecret))
	if err != nil {
		return nil, fmt.Errorf("parse identity: %w", err)
	}
	logger.Info().Str("user_id", self.ID).Str("username", self.Username).Msg("identity loaded")

	backend := graphql.New(graphql.Config{
		HTTPURL:        cfg.GraphQLURL,
		WSURL:          cfg.SubscriptionsURL,
		Token:          cfg.Token,
		RequestTimeout: cfg.RequestTimeout,
	}, logger)

	coordinator := session.New(backend, session.Options{
		Self:                  self,
		HeartbeatInterval:     cfg.HeartbeatInterval,
		ReconnectDelay:        cfg.ReconnectDelay,
		FilterPresenceByGroup: cfg.Presence.FilterByGroup,
		PresenceExpiry:        cfg.PresenceExpiry(),
		TeardownTimeout:       cfg.ShutdownTimeout,
		Composer: composer.Config{
			MaxImageBytes: cfg.MaxImageBytes,
			IDLength:      cfg.MessageIDLength,
		},
	}, logger)

	server := transporthttp.NewServer(coordinator, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		session:         coordinator,
		log:             logger,
	}, nil
}

// Run starts the session and the local API and blocks until context
// cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	sessionCtx, stopSession := context.WithCancel(ctx)
	defer stopSession()
	go func() {
		if err := a.session.Run(sessionCtx); err != nil {
			a.log.Error().Err(err).Msg("session stopped with error")
		}
	}()

	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	a.log.Info().Str("addr", a.server.Addr).Msg("local api listening")

	select {
	case err := <-serverErr:
		a.stopSession(stopSession)
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.stopSession(stopSession)
			return err
		}

		a.stopSession(stopSession)
		return <-serverErr
	}
}

// stopSession cancels the session and waits for its offline signal.
func (a *App) stopSession(stop context.CancelFunc) {
	stop()
	<-a.session.Done()
	a.log.Info().Msg("session stopped")
}
