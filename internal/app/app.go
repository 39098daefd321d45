// Package app wires the server layers into one HTTP handler.
package app

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"focusflow/internal/channel"
	"focusflow/internal/config"
	"focusflow/internal/handler"
	"focusflow/internal/repository"
	"focusflow/internal/router"
	"focusflow/internal/service"
)

type Options struct {
	Clock     clockwork.Clock
	KeepAlive time.Duration
}

type App struct {
	Engine   *gin.Engine
	Hub      *channel.Hub
	Sessions *service.SessionService
}

func New(database *sql.DB, cfg config.Config, logger *slog.Logger, opts Options) *App {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	hub := channel.NewHub(cfg.ChannelBuffer, logger)

	userRepo := repository.NewUserRepository(database)
	sessionRepo := repository.NewSessionRepository(database)
	activityRepo := repository.NewActivityRepository(database)

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL, opts.Clock)
	sessionService := service.NewSessionService(sessionRepo, activityRepo, userRepo, hub, service.SessionServiceConfig{
		MaxTotalCycles: cfg.MaxTotalCycles,
		HistoryLimit:   cfg.HistoryLimit,
		Clock:          opts.Clock,
		Logger:         logger,
	})

	engine := router.New(authService, router.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		Session: handler.NewSessionHandler(sessionService),
		Channel: handler.NewChannelHandler(hub, sessionService, opts.Clock, opts.KeepAlive),
		Tip:     handler.NewTipHandler(service.NewTipService()),
	}, cfg.CORSOrigins)

	return &App{Engine: engine, Hub: hub, Sessions: sessionService}
}

// Close ends every open channel stream.
func (a *App) Close() {
	a.Hub.Close()
}
