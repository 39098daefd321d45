package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focusflow/internal/handler"
	"focusflow/internal/middleware"
	"focusflow/internal/service"
)

type Handlers struct {
	Auth    *handler.AuthHandler
	Session *handler.SessionHandler
	Channel *handler.ChannelHandler
	Tip     *handler.TipHandler
}

func New(
	authService *service.AuthService,
	handlers Handlers,
	corsOrigins []string,
) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", handlers.Auth.Register)
	auth.POST("/login", handlers.Auth.Login)

	api.GET("/tips/random", handlers.Tip.Random)

	sessions := api.Group("/sessions")
	sessions.Use(middleware.Auth(authService))
	sessions.POST("", handlers.Session.Create)
	sessions.GET("/history", handlers.Session.History)
	sessions.GET("/code/:code", handlers.Session.GetByCode)
	sessions.GET("/:id", handlers.Session.Get)
	sessions.PUT("/:id/status", handlers.Session.SetStatus)
	sessions.PUT("/:id/cycle", handlers.Session.SetCycle)
	sessions.PUT("/:id/timer-state", handlers.Session.SetTimerState)
	sessions.POST("/:id/check-completion", handlers.Session.CheckCompletion)
	sessions.POST("/:id/join", handlers.Session.Join)
	sessions.GET("/:id/activities", handlers.Session.Activities)
	sessions.POST("/:id/activities", handlers.Session.RecordActivity)

	ch := api.Group("/channel")
	ch.Use(middleware.Auth(authService))
	ch.GET("/session/:code", handlers.Channel.StreamSession)
	ch.POST("/session/:code", handlers.Channel.Publish)
	ch.GET("/session/:code/joined", handlers.Channel.StreamJoins)

	return engine
}
