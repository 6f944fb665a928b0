package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/HenryAG36/online-mini-golf-sub000/internal/api/handlers"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/config"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/middleware"
)

// Server is everything the routes hand requests to.
type Server struct {
	Config    *config.Config
	Handlers  handlers.Deps
	Socket    gin.HandlerFunc
	LiveCount func() int
	Log       *zap.Logger
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, srv Server) {
	if srv.Log == nil {
		srv.Log = zap.NewNop()
	}
	if srv.Handlers.Log == nil {
		srv.Handlers.Log = srv.Log
	}

	router.Use(middleware.CORSMiddleware(srv.Config, srv.Log))

	if srv.Config.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Next()
		})
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(srv.LiveCount))

		lv := v1.Group("/levels")
		{
			lv.GET("", handlers.ListLevels(srv.Handlers.Levels, srv.Log))
			lv.GET("/:slug", handlers.GetLevel(srv.Handlers.Levels, srv.Log))
		}

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", handlers.CreateSession(srv.Handlers))
			sessions.GET("/:id", handlers.GetSession(srv.Handlers))
			sessions.POST("/:id/join", handlers.JoinSession(srv.Handlers))
			sessions.POST("/:id/advance", handlers.AdvanceHole(srv.Handlers))
			sessions.GET("/:id/scorecard", handlers.GetScorecard(srv.Handlers))
			if srv.Socket != nil {
				sessions.GET("/:id/ws", middleware.WebSocketOriginCheck(srv.Config), srv.Socket)
			}
		}
	}
}
