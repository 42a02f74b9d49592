package http

import (
	"net/http"

	"trivia-service/internal/app"
	"trivia-service/internal/auth"
	"trivia-service/internal/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterConfig carries what the HTTP surface needs besides the service.
type RouterConfig struct {
	Resolver       auth.Resolver
	Events         app.EventSubscriber
	AllowedOrigins []string
}

// NewRouter exposes every game operation over REST plus the live websocket.
func NewRouter(service *app.GameService, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), metrics.Middleware())
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	h := &Handlers{service: service}
	ws := NewWSHandler(service, cfg.Resolver, cfg.Events)

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/ws", ws.ServeWS)

	api := r.Group("/api", Identify(cfg.Resolver))
	{
		games := api.Group("/games")
		games.POST("", h.CreateGame)
		games.GET("/:id", h.GetGame)
		games.POST("/:id/join", h.JoinGame)
		games.POST("/:id/start", h.StartGame)
		games.POST("/:id/review", h.EnterReview)
		games.POST("/:id/advance", h.AdvanceQuestion)
		games.POST("/:id/answers", h.SubmitAnswer)
		games.GET("/:id/leaderboard", h.GameLeaderboard)

		api.GET("/lobby", h.FindJoinable)
		api.POST("/lobby/ensure", h.EnsureGame)

		api.GET("/me/game", h.CurrentGame)
		api.GET("/me/history", h.History)
		api.GET("/me/can-host", h.CanHost)

		solo := api.Group("/solo")
		solo.POST("", h.CreateSoloGame)
		solo.POST("/:id/answers", h.SubmitSoloAnswer)
		solo.POST("/:id/advance", h.AdvanceSoloGame)

		api.GET("/leaderboards/recent", h.RecentLeaderboard)
		api.GET("/leaderboards/solo", h.SoloLeaderboard)
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", "X-User-ID", "X-User-Name"},
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
