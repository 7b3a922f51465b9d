package http

import (
	"net/http"
	"time"

	"github.com/dkeye/roomcast/internal/app"
	"github.com/dkeye/roomcast/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// RateLimitMiddleware rejects a client with 429 once it exceeds rl.
func RateLimitMiddleware(rl *RoomRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ct := c.GetString("client_token")
		if !rl.Allow(ct) {
			log.Warn().Str("module", "adapters.http").Str("client", ct).Msg("rate limited")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many rooms created, try again later"})
			return
		}
		c.Next()
	}
}

func SetupRouter(cfg *config.Config, rooms *app.RoomManager) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("RoomcastSessions", store))
	r.Use(ClientTokenMiddleware())

	h := &Handlers{Rooms: rooms, JanusURL: cfg.JanusURL}
	limiter := NewRoomRateLimiter(cfg.RateLimit.CreatePerMinute, time.Minute)

	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	api.POST("/room/create", RateLimitMiddleware(limiter), h.CreateRoom)
	api.POST("/room/join", h.JoinRoom)
	api.GET("/janus-url", h.JanusURLHandler)

	log.Info().Str("module", "adapters.http").Str("janus_url", cfg.JanusURL).Msg("router setup")
	return r
}

// NewHandler is the router wrapped with CORS for the browser frontend.
func NewHandler(cfg *config.Config, rooms *app.RoomManager) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(SetupRouter(cfg, rooms))
}
