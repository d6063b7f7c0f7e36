package handler

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router builds the gin engine with all routes. gatherer may be nil to skip /metrics.
func (h *Handler) Router(gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.RequestLogger())

	corsConfig := cors.Config{
		AllowOrigins:     h.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(corsConfig.AllowOrigins) == 0 || (len(corsConfig.AllowOrigins) == 1 && corsConfig.AllowOrigins[0] == "*") {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	r.GET("/ws", h.ServeWebSocket)

	api := r.Group("/api/v1", h.RequireAuth())
	{
		api.GET("/users/me", h.Me)
		api.POST("/auth/logout", h.Logout)

		api.POST("/conversations", h.StartConversation)
		api.GET("/conversations", h.ListConversations)
		api.GET("/conversations/:id", h.GetConversation)
		api.GET("/conversations/:id/messages", h.ListMessages)
		api.POST("/conversations/:id/messages", h.SendRateLimit(), h.SendToConversation)
		api.POST("/conversations/:id/read", h.MarkConversationRead)

		api.POST("/users/:id/messages", h.SendRateLimit(), h.SendToUser)
		api.POST("/messages/:id/read", h.MarkMessageRead)
	}
	return r
}
