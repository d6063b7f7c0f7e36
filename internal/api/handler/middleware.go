package handler

import (
	"time"

	"dmchat/backend/internal/apperr"
	"dmchat/backend/internal/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const identityKey = "identity"

// RequireAuth verifies the bearer token and stores the identity on the context.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			h.fail(c, apperr.New(apperr.Unauthorized, "authorization token missing"))
			return
		}
		id, err := h.Verifier.Verify(c.Request.Context(), token)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

func identity(c *gin.Context) *auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(*auth.Identity); ok {
			return id
		}
	}
	return nil
}

// SendRateLimit throttles message sends per authenticated user.
func (h *Handler) SendRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.SendLimiter == nil {
			c.Next()
			return
		}
		id := identity(c)
		if id != nil && !h.SendLimiter.Allow(id.UserID) {
			tooManyRequests(c)
			return
		}
		c.Next()
	}
}

// RequestLogger logs each request with zap and records its latency.
func (h *Handler) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		h.Metrics.ObserveHTTP(c.Request.Method, route, status, elapsed)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
			zap.String("client_ip", c.ClientIP()),
		}
		if id := identity(c); id != nil {
			fields = append(fields, zap.String("user_id", id.UserID))
		}
		if status >= 500 {
			h.Log.Warn("request", fields...)
			return
		}
		h.Log.Debug("request", fields...)
	}
}
