package handler

import (
	"net/http"

	"dmchat/backend/internal/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		h.Log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(kind), gin.H{
		"success": false,
		"error":   string(kind),
		"message": apperr.MessageOf(err),
	})
}

func ok(c *gin.Context, status int, data interface{}, extra ...gin.H) {
	body := gin.H{"success": true, "data": data}
	for _, e := range extra {
		for k, v := range e {
			body[k] = v
		}
	}
	c.JSON(status, body)
}

func tooManyRequests(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"success": false,
		"error":   "TooManyRequests",
		"message": "too many requests",
	})
}
