package handler

import (
	"context"
	"errors"
	"net/http"

	"dmchat/backend/internal/auth"
	"dmchat/backend/internal/chathub"
	"dmchat/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin перевіряє CORS-шар; сам токен обов'язковий.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket автентифікує токен і лише після цього оновлює з'єднання до WebSocket.
// Токен береться з заголовка Authorization або параметра ?token=.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	token := auth.BearerToken(c.GetHeader("Authorization"))
	if token == "" {
		token = c.Query("token")
	}

	sess, err := h.Lifecycle.Handshake(c.Request.Context(), token)
	if err != nil {
		h.fail(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	userID := sess.Identity().UserID
	client := chathub.NewWebSocketClient(conn, userID, h.Inbound, h.Log)
	client.OnClose(func() {
		h.Lifecycle.Deactivate(context.Background(), sess)
	})

	// connected має бути першим кадром, до будь-якого message:new.
	_ = client.Send(models.Event{Name: models.EventConnected, Data: gin.H{
		"userId": userID,
		"connId": client.GetConnID(),
	}})
	if err := h.Lifecycle.Activate(context.Background(), sess, client); err != nil {
		code := websocket.ClosePolicyViolation
		if errors.Is(err, chathub.ErrShuttingDown) {
			code = websocket.CloseGoingAway
		}
		client.Close(code, err.Error())
		return
	}
	client.Run()
}
