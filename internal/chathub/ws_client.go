package chathub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"dmchat/backend/internal/config"
	"dmchat/backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocketClient реалізує інтерфейс chathub.Client
type WebSocketClient struct {
	UserID string
	ConnID string
	Conn   *websocket.Conn

	inbound InboundHandler
	onClose func()
	log     *zap.Logger

	mu     sync.Mutex
	closed bool
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

func NewWebSocketClient(conn *websocket.Conn, userID string, inbound InboundHandler, log *zap.Logger) *WebSocketClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebSocketClient{
		UserID:  userID,
		ConnID:  uuid.NewString(),
		Conn:    conn,
		inbound: inbound,
		log:     log,
		send:    make(chan []byte, config.SendBufferSize),
		done:    make(chan struct{}),
	}
}

// OnClose sets a callback that runs once when the read pump exits.
func (c *WebSocketClient) OnClose(fn func()) { c.onClose = fn }

func (c *WebSocketClient) GetUserID() string { return c.UserID }
func (c *WebSocketClient) GetConnID() string { return c.ConnID }

// Send кодує подію та ставить її в чергу writePump, не блокуючи.
func (c *WebSocketClient) Send(evt models.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		go c.Close(websocket.CloseGoingAway, "send buffer full")
		return ErrSendBufferFull
	}
}

// Run запускає 'pumps' для WebSocket
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close надсилає close frame та закриває з'єднання. Повторні виклики нічого не роблять.
func (c *WebSocketClient) Close(code int, reason string) {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.done)
		c.mu.Unlock()

		deadline := time.Now().Add(config.WriteWait)
		_ = c.Conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		_ = c.Conn.Close()
	})
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Close(websocket.CloseNormalClosure, "")
		if c.onClose != nil {
			c.onClose()
		}
	}()

	c.Conn.SetReadLimit(config.MaxFrameSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(config.PongWait))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.log.Info("websocket read error", zap.String("user_id", c.UserID), zap.Error(err))
			}
			return
		}

		var frame InboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			_ = c.Send(errorEvent("BadRequest", "malformed frame"))
			continue
		}
		if c.inbound == nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.RequestTimeout)
		reply := c.inbound.HandleFrame(ctx, c.UserID, frame)
		cancel()
		if reply != nil {
			if err := c.Send(*reply); err != nil {
				return
			}
		}
	}
}

// writePump пересилає події з каналу send у WebSocket і шле ping.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(config.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("websocket write failed", zap.String("user_id", c.UserID), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func errorEvent(kind, message string) models.Event {
	return models.Event{Name: models.EventError, Data: models.ErrorPayload{Error: kind, Message: message}}
}
