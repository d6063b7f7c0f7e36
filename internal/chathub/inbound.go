package chathub

import (
	"context"
	"encoding/json"

	"dmchat/backend/internal/apperr"
	"dmchat/backend/internal/models"

	"go.uber.org/zap"
)

// Reply events for inbound frames.
const (
	EventMessageSent      = "message:sent"
	EventConversationRead = "conversation:read"
)

// InboundFrame is a client frame: {"event": ..., "data": {...}}.
type InboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// InboundHandler handles one frame from userID and returns an optional reply.
type InboundHandler interface {
	HandleFrame(ctx context.Context, userID string, frame InboundFrame) *models.Event
}

// MessageService is what the frame router calls into.
type MessageService interface {
	Create(ctx context.Context, conversationID, senderID, content string) (*models.MessageView, error)
	SendToUser(ctx context.Context, senderID, receiverID, content string) (*models.MessageView, error)
	MarkRead(ctx context.Context, messageID, readerID string) (*models.Message, error)
	MarkAllReadInConversation(ctx context.Context, conversationID, readerID string) (int, error)
}

// SendLimiter throttles sends per user.
type SendLimiter interface {
	Allow(userID string) bool
}

type sendFrame struct {
	ConversationID string `json:"conversationId"`
	ReceiverID     string `json:"receiverId"`
	Content        string `json:"content"`
}

type readFrame struct {
	MessageID string `json:"messageId"`
}

type conversationReadFrame struct {
	ConversationID string `json:"conversationId"`
}

// FrameRouter maps inbound frames onto the message service.
type FrameRouter struct {
	svc     MessageService
	limiter SendLimiter
	log     *zap.Logger
}

func NewFrameRouter(svc MessageService, limiter SendLimiter, log *zap.Logger) *FrameRouter {
	if log == nil {
		log = zap.NewNop()
	}
	return &FrameRouter{svc: svc, limiter: limiter, log: log}
}

func (r *FrameRouter) HandleFrame(ctx context.Context, userID string, frame InboundFrame) *models.Event {
	switch frame.Event {
	case models.FrameMessageSend:
		var f sendFrame
		if err := json.Unmarshal(frame.Data, &f); err != nil {
			return r.fail(userID, frame, apperr.New(apperr.BadRequest, "malformed message:send frame"))
		}
		if r.limiter != nil && !r.limiter.Allow(userID) {
			evt := errorEvent("TooManyRequests", "too many messages, slow down")
			return &evt
		}
		var (
			view *models.MessageView
			err  error
		)
		switch {
		case f.ConversationID != "":
			view, err = r.svc.Create(ctx, f.ConversationID, userID, f.Content)
		case f.ReceiverID != "":
			view, err = r.svc.SendToUser(ctx, userID, f.ReceiverID, f.Content)
		default:
			err = apperr.New(apperr.BadRequest, "conversationId or receiverId is required")
		}
		if err != nil {
			return r.fail(userID, frame, err)
		}
		return &models.Event{Name: EventMessageSent, Data: view}

	case models.FrameMessageRead:
		var f readFrame
		if err := json.Unmarshal(frame.Data, &f); err != nil || f.MessageID == "" {
			return r.fail(userID, frame, apperr.New(apperr.BadRequest, "messageId is required"))
		}
		if _, err := r.svc.MarkRead(ctx, f.MessageID, userID); err != nil {
			return r.fail(userID, frame, err)
		}
		return nil

	case models.FrameConversationRead:
		var f conversationReadFrame
		if err := json.Unmarshal(frame.Data, &f); err != nil || f.ConversationID == "" {
			return r.fail(userID, frame, apperr.New(apperr.BadRequest, "conversationId is required"))
		}
		n, err := r.svc.MarkAllReadInConversation(ctx, f.ConversationID, userID)
		if err != nil {
			return r.fail(userID, frame, err)
		}
		return &models.Event{Name: EventConversationRead, Data: map[string]interface{}{"conversationId": f.ConversationID, "count": n}}

	default:
		return r.fail(userID, frame, apperr.New(apperr.BadRequest, "unknown event "+frame.Event))
	}
}

func (r *FrameRouter) fail(userID string, frame InboundFrame, err error) *models.Event {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		r.log.Error("frame failed", zap.String("user_id", userID), zap.String("event", frame.Event), zap.Error(err))
	}
	evt := errorEvent(string(kind), apperr.MessageOf(err))
	return &evt
}
