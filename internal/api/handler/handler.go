package handler

import (
	"context"
	"time"

	"dmchat/backend/internal/auth"
	"dmchat/backend/internal/chathub"
	"dmchat/backend/internal/metrics"
	"dmchat/backend/internal/models"

	"go.uber.org/zap"
)

// ChatService is the conversation and message API used by the handlers.
type ChatService interface {
	FindOrCreate(ctx context.Context, userA, userB string) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]models.ConversationView, error)
	GetIfParticipant(ctx context.Context, conversationID, userID string) (*models.Conversation, error)
	Create(ctx context.Context, conversationID, senderID, content string) (*models.MessageView, error)
	SendToUser(ctx context.Context, senderID, receiverID, content string) (*models.MessageView, error)
	ListForConversation(ctx context.Context, conversationID, userID string, page models.Page) (*models.MessagePage, error)
	MarkRead(ctx context.Context, messageID, readerID string) (*models.Message, error)
	MarkAllReadInConversation(ctx context.Context, conversationID, readerID string) (int, error)
}

// TokenVerifier resolves bearer tokens for REST calls.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Identity, error)
}

// UserReader loads the caller's own profile.
type UserReader interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// TokenRevoker blacklists a token id.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
}

// Limiter throttles per-key actions.
type Limiter interface {
	Allow(key string) bool
}

// Deps зібрані залежності HTTP-шару.
type Deps struct {
	Chat        ChatService
	Verifier    TokenVerifier
	Users       UserReader
	Revoker     TokenRevoker
	Lifecycle   *chathub.Lifecycle
	Inbound     chathub.InboundHandler
	SendLimiter Limiter
	Metrics     *metrics.Metrics
	Log         *zap.Logger
	CORSOrigins []string
}

// Handler містить залежності для HTTP та WebSocket обробників
type Handler struct {
	Deps
}

func NewHandler(deps Deps) *Handler {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &Handler{Deps: deps}
}
