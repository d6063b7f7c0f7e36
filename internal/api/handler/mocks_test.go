package handler_test

import (
	"context"
	"time"

	"dmchat/backend/internal/auth"
	"dmchat/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) FindOrCreate(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	if v := args.Get(0); v != nil {
		return v.(*models.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatService) ListForUser(ctx context.Context, userID string) ([]models.ConversationView, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.([]models.ConversationView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatService) GetIfParticipant(ctx context.Context, conversationID, userID string) (*models.Conversation, error) {
	args := m.Called(ctx, conversationID, userID)
	if v := args.Get(0); v != nil {
		return v.(*models.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatService) Create(ctx context.Context, conversationID, senderID, content string) (*models.MessageView, error) {
	args := m.Called(ctx, conversationID, senderID, content)
	if v := args.Get(0); v != nil {
		return v.(*models.MessageView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatService) SendToUser(ctx context.Context, senderID, receiverID, content string) (*models.MessageView, error) {
	args := m.Called(ctx, senderID, receiverID, content)
	if v := args.Get(0); v != nil {
		return v.(*models.MessageView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatService) ListForConversation(ctx context.Context, conversationID, userID string, page models.Page) (*models.MessagePage, error) {
	args := m.Called(ctx, conversationID, userID, page)
	if v := args.Get(0); v != nil {
		return v.(*models.MessagePage), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatService) MarkRead(ctx context.Context, messageID, readerID string) (*models.Message, error) {
	args := m.Called(ctx, messageID, readerID)
	if v := args.Get(0); v != nil {
		return v.(*models.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatService) MarkAllReadInConversation(ctx context.Context, conversationID, readerID string) (int, error) {
	args := m.Called(ctx, conversationID, readerID)
	return args.Int(0), args.Error(1)
}

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, token string) (*auth.Identity, error) {
	args := m.Called(ctx, token)
	if v := args.Get(0); v != nil {
		return v.(*auth.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) GetUser(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockRevoker struct {
	mock.Mock
}

func (m *MockRevoker) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }
