package storage

import (
	"context"
	"time"

	"dmchat/backend/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// FindConversationByPair шукає розмову за канонічною парою учасників.
func (s *Service) FindConversationByPair(ctx context.Context, pair pq.StringArray) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.DB.WithContext(ctx).Where("participant_ids = ?", pair).First(&conv).Error; err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

// CreateConversation returns ErrDuplicate when the pair already exists.
func (s *Service) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	return translate(s.DB.WithContext(ctx).Create(conv).Error)
}

func (s *Service) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.DB.WithContext(ctx).First(&conv, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

// ListConversationsForUser повертає розмови користувача, новіші (за updated_at) першими.
func (s *Service) ListConversationsForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := s.DB.WithContext(ctx).
		Where("? = ANY(participant_ids)", userID).
		Order("updated_at desc").
		Order("id desc").
		Find(&convs).Error
	if err != nil {
		return nil, translate(err)
	}
	return convs, nil
}

// SetLastMessage оновлює вказівник на останнє повідомлення. Останній запис перемагає.
func (s *Service) SetLastMessage(ctx context.Context, conversationID, messageID string, at time.Time) error {
	err := s.DB.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		UpdateColumns(map[string]interface{}{
			"last_message_id": messageID,
			"updated_at":      at,
		}).Error
	if err != nil {
		s.Log.Error("failed to update last message", zap.String("conversation_id", conversationID), zap.String("message_id", messageID), zap.Error(err))
	}
	return translate(err)
}
