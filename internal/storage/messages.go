package storage

import (
	"context"
	"time"

	"dmchat/backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateMessage зберігає повідомлення. CreatedAt встановлюється тут, у момент запису.
func (s *Service) CreateMessage(ctx context.Context, msg *models.Message) error {
	msg.CreatedAt = s.DB.NowFunc()
	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		s.Log.Error("failed to save message", zap.String("conversation_id", msg.ConversationID), zap.Error(err))
		return translate(err)
	}
	return nil
}

func (s *Service) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	var msg models.Message
	if err := s.DB.WithContext(ctx).First(&msg, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &msg, nil
}

func (s *Service) GetMessagesByIDs(ctx context.Context, ids []string) ([]models.Message, error) {
	var msgs []models.Message
	if len(ids) == 0 {
		return msgs, nil
	}
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&msgs).Error; err != nil {
		return nil, translate(err)
	}
	return msgs, nil
}

// ListMessages отримує сторінку історії, сортуючи за часом створення (старіші першими).
func (s *Service) ListMessages(ctx context.Context, conversationID string, page models.Page) ([]models.Message, int64, error) {
	var (
		msgs  []models.Message
		total int64
	)
	q := s.DB.WithContext(ctx).Model(&models.Message{}).Where("conversation_id = ?", conversationID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}
	err := q.Order("created_at asc").
		Order("id asc").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&msgs).Error
	if err != nil {
		return nil, 0, translate(err)
	}
	return msgs, total, nil
}

// MarkMessageDelivered moves sent -> delivered. It reports whether a row changed.
func (s *Service) MarkMessageDelivered(ctx context.Context, id string, at time.Time) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.Message{}).
		Where("id = ? AND status = ?", id, models.StatusSent).
		UpdateColumns(map[string]interface{}{
			"status":       models.StatusDelivered,
			"delivered_at": at,
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// MarkMessageRead moves any unread message to read. delivered_at is filled if it was never set.
func (s *Service) MarkMessageRead(ctx context.Context, id string, at time.Time) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.Message{}).
		Where("id = ? AND status <> ?", id, models.StatusRead).
		UpdateColumns(map[string]interface{}{
			"status":       models.StatusRead,
			"read_at":      at,
			"delivered_at": gorm.Expr("COALESCE(delivered_at, ?)", at),
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// MarkConversationRead позначає прочитаними всі непрочитані повідомлення, адресовані readerID.
// Повертає ID змінених повідомлень.
func (s *Service) MarkConversationRead(ctx context.Context, conversationID, readerID string, at time.Time) ([]string, error) {
	var changed []models.Message
	err := s.DB.WithContext(ctx).Model(&changed).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}}}).
		Where("conversation_id = ? AND receiver_id = ? AND status <> ?", conversationID, readerID, models.StatusRead).
		UpdateColumns(map[string]interface{}{
			"status":       models.StatusRead,
			"read_at":      at,
			"delivered_at": gorm.Expr("COALESCE(delivered_at, ?)", at),
		}).Error
	if err != nil {
		return nil, translate(err)
	}
	ids := make([]string, 0, len(changed))
	for _, m := range changed {
		ids = append(ids, m.ID)
	}
	return ids, nil
}
