package storage

import (
	"context"
	"time"

	"dmchat/backend/internal/models"

	"go.uber.org/zap"
)

// CreateUser зберігає нового користувача в PostgreSQL
func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	return translate(s.DB.WithContext(ctx).Create(user).Error)
}

func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Service) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetUsersByIDs повертає знайдених користувачів; відсутні ID просто пропускаються.
func (s *Service) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, translate(err)
	}
	return users, nil
}

// SetPresence records is_online and, when going offline, last_seen.
func (s *Service) SetPresence(ctx context.Context, userID string, online bool, at time.Time) error {
	updates := map[string]interface{}{"is_online": online}
	if !online {
		updates["last_seen"] = at
	}
	err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumns(updates).Error
	if err != nil {
		s.Log.Error("failed to persist presence", zap.String("user_id", userID), zap.Bool("online", online), zap.Error(err))
	}
	return translate(err)
}

func (s *Service) SetUserStatus(ctx context.Context, userID string, status models.UserStatus) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("status", status)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
