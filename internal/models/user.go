package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserStatus стан облікового запису.
type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
	UserBanned   UserStatus = "banned"
	UserDeleted  UserStatus = "deleted"
)

// User представляє користувача в системі.
// Ядро читає лише ідентичність та відображувані поля і записує IsOnline/LastSeen.
type User struct {
	ID        string     `gorm:"primaryKey;type:text" json:"id"`
	Username  string     `gorm:"uniqueIndex;not null" json:"username"`
	Avatar    string     `json:"avatar,omitempty"`
	Status    UserStatus `gorm:"type:text;not null;default:active" json:"status"`
	IsOnline  bool       `gorm:"not null;default:false" json:"isOnline"`
	LastSeen  *time.Time `json:"lastSeen,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// BeforeCreate це хук GORM, який викликається перед створенням запису.
// Він генерує новий UUID для користувача, якщо ID ще не встановлено.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Status == "" {
		u.Status = UserActive
	}
	return
}

// CanConnect reports whether the account may open sessions.
func (u *User) CanConnect() bool {
	return u.Status == UserActive
}

// Summary returns the public projection of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:       u.ID,
		Username: u.Username,
		Avatar:   u.Avatar,
		IsOnline: u.IsOnline,
		LastSeen: u.LastSeen,
	}
}

// UserSummary is the read-only projection used to enrich conversations and messages.
type UserSummary struct {
	ID       string     `json:"id"`
	Username string     `json:"username"`
	Avatar   string     `json:"avatar,omitempty"`
	IsOnline bool       `json:"isOnline"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}
