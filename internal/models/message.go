package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageStatus only moves forward: sent -> delivered -> read.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// Rank orders statuses along the lifecycle.
func (s MessageStatus) Rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	default:
		return 0
	}
}

// Message зберігається в PostgreSQL. CreatedAt призначається сховищем при записі.
type Message struct {
	ID             string        `gorm:"primaryKey;type:text" json:"id"`
	ConversationID string        `gorm:"type:text;not null;index:idx_conversation_created,priority:1" json:"conversationId"`
	SenderID       string        `gorm:"type:text;not null" json:"senderId"`
	ReceiverID     string        `gorm:"type:text;not null;index" json:"receiverId"`
	Content        string        `gorm:"type:text;not null" json:"content"`
	Status         MessageStatus `gorm:"type:text;not null;default:sent" json:"status"`
	CreatedAt      time.Time     `gorm:"index:idx_conversation_created,priority:2" json:"createdAt"`
	DeliveredAt    *time.Time    `json:"deliveredAt,omitempty"`
	ReadAt         *time.Time    `json:"readAt,omitempty"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Status == "" {
		m.Status = StatusSent
	}
	return
}

// MessageView is a message enriched with both participants' summaries.
type MessageView struct {
	Message
	Sender   UserSummary `json:"sender"`
	Receiver UserSummary `json:"receiver"`
}

// MessagePage is one page of a conversation's history, oldest first.
type MessagePage struct {
	Messages []Message `json:"messages"`
	Total    int64     `json:"total"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}

// Page is an offset/limit window.
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the window to [1, max] with def used for non-positive limits.
func (p Page) Normalize(def, max int) Page {
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
