package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Conversation is a two-party thread. ParticipantIDs always holds the
// canonical (sorted) pair, and the pair is unique across the table.
type Conversation struct {
	ID             string         `gorm:"primaryKey;type:text" json:"id"`
	ParticipantIDs pq.StringArray `gorm:"type:text[];not null;uniqueIndex:idx_conversation_pair" json:"participantIds"`
	LastMessageID  *string        `gorm:"type:text" json:"lastMessageId,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `gorm:"index" json:"updatedAt"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// CanonicalPair returns the order-independent representation of {a, b}.
func CanonicalPair(a, b string) pq.StringArray {
	pair := []string{a, b}
	sort.Strings(pair)
	return pq.StringArray(pair)
}

// Has reports whether userID is one of the participants.
func (c *Conversation) Has(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID string) (string, bool) {
	if len(c.ParticipantIDs) != 2 || !c.Has(userID) {
		return "", false
	}
	if c.ParticipantIDs[0] == userID {
		return c.ParticipantIDs[1], true
	}
	return c.ParticipantIDs[0], true
}

// ConversationView is a conversation enriched for listing.
type ConversationView struct {
	ID           string        `json:"id"`
	Participants []UserSummary `json:"participants"`
	LastMessage  *Message      `json:"lastMessage,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}
