package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"dmchat/backend/internal/apperr"
	"dmchat/backend/internal/models"
	"dmchat/backend/internal/storage"

	"go.uber.org/zap"
)

// FindOrCreate returns the single conversation between userA and userB,
// creating it on first use. Concurrent callers for the same pair all get
// the same conversation.
func (s *Service) FindOrCreate(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	userA, userB = strings.TrimSpace(userA), strings.TrimSpace(userB)
	if userA == "" || userB == "" {
		return nil, apperr.New(apperr.BadRequest, "participant id is required")
	}
	if userA == userB {
		return nil, apperr.New(apperr.BadRequest, "cannot start a conversation with yourself")
	}
	if _, err := s.store.GetUser(ctx, userB); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "user lookup failed", err)
	}

	pair := models.CanonicalPair(userA, userB)
	conv, err := s.store.FindConversationByPair(ctx, pair)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Wrap(apperr.Internal, "conversation lookup failed", err)
	}

	conv = &models.Conversation{ParticipantIDs: pair}
	err = s.store.CreateConversation(ctx, conv)
	if err == nil {
		s.log.Info("conversation created", zap.String("conversation_id", conv.ID), zap.Strings("participants", pair))
		return conv, nil
	}
	if !errors.Is(err, storage.ErrDuplicate) {
		return nil, apperr.Wrap(apperr.Internal, "conversation create failed", err)
	}

	// Інший запит створив цю пару між нашим пошуком і вставкою.
	conv, err = s.store.FindConversationByPair(ctx, pair)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "conversation lookup failed", err)
	}
	return conv, nil
}

// GetIfParticipant повертає NotFound, якщо розмови немає, і Forbidden, якщо userID не учасник.
func (s *Service) GetIfParticipant(ctx context.Context, conversationID, userID string) (*models.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "conversation not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "conversation lookup failed", err)
	}
	if !conv.Has(userID) {
		return nil, apperr.New(apperr.Forbidden, "you are not a participant of this conversation")
	}
	return conv, nil
}

// ListForUser returns the user's conversations, most recently updated first,
// each with its last message and participant summaries.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.ConversationView, error) {
	convs, err := s.store.ListConversationsForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "conversation list failed", err)
	}

	var (
		userIDs    []string
		messageIDs []string
		seen       = map[string]bool{}
	)
	for _, c := range convs {
		for _, id := range c.ParticipantIDs {
			if !seen[id] {
				seen[id] = true
				userIDs = append(userIDs, id)
			}
		}
		if c.LastMessageID != nil {
			messageIDs = append(messageIDs, *c.LastMessageID)
		}
	}

	users := s.summaries(ctx, userIDs)
	lastByID := map[string]models.Message{}
	if len(messageIDs) > 0 {
		msgs, err := s.store.GetMessagesByIDs(ctx, messageIDs)
		if err != nil {
			s.log.Warn("failed to load last messages", zap.String("user_id", userID), zap.Error(err))
		}
		for _, m := range msgs {
			lastByID[m.ID] = m
		}
	}

	views := make([]models.ConversationView, 0, len(convs))
	for _, c := range convs {
		v := models.ConversationView{
			ID:        c.ID,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		}
		for _, id := range c.ParticipantIDs {
			v.Participants = append(v.Participants, users[id])
		}
		if c.LastMessageID != nil {
			if m, ok := lastByID[*c.LastMessageID]; ok {
				m := m
				v.LastMessage = &m
			}
		}
		views = append(views, v)
	}
	return views, nil
}

// SetLastMessage is best effort: a failure leaves the pointer stale and is only logged.
func (s *Service) SetLastMessage(ctx context.Context, conversationID, messageID string, at time.Time) {
	if err := s.store.SetLastMessage(ctx, conversationID, messageID, at); err != nil {
		s.log.Warn("last message pointer not updated",
			zap.String("conversation_id", conversationID),
			zap.String("message_id", messageID),
			zap.Error(err))
	}
}
