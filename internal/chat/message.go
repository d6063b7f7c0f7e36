package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"dmchat/backend/internal/apperr"
	"dmchat/backend/internal/config"
	"dmchat/backend/internal/models"
	"dmchat/backend/internal/storage"

	"go.uber.org/zap"
)

// ValidateContent trims content and enforces the non-empty and length rules.
func ValidateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperr.New(apperr.BadRequest, "message content is required")
	}
	if utf8.RuneCountInString(content) > config.MaxContentLength {
		return "", apperr.New(apperr.BadRequest, fmt.Sprintf("message content exceeds %d characters", config.MaxContentLength))
	}
	return content, nil
}

// Create persists a message from senderID into the conversation, moves the
// conversation's last-message pointer and hands the message to the notifier.
// Notification never affects the result.
func (s *Service) Create(ctx context.Context, conversationID, senderID, content string) (*models.MessageView, error) {
	content, err := ValidateContent(content)
	if err != nil {
		return nil, err
	}
	conv, err := s.GetIfParticipant(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}
	receiverID, ok := conv.Other(senderID)
	if !ok {
		return nil, apperr.New(apperr.Internal, "conversation has no other participant")
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
		Status:         models.StatusSent,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "message could not be saved", err)
	}
	s.SetLastMessage(ctx, conv.ID, msg.ID, msg.CreatedAt)
	s.metrics.MessageSent()

	people := s.summaries(ctx, []string{senderID, receiverID})
	view := &models.MessageView{
		Message:  *msg,
		Sender:   people[senderID],
		Receiver: people[receiverID],
	}
	s.notifier.MessageCreated(ctx, view)

	s.log.Debug("message sent",
		zap.String("message_id", msg.ID),
		zap.String("conversation_id", conv.ID),
		zap.String("sender_id", senderID))
	return view, nil
}

// SendToUser finds or creates the conversation with receiverID and sends into it.
func (s *Service) SendToUser(ctx context.Context, senderID, receiverID, content string) (*models.MessageView, error) {
	if _, err := ValidateContent(content); err != nil {
		return nil, err
	}
	conv, err := s.FindOrCreate(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, conv.ID, senderID, content)
}

// ListForConversation returns a page of history, oldest first, with the total count.
func (s *Service) ListForConversation(ctx context.Context, conversationID, userID string, page models.Page) (*models.MessagePage, error) {
	if _, err := s.GetIfParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	page = page.Normalize(config.DefaultPageSize, config.MaxPageSize)
	msgs, total, err := s.store.ListMessages(ctx, conversationID, page)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "message list failed", err)
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return &models.MessagePage{
		Messages: msgs,
		Total:    total,
		Limit:    page.Limit,
		Offset:   page.Offset,
	}, nil
}

func (s *Service) getMessage(ctx context.Context, id string) (*models.Message, error) {
	msg, err := s.store.GetMessage(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "message not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "message lookup failed", err)
	}
	return msg, nil
}

// MarkDelivered moves a sent message to delivered. Repeated calls are no-ops.
// The sender is notified only when the status actually changed.
func (s *Service) MarkDelivered(ctx context.Context, messageID string) error {
	msg, err := s.getMessage(ctx, messageID)
	if err != nil {
		return err
	}
	at := s.now()
	changed, err := s.store.MarkMessageDelivered(ctx, msg.ID, at)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "delivery status not saved", err)
	}
	if changed {
		s.notifier.MessageDelivered(ctx, models.DeliveryReceipt{
			ConversationID: msg.ConversationID,
			MessageID:      msg.ID,
			SenderID:       msg.SenderID,
			DeliveredAt:    at,
		})
	}
	return nil
}

// MarkRead marks a single message as read. Only the receiver may do so.
// Marking an already-read message returns it unchanged.
func (s *Service) MarkRead(ctx context.Context, messageID, readerID string) (*models.Message, error) {
	msg, err := s.getMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetIfParticipant(ctx, msg.ConversationID, readerID); err != nil {
		return nil, err
	}
	if msg.ReceiverID != readerID {
		return nil, apperr.New(apperr.Forbidden, "only the receiver can mark a message as read")
	}

	at := s.now()
	changed, err := s.store.MarkMessageRead(ctx, msg.ID, at)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "read status not saved", err)
	}
	if !changed {
		if msg.Status != models.StatusRead {
			return s.getMessage(ctx, msg.ID)
		}
		return msg, nil
	}

	msg.Status = models.StatusRead
	msg.ReadAt = &at
	if msg.DeliveredAt == nil {
		msg.DeliveredAt = &at
	}
	s.notifier.MessagesRead(ctx, models.ReadReceipt{
		ConversationID: msg.ConversationID,
		ReaderID:       readerID,
		SenderID:       msg.SenderID,
		MessageIDs:     []string{msg.ID},
		ReadAt:         at,
	})
	return msg, nil
}

// MarkAllReadInConversation marks every unread message addressed to readerID
// as read and returns how many changed. Messages sent by readerID are untouched.
func (s *Service) MarkAllReadInConversation(ctx context.Context, conversationID, readerID string) (int, error) {
	conv, err := s.GetIfParticipant(ctx, conversationID, readerID)
	if err != nil {
		return 0, err
	}
	at := s.now()
	ids, err := s.store.MarkConversationRead(ctx, conv.ID, readerID, at)
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, "read status not saved", err)
	}
	if len(ids) > 0 {
		other, _ := conv.Other(readerID)
		s.notifier.MessagesRead(ctx, models.ReadReceipt{
			ConversationID: conv.ID,
			ReaderID:       readerID,
			SenderID:       other,
			MessageIDs:     ids,
			ReadAt:         at,
		})
	}
	return len(ids), nil
}
