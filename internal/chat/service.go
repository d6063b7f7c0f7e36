// Package chat implements conversations and messages on top of a Store.
package chat

import (
	"context"
	"time"

	"dmchat/backend/internal/metrics"
	"dmchat/backend/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Store is the persistence the chat service depends on.
type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error)

	FindConversationByPair(ctx context.Context, pair pq.StringArray) (*models.Conversation, error)
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	ListConversationsForUser(ctx context.Context, userID string) ([]models.Conversation, error)
	SetLastMessage(ctx context.Context, conversationID, messageID string, at time.Time) error

	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	GetMessagesByIDs(ctx context.Context, ids []string) ([]models.Message, error)
	ListMessages(ctx context.Context, conversationID string, page models.Page) ([]models.Message, int64, error)
	MarkMessageDelivered(ctx context.Context, id string, at time.Time) (bool, error)
	MarkMessageRead(ctx context.Context, id string, at time.Time) (bool, error)
	MarkConversationRead(ctx context.Context, conversationID, readerID string, at time.Time) ([]string, error)
}

// Notifier receives events after state changes are persisted.
// Implementations must not block and must not fail the caller.
type Notifier interface {
	MessageCreated(ctx context.Context, msg *models.MessageView)
	MessageDelivered(ctx context.Context, receipt models.DeliveryReceipt)
	MessagesRead(ctx context.Context, receipt models.ReadReceipt)
}

type nopNotifier struct{}

func (nopNotifier) MessageCreated(context.Context, *models.MessageView)       {}
func (nopNotifier) MessageDelivered(context.Context, models.DeliveryReceipt) {}
func (nopNotifier) MessagesRead(context.Context, models.ReadReceipt)         {}

type Service struct {
	store    Store
	notifier Notifier
	metrics  *metrics.Metrics
	log      *zap.Logger
	now      func() time.Time
}

func NewService(store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:    store,
		notifier: nopNotifier{},
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetNotifier встановлює отримувача подій (зазвичай диспетчер доставки).
func (s *Service) SetNotifier(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	s.notifier = n
}

func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// summaries loads display projections for ids. Unknown ids get an id-only summary.
func (s *Service) summaries(ctx context.Context, ids []string) map[string]models.UserSummary {
	out := make(map[string]models.UserSummary, len(ids))
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		s.log.Warn("failed to load participant summaries", zap.Strings("user_ids", ids), zap.Error(err))
	}
	for i := range users {
		out[users[i].ID] = users[i].Summary()
	}
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			out[id] = models.UserSummary{ID: id}
		}
	}
	return out
}
