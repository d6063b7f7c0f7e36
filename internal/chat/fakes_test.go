package chat_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"dmchat/backend/internal/models"
	"dmchat/backend/internal/queue"
	"dmchat/backend/internal/storage"

	"github.com/lib/pq"
)

// memStore is an in-memory chat.Store with the same uniqueness and
// conditional-update rules as the Postgres store.
type memStore struct {
	mu    sync.Mutex
	clock time.Time

	users map[string]*models.User
	convs map[string]*models.Conversation
	pairs map[string]string
	msgs  map[string]*models.Message

	// raceOnCreate makes the next CreateConversation lose to a competing insert.
	raceOnCreate bool
	failSetLast  bool
	createCalls  int
}

func newMemStore(userIDs ...string) *memStore {
	s := &memStore{
		clock: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		users: map[string]*models.User{},
		convs: map[string]*models.Conversation{},
		pairs: map[string]string{},
		msgs:  map[string]*models.Message{},
	}
	for _, id := range userIDs {
		s.users[id] = &models.User{ID: id, Username: "user-" + id, Status: models.UserActive}
	}
	return s
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func pairKey(pair pq.StringArray) string { return pair[0] + "|" + pair[1] }

func (s *memStore) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) GetUsersByIDs(_ context.Context, ids []string) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *memStore) FindConversationByPair(_ context.Context, pair pq.StringArray) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.pairs[pairKey(pair)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *s.convs[id]
	return &cp, nil
}

func (s *memStore) insertConversation(conv *models.Conversation) error {
	key := pairKey(conv.ParticipantIDs)
	if _, exists := s.pairs[key]; exists {
		return storage.ErrDuplicate
	}
	_ = conv.BeforeCreate(nil)
	now := s.tick()
	conv.CreatedAt, conv.UpdatedAt = now, now
	cp := *conv
	s.convs[conv.ID] = &cp
	s.pairs[key] = conv.ID
	return nil
}

func (s *memStore) CreateConversation(_ context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.raceOnCreate {
		s.raceOnCreate = false
		competitor := &models.Conversation{ParticipantIDs: append(pq.StringArray{}, conv.ParticipantIDs...)}
		if err := s.insertConversation(competitor); err != nil {
			return err
		}
	}
	return s.insertConversation(conv)
}

func (s *memStore) GetConversation(_ context.Context, id string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) ListConversationsForUser(_ context.Context, userID string) ([]models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Conversation
	for _, c := range s.convs {
		if c.Has(userID) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *memStore) SetLastMessage(_ context.Context, conversationID, messageID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSetLast {
		return context.DeadlineExceeded
	}
	if c, ok := s.convs[conversationID]; ok {
		id := messageID
		c.LastMessageID = &id
		c.UpdatedAt = at
	}
	return nil
}

func (s *memStore) CreateMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = msg.BeforeCreate(nil)
	msg.CreatedAt = s.tick()
	cp := *msg
	s.msgs[msg.ID] = &cp
	return nil
}

func (s *memStore) GetMessage(_ context.Context, id string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) GetMessagesByIDs(_ context.Context, ids []string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, id := range ids {
		if m, ok := s.msgs[id]; ok {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *memStore) ListMessages(_ context.Context, conversationID string, page models.Page) ([]models.Message, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.Message
	for _, m := range s.msgs {
		if m.ConversationID == conversationID {
			all = append(all, *m)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	total := int64(len(all))
	if page.Offset >= len(all) {
		return nil, total, nil
	}
	end := page.Offset + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[page.Offset:end], total, nil
}

func (s *memStore) MarkMessageDelivered(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok || m.Status != models.StatusSent {
		return false, nil
	}
	m.Status = models.StatusDelivered
	m.DeliveredAt = &at
	return true, nil
}

func (s *memStore) markRead(m *models.Message, at time.Time) bool {
	if m.Status == models.StatusRead {
		return false
	}
	m.Status = models.StatusRead
	m.ReadAt = &at
	if m.DeliveredAt == nil {
		m.DeliveredAt = &at
	}
	return true
}

func (s *memStore) MarkMessageRead(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return false, nil
	}
	return s.markRead(m, at), nil
}

func (s *memStore) MarkConversationRead(_ context.Context, conversationID, readerID string, at time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, m := range s.msgs {
		if m.ConversationID == conversationID && m.ReceiverID == readerID && s.markRead(m, at) {
			ids = append(ids, m.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// recordingNotifier captures every event handed to it.
type recordingNotifier struct {
	mu        sync.Mutex
	created   []*models.MessageView
	delivered []models.DeliveryReceipt
	read      []models.ReadReceipt
}

func (n *recordingNotifier) MessageCreated(_ context.Context, msg *models.MessageView) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, msg)
}

func (n *recordingNotifier) MessageDelivered(_ context.Context, r models.DeliveryReceipt) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delivered = append(n.delivered, r)
}

func (n *recordingNotifier) MessagesRead(_ context.Context, r models.ReadReceipt) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.read = append(n.read, r)
}

// fakeQueue records enqueued tasks, optionally failing.
type fakeQueue struct {
	mu    sync.Mutex
	tasks []queue.Task
	opts  []queue.EnqueueOption
	err   error
}

func (q *fakeQueue) Enqueue(_ context.Context, t queue.Task, opts ...queue.EnqueueOption) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	q.tasks = append(q.tasks, t)
	q.opts = append(q.opts, opts...)
	return "task-1", nil
}

func (q *fakeQueue) Close() error { return nil }
