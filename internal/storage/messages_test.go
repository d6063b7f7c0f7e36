package storage_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"dmchat/backend/internal/models"
	"dmchat/backend/internal/storage"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// newMessageStore runs the message queries against an on-disk SQLite database.
// CreatedAt comes from a clock that advances one second per call.
func newMessageStore(t *testing.T) *storage.Service {
	t.Helper()
	var (
		mu   sync.Mutex
		tick int
	)
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "messages.db")), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			tick++
			return epoch.Add(time.Duration(tick) * time.Second)
		},
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Message{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return storage.NewStorageService(db, nil, nil)
}

func seedMessage(t *testing.T, s *storage.Service, id, conversationID, from, to string) {
	t.Helper()
	require.NoError(t, s.CreateMessage(context.Background(), &models.Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       from,
		ReceiverID:     to,
		Content:        "text " + id,
	}))
}

func TestCreateMessage_Defaults(t *testing.T) {
	s := newMessageStore(t)
	ctx := context.Background()

	msg := &models.Message{ConversationID: "c1", SenderID: "alice", ReceiverID: "bob", Content: "hi"}
	require.NoError(t, s.CreateMessage(ctx, msg))

	got, err := s.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, models.StatusSent, got.Status)
	assert.Nil(t, got.DeliveredAt)
	assert.Nil(t, got.ReadAt)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = s.GetMessage(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListMessages_PageAndTotal(t *testing.T) {
	// Arrange
	s := newMessageStore(t)
	ctx := context.Background()
	for _, id := range []string{"m1", "m2", "m3", "m4", "m5"} {
		seedMessage(t, s, id, "c1", "alice", "bob")
	}
	seedMessage(t, s, "other", "c2", "alice", "carol")

	// Act
	msgs, total, err := s.ListMessages(ctx, "c1", models.Page{Limit: 2, Offset: 1})

	// Assert
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m2", msgs[0].ID)
	assert.Equal(t, "m3", msgs[1].ID)

	msgs, total, err = s.ListMessages(ctx, "c1", models.Page{Limit: 10, Offset: 5})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Empty(t, msgs)
}

func TestMarkMessageDelivered_OnlyFromSent(t *testing.T) {
	s := newMessageStore(t)
	ctx := context.Background()
	seedMessage(t, s, "m1", "c1", "alice", "bob")
	t1 := epoch.Add(time.Hour)

	changed, err := s.MarkMessageDelivered(ctx, "m1", t1)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.MarkMessageDelivered(ctx, "m1", t1.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed, "second delivery ack is a no-op")

	got, err := s.GetMessage(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, got.Status)
	require.NotNil(t, got.DeliveredAt)
	assert.WithinDuration(t, t1, *got.DeliveredAt, time.Millisecond)
}

func TestMarkMessageRead_SetOnceAndNeverMovesBack(t *testing.T) {
	// Arrange
	s := newMessageStore(t)
	ctx := context.Background()
	seedMessage(t, s, "m1", "c1", "alice", "bob")
	delivered := epoch.Add(time.Hour)
	read := epoch.Add(2 * time.Hour)
	_, err := s.MarkMessageDelivered(ctx, "m1", delivered)
	require.NoError(t, err)

	// Act
	first, err := s.MarkMessageRead(ctx, "m1", read)
	require.NoError(t, err)
	second, err := s.MarkMessageRead(ctx, "m1", read.Add(time.Hour))
	require.NoError(t, err)
	lateAck, err := s.MarkMessageDelivered(ctx, "m1", read.Add(2*time.Hour))
	require.NoError(t, err)

	// Assert
	assert.True(t, first)
	assert.False(t, second)
	assert.False(t, lateAck, "a read message cannot go back to delivered")

	got, err := s.GetMessage(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRead, got.Status)
	require.NotNil(t, got.ReadAt)
	assert.WithinDuration(t, read, *got.ReadAt, time.Millisecond)
	require.NotNil(t, got.DeliveredAt)
	assert.WithinDuration(t, delivered, *got.DeliveredAt, time.Millisecond)
}

func TestMarkMessageRead_FromSentStampsDelivered(t *testing.T) {
	s := newMessageStore(t)
	ctx := context.Background()
	seedMessage(t, s, "m1", "c1", "alice", "bob")
	read := epoch.Add(time.Hour)

	changed, err := s.MarkMessageRead(ctx, "m1", read)
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := s.GetMessage(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, got.DeliveredAt)
	assert.WithinDuration(t, read, *got.DeliveredAt, time.Millisecond)
}

func TestMarkConversationRead_OnlyReadersUnreadMessages(t *testing.T) {
	// Arrange
	s := newMessageStore(t)
	ctx := context.Background()
	seedMessage(t, s, "m1", "c1", "alice", "bob")
	seedMessage(t, s, "m2", "c1", "alice", "bob")
	seedMessage(t, s, "m3", "c1", "bob", "alice")
	seedMessage(t, s, "m4", "c2", "carol", "bob")
	earlier := epoch.Add(time.Hour)
	_, err := s.MarkMessageRead(ctx, "m2", earlier)
	require.NoError(t, err)

	// Act
	ids, err := s.MarkConversationRead(ctx, "c1", "bob", epoch.Add(2*time.Hour))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, ids)

	own, err := s.GetMessage(ctx, "m3")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, own.Status, "the reader's own messages are untouched")
	assert.Nil(t, own.ReadAt)

	already, err := s.GetMessage(ctx, "m2")
	require.NoError(t, err)
	require.NotNil(t, already.ReadAt)
	assert.WithinDuration(t, earlier, *already.ReadAt, time.Millisecond)

	elsewhere, err := s.GetMessage(ctx, "m4")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, elsewhere.Status)

	ids, err = s.MarkConversationRead(ctx, "c1", "bob", epoch.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, ids)
}
