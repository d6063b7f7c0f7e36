package chathub_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"dmchat/backend/internal/chat"
	"dmchat/backend/internal/chathub"
	"dmchat/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ chat.Notifier = (*chathub.Dispatcher)(nil)

func newMessageView() *models.MessageView {
	return &models.MessageView{
		Message: models.Message{ID: "m1", ConversationID: "c1", SenderID: "alice", ReceiverID: "bob", Content: "hi", Status: models.StatusSent},
		Sender:  models.UserSummary{ID: "alice", Username: "alice"},
	}
}

func TestDispatcher_PushesNewMessageToReceiver(t *testing.T) {
	// Arrange
	r := chathub.NewRegistry()
	bob := newMockClient("bob", "c-bob")
	alice := newMockClient("alice", "c-alice")
	r.Register(bob)
	r.Register(alice)
	d := chathub.NewDispatcher(r, nil)
	acked := make(chan string, 1)
	d.SetAcker(func(ctx context.Context, messageID string) { acked <- messageID })

	// Act
	d.MessageCreated(context.Background(), newMessageView())

	// Assert
	select {
	case evt := <-bob.RecvChannel:
		assert.Equal(t, models.EventMessageNew, evt.Name)
		assert.Equal(t, "m1", evt.Data.(*models.MessageView).ID)
	case <-time.After(time.Second):
		t.Fatal("bob did not receive message:new")
	}
	assert.Empty(t, alice.Received(), "sender is not pushed")

	select {
	case id := <-acked:
		assert.Equal(t, "m1", id)
	case <-time.After(time.Second):
		t.Fatal("delivery was not acknowledged")
	}
}

func TestDispatcher_OfflineReceiverIsNoop(t *testing.T) {
	r := chathub.NewRegistry()
	d := chathub.NewDispatcher(r, nil)
	acked := make(chan string, 1)
	d.SetAcker(func(ctx context.Context, messageID string) { acked <- messageID })

	assert.NotPanics(t, func() {
		d.MessageCreated(context.Background(), newMessageView())
	})

	select {
	case <-acked:
		t.Fatal("offline messages must not be acknowledged")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDispatcher_PushFailureIsSwallowed(t *testing.T) {
	r := chathub.NewRegistry()
	bob := newMockClient("bob", "c-bob")
	bob.sendErr = errors.New("broken pipe")
	r.Register(bob)
	d := chathub.NewDispatcher(r, nil)
	acked := make(chan string, 1)
	d.SetAcker(func(ctx context.Context, messageID string) { acked <- messageID })

	d.MessageCreated(context.Background(), newMessageView())

	select {
	case <-acked:
		t.Fatal("failed pushes must not be acknowledged")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDispatcher_ReceiptsGoToSender(t *testing.T) {
	r := chathub.NewRegistry()
	alice := newMockClient("alice", "c-alice")
	bob := newMockClient("bob", "c-bob")
	r.Register(alice)
	r.Register(bob)
	d := chathub.NewDispatcher(r, nil)
	now := time.Now()

	d.MessageDelivered(context.Background(), models.DeliveryReceipt{ConversationID: "c1", MessageID: "m1", SenderID: "alice", DeliveredAt: now})
	d.MessagesRead(context.Background(), models.ReadReceipt{ConversationID: "c1", ReaderID: "bob", SenderID: "alice", MessageIDs: []string{"m1"}, ReadAt: now})

	got := alice.Received()
	require.Len(t, got, 2)
	assert.Equal(t, models.EventMessageDelivered, got[0].Name)
	assert.Equal(t, models.EventMessageRead, got[1].Name)
	assert.Empty(t, bob.Received())
}

// After a reconnect the dispatcher targets the newest connection only.
func TestDispatcher_TargetsCurrentConnection(t *testing.T) {
	r := chathub.NewRegistry()
	old := newMockClient("bob", "c1")
	current := newMockClient("bob", "c2")
	r.Register(old)
	r.Register(current)
	d := chathub.NewDispatcher(r, nil)

	d.MessageCreated(context.Background(), newMessageView())

	assert.Empty(t, old.Received())
	assert.Len(t, current.Received(), 1)
}
