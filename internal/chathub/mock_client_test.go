package chathub_test

import (
	"sync"

	"dmchat/backend/internal/chathub"
	"dmchat/backend/internal/models"
)

// MockClient records what the hub sends to it.
type MockClient struct {
	userID string
	connID string

	mu          sync.Mutex
	sendErr     error
	received    []models.Event
	closed      bool
	closeCode   int
	onClose     func()
	RecvChannel chan models.Event
}

var _ chathub.Client = (*MockClient)(nil)

func newMockClient(userID, connID string) *MockClient {
	return &MockClient{
		userID:      userID,
		connID:      connID,
		RecvChannel: make(chan models.Event, 10),
	}
}

func (c *MockClient) GetUserID() string { return c.userID }
func (c *MockClient) GetConnID() string { return c.connID }

func (c *MockClient) Send(evt models.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.received = append(c.received, evt)
	select {
	case c.RecvChannel <- evt:
	default:
	}
	return nil
}

func (c *MockClient) Run() {
	// Not needed for testing
}

// Close records the close; onClose, if set, runs in its own goroutine the
// way a read pump reacts to the socket closing.
func (c *MockClient) Close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeCode = code
	if c.onClose != nil {
		go c.onClose()
	}
}

func (c *MockClient) Received() []models.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Event(nil), c.received...)
}

func (c *MockClient) Closed() (bool, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, c.closeCode
}
