package chathub

import (
	"errors"

	"dmchat/backend/internal/models"
)

var (
	ErrClientClosed   = errors.New("chathub: client closed")
	ErrSendBufferFull = errors.New("chathub: send buffer full")
)

// Client is one live connection of a user. The hub only ever talks to
// connections through this interface, so tests can plug in fakes.
type Client interface {
	// GetUserID returns the authenticated user behind the connection.
	GetUserID() string
	// GetConnID identifies this particular connection.
	GetConnID() string
	// Send queues an event without blocking. It fails when the client is
	// closed or cannot keep up.
	Send(evt models.Event) error
	// Run starts the read and write pumps.
	Run()
	// Close shuts the connection down with a close code. Safe to call more than once.
	Close(code int, reason string)
}
