package models

import "time"

// Назви подій, що надсилаються клієнтам через WebSocket.
const (
	EventConnected        = "connected"
	EventMessageNew       = "message:new"
	EventMessageDelivered = "message:delivered"
	EventMessageRead      = "message:read"
	EventError            = "error"
)

// Inbound frame names.
const (
	FrameMessageSend      = "message:send"
	FrameMessageRead      = "message:read"
	FrameConversationRead = "conversation:read"
)

// Event is the outbound frame: {"event": ..., "data": ...}.
type Event struct {
	Name string      `json:"event"`
	Data interface{} `json:"data"`
}

// DeliveryReceipt tells a sender that a message reached the receiver's connection.
type DeliveryReceipt struct {
	ConversationID string    `json:"conversationId"`
	MessageID      string    `json:"messageId"`
	SenderID       string    `json:"-"`
	DeliveredAt    time.Time `json:"deliveredAt"`
}

// ReadReceipt tells a sender that the receiver has read one or more messages.
type ReadReceipt struct {
	ConversationID string    `json:"conversationId"`
	ReaderID       string    `json:"readerId"`
	SenderID       string    `json:"-"`
	MessageIDs     []string  `json:"messageIds"`
	ReadAt         time.Time `json:"readAt"`
}

// ErrorPayload is sent with EventError frames.
type ErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
