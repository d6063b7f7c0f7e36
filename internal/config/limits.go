package config

import "time"

const (
	// Message
	MaxContentLength = 2048

	// History paging
	DefaultPageSize = 50
	MaxPageSize     = 100

	// WebSocket
	WriteWait       = 10 * time.Second
	PongWait        = 60 * time.Second
	PingPeriod      = (PongWait * 9) / 10
	MaxFrameSize    = 8192
	SendBufferSize  = 64
	SupersededCode  = 4001
	SupersededCause = "session replaced"

	// Request budget for store calls made from HTTP handlers
	RequestTimeout = 5 * time.Second

	// Delivery acknowledgement task
	DeliveryTaskQueue    = "delivery"
	DeliveryTaskMaxRetry = 3
)
