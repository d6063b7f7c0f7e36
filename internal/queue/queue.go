// Package queue runs background tasks on Redis through asynq.
package queue

import (
	"context"
	"time"
)

// Task is a background job: a stable type name and opaque payload bytes.
type Task struct {
	Type    string
	Payload []byte
}

// Handler processes a Task. A non-nil error schedules a retry. Handlers must be idempotent.
type Handler func(ctx context.Context, task Task) error

// EnqueueOption controls enqueue behavior. Zero values mean "unspecified".
type EnqueueOption struct {
	Queue     string
	ProcessIn time.Duration
	MaxRetry  int
	UniqueTTL time.Duration
	Timeout   time.Duration
}

// Client enqueues tasks for background processing.
type Client interface {
	Enqueue(ctx context.Context, t Task, opts ...EnqueueOption) (id string, err error)
	Close() error
}

// Server runs workers that handle tasks until Run's context is canceled.
type Server interface {
	Register(taskType string, h Handler)
	Run(ctx context.Context) error
}
