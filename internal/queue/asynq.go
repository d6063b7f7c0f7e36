package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// AsynqClient implements Client on top of asynq.
type AsynqClient struct {
	client *asynq.Client
}

var _ Client = (*AsynqClient)(nil)

// NewAsynqClient connects to the Redis instance at redisURL.
func NewAsynqClient(redisURL string) (*AsynqClient, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse redis url: %w", err)
	}
	return &AsynqClient{client: asynq.NewClient(opt)}, nil
}

func (a *AsynqClient) Enqueue(ctx context.Context, t Task, opts ...EnqueueOption) (string, error) {
	if t.Type == "" {
		return "", errors.New("asynq: task type is required")
	}
	info, err := a.client.EnqueueContext(ctx, asynq.NewTask(t.Type, t.Payload), asynqOptions(opts)...)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

func (a *AsynqClient) Close() error {
	return a.client.Close()
}

func asynqOptions(opts []EnqueueOption) []asynq.Option {
	var out []asynq.Option
	for _, op := range opts {
		if op.Queue != "" {
			out = append(out, asynq.Queue(op.Queue))
		}
		if op.ProcessIn > 0 {
			out = append(out, asynq.ProcessIn(op.ProcessIn))
		}
		if op.MaxRetry > 0 {
			out = append(out, asynq.MaxRetry(op.MaxRetry))
		}
		if op.UniqueTTL > 0 {
			out = append(out, asynq.Unique(op.UniqueTTL))
		}
		if op.Timeout > 0 {
			out = append(out, asynq.Timeout(op.Timeout))
		}
	}
	return out
}

// AsynqServer implements Server on top of asynq.
type AsynqServer struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

var _ Server = (*AsynqServer)(nil)

// NewAsynqServer consumes the given queues (name -> priority weight).
func NewAsynqServer(redisURL string, concurrency int, queues map[string]int, log *zap.Logger) (*AsynqServer, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse redis url: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 10
	}
	if len(queues) == 0 {
		queues = map[string]int{"default": 1}
	}
	if log == nil {
		log = zap.NewNop()
	}

	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Warn("task failed", zap.String("type", task.Type()), zap.Error(err))
		}),
	})
	return &AsynqServer{server: srv, mux: asynq.NewServeMux()}, nil
}

func (s *AsynqServer) Register(taskType string, h Handler) {
	s.mux.HandleFunc(taskType, func(ctx context.Context, t *asynq.Task) error {
		return h(ctx, Task{Type: t.Type(), Payload: t.Payload()})
	})
}

// Run starts the workers and blocks until ctx is canceled, then shuts down.
func (s *AsynqServer) Run(ctx context.Context) error {
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	<-ctx.Done()
	s.server.Shutdown()
	return nil
}
