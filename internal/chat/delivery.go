package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"dmchat/backend/internal/apperr"
	"dmchat/backend/internal/config"
	"dmchat/backend/internal/queue"

	"go.uber.org/zap"
)

// TaskMarkDelivered is the queue task that moves a pushed message to delivered.
const TaskMarkDelivered = "chat:mark_delivered"

type markDeliveredPayload struct {
	MessageID string `json:"messageId"`
}

// DeliveryAcker records delivery after a successful realtime push. With a
// queue client the update runs on a worker with retries, otherwise inline.
type DeliveryAcker struct {
	svc   *Service
	queue queue.Client
	log   *zap.Logger
}

func NewDeliveryAcker(svc *Service, q queue.Client, log *zap.Logger) *DeliveryAcker {
	if log == nil {
		log = zap.NewNop()
	}
	return &DeliveryAcker{svc: svc, queue: q, log: log}
}

// Ack is best effort: failures are logged, never returned.
func (a *DeliveryAcker) Ack(ctx context.Context, messageID string) {
	if a.queue != nil {
		payload, _ := json.Marshal(markDeliveredPayload{MessageID: messageID})
		_, err := a.queue.Enqueue(ctx, queue.Task{Type: TaskMarkDelivered, Payload: payload}, queue.EnqueueOption{
			Queue:    config.DeliveryTaskQueue,
			MaxRetry: config.DeliveryTaskMaxRetry,
		})
		if err == nil {
			return
		}
		a.log.Warn("delivery ack not enqueued, applying inline", zap.String("message_id", messageID), zap.Error(err))
	}
	if err := a.svc.MarkDelivered(ctx, messageID); err != nil {
		a.log.Warn("delivery ack failed", zap.String("message_id", messageID), zap.Error(err))
	}
}

// HandleMarkDeliveredTask is the worker side of TaskMarkDelivered.
func (s *Service) HandleMarkDeliveredTask(ctx context.Context, task queue.Task) error {
	var p markDeliveredPayload
	if err := json.Unmarshal(task.Payload, &p); err != nil || p.MessageID == "" {
		s.log.Warn("dropping malformed delivery task", zap.ByteString("payload", task.Payload))
		return nil
	}
	err := s.MarkDelivered(ctx, p.MessageID)
	if apperr.Is(err, apperr.NotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark delivered %s: %w", p.MessageID, err)
	}
	return nil
}
