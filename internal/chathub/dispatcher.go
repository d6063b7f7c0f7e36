package chathub

import (
	"context"

	"dmchat/backend/internal/metrics"
	"dmchat/backend/internal/models"

	"go.uber.org/zap"
)

// AckerFunc records that a message reached the receiver's connection.
type AckerFunc func(ctx context.Context, messageID string)

// Dispatcher pushes events to online users. Nothing it does can fail the
// operation that triggered it: offline users are skipped and push errors
// are logged.
type Dispatcher struct {
	registry *Registry
	acker    AckerFunc
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewDispatcher(registry *Registry, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{registry: registry, log: log}
}

// SetAcker sets the callback run after a new message is pushed to its receiver.
func (d *Dispatcher) SetAcker(acker AckerFunc) { d.acker = acker }

func (d *Dispatcher) SetMetrics(m *metrics.Metrics) { d.metrics = m }

// MessageCreated pushes "message:new" to the receiver and, on success,
// acknowledges delivery in the background.
func (d *Dispatcher) MessageCreated(ctx context.Context, msg *models.MessageView) {
	if !d.push(msg.ReceiverID, models.Event{Name: models.EventMessageNew, Data: msg}) {
		return
	}
	if d.acker != nil {
		go d.acker(context.WithoutCancel(ctx), msg.ID)
	}
}

// MessageDelivered tells the sender their message reached the receiver.
func (d *Dispatcher) MessageDelivered(ctx context.Context, receipt models.DeliveryReceipt) {
	d.push(receipt.SenderID, models.Event{Name: models.EventMessageDelivered, Data: receipt})
}

// MessagesRead tells the sender the receiver has read their messages.
func (d *Dispatcher) MessagesRead(ctx context.Context, receipt models.ReadReceipt) {
	d.push(receipt.SenderID, models.Event{Name: models.EventMessageRead, Data: receipt})
}

func (d *Dispatcher) push(userID string, evt models.Event) bool {
	client, ok := d.registry.Lookup(userID)
	if !ok {
		d.metrics.Dispatched(evt.Name, metrics.OutcomeOffline)
		return false
	}
	if err := client.Send(evt); err != nil {
		d.metrics.Dispatched(evt.Name, metrics.OutcomeFailed)
		d.log.Warn("push failed",
			zap.String("event", evt.Name),
			zap.String("user_id", userID),
			zap.String("conn_id", client.GetConnID()),
			zap.Error(err))
		return false
	}
	d.metrics.Dispatched(evt.Name, metrics.OutcomePushed)
	return true
}
