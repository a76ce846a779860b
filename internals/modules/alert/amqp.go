package alert

import (
	"context"

	"healthwatch/config"
)

// EventPublisher publishes a typed JSON event to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// AMQPNotifier emits alerts as "alert.<kind>" events for downstream consumers.
type AMQPNotifier struct {
	publisher EventPublisher
}

func NewAMQPNotifier(publisher EventPublisher) *AMQPNotifier {
	return &AMQPNotifier{publisher: publisher}
}

func (n *AMQPNotifier) Name() string { return config.ChannelAMQP }

func (n *AMQPNotifier) Send(ctx context.Context, p AlertPayload) error {
	return n.publisher.Publish(ctx, "alert."+string(p.Kind), p)
}
