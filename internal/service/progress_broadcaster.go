package service

import (
	"context"

	"winnow-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

const broadcasterModule = "ProgressBroadcaster"

// ProgressSink receives every encoded progress event. The websocket hub is
// the production sink.
type ProgressSink interface {
	Broadcast(data []byte)
}

type IProgressBroadcaster interface {
	Consume(ctx context.Context) error
}

type progressBroadcaster struct {
	subscriber message.Subscriber
	topicName  string
	sink       ProgressSink
	logger     logger.ILogger
}

func NewProgressBroadcaster(subscriber message.Subscriber, topicName string, sink ProgressSink, log logger.ILogger) IProgressBroadcaster {
	return &progressBroadcaster{
		subscriber: subscriber,
		topicName:  topicName,
		sink:       sink,
		logger:     log,
	}
}

// Consume subscribes and forwards messages in the background until ctx is done.
func (b *progressBroadcaster) Consume(ctx context.Context) error {
	messages, err := b.subscriber.Subscribe(ctx, b.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			b.sink.Broadcast(msg.Payload)
			// Delivery to websocket clients is best effort; never redeliver.
			msg.Ack()
		}
		b.logger.Debug(broadcasterModule, "Subscription closed", map[string]interface{}{"topic": b.topicName})
	}()

	return nil
}
