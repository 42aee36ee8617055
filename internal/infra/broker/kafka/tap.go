package kafka

import (
	"context"
	"log/slog"

	"github.com/IBM/sarama"
)

// EventTap mirrors consumed marketplace events into the structured log.
// When several instances share a broker, it gives each node an audit trail
// of what the fleet published without touching the database.
type EventTap struct {
	Logger *slog.Logger
}

func (t EventTap) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if t.Logger == nil {
		return nil
	}
	attrs := []any{
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"key", string(msg.Key),
	}
	for _, h := range msg.Headers {
		if string(h.Key) == "content-type" {
			attrs = append(attrs, "content_type", string(h.Value))
		}
	}
	t.Logger.Info("event consumed", attrs...)
	return nil
}

var _ MessageHandler = EventTap{}
