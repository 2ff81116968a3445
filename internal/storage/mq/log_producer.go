package mq

import (
	"context"
	"log/slog"
)

var _ Producer = (*LogProducer)(nil)

// LogProducer writes messages to the log instead of a broker. It stands in
// for Kafka when the service runs on the in-memory store.
type LogProducer struct {
	log *slog.Logger
}

func NewLogProducer(logger *slog.Logger) *LogProducer {
	return &LogProducer{log: logger.With(slog.String("service", "mq_log_producer"))}
}

func (p *LogProducer) Produce(ctx context.Context, msg ProduceMsg) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := ""
	if msg.PartitionKey != nil {
		key = *msg.PartitionKey
	}

	p.log.InfoContext(ctx, "domain event",
		slog.String("topic", msg.Topic),
		slog.String("key", key),
		slog.String("payload", string(msg.Payload)),
	)
	return nil
}
