package kafka

import (
	"context"

	"github.com/IBM/sarama"
)

// HandlerFunc processes one consumed message. A returned error prevents the
// offset from being committed so the message is redelivered.
type HandlerFunc func(ctx context.Context, msg *sarama.ConsumerMessage) error

// Consumer runs a consumer group loop over the given topics.
type Consumer struct {
	group   sarama.ConsumerGroup
	handler HandlerFunc
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler HandlerFunc) (*Consumer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Version = sarama.V2_5_0_0
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	return &Consumer{group: g, handler: handler}, nil
}

func (c *Consumer) Run(ctx context.Context, topics []string) error {
	for {
		if err := c.group.Consume(ctx, topics, groupHandler{handler: c.handler}); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type groupHandler struct {
	handler HandlerFunc
}

func (h groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := h.handler(sess.Context(), message); err != nil {
			continue
		}
		sess.MarkMessage(message, "")
	}
	return nil
}
