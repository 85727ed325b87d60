package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

const defaultRetryDelay = time.Second

// OrderPlacedHandler reacts to an order placed on any storefront instance.
type OrderPlacedHandler func(ctx context.Context, ev OrderPlaced) error

// Consumer follows the orders topic so each instance can drop carts another one checked out.
type Consumer struct {
	reader     messageReader
	handler    OrderPlacedHandler
	log        logrus.FieldLogger
	retryDelay time.Duration
}

// NewConsumer joins groupID; give every instance its own group so all of them see every event.
func NewConsumer(groupID string, handler OrderPlacedHandler, log logrus.FieldLogger, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       TopicOrders,
		GroupID:     groupID,
		MaxBytes:    10e6, // 10MB
		StartOffset: kafka.LastOffset,
	})
	return &Consumer{reader: reader, handler: handler, log: log, retryDelay: defaultRetryDelay}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.consumeOne(ctx)
	}
}

func (c *Consumer) consumeOne(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, context.Canceled) {
			c.log.WithError(err).Warn("error reading order event")
			c.wait(ctx)
		}
		return
	}

	if eventType(m) != EventTypeOrderPlaced {
		return
	}

	var ev OrderPlaced
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		c.log.WithError(err).WithField("offset", m.Offset).Warn("error parsing order event")
		return
	}
	if ev.SessionID == "" {
		c.log.WithField("order_id", ev.OrderID).Warn("order event without session id")
		return
	}

	if err := c.handler(ctx, ev); err != nil {
		c.log.WithError(err).WithField("order_id", ev.OrderID).Error("failed to handle order event")
	}
}

// wait pauses after a failed read so a broker outage does not spin the loop.
func (c *Consumer) wait(ctx context.Context) {
	if c.retryDelay <= 0 {
		return
	}
	t := time.NewTimer(c.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
