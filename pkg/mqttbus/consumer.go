package mqttbus

import (
	"context"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Handler processes one message. Errors are logged; the message is not redelivered.
type Handler func(topic string, msg mqtt.Message) error

type Consumer struct {
	client  mqtt.Client
	topic   string
	qos     byte
	handler Handler
	logger  *zap.Logger
}

func NewConsumer(client mqtt.Client, topic string, qos byte, handler Handler, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		client:  client,
		topic:   topic,
		qos:     qos,
		handler: handler,
		logger:  logger.Named("mqtt-consumer").With(zap.String("topic", topic)),
	}
}

// Consume subscribes and blocks until ctx is done, then unsubscribes.
// It returns an error only if the subscription itself fails.
func (c *Consumer) Consume(ctx context.Context) error {
	token := c.client.Subscribe(c.topic, c.qos, func(_ mqtt.Client, msg mqtt.Message) {
		if err := c.handler(msg.Topic(), msg); err != nil {
			c.logger.Warn("message handling failed",
				zap.String("message_topic", msg.Topic()), zap.Error(err))
		}
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", c.topic, err)
	}
	c.logger.Info("subscribed", zap.Uint8("qos", c.qos))

	<-ctx.Done()

	c.client.Unsubscribe(c.topic).Wait()
	return nil
}
