package rabbitmq

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// IPublisher publishes a payload on a topic.
type IPublisher interface {
	Publish(topic string, payload []byte) error
}

type Publisher struct {
	client  mqtt.Client
	qos     byte
	timeout time.Duration
	log     *zap.Logger
}

// NewPublisher publishes through an already-connected client.
func NewPublisher(client mqtt.Client, qos byte, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{client: client, qos: qos, timeout: 5 * time.Second, log: logger}
}

func (p *Publisher) Publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, p.qos, false, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish to %s: timed out after %s", topic, p.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	p.log.Debug("message published", zap.String("topic", topic), zap.Int("bytes", len(payload)))
	return nil
}

// Connected reports the client connection state.
func (p *Publisher) Connected() bool {
	return p.client != nil && p.client.IsConnectionOpen()
}

// Close disconnects the underlying client.
func (p *Publisher) Close() {
	CloseRabbitMQConn(p.client, p.log)
}
