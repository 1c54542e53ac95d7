package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// DefaultExchange is the topic exchange patient events go to unless
// RABBITMQ_EXCHANGE names another.
const DefaultExchange = "patient-dashboard.events"

// Publisher sends patient events to a durable topic exchange.
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   zerolog.Logger
}

// NewPublisher dials the broker and declares exchange. An empty exchange
// means DefaultExchange.
func NewPublisher(brokerURL, exchange string, logger zerolog.Logger) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	logger = logger.With().Str("component", "rabbitmq").Str("exchange", exchange).Logger()
	logger.Info().Str("url", redactURL(brokerURL)).Msg("connecting to RabbitMQ")

	conn, err := amqp.Dial(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	logger.Info().Msg("connected to RabbitMQ")
	return &Publisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// Publish sends eventData as a persistent JSON message routed by routingKey.
func (p *Publisher) Publish(ctx context.Context, routingKey string, eventData interface{}) error {
	msg, err := newMessage(eventData, time.Now())
	if err != nil {
		return err
	}

	if err := p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	p.logger.Debug().Str("routing_key", routingKey).Str("message_id", msg.MessageId).Msg("published event")
	return nil
}

func (p *Publisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.logger.Warn().Err(err).Msg("error closing RabbitMQ channel")
	}
	return p.conn.Close()
}

func newMessage(eventData interface{}, at time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(eventData)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to encode event: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    at.UTC(),
		MessageId:    uuid.NewString(),
		AppId:        ServiceName,
	}, nil
}

// redactURL hides the broker password for logging.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "amqp://***@..."
	}
	return u.Redacted()
}
