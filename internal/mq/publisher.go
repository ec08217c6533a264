package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeTaskQueued     MessageType = "task.queued"
	MessageTypeTaskSettled    MessageType = "task.settled"
	MessageTypeIncidentRaised MessageType = "incident.raised"
)

// Message — конверт публикуемого сообщения.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// TaskQueuedPayload — payload события о новом claimable task.
type TaskQueuedPayload struct {
	TaskID         string `json:"taskId"`
	ExecutionRunID string `json:"executionRunId"`
	AdapterID      string `json:"adapterId"`
}

// TaskSettledPayload — payload события о терминальном статусе task.
type TaskSettledPayload struct {
	TaskID         string `json:"taskId"`
	ExecutionRunID string `json:"executionRunId"`
	Status         string `json:"status"`
}

// IncidentRaisedPayload — payload события о новом инциденте.
type IncidentRaisedPayload struct {
	IncidentID string `json:"incidentId"`
	Type       string `json:"type"`
	Severity   string `json:"severity"`
	RelatedID  string `json:"relatedId"`
}

// Publisher публикует события в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{conn: conn, logger: logger}
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),
			string(routingKey),
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // события переживают рестарт брокера
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishTaskQueued публикует событие о новом claimable task.
func (p *Publisher) PublishTaskQueued(ctx context.Context, payload TaskQueuedPayload) error {
	return p.Publish(ctx, ExchangeTasks, RoutingKeyQueued, &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeTaskQueued,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
}

// PublishTaskSettled публикует событие о терминальном статусе task.
// Потребитель: coordinator (триггер внеочередного reconcile).
func (p *Publisher) PublishTaskSettled(ctx context.Context, payload TaskSettledPayload) error {
	return p.Publish(ctx, ExchangeTasks, RoutingKeySettled, &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeTaskSettled,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
}

// PublishIncidentRaised публикует событие о создании инцидента.
func (p *Publisher) PublishIncidentRaised(ctx context.Context, payload IncidentRaisedPayload) error {
	return p.Publish(ctx, ExchangeIncidents, RoutingKeyRaised, &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeIncidentRaised,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
}
