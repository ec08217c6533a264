package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeTasks     Exchange = "cl.tasks"
	ExchangeIncidents Exchange = "cl.incidents"
	ExchangeDLQ       Exchange = "cl.dlq"
)

// Queues — имена очередей.
const (
	// QueueTasksQueued — события публикации нового claimable task.
	// Потребители: внешние подписчики (уведомления, дашборды).
	QueueTasksQueued Queue = "tasks.queued"

	// QueueTasksSettled — события достижения task терминального статуса.
	// Потребитель: coordinator (мгновенный reconcile run вместо ожидания
	// следующего тика poller'а).
	QueueTasksSettled Queue = "tasks.settled"

	// QueueIncidentsRaised — события создания инцидентов.
	QueueIncidentsRaised Queue = "incidents.raised"

	// QueueDLQEvents — события, которые не удалось обработать.
	QueueDLQEvents Queue = "dlq.events"
)

// Routing keys.
const (
	RoutingKeyQueued  RoutingKey = "queued"
	RoutingKeySettled RoutingKey = "settled"
	RoutingKeyRaised  RoutingKey = "raised"
	RoutingKeyDLQ     RoutingKey = "events"
)

// SetupTopology декларирует обменники, очереди и привязки.
// Идемпотентно: повторный вызов на существующей топологии безопасен.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range []Exchange{ExchangeTasks, ExchangeIncidents, ExchangeDLQ} {
			if err := ch.ExchangeDeclare(string(ex), "direct", true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex, err)
			}
		}

		dlqArgs := amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(RoutingKeyDLQ),
		}

		queues := []struct {
			name Queue
			args amqp.Table
		}{
			{QueueTasksQueued, nil},
			// tasks.settled потребляется coordinator'ом — с DLQ
			{QueueTasksSettled, dlqArgs},
			{QueueIncidentsRaised, nil},
			{QueueDLQEvents, nil},
		}
		for _, q := range queues {
			if _, err := ch.QueueDeclare(string(q.name), true, false, false, false, q.args); err != nil {
				return fmt.Errorf("declare queue %s: %w", q.name, err)
			}
		}

		bindings := []struct {
			queue      Queue
			routingKey RoutingKey
			exchange   Exchange
		}{
			{QueueTasksQueued, RoutingKeyQueued, ExchangeTasks},
			{QueueTasksSettled, RoutingKeySettled, ExchangeTasks},
			{QueueIncidentsRaised, RoutingKeyRaised, ExchangeIncidents},
			{QueueDLQEvents, RoutingKeyDLQ, ExchangeDLQ},
		}
		for _, b := range bindings {
			if err := ch.QueueBind(string(b.queue), string(b.routingKey), string(b.exchange), false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
			}
		}

		return nil
	})
}
