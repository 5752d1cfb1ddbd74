package queue

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Remoção adiada: a mensagem espera em WaitQueue (sem consumidor) até o TTL
// por mensagem vencer, é dead-lettered para RemovalQueue e consumida pelo
// worker. Falhas definitivas vão para a DLQ.
//
// RabbitMQ only expires messages at the head of a queue, so every message in
// WaitQueue must use the same delay (the cancellation grace period).
const (
	ExchangeName = "ex.lifecycle"
	DLXName      = "ex.dlx" // Dead Letter Exchange

	WaitQueue    = "q.removals.wait"
	RemovalQueue = "q.removals"
	DLQName      = "q.removals.dlq"

	RoutingKeyScheduled = "k.removal.scheduled"
	RoutingKeyDue       = "k.removal.due"
	RoutingKeyDead      = "k.removal.dead"
)

// Channel is the subset of *amqp.Channel the queue package uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
}

type RabbitMQ struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar no RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("falha ao abrir canal: %w", err)
	}

	if err := SetupTopology(ch); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &RabbitMQ{Conn: conn, Ch: ch}, nil
}

func (r *RabbitMQ) Close() error {
	_ = r.Ch.Close()
	return r.Conn.Close()
}

// SetupTopology declares exchanges, queues and bindings. Declarations are
// idempotent, so every instance runs it on startup.
func SetupTopology(ch Channel) error {
	if err := ch.ExchangeDeclare(DLXName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", DLXName, err)
	}
	if _, err := ch.QueueDeclare(DLQName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", DLQName, err)
	}
	if err := ch.QueueBind(DLQName, RoutingKeyDead, DLXName, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", DLQName, err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", ExchangeName, err)
	}

	waitArgs := amqp.Table{
		"x-dead-letter-exchange":    ExchangeName,
		"x-dead-letter-routing-key": RoutingKeyDue,
	}
	if _, err := ch.QueueDeclare(WaitQueue, true, false, false, false, waitArgs); err != nil {
		return fmt.Errorf("declare %s: %w", WaitQueue, err)
	}
	if err := ch.QueueBind(WaitQueue, RoutingKeyScheduled, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", WaitQueue, err)
	}

	removalArgs := amqp.Table{
		"x-dead-letter-exchange":    DLXName,
		"x-dead-letter-routing-key": RoutingKeyDead,
	}
	if _, err := ch.QueueDeclare(RemovalQueue, true, false, false, false, removalArgs); err != nil {
		return fmt.Errorf("declare %s: %w", RemovalQueue, err)
	}
	if err := ch.QueueBind(RemovalQueue, RoutingKeyDue, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", RemovalQueue, err)
	}
	return nil
}
