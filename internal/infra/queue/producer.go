package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
	"github.com/xavierca1/ligue-lifecycle/internal/usecase"
)

type RemovalProducer struct {
	ch Channel
}

func NewRemovalProducer(ch Channel) *RemovalProducer {
	return &RemovalProducer{ch: ch}
}

// ScheduleRemoval publica na fila de espera com TTL = delay. Sem atraso, vai
// direto para a fila de remoção.
func (p *RemovalProducer) ScheduleRemoval(ctx context.Context, req entity.RemovalRequest, delay time.Duration) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("erro ao converter payload: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    req.RequestedAt,
		MessageId:    req.Identity.String() + "|" + strconv.FormatInt(req.DueAt.Unix(), 10),
	}

	if req.Generation != "" {
		msg.MessageId = req.Generation
	}

	key := RoutingKeyDue
	if delay > 0 {
		key = RoutingKeyScheduled
		msg.Expiration = strconv.FormatInt(delay.Milliseconds(), 10)
	}

	if err := p.ch.PublishWithContext(ctx, ExchangeName, key, false, false, msg); err != nil {
		return fmt.Errorf("falha ao publicar no RabbitMQ: %w", err)
	}
	return nil
}

// CancelRemoval não tem o que fazer: mensagem publicada não é retirada da
// fila de espera. A geração revogada no ledger faz o worker descartá-la.
func (p *RemovalProducer) CancelRemoval(context.Context, entity.Identity) error {
	return nil
}

var _ usecase.RemovalScheduler = (*RemovalProducer)(nil)
