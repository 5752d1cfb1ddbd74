package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
	"github.com/xavierca1/ligue-lifecycle/internal/usecase"
)

// RemovalHandler executes a removal that came due.
type RemovalHandler interface {
	CompleteRemoval(ctx context.Context, req entity.RemovalRequest) error
}

type Worker struct {
	ch       Channel
	handler  RemovalHandler
	timeout  time.Duration
	prefetch int
	logger   *zap.Logger
}

func NewWorker(ch Channel, handler RemovalHandler, timeout time.Duration, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{ch: ch, handler: handler, timeout: timeout, prefetch: 10, logger: logger.Named("removal_worker")}
}

// Run consome RemovalQueue até ctx terminar ou o canal fechar.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.ch.Qos(w.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := w.ch.Consume(RemovalQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("falha ao registrar consumidor RabbitMQ: %w", err)
	}

	w.logger.Info("worker waiting for removals", zap.String("queue", RemovalQueue))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("removal queue channel closed")
			}
			w.handle(ctx, d)
		}
	}
}

// handle acks on success. A malformed or invalid payload goes straight to
// the DLQ; a failed removal is requeued once, then dead-lettered.
func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var req entity.RemovalRequest
	if err := json.Unmarshal(d.Body, &req); err != nil {
		w.logger.Error("malformed removal payload", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	err := w.handler.CompleteRemoval(callCtx, req)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case usecase.ErrorCode(err) == usecase.CodeInvalidIdentity:
		w.logger.Error("removal for invalid identity", zap.Error(err))
		_ = d.Nack(false, false)
	default:
		requeue := !d.Redelivered
		w.logger.Warn("removal failed",
			zap.String("email", req.Identity.String()),
			zap.Bool("requeue", requeue),
			zap.Error(err))
		_ = d.Nack(false, requeue)
	}
}
