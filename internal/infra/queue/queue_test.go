package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
	"github.com/xavierca1/ligue-lifecycle/internal/usecase"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	exchanges  []string
	queues     map[string]amqp.Table
	bindings   map[string]string
	published  []published
	deliveries chan amqp.Delivery
	publishErr error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{queues: map[string]amqp.Table{}, bindings: map[string]string{}, deliveries: make(chan amqp.Delivery, 8)}
}

func (f *fakeChannel) ExchangeDeclare(name, _ string, _, _, _, _ bool, _ amqp.Table) error {
	f.exchanges = append(f.exchanges, name)
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, args amqp.Table) (amqp.Queue, error) {
	f.queues[name] = args
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, _ bool, _ amqp.Table) error {
	f.bindings[name] = exchange + "/" + key
	return nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{exchange, key, msg})
	return nil
}

func (f *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) Qos(int, int, bool) error { return nil }

// acker records what the worker decided for a delivery.
type acker struct {
	acked, nacked, requeued bool
}

func (a *acker) Ack(uint64, bool) error { a.acked = true; return nil }
func (a *acker) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}
func (a *acker) Reject(_ uint64, requeue bool) error { return a.Nack(0, false, requeue) }

func TestSetupTopology_WaitQueueDeadLettersIntoRemovalQueue(t *testing.T) {
	ch := newFakeChannel()
	require.NoError(t, SetupTopology(ch))

	assert.ElementsMatch(t, []string{DLXName, ExchangeName}, ch.exchanges)
	assert.Equal(t, ExchangeName, ch.queues[WaitQueue]["x-dead-letter-exchange"])
	assert.Equal(t, RoutingKeyDue, ch.queues[WaitQueue]["x-dead-letter-routing-key"])
	assert.Equal(t, DLXName, ch.queues[RemovalQueue]["x-dead-letter-exchange"])
	assert.Equal(t, ExchangeName+"/"+RoutingKeyScheduled, ch.bindings[WaitQueue])
	assert.Equal(t, ExchangeName+"/"+RoutingKeyDue, ch.bindings[RemovalQueue])
	assert.Equal(t, DLXName+"/"+RoutingKeyDead, ch.bindings[DLQName])
}

func TestRemovalProducer_ScheduleRemoval(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	req := entity.RemovalRequest{Identity: "ana@x.io", Reason: "subscription_cancelled", RequestedAt: now, DueAt: now.Add(30 * 24 * time.Hour), Generation: "gen-1"}

	t.Run("delayed", func(t *testing.T) {
		ch := newFakeChannel()
		require.NoError(t, NewRemovalProducer(ch).ScheduleRemoval(context.Background(), req, 30*24*time.Hour))

		require.Len(t, ch.published, 1)
		p := ch.published[0]
		assert.Equal(t, ExchangeName, p.exchange)
		assert.Equal(t, RoutingKeyScheduled, p.key)
		assert.Equal(t, "2592000000", p.msg.Expiration)
		assert.Equal(t, amqp.Persistent, p.msg.DeliveryMode)

		var got entity.RemovalRequest
		require.NoError(t, json.Unmarshal(p.msg.Body, &got))
		assert.Equal(t, entity.Identity("ana@x.io"), got.Identity)
		assert.True(t, got.DueAt.Equal(req.DueAt))
		assert.Equal(t, "gen-1", got.Generation)
		assert.Equal(t, "gen-1", p.msg.MessageId)
	})

	t.Run("immediate", func(t *testing.T) {
		ch := newFakeChannel()
		require.NoError(t, NewRemovalProducer(ch).ScheduleRemoval(context.Background(), req, 0))
		assert.Equal(t, RoutingKeyDue, ch.published[0].key)
		assert.Empty(t, ch.published[0].msg.Expiration)
	})

	t.Run("publish failure", func(t *testing.T) {
		ch := newFakeChannel()
		ch.publishErr = errors.New("channel closed")
		assert.Error(t, NewRemovalProducer(ch).ScheduleRemoval(context.Background(), req, time.Hour))
	})

	t.Run("cancel publishes nothing", func(t *testing.T) {
		ch := newFakeChannel()
		require.NoError(t, NewRemovalProducer(ch).CancelRemoval(context.Background(), "ana@x.io"))
		assert.Empty(t, ch.published)
	})
}

type handlerFunc func(ctx context.Context, req entity.RemovalRequest) error

func (f handlerFunc) CompleteRemoval(ctx context.Context, req entity.RemovalRequest) error {
	return f(ctx, req)
}

func delivery(t *testing.T, body []byte, redelivered bool) (amqp.Delivery, *acker) {
	t.Helper()
	a := &acker{}
	return amqp.Delivery{Acknowledger: a, Body: body, Redelivered: redelivered}, a
}

func TestWorker_Handle(t *testing.T) {
	body, err := json.Marshal(entity.RemovalRequest{Identity: "ana@x.io", Reason: "subscription_cancelled"})
	require.NoError(t, err)

	t.Run("success acks", func(t *testing.T) {
		var got entity.RemovalRequest
		w := NewWorker(newFakeChannel(), handlerFunc(func(_ context.Context, req entity.RemovalRequest) error {
			got = req
			return nil
		}), time.Second, nil)

		d, a := delivery(t, body, false)
		w.handle(context.Background(), d)

		assert.True(t, a.acked)
		assert.Equal(t, entity.Identity("ana@x.io"), got.Identity)
	})

	t.Run("malformed payload is dead-lettered", func(t *testing.T) {
		w := NewWorker(newFakeChannel(), handlerFunc(func(context.Context, entity.RemovalRequest) error {
			t.Fatal("handler must not run")
			return nil
		}), time.Second, nil)

		d, a := delivery(t, []byte("{not json"), false)
		w.handle(context.Background(), d)

		assert.True(t, a.nacked)
		assert.False(t, a.requeued)
	})

	t.Run("failure requeues once then dead-letters", func(t *testing.T) {
		w := NewWorker(newFakeChannel(), handlerFunc(func(context.Context, entity.RemovalRequest) error {
			return &usecase.DomainError{Code: usecase.CodeCollaboratorUnavailable, Message: "upsert_contact failed"}
		}), time.Second, nil)

		first, a1 := delivery(t, body, false)
		w.handle(context.Background(), first)
		assert.True(t, a1.nacked)
		assert.True(t, a1.requeued)

		second, a2 := delivery(t, body, true)
		w.handle(context.Background(), second)
		assert.True(t, a2.nacked)
		assert.False(t, a2.requeued)
	})

	t.Run("invalid identity is dead-lettered", func(t *testing.T) {
		w := NewWorker(newFakeChannel(), handlerFunc(func(context.Context, entity.RemovalRequest) error {
			return &usecase.DomainError{Code: usecase.CodeInvalidIdentity, Message: "valid email is required"}
		}), time.Second, nil)

		d, a := delivery(t, body, false)
		w.handle(context.Background(), d)
		assert.False(t, a.requeued)
	})
}

func TestWorker_RunStopsWithContext(t *testing.T) {
	ch := newFakeChannel()
	done := make(chan entity.Identity, 1)
	w := NewWorker(ch, handlerFunc(func(_ context.Context, req entity.RemovalRequest) error {
		done <- req.Identity
		return nil
	}), time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	body, _ := json.Marshal(entity.RemovalRequest{Identity: "ana@x.io"})
	ch.deliveries <- amqp.Delivery{Acknowledger: &acker{}, Body: body}

	select {
	case id := <-done:
		assert.Equal(t, entity.Identity("ana@x.io"), id)
	case <-time.After(2 * time.Second):
		t.Fatal("delivery not handled")
	}

	cancel()
	assert.NoError(t, <-errc)
}
