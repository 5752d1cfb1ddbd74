package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
	"github.com/xavierca1/ligue-lifecycle/internal/usecase"
)

// TestHandleBatch - uma falha não bloqueia os outros destinatários
func TestHandleBatch(t *testing.T) {
	f := newFixture(t)
	f.allowAnalytics()

	var mu sync.Mutex
	var seen []string
	f.email.On("UpsertContact", mock.Anything, entity.Identity("a@b.com"), mock.Anything).
		Return(nil).
		Run(func(args mock.Arguments) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, args.Get(2).(map[string]any)["customer_status"].(string))
		})
	f.email.On("UpsertContact", mock.Anything, entity.Identity("c@d.com"), mock.Anything).Return(errors.New("down"))
	f.email.On("SendTransactional", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	events := []entity.LifecycleEvent{
		{Kind: entity.EventPaymentFailed, Identity: "a@b.com", TransactionID: "t1"},
		{Kind: entity.EventPaymentSucceeded, Identity: "c@d.com", TransactionID: "t2"},
		{Kind: entity.EventPaymentSucceeded, Identity: "a@b.com", TransactionID: "t3"},
		{Kind: entity.EventPaymentSucceeded, Identity: "a@b.com", TransactionID: "t1"},
	}

	res := f.orch.HandleBatch(context.Background(), events)
	f.tasks.Wait()

	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 3, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.True(t, res.Retryable())
	assert.Equal(t, usecase.CodeCollaboratorUnavailable, res.Outcomes[1].Code)
	// arrival order per subject
	assert.Equal(t, []string{"past_due", "active", "active"}, seen)
}

func TestHandleBatch_InvalidIdentityIsNotRetryable(t *testing.T) {
	f := newFixture(t)

	res := f.orch.HandleBatch(context.Background(), []entity.LifecycleEvent{
		{Kind: entity.EventPaymentSucceeded, Identity: "broken"},
	})

	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, usecase.CodeInvalidIdentity, res.Outcomes[0].Code)
	assert.False(t, res.Retryable())
}

func TestBatchResult_StorageFailureIsRetryable(t *testing.T) {
	res := usecase.BatchResult{Total: 1, Failed: 1, Outcomes: []usecase.BatchOutcome{
		{Index: 0, Code: usecase.CodeStorage, Error: "load progress: disk full"},
	}}
	assert.True(t, res.Retryable())
}
