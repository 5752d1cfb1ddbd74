package usecase_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
)

// MockEmailProvider - Mock para o provedor de e-mail
type MockEmailProvider struct {
	mock.Mock
}

func (m *MockEmailProvider) UpsertContact(ctx context.Context, id entity.Identity, fields map[string]any) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockEmailProvider) EnrollInSequence(ctx context.Context, id entity.Identity, sequenceID string) error {
	args := m.Called(ctx, id, sequenceID)
	return args.Error(0)
}

func (m *MockEmailProvider) SendTransactional(ctx context.Context, id entity.Identity, templateID string, data map[string]any) error {
	args := m.Called(ctx, id, templateID, data)
	return args.Error(0)
}

type MockAnalyticsSink struct {
	mock.Mock
}

func (m *MockAnalyticsSink) RecordEvent(ctx context.Context, name string, params map[string]any, clientID string) error {
	args := m.Called(ctx, name, params, clientID)
	return args.Error(0)
}

type MockCustomerDirectory struct {
	mock.Mock
}

func (m *MockCustomerDirectory) RetrieveCustomerEmail(ctx context.Context, customerID string) (string, error) {
	args := m.Called(ctx, customerID)
	return args.String(0), args.Error(1)
}

type MockRemovalScheduler struct {
	mock.Mock
}

func (m *MockRemovalScheduler) ScheduleRemoval(ctx context.Context, req entity.RemovalRequest, delay time.Duration) error {
	args := m.Called(ctx, req, delay)
	return args.Error(0)
}

func (m *MockRemovalScheduler) CancelRemoval(ctx context.Context, id entity.Identity) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockLinkIssuer struct {
	mock.Mock
}

func (m *MockLinkIssuer) DownloadLink(id entity.Identity, asset string) (string, error) {
	args := m.Called(id, asset)
	return args.String(0), args.Error(1)
}

type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) Admit(ctx context.Context, key, action string, window time.Duration, max int) (bool, error) {
	args := m.Called(ctx, key, action, window, max)
	return args.Bool(0), args.Error(1)
}

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockTokenVerifier struct {
	mock.Mock
}

func (m *MockTokenVerifier) Verify(raw, asset string) (entity.Identity, error) {
	args := m.Called(raw, asset)
	return args.Get(0).(entity.Identity), args.Error(1)
}

type MockAssetLocator struct {
	mock.Mock
}

func (m *MockAssetLocator) Locate(ctx context.Context, asset string) (string, error) {
	args := m.Called(ctx, asset)
	return args.String(0), args.Error(1)
}
