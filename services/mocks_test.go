package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/gramforge/gramcast/domain"
	"github.com/gramforge/gramcast/mtproto"
)

// --- Mock Implementations ---

type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Set(ctx context.Context, handle string, rec *domain.SessionRecord, ttl time.Duration) error {
	args := m.Called(ctx, handle, rec, ttl)
	return args.Error(0)
}

func (m *MockSessionStore) Get(ctx context.Context, handle string) (*domain.SessionRecord, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SessionRecord), args.Error(1)
}

type MockConnector struct {
	mock.Mock
}

func (m *MockConnector) FromSessionFile(ctx context.Context, path string) (mtproto.Client, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(mtproto.Client), args.Error(1)
}

func (m *MockConnector) FromRecord(ctx context.Context, rec *domain.SessionRecord) (mtproto.Client, error) {
	args := m.Called(ctx, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(mtproto.Client), args.Error(1)
}

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Authorized(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockClient) Credentials() (*domain.SessionRecord, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SessionRecord), args.Error(1)
}

func (m *MockClient) AccountStats(ctx context.Context) (domain.AccountStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.AccountStats), args.Error(1)
}

func (m *MockClient) SendMessage(ctx context.Context, recipient int64, text string) error {
	args := m.Called(ctx, recipient, text)
	return args.Error(0)
}

func (m *MockClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockRotator struct {
	mock.Mock
}

func (m *MockRotator) MaybeRotate(ctx context.Context) {
	m.Called(ctx)
}
