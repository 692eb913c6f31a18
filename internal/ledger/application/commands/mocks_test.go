package commands

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/worksync/internal/ledger/domain"
	sharedDomain "github.com/felixgeelhaar/worksync/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type txKey struct{}

type mockErrorRepo struct {
	mock.Mock
}

func (m *mockErrorRepo) Save(ctx context.Context, e *domain.SyncError) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *mockErrorRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.SyncError, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncError), args.Error(1)
}

func (m *mockErrorRepo) List(ctx context.Context, filter domain.ErrorFilter) ([]*domain.SyncError, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*domain.SyncError), args.Int(1), args.Error(2)
}

func (m *mockErrorRepo) IncrementRetry(ctx context.Context, id uuid.UUID) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *mockErrorRepo) CountByStatus(ctx context.Context) (domain.StatusCounts, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.StatusCounts), args.Error(1)
}

type mockLogRepo struct {
	mock.Mock
}

func (m *mockLogRepo) Append(ctx context.Context, log domain.SyncLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *mockLogRepo) Recent(ctx context.Context, limit int) ([]domain.SyncLog, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.SyncLog), args.Error(1)
}

func (m *mockLogRepo) LastByAction(ctx context.Context, action domain.Action) (*domain.SyncLog, error) {
	args := m.Called(ctx, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncLog), args.Error(1)
}

type mockUnitOfWork struct {
	mock.Mock
}

func (m *mockUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	args := m.Called(ctx)
	return args.Get(0).(context.Context), args.Error(1)
}

func (m *mockUnitOfWork) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockUnitOfWork) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// recordingSink keeps audited events.
type recordingSink struct {
	mu     sync.Mutex
	events []sharedDomain.DomainEvent
}

func (s *recordingSink) Record(_ context.Context, events ...sharedDomain.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
}

func (s *recordingSink) Events() []sharedDomain.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sharedDomain.DomainEvent(nil), s.events...)
}
