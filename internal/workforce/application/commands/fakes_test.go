package commands

import (
	"context"
	"sync"
	"time"

	ledgerCommands "github.com/felixgeelhaar/worksync/internal/ledger/application/commands"
	ledgerDomain "github.com/felixgeelhaar/worksync/internal/ledger/domain"
	sharedDomain "github.com/felixgeelhaar/worksync/internal/shared/domain"
	"github.com/felixgeelhaar/worksync/internal/workforce/domain"
	"github.com/google/uuid"
)

// memoryRepo is a map-backed directory keyed by external id.
type memoryRepo struct {
	mu        sync.Mutex
	attached  map[string]*domain.Worker
	detached  []*domain.Worker
	failOn    map[string]error
	findErr   error
	detachErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{attached: map[string]*domain.Worker{}, failOn: map[string]error{}}
}

func (r *memoryRepo) FindAttached(_ context.Context, externalWorkerID string) (*domain.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	w, ok := r.attached[externalWorkerID]
	if !ok {
		return nil, nil
	}
	return domain.RehydrateWorker(w.ID(), w.Profile(), w.ExternalSystem(), w.SiteID(), w.CreatedAt(), w.UpdatedAt(), nil), nil
}

func (r *memoryRepo) Upsert(_ context.Context, w *domain.Worker) (uuid.UUID, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failOn[w.ExternalWorkerID()]; err != nil {
		return uuid.Nil, false, err
	}
	if existing, ok := r.attached[w.ExternalWorkerID()]; ok {
		r.attached[w.ExternalWorkerID()] = domain.RehydrateWorker(existing.ID(), w.Profile(), existing.ExternalSystem(),
			w.SiteID(), existing.CreatedAt(), time.Now(), nil)
		return existing.ID(), false, nil
	}
	r.attached[w.ExternalWorkerID()] = w
	return w.ID(), true, nil
}

func (r *memoryRepo) Detach(_ context.Context, w *domain.Worker) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.detachErr != nil {
		return false, r.detachErr
	}
	existing, ok := r.attached[w.ExternalWorkerID()]
	if !ok || existing.ID() != w.ID() {
		return false, nil
	}
	delete(r.attached, w.ExternalWorkerID())
	r.detached = append(r.detached, w)
	return true, nil
}

func (r *memoryRepo) ResolveInternalID(_ context.Context, externalWorkerID string) (*uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.attached[externalWorkerID]; ok {
		id := w.ID()
		return &id, nil
	}
	return nil, nil
}

func (r *memoryRepo) Stats(context.Context) (domain.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return domain.Stats{Total: len(r.attached), Linked: len(r.attached)}, nil
}

func (r *memoryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attached)
}

// fakeLedger records ledger writes.
type fakeLedger struct {
	mu      sync.Mutex
	opened  []ledgerCommands.OpenErrorCommand
	logs    []ledgerDomain.Action
	reasons []string
	openErr error
}

var _ ledgerCommands.Ledger = (*fakeLedger)(nil)

func (l *fakeLedger) OpenError(_ context.Context, cmd ledgerCommands.OpenErrorCommand) (*ledgerDomain.SyncError, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.openErr != nil {
		return nil, l.openErr
	}
	l.opened = append(l.opened, cmd)
	return ledgerDomain.NewSyncError(cmd.Detail, cmd.ErrorCode, cmd.ErrorMessage, cmd.SiteID)
}

func (l *fakeLedger) AppendLog(_ context.Context, action ledgerDomain.Action, reason, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, action)
	l.reasons = append(l.reasons, reason)
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []sharedDomain.DomainEvent
}

func (s *recordingSink) Record(_ context.Context, events ...sharedDomain.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
}
