package commands

import (
	"context"
	"errors"
	"sync"

	"github.com/felixgeelhaar/worksync/internal/attendance/domain"
	ledgerCommands "github.com/felixgeelhaar/worksync/internal/ledger/application/commands"
	ledgerDomain "github.com/felixgeelhaar/worksync/internal/ledger/domain"
	sharedDomain "github.com/felixgeelhaar/worksync/internal/shared/domain"
	"github.com/google/uuid"
)

var errDatabaseDown = errors.New("database is down")

// memoryRepo stores records by dedup key.
type memoryRepo struct {
	mu          sync.Mutex
	records     map[domain.DedupKey]*domain.Record
	insertErr   error
	existingErr error
	batches     int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{records: make(map[domain.DedupKey]*domain.Record)}
}

func (r *memoryRepo) ExistingKeys(_ context.Context, keys []domain.DedupKey) (map[domain.DedupKey]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.existingErr != nil {
		return nil, r.existingErr
	}
	found := make(map[domain.DedupKey]bool)
	for _, k := range keys {
		if _, ok := r.records[k]; ok {
			found[k] = true
		}
	}
	return found, nil
}

func (r *memoryRepo) InsertBatch(_ context.Context, records []*domain.Record) ([]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches++
	if r.insertErr != nil {
		return nil, r.insertErr
	}
	inserted := make([]bool, len(records))
	for i, rec := range records {
		if _, ok := r.records[rec.DedupKey()]; ok {
			continue
		}
		r.records[rec.DedupKey()] = rec
		inserted[i] = true
	}
	return inserted, nil
}

func (r *memoryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// staticResolver resolves a fixed set of external ids.
type staticResolver struct {
	ids  map[string]uuid.UUID
	errs map[string]error
}

func newResolver(externalIDs ...string) *staticResolver {
	r := &staticResolver{ids: make(map[string]uuid.UUID), errs: make(map[string]error)}
	for _, id := range externalIDs {
		r.ids[id] = uuid.New()
	}
	return r
}

func (r *staticResolver) ResolveInternalID(_ context.Context, externalWorkerID string) (*uuid.UUID, error) {
	if err := r.errs[externalWorkerID]; err != nil {
		return nil, err
	}
	id, ok := r.ids[externalWorkerID]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

// fakeLedger records ledger writes.
type fakeLedger struct {
	mu      sync.Mutex
	opened  []ledgerCommands.OpenErrorCommand
	logs    []ledgerDomain.Action
	reasons []string
}

var _ ledgerCommands.Ledger = (*fakeLedger)(nil)

func (l *fakeLedger) OpenError(_ context.Context, cmd ledgerCommands.OpenErrorCommand) (*ledgerDomain.SyncError, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
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
