package domain

import (
	"context"

	"github.com/google/uuid"
)

// Stats summarizes the attached directory.
type Stats struct {
	Total        int `json:"total"`
	Linked       int `json:"linked"`
	MissingPhone int `json:"missingPhone"`
}

// Repository persists worker directory entries. Only attached entries are
// visible to lookups.
type Repository interface {
	// FindAttached returns nil when no attached entry has the id.
	FindAttached(ctx context.Context, externalWorkerID string) (*Worker, error)

	// Upsert creates the entry or, when an attached entry with the same
	// external id exists, overwrites its profile. It returns the stored id
	// and whether a new entry was created.
	Upsert(ctx context.Context, w *Worker) (id uuid.UUID, created bool, err error)

	// Detach persists a detached worker. It reports false when the entry
	// was detached concurrently.
	Detach(ctx context.Context, w *Worker) (bool, error)

	// ResolveInternalID maps an external id to the internal user id.
	ResolveInternalID(ctx context.Context, externalWorkerID string) (*uuid.UUID, error)

	Stats(ctx context.Context) (Stats, error)
}
