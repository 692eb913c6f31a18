package domain

import "context"

// Repository persists attendance records.
type Repository interface {
	// ExistingKeys returns the subset of keys that already have a record.
	ExistingKeys(ctx context.Context, keys []DedupKey) (map[DedupKey]bool, error)

	// InsertBatch writes all records in one transaction. Records whose dedup
	// key is already taken are skipped, not failed; inserted[i] reports
	// whether records[i] was written. An error means nothing was written.
	InsertBatch(ctx context.Context, records []*Record) (inserted []bool, err error)
}
