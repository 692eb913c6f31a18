package persistence_test

import (
	"testing"

	"github.com/felixgeelhaar/worksync/internal/ledger/infrastructure/persistence"
	"github.com/felixgeelhaar/worksync/internal/shared/infrastructure/persistence/pgtest"
)

func TestPostgresSyncErrorRepository(t *testing.T) {
	testErrorRepository(t, persistence.NewPostgresSyncErrorRepository(pgtest.Open(t)))
}

func TestPostgresSyncErrorRepository_List(t *testing.T) {
	testErrorListing(t, persistence.NewPostgresSyncErrorRepository(pgtest.Open(t)))
}

func TestPostgresSyncLogRepository(t *testing.T) {
	testLogRepository(t, persistence.NewPostgresSyncLogRepository(pgtest.Open(t)))
}
