package persistence_test

import (
	"testing"

	"github.com/felixgeelhaar/worksync/internal/attendance/infrastructure/persistence"
	"github.com/felixgeelhaar/worksync/internal/shared/infrastructure/persistence/pgtest"
)

func TestPostgresAttendanceRepository(t *testing.T) {
	testAttendanceRepository(t, persistence.NewPostgresAttendanceRepository(pgtest.Open(t)))
}
