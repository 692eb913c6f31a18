package persistence_test

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/worksync/internal/workforce/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newWorker(t *testing.T, externalID, name, phone string) *domain.Worker {
	t.Helper()
	w, err := domain.NewWorker(domain.Profile{
		ExternalWorkerID: externalID,
		Name:             name,
		Phone:            phone,
		DOB:              "1990-01-01",
		CompanyName:      strPtr("Acme"),
	}, "S1")
	require.NoError(t, err)
	return w
}

func testWorkerRepository(t *testing.T, repo domain.Repository) {
	ctx := context.Background()

	t.Run("upsert creates then updates in place", func(t *testing.T) {
		first := newWorker(t, "W1", "Ana", "111")
		id, created, err := repo.Upsert(ctx, first)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, first.ID(), id)

		second := newWorker(t, "W1", "Ana Maria", "222")
		id, created, err = repo.Upsert(ctx, second)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID(), id)

		found, err := repo.FindAttached(ctx, "W1")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, first.ID(), found.ID())
		assert.Equal(t, "Ana Maria", found.Name())
		assert.Equal(t, "222", found.Phone())
		assert.Equal(t, "Acme", *found.CompanyName())
		assert.Nil(t, found.TradeType())
		assert.Equal(t, "S1", *found.SiteID())
	})

	t.Run("resolve internal id", func(t *testing.T) {
		w := newWorker(t, "W2", "Bo", "333")
		_, _, err := repo.Upsert(ctx, w)
		require.NoError(t, err)

		id, err := repo.ResolveInternalID(ctx, "W2")
		require.NoError(t, err)
		require.NotNil(t, id)
		assert.Equal(t, w.ID(), *id)

		missing, err := repo.ResolveInternalID(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("detach hides entry and frees the external id", func(t *testing.T) {
		w := newWorker(t, "W3", "Cy", "444")
		_, _, err := repo.Upsert(ctx, w)
		require.NoError(t, err)

		found, err := repo.FindAttached(ctx, "W3")
		require.NoError(t, err)
		require.NoError(t, found.Detach())

		ok, err := repo.Detach(ctx, found)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.Detach(ctx, found)
		require.NoError(t, err)
		assert.False(t, ok)

		gone, err := repo.FindAttached(ctx, "W3")
		require.NoError(t, err)
		assert.Nil(t, gone)
		id, err := repo.ResolveInternalID(ctx, "W3")
		require.NoError(t, err)
		assert.Nil(t, id)

		again := newWorker(t, "W3", "Cy", "444")
		_, created, err := repo.Upsert(ctx, again)
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("stats count attached entries", func(t *testing.T) {
		stats, err := repo.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.Stats{Total: 3, Linked: 3, MissingPhone: 0}, stats)
	})
}
