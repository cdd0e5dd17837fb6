// Package persistencetest holds the behaviour every outbound.StateStore
// adapter must share.
package persistencetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankboard/portalgate/application/port/outbound"
)

// RunStateStoreContract runs the shared checks against stores produced by
// newStore. Each subtest gets a fresh store.
func RunStateStoreContract(t *testing.T, newStore func(t *testing.T) outbound.StateStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(ctx, "user")
		assert.ErrorIs(t, err, outbound.ErrStateNotFound)
	})

	t.Run("SetGetOverwrite", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Set(ctx, "user", "v1"))
		require.NoError(t, store.Set(ctx, "user", "v2"))

		got, err := store.Get(ctx, "user")
		require.NoError(t, err)
		assert.Equal(t, "v2", got)
	})

	t.Run("KeysSorted", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Set(ctx, "tokens", "t"))
		require.NoError(t, store.Set(ctx, "user", "u"))
		require.NoError(t, store.Set(ctx, "keyword-cache", "k"))

		keys, err := store.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"keyword-cache", "tokens", "user"}, keys)
	})

	t.Run("ClearWipesEverything", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Set(ctx, "user", "u"))
		require.NoError(t, store.Set(ctx, "tokens", "t"))
		require.NoError(t, store.Set(ctx, "report-filters", "f"))

		require.NoError(t, store.Clear(ctx))

		keys, err := store.Keys(ctx)
		require.NoError(t, err)
		assert.Empty(t, keys)
		_, err = store.Get(ctx, "user")
		assert.ErrorIs(t, err, outbound.ErrStateNotFound)
	})

	t.Run("ClearEmptyIsNoop", func(t *testing.T) {
		store := newStore(t)
		assert.NoError(t, store.Clear(ctx))
	})
}
