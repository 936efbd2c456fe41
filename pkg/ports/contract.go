package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore
// implementation adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	prefix := "contract-" + time.Now().Format("20060102150405")

	newState := func() *domain.ReactorState {
		s := domain.NewState()
		s.RodPositions["R5"] = 250.5
		s.RodPositions["R4"] = 381
		s.Burnup = 1200
		s.Boron = 812.5
		s.Power = 0.75
		s.Poison = domain.PoisonState{Iodine: 3.5e15, Xenon: 1.1e15, Promethium: 2e16, Samarium: 1.4e16}
		s.AxialShape = []float64{0.8, 1.2, 1.0}
		return s
	}

	t.Run("Save and Load", func(t *testing.T) {
		id := prefix + "-1"
		state := newState()
		require.NoError(t, store.Save(ctx, id, state))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, state, loaded)

		// The store must hold an independent copy.
		state.RodPositions["R5"] = 0
		again, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 250.5, again.RodPositions["R5"])

		loaded.Boron = 0
		again, err = store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 812.5, again.Boron)
	})

	t.Run("Duplicate Save", func(t *testing.T) {
		id := prefix + "-dup"
		require.NoError(t, store.Save(ctx, id, newState()))
		err := store.Save(ctx, id, newState())
		assert.ErrorIs(t, err, domain.ErrSnapshotExists)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, prefix+"-missing")
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		id := prefix + "-del"
		require.NoError(t, store.Save(ctx, id, newState()))
		require.NoError(t, store.Delete(ctx, id))

		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound, "Load after Delete should return ErrSnapshotNotFound")

		// The id is free again.
		require.NoError(t, store.Save(ctx, id, newState()))
		assert.NoError(t, store.Delete(ctx, prefix+"-never-saved"))
	})

	t.Run("List", func(t *testing.T) {
		id1 := prefix + "-list-1"
		id2 := prefix + "-list-2"
		require.NoError(t, store.Save(ctx, id1, newState()))
		require.NoError(t, store.Save(ctx, id2, newState()))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
