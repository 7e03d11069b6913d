package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindmesh/domain/core/entities"
	"mindmesh/infrastructure/persistence/memory"
)

func TestSaveFindDelete(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewNoteRepository()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	older := entities.NewNote("user-1", base)
	newer := entities.NewNote("user-1", base.Add(time.Hour))
	foreign := entities.NewNote("user-2", base)
	require.NoError(t, repo.Save(ctx, older))
	require.NoError(t, repo.Save(ctx, newer))
	require.NoError(t, repo.Save(ctx, foreign))

	notes, err := repo.FindByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.True(t, notes[0].ID().Equals(newer.ID()))
	assert.True(t, notes[1].ID().Equals(older.ID()))

	t.Run("stored notes are isolated from caller mutation", func(t *testing.T) {
		notes[0].Rename("mutated", base.Add(2*time.Hour))
		again, err := repo.FindByOwner(ctx, "user-1")
		require.NoError(t, err)
		assert.Empty(t, again[0].Title())
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "user-1", newer.ID()))
		require.NoError(t, repo.Delete(ctx, "user-1", newer.ID()))
		remaining, err := repo.FindByOwner(ctx, "user-1")
		require.NoError(t, err)
		assert.Len(t, remaining, 1)
	})
}
