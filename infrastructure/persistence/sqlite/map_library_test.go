package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mindmesh/domain/core/aggregates"
	"mindmesh/domain/mapdoc"
	"mindmesh/infrastructure/persistence/sqlite"
	pkgerrors "mindmesh/pkg/errors"
)

func openLibrary(t *testing.T) *sqlite.MapLibrary {
	t.Helper()
	lib, err := sqlite.NewMapLibrary(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { lib.Close() })
	return lib
}

func sampleMap(id, name string, nodes int) mapdoc.SavedMap {
	rec := mapdoc.SavedMap{
		ID:        id,
		Name:      name,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	for i := 0; i < nodes; i++ {
		rec.Data.Nodes = append(rec.Data.Nodes, aggregates.Node{ID: "1", Label: "n"})
	}
	return rec
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	lib := openLibrary(t)

	rec := sampleMap("m1", "Roadmap", 2)
	rec.Data.Edges = []aggregates.Edge{{ID: "e1", Source: "1", Target: "2", Color: "#3b82f6"}}
	require.NoError(t, lib.Put(ctx, "user-1", rec))

	got, err := lib.Get(ctx, "user-1", "Roadmap")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Data, got.Data)
	assert.True(t, rec.Timestamp.Equal(got.Timestamp))
}

func TestPutReplacesSameName(t *testing.T) {
	ctx := context.Background()
	lib := openLibrary(t)

	require.NoError(t, lib.Put(ctx, "user-1", sampleMap("m1", "Draft", 1)))
	replacement := sampleMap("m2", "Draft", 3)
	replacement.Timestamp = replacement.Timestamp.Add(time.Hour)
	require.NoError(t, lib.Put(ctx, "user-1", replacement))

	infos, err := lib.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "m2", infos[0].ID)
	assert.Equal(t, 3, infos[0].NodeCount)
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	lib := openLibrary(t)

	older := sampleMap("m1", "Older", 1)
	newer := sampleMap("m2", "Newer", 1)
	newer.Timestamp = older.Timestamp.Add(time.Hour)
	require.NoError(t, lib.Put(ctx, "user-1", older))
	require.NoError(t, lib.Put(ctx, "user-1", newer))

	infos, err := lib.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "Newer", infos[0].Name)
	assert.Equal(t, "Older", infos[1].Name)
}

func TestOwnersAreIsolated(t *testing.T) {
	ctx := context.Background()
	lib := openLibrary(t)

	require.NoError(t, lib.Put(ctx, "alice", sampleMap("m1", "Hers", 1)))
	require.NoError(t, lib.Put(ctx, "bob", sampleMap("m2", "His", 1)))

	_, err := lib.Get(ctx, "alice", "His")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))

	infos, err := lib.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "Hers", infos[0].Name)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	lib := openLibrary(t)

	require.NoError(t, lib.Put(ctx, "user-1", sampleMap("m1", "Gone", 1)))
	require.NoError(t, lib.Delete(ctx, "user-1", "Gone"))

	_, err := lib.Get(ctx, "user-1", "Gone")
	assert.True(t, pkgerrors.IsNotFound(err))

	// Deleting again is not an error.
	require.NoError(t, lib.Delete(ctx, "user-1", "Gone"))
}
