package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mindmesh/application/services"
	"mindmesh/domain/config"
	"mindmesh/domain/core/valueobjects"
	"mindmesh/domain/mapdoc"
	pkgerrors "mindmesh/pkg/errors"
)

// fakeMapLibrary keys records by (owner, name) like the real stores.
type fakeMapLibrary struct {
	maps map[string]map[string]mapdoc.SavedMap
}

func newFakeMapLibrary() *fakeMapLibrary {
	return &fakeMapLibrary{maps: make(map[string]map[string]mapdoc.SavedMap)}
}

func (l *fakeMapLibrary) Put(ctx context.Context, ownerID string, rec mapdoc.SavedMap) error {
	if l.maps[ownerID] == nil {
		l.maps[ownerID] = make(map[string]mapdoc.SavedMap)
	}
	l.maps[ownerID][rec.Name] = rec
	return nil
}

func (l *fakeMapLibrary) Get(ctx context.Context, ownerID, name string) (mapdoc.SavedMap, error) {
	rec, ok := l.maps[ownerID][name]
	if !ok {
		return mapdoc.SavedMap{}, pkgerrors.NewNotFoundError("saved map")
	}
	return rec, nil
}

func (l *fakeMapLibrary) List(ctx context.Context, ownerID string) ([]mapdoc.Info, error) {
	var infos []mapdoc.Info
	for _, rec := range l.maps[ownerID] {
		infos = append(infos, rec.Describe())
	}
	return infos, nil
}

func (l *fakeMapLibrary) Delete(ctx context.Context, ownerID, name string) error {
	delete(l.maps[ownerID], name)
	return nil
}

// gridPositions is a deterministic placement strategy for tests.
func gridPositions() services.PositionStrategy {
	i := 0.0
	return func(cfg *config.DomainConfig) valueobjects.Position {
		i++
		return valueobjects.NewPosition(i*10, i*10)
	}
}

func newMapService(lib *fakeMapLibrary) *services.MindMapService {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}
	opts := []services.MindMapOption{
		services.WithMapClock(clock),
		services.WithPositionStrategy(gridPositions()),
	}
	if lib == nil {
		return services.NewMindMapService(nil, config.DefaultDomainConfig(), zap.NewNop(), opts...)
	}
	return services.NewMindMapService(lib, config.DefaultDomainConfig(), zap.NewNop(), opts...)
}

func TestAddNodeStrategies(t *testing.T) {
	ctx := context.Background()
	svc := newMapService(nil)

	first, err := svc.AddNode(ctx, owner, "one")
	require.NoError(t, err)
	second, err := svc.AddNode(ctx, owner, "")
	require.NoError(t, err)

	palette := config.DefaultDomainConfig().Palette
	assert.Equal(t, palette[0], first.Color)
	assert.Equal(t, palette[1], second.Color)
	assert.Equal(t, valueobjects.NewPosition(10, 10), first.Position)
	assert.Equal(t, valueobjects.NewPosition(20, 20), second.Position)
	assert.Equal(t, "Untitled", second.Label)
}

func TestSnapshotDiscipline(t *testing.T) {
	ctx := context.Background()

	t.Run("each mutation costs exactly one undo", func(t *testing.T) {
		svc := newMapService(nil)
		a, _ := svc.AddNode(ctx, owner, "a")
		b, _ := svc.AddNode(ctx, owner, "b")
		_, err := svc.Connect(ctx, owner, a.ID, b.ID, "", "")
		require.NoError(t, err)

		// Three mutations, three undos, then nothing.
		assert.True(t, svc.Undo(ctx, owner))
		assert.True(t, svc.Undo(ctx, owner))
		assert.True(t, svc.Undo(ctx, owner))
		assert.False(t, svc.Undo(ctx, owner))
		assert.Empty(t, svc.State(ctx, owner).Nodes)
	})

	t.Run("rejected operations record nothing", func(t *testing.T) {
		svc := newMapService(nil)
		a, _ := svc.AddNode(ctx, owner, "a")

		_, err := svc.Connect(ctx, owner, a.ID, a.ID, "", "")
		require.Error(t, err)
		_, err = svc.Connect(ctx, owner, a.ID, "99", "", "")
		require.Error(t, err)

		// Only the AddNode is undoable.
		assert.True(t, svc.Undo(ctx, owner))
		assert.False(t, svc.Undo(ctx, owner))
	})

	t.Run("cap-rejected adds record nothing", func(t *testing.T) {
		cfg := config.DefaultDomainConfig()
		cfg.MaxNodesPerMap = 1
		svc := services.NewMindMapService(nil, cfg, zap.NewNop(),
			services.WithPositionStrategy(gridPositions()))

		_, err := svc.AddNode(ctx, owner, "a")
		require.NoError(t, err)
		require.True(t, svc.Undo(ctx, owner))
		require.True(t, svc.Redo(ctx, owner))

		_, err = svc.AddNode(ctx, owner, "b")
		require.Error(t, err)
		assert.True(t, pkgerrors.IsConflict(err))

		// Only the original add is undoable.
		assert.True(t, svc.Undo(ctx, owner))
		assert.False(t, svc.Undo(ctx, owner))
		assert.Empty(t, svc.State(ctx, owner).Nodes)
	})

	t.Run("no-ops record nothing", func(t *testing.T) {
		svc := newMapService(nil)
		svc.AddNode(ctx, owner, "a")

		assert.False(t, svc.RemoveNode(ctx, owner, "99"))
		assert.False(t, svc.RemoveEdge(ctx, owner, "missing"))
		assert.False(t, svc.RenameNode(ctx, owner, "99", "x"))
		assert.Zero(t, svc.DeleteSelected(ctx, owner))

		assert.True(t, svc.Undo(ctx, owner))
		assert.False(t, svc.Undo(ctx, owner))
	})
}

func TestUndoRedoFlow(t *testing.T) {
	ctx := context.Background()
	svc := newMapService(nil)

	a, _ := svc.AddNode(ctx, owner, "a")
	require.True(t, svc.RenameNode(ctx, owner, a.ID, "renamed"))

	require.True(t, svc.Undo(ctx, owner))
	state := svc.State(ctx, owner)
	require.Len(t, state.Nodes, 1)
	assert.Equal(t, "a", state.Nodes[0].Label)
	assert.True(t, state.CanRedo)

	require.True(t, svc.Redo(ctx, owner))
	state = svc.State(ctx, owner)
	assert.Equal(t, "renamed", state.Nodes[0].Label)

	// A fresh mutation after an undo discards the redo branch.
	require.True(t, svc.Undo(ctx, owner))
	svc.AddNode(ctx, owner, "b")
	assert.False(t, svc.Redo(ctx, owner))
}

func TestDeleteSelected(t *testing.T) {
	ctx := context.Background()
	svc := newMapService(nil)

	a, _ := svc.AddNode(ctx, owner, "a")
	b, _ := svc.AddNode(ctx, owner, "b")
	c, _ := svc.AddNode(ctx, owner, "c")
	_, err := svc.Connect(ctx, owner, a.ID, b.ID, "", "")
	require.NoError(t, err)
	_, err = svc.Connect(ctx, owner, b.ID, c.ID, "", "")
	require.NoError(t, err)

	svc.SetSelection(ctx, owner, []string{a.ID, b.ID, "missing"})
	removed := svc.DeleteSelected(ctx, owner)
	assert.Equal(t, 2, removed)

	state := svc.State(ctx, owner)
	require.Len(t, state.Nodes, 1)
	assert.Equal(t, c.ID, state.Nodes[0].ID)
	assert.Empty(t, state.Edges)
	assert.Empty(t, state.Selection)

	// One undo restores both nodes and their edges.
	require.True(t, svc.Undo(ctx, owner))
	state = svc.State(ctx, owner)
	assert.Len(t, state.Nodes, 3)
	assert.Len(t, state.Edges, 2)
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	svc := newMapService(nil)

	a, _ := svc.AddNode(ctx, owner, "root")
	b, _ := svc.AddNode(ctx, owner, "leaf")
	_, err := svc.Connect(ctx, owner, a.ID, b.ID, valueobjects.HandleRight, valueobjects.HandleLeft)
	require.NoError(t, err)

	doc := svc.Export(ctx, owner)
	assert.Equal(t, mapdoc.Version, doc.Version)
	assert.Len(t, doc.Nodes, 2)
	assert.Len(t, doc.Edges, 1)

	data, err := doc.Encode()
	require.NoError(t, err)

	t.Run("round-trips into an isomorphic graph", func(t *testing.T) {
		other := newMapService(nil)
		require.NoError(t, other.Import(ctx, "user-2", data))

		state := other.State(ctx, "user-2")
		assert.Equal(t, doc.Nodes, state.Nodes)
		assert.Equal(t, doc.Edges, state.Edges)
	})

	t.Run("node counter continues past imported ids", func(t *testing.T) {
		other := newMapService(nil)
		require.NoError(t, other.Import(ctx, "user-3", data))

		node, err := other.AddNode(ctx, "user-3", "new")
		require.NoError(t, err)
		assert.Equal(t, "3", node.ID)
	})

	t.Run("malformed documents leave state untouched", func(t *testing.T) {
		before := svc.State(ctx, owner)

		err := svc.Import(ctx, owner, []byte(`{"name":"broken"}`))
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))

		err = svc.Import(ctx, owner, []byte(`{"nodes":[{"id":"1"}],"edges":[{"id":"e","source":"1","target":"9"}]}`))
		require.Error(t, err)

		after := svc.State(ctx, owner)
		assert.Equal(t, before.Nodes, after.Nodes)
		assert.Equal(t, before.Edges, after.Edges)
		assert.Equal(t, before.CanUndo, after.CanUndo)
	})

	t.Run("import is undoable", func(t *testing.T) {
		other := newMapService(nil)
		other.AddNode(ctx, "user-4", "existing")

		require.NoError(t, other.Import(ctx, "user-4", data))
		require.Len(t, other.State(ctx, "user-4").Nodes, 2)

		require.True(t, other.Undo(ctx, "user-4"))
		state := other.State(ctx, "user-4")
		require.Len(t, state.Nodes, 1)
		assert.Equal(t, "existing", state.Nodes[0].Label)
	})
}

func TestSavedMapLibrary(t *testing.T) {
	ctx := context.Background()

	t.Run("save, list and load", func(t *testing.T) {
		lib := newFakeMapLibrary()
		svc := newMapService(lib)

		svc.AddNode(ctx, owner, "a")
		svc.AddNode(ctx, owner, "b")

		info, err := svc.SaveToLibrary(ctx, owner, "Roadmap")
		require.NoError(t, err)
		assert.Equal(t, 2, info.NodeCount)

		infos, err := svc.ListLibrary(ctx, owner)
		require.NoError(t, err)
		require.Len(t, infos, 1)

		svc.ClearAll(ctx, owner)
		require.Empty(t, svc.State(ctx, owner).Nodes)

		require.NoError(t, svc.LoadFromLibrary(ctx, owner, "Roadmap"))
		state := svc.State(ctx, owner)
		assert.Len(t, state.Nodes, 2)
		assert.Equal(t, "Roadmap", state.Name)
	})

	t.Run("same name replaces the earlier map", func(t *testing.T) {
		lib := newFakeMapLibrary()
		svc := newMapService(lib)

		svc.AddNode(ctx, owner, "a")
		_, err := svc.SaveToLibrary(ctx, owner, "Draft")
		require.NoError(t, err)

		svc.AddNode(ctx, owner, "b")
		_, err = svc.SaveToLibrary(ctx, owner, "Draft")
		require.NoError(t, err)

		infos, err := svc.ListLibrary(ctx, owner)
		require.NoError(t, err)
		require.Len(t, infos, 1)
		assert.Equal(t, 2, infos[0].NodeCount)
	})

	t.Run("loading a saved map is undoable", func(t *testing.T) {
		lib := newFakeMapLibrary()
		svc := newMapService(lib)

		svc.AddNode(ctx, owner, "saved")
		_, err := svc.SaveToLibrary(ctx, owner, "One")
		require.NoError(t, err)

		svc.ClearAll(ctx, owner)
		svc.AddNode(ctx, owner, "current")

		require.NoError(t, svc.LoadFromLibrary(ctx, owner, "One"))
		require.True(t, svc.Undo(ctx, owner))
		state := svc.State(ctx, owner)
		require.Len(t, state.Nodes, 1)
		assert.Equal(t, "current", state.Nodes[0].Label)
	})

	t.Run("missing names and missing library fail cleanly", func(t *testing.T) {
		lib := newFakeMapLibrary()
		svc := newMapService(lib)
		err := svc.LoadFromLibrary(ctx, owner, "Nope")
		require.Error(t, err)
		assert.True(t, pkgerrors.IsNotFound(err))

		_, err = svc.SaveToLibrary(ctx, owner, "")
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))

		bare := newMapService(nil)
		_, err = bare.SaveToLibrary(ctx, owner, "x")
		require.Error(t, err)
		assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeUnavailable))
	})

	t.Run("delete removes the record", func(t *testing.T) {
		lib := newFakeMapLibrary()
		svc := newMapService(lib)
		svc.AddNode(ctx, owner, "a")
		_, err := svc.SaveToLibrary(ctx, owner, "Gone")
		require.NoError(t, err)

		require.NoError(t, svc.DeleteFromLibrary(ctx, owner, "Gone"))
		infos, err := svc.ListLibrary(ctx, owner)
		require.NoError(t, err)
		assert.Empty(t, infos)
	})
}

func TestHistoryBoundThroughService(t *testing.T) {
	ctx := context.Background()
	svc := newMapService(nil)

	for i := 0; i < 25; i++ {
		_, err := svc.AddNode(ctx, owner, "n")
		require.NoError(t, err)
	}

	undos := 0
	for svc.Undo(ctx, owner) {
		undos++
	}
	assert.Equal(t, 20, undos)
	// The five oldest additions are beyond recovery.
	assert.Len(t, svc.State(ctx, owner).Nodes, 5)
}

func TestOwnersAreIsolated(t *testing.T) {
	ctx := context.Background()
	svc := newMapService(nil)

	svc.AddNode(ctx, "alice", "hers")
	svc.AddNode(ctx, "bob", "his")

	assert.Len(t, svc.State(ctx, "alice").Nodes, 1)
	assert.Equal(t, "hers", svc.State(ctx, "alice").Nodes[0].Label)
	assert.Equal(t, "his", svc.State(ctx, "bob").Nodes[0].Label)

	require.True(t, svc.Undo(ctx, "alice"))
	assert.Empty(t, svc.State(ctx, "alice").Nodes)
	assert.Len(t, svc.State(ctx, "bob").Nodes, 1)
}
