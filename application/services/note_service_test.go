package services_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mindmesh/application/services"
	"mindmesh/domain/core/entities"
	"mindmesh/domain/core/valueobjects"
	pkgerrors "mindmesh/pkg/errors"
)

const owner = "user-1"

// fakeNoteRepo is an in-memory repository whose failure mode can be
// toggled per test.
type fakeNoteRepo struct {
	notes   map[string]*entities.Note
	failing bool
	saves   int
	deletes int
}

func newFakeNoteRepo() *fakeNoteRepo {
	return &fakeNoteRepo{notes: make(map[string]*entities.Note)}
}

func (r *fakeNoteRepo) Save(ctx context.Context, note *entities.Note) error {
	if r.failing {
		return errors.New("connection refused")
	}
	r.saves++
	r.notes[note.ID().String()] = note.Clone()
	return nil
}

func (r *fakeNoteRepo) Delete(ctx context.Context, ownerID string, id valueobjects.NoteID) error {
	if r.failing {
		return errors.New("connection refused")
	}
	r.deletes++
	delete(r.notes, id.String())
	return nil
}

func (r *fakeNoteRepo) FindByOwner(ctx context.Context, ownerID string) ([]*entities.Note, error) {
	if r.failing {
		return nil, errors.New("connection refused")
	}
	var out []*entities.Note
	for _, n := range r.notes {
		out = append(out, n.Clone())
	}
	slices.SortFunc(out, func(a, b *entities.Note) int {
		return b.UpdatedAt().Compare(a.UpdatedAt())
	})
	return out, nil
}

func newNoteService(repo *fakeNoteRepo) *services.NoteService {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	if repo == nil {
		return services.NewNoteService(nil, zap.NewNop(), services.WithNoteClock(clock))
	}
	return services.NewNoteService(repo, zap.NewNop(), services.WithNoteClock(clock))
}

func TestCreateNote(t *testing.T) {
	ctx := context.Background()
	svc := newNoteService(nil)

	first, err := svc.Create(ctx, owner)
	require.NoError(t, err)
	second, err := svc.Create(ctx, owner)
	require.NoError(t, err)

	t.Run("new note becomes active", func(t *testing.T) {
		active, ok := svc.Active(ctx, owner)
		require.True(t, ok)
		assert.True(t, active.ID().Equals(second.ID()))
	})

	t.Run("collection is most recent first", func(t *testing.T) {
		notes := svc.Notes(ctx, owner)
		require.Len(t, notes, 2)
		assert.True(t, notes[0].ID().Equals(second.ID()))
		assert.True(t, notes[1].ID().Equals(first.ID()))
	})

	t.Run("blank note displays placeholder title", func(t *testing.T) {
		assert.Equal(t, "Untitled", second.DisplayTitle())
	})
}

func TestUpdateNote(t *testing.T) {
	ctx := context.Background()
	svc := newNoteService(nil)

	note, err := svc.Create(ctx, owner)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateTitle(ctx, owner, note.ID(), "Groceries"))
	require.NoError(t, svc.UpdateContent(ctx, owner, note.ID(), "<p>Milk</p>"))

	active, ok := svc.Active(ctx, owner)
	require.True(t, ok)
	assert.Equal(t, "Groceries", active.Title())
	assert.Equal(t, "<p>Milk</p>", active.Content())
	assert.True(t, active.UpdatedAt().After(active.CreatedAt()))

	t.Run("absent id is a silent no-op", func(t *testing.T) {
		require.NoError(t, svc.UpdateTitle(ctx, owner, valueobjects.NewNoteID(), "ghost"))
		notes := svc.Notes(ctx, owner)
		require.Len(t, notes, 1)
		assert.Equal(t, "Groceries", notes[0].Title())
	})
}

func TestDeleteNote(t *testing.T) {
	ctx := context.Background()

	t.Run("active moves to first remaining", func(t *testing.T) {
		svc := newNoteService(nil)
		older, _ := svc.Create(ctx, owner)
		newer, _ := svc.Create(ctx, owner)

		require.NoError(t, svc.Delete(ctx, owner, newer.ID()))
		active, ok := svc.Active(ctx, owner)
		require.True(t, ok)
		assert.True(t, active.ID().Equals(older.ID()))
	})

	t.Run("deleting the last note synthesizes a fresh blank one", func(t *testing.T) {
		svc := newNoteService(nil)
		only, _ := svc.Create(ctx, owner)

		require.NoError(t, svc.Delete(ctx, owner, only.ID()))

		notes := svc.Notes(ctx, owner)
		require.Len(t, notes, 1)
		assert.False(t, notes[0].ID().Equals(only.ID()))
		active, ok := svc.Active(ctx, owner)
		require.True(t, ok)
		assert.Empty(t, active.Title())
	})

	t.Run("absent id is a no-op", func(t *testing.T) {
		svc := newNoteService(nil)
		svc.Create(ctx, owner)
		require.NoError(t, svc.Delete(ctx, owner, valueobjects.NewNoteID()))
		assert.Len(t, svc.Notes(ctx, owner), 1)
	})
}

func TestSelectActive(t *testing.T) {
	ctx := context.Background()
	svc := newNoteService(nil)
	first, _ := svc.Create(ctx, owner)
	svc.Create(ctx, owner)

	svc.SelectActive(ctx, owner, first.ID())
	active, ok := svc.Active(ctx, owner)
	require.True(t, ok)
	assert.True(t, active.ID().Equals(first.ID()))

	// Selecting an absent id leaves the cursor alone.
	svc.SelectActive(ctx, owner, valueobjects.NewNoteID())
	active, _ = svc.Active(ctx, owner)
	assert.True(t, active.ID().Equals(first.ID()))
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	svc := newNoteService(nil)

	groceries, _ := svc.Create(ctx, owner)
	svc.UpdateTitle(ctx, owner, groceries.ID(), "Groceries")
	svc.UpdateContent(ctx, owner, groceries.ID(), "<ul><li>Milk</li></ul>")

	plans, _ := svc.Create(ctx, owner)
	svc.UpdateTitle(ctx, owner, plans.ID(), "Travel plans")

	t.Run("matches title and stripped content", func(t *testing.T) {
		got := slices.Collect(svc.Search(ctx, owner, "milk"))
		require.Len(t, got, 1)
		assert.True(t, got[0].ID().Equals(groceries.ID()))
	})

	t.Run("markup never matches", func(t *testing.T) {
		assert.Empty(t, slices.Collect(svc.Search(ctx, owner, "<li>")))
	})

	t.Run("empty term yields all notes in store order", func(t *testing.T) {
		got := slices.Collect(svc.Search(ctx, owner, ""))
		require.Len(t, got, 2)
		assert.True(t, got[0].ID().Equals(plans.ID()))
	})

	t.Run("sequence is restartable", func(t *testing.T) {
		seq := svc.Search(ctx, owner, "")
		assert.Len(t, slices.Collect(seq), 2)
		assert.Len(t, slices.Collect(seq), 2)
	})
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()

	t.Run("writes through on every mutation", func(t *testing.T) {
		repo := newFakeNoteRepo()
		svc := newNoteService(repo)

		note, err := svc.Create(ctx, owner)
		require.NoError(t, err)
		require.NoError(t, svc.UpdateTitle(ctx, owner, note.ID(), "Saved"))
		assert.Equal(t, 2, repo.saves)

		require.NoError(t, svc.Delete(ctx, owner, note.ID()))
		assert.Equal(t, 1, repo.deletes)
	})

	t.Run("repository failure is transient and local state stands", func(t *testing.T) {
		repo := newFakeNoteRepo()
		svc := newNoteService(repo)

		note, err := svc.Create(ctx, owner)
		require.NoError(t, err)

		repo.failing = true
		err = svc.UpdateTitle(ctx, owner, note.ID(), "Unsaved edit")
		require.Error(t, err)
		assert.True(t, pkgerrors.IsTransient(err))

		// The mutation stands locally despite the failed write.
		active, ok := svc.Active(ctx, owner)
		require.True(t, ok)
		assert.Equal(t, "Unsaved edit", active.Title())
	})

	t.Run("hydrates the collection on first access", func(t *testing.T) {
		repo := newFakeNoteRepo()
		seed := entities.NewNote(owner, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
		seed.Rename("From storage", time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC))
		require.NoError(t, repo.Save(ctx, seed))

		svc := newNoteService(repo)
		notes := svc.Notes(ctx, owner)
		require.Len(t, notes, 1)
		assert.Equal(t, "From storage", notes[0].Title())

		active, ok := svc.Active(ctx, owner)
		require.True(t, ok)
		assert.True(t, active.ID().Equals(seed.ID()))
	})
}

func TestHydrationAfterOutage(t *testing.T) {
	ctx := context.Background()

	t.Run("notes created during an outage survive recovery", func(t *testing.T) {
		repo := newFakeNoteRepo()
		seed := entities.NewNote(owner, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
		seed.Rename("From storage", time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC))
		require.NoError(t, repo.Save(ctx, seed))

		repo.failing = true
		svc := newNoteService(repo)
		note, err := svc.Create(ctx, owner)
		require.Error(t, err)
		require.NotNil(t, note)

		// Repository recovers. Hydration folds the stored note in behind
		// the one created during the outage.
		repo.failing = false
		notes := svc.Notes(ctx, owner)
		require.Len(t, notes, 2)
		assert.True(t, notes[0].ID().Equals(note.ID()))
		assert.Equal(t, "From storage", notes[1].Title())

		active, ok := svc.Active(ctx, owner)
		require.True(t, ok)
		assert.True(t, active.ID().Equals(note.ID()))
	})

	t.Run("recovery over an empty store keeps the local collection", func(t *testing.T) {
		repo := newFakeNoteRepo()
		repo.failing = true
		svc := newNoteService(repo)
		note, err := svc.Create(ctx, owner)
		require.Error(t, err)

		repo.failing = false
		require.Len(t, svc.Notes(ctx, owner), 1)
		active, ok := svc.Active(ctx, owner)
		require.True(t, ok)
		assert.True(t, active.ID().Equals(note.ID()))
	})
}
