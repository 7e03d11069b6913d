// Package memory provides in-process repository implementations used by
// tests and single-node development deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"mindmesh/domain/core/entities"
	"mindmesh/domain/core/valueobjects"
)

// NoteRepository keeps notes in a per-owner map guarded by a mutex.
type NoteRepository struct {
	mu    sync.RWMutex
	notes map[string]map[string]*entities.Note // ownerID -> noteID -> note
}

// NewNoteRepository creates an empty in-memory note repository.
func NewNoteRepository() *NoteRepository {
	return &NoteRepository{
		notes: make(map[string]map[string]*entities.Note),
	}
}

// Save stores or replaces a note.
func (r *NoteRepository) Save(ctx context.Context, note *entities.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner := note.OwnerID()
	if r.notes[owner] == nil {
		r.notes[owner] = make(map[string]*entities.Note)
	}
	r.notes[owner][note.ID().String()] = note.Clone()
	return nil
}

// Delete removes a note. Deleting an absent note is not an error.
func (r *NoteRepository) Delete(ctx context.Context, ownerID string, id valueobjects.NoteID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.notes[ownerID], id.String())
	return nil
}

// FindByOwner returns the owner's notes, most recently updated first.
func (r *NoteRepository) FindByOwner(ctx context.Context, ownerID string) ([]*entities.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.Note, 0, len(r.notes[ownerID]))
	for _, n := range r.notes[ownerID] {
		out = append(out, n.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt().After(out[j].UpdatedAt())
	})
	return out, nil
}
