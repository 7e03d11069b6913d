// Package ports declares the persistence interfaces the application layer
// depends on. Infrastructure provides DynamoDB, SQLite and in-memory
// implementations.
package ports

import (
	"context"

	"mindmesh/domain/core/entities"
	"mindmesh/domain/core/valueobjects"
	"mindmesh/domain/mapdoc"
)

// NoteRepository persists note documents per owner. Implementations are the
// remote side of the note store; failures must come back as database errors
// so the caller can treat them as transient (local state stays
// authoritative).
type NoteRepository interface {
	// Save creates or replaces a note document.
	Save(ctx context.Context, note *entities.Note) error

	// Delete removes a note document. Deleting an absent note is not an
	// error.
	Delete(ctx context.Context, ownerID string, id valueobjects.NoteID) error

	// FindByOwner returns all notes owned by ownerID, sorted by updatedAt
	// descending. Sorting happens client-side; the table has no composite
	// sort index for updatedAt.
	FindByOwner(ctx context.Context, ownerID string) ([]*entities.Note, error)
}

// MapLibrary is the saved-map store. Name is the dedup key within an owner:
// Put replaces any record saved under the same name.
type MapLibrary interface {
	Put(ctx context.Context, ownerID string, rec mapdoc.SavedMap) error
	Get(ctx context.Context, ownerID, name string) (mapdoc.SavedMap, error)
	List(ctx context.Context, ownerID string) ([]mapdoc.Info, error)
	Delete(ctx context.Context, ownerID, name string) error
}
