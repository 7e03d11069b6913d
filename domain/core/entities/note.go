package entities

import (
	"strings"
	"time"

	"mindmesh/domain/core/valueobjects"
	pkgerrors "mindmesh/pkg/errors"
)

// UntitledLabel is the display title for notes and nodes without one.
const UntitledLabel = "Untitled"

// Note is a user-authored document with a title and an opaque rich-text
// content payload. The markup structure of the content is owned by the
// editor collaborator; the store treats it as a string.
type Note struct {
	id        valueobjects.NoteID
	ownerID   string
	title     string
	content   string
	createdAt time.Time
	updatedAt time.Time
}

// NewNote creates a blank note for the given owner.
func NewNote(ownerID string, now time.Time) *Note {
	return &Note{
		id:        valueobjects.NewNoteID(),
		ownerID:   ownerID,
		createdAt: now,
		updatedAt: now,
	}
}

// ReconstructNote rebuilds a note from repository data with preserved
// identity and timestamps.
func ReconstructNote(
	id valueobjects.NoteID,
	ownerID string,
	title, content string,
	createdAt, updatedAt time.Time,
) (*Note, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("note id cannot be empty")
	}
	return &Note{
		id:        id,
		ownerID:   ownerID,
		title:     title,
		content:   content,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}, nil
}

// ID returns the note's unique identifier.
func (n *Note) ID() valueobjects.NoteID {
	return n.id
}

// OwnerID returns the id of the user owning this note. Empty in the purely
// local variant.
func (n *Note) OwnerID() string {
	return n.ownerID
}

// Title returns the raw title, which may be empty.
func (n *Note) Title() string {
	return n.title
}

// DisplayTitle returns the title shown to the user, substituting a
// placeholder when the title is empty.
func (n *Note) DisplayTitle() string {
	if strings.TrimSpace(n.title) == "" {
		return UntitledLabel
	}
	return n.title
}

// Content returns the opaque markup payload.
func (n *Note) Content() string {
	return n.content
}

// CreatedAt returns when the note was created.
func (n *Note) CreatedAt() time.Time {
	return n.createdAt
}

// UpdatedAt returns when the note was last mutated.
func (n *Note) UpdatedAt() time.Time {
	return n.updatedAt
}

// Rename replaces the title. Empty titles are allowed.
func (n *Note) Rename(title string, now time.Time) {
	n.title = title
	n.updatedAt = now
}

// UpdateContent replaces the content payload.
func (n *Note) UpdateContent(content string, now time.Time) {
	n.content = content
	n.updatedAt = now
}

// Clone returns an independent copy of the note.
func (n *Note) Clone() *Note {
	c := *n
	return &c
}

// Matches reports whether the note matches a search term: case-insensitive
// substring match against the title and against the content with markup
// stripped. The empty term matches everything.
func (n *Note) Matches(term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	if strings.Contains(strings.ToLower(n.title), term) {
		return true
	}
	return strings.Contains(strings.ToLower(StripMarkup(n.content)), term)
}

// StripMarkup removes tag markup from a rich-text payload, leaving the
// visible text. Unterminated tags are dropped to their end of input.
func StripMarkup(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
