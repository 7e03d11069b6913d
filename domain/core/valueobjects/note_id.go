package valueobjects

import "github.com/google/uuid"

// NoteID uniquely identifies a note. Assigned at creation, never reused.
type NoteID string

// NewNoteID creates a new random NoteID.
func NewNoteID() NoteID {
	return NoteID(uuid.New().String())
}

// ParseNoteID validates and converts a raw string into a NoteID.
func ParseNoteID(s string) (NoteID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return NoteID(id.String()), nil
}

// String returns the string representation.
func (id NoteID) String() string {
	return string(id)
}

// IsZero reports whether the id is unset.
func (id NoteID) IsZero() bool {
	return id == ""
}

// Equals compares two ids.
func (id NoteID) Equals(other NoteID) bool {
	return id == other
}
