package entities_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindmesh/domain/core/entities"
)

var noteTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNewNote(t *testing.T) {
	n := entities.NewNote("user-1", noteTime)
	assert.False(t, n.ID().IsZero())
	assert.Equal(t, "user-1", n.OwnerID())
	assert.Empty(t, n.Title())
	assert.Equal(t, noteTime, n.CreatedAt())
	assert.Equal(t, noteTime, n.UpdatedAt())
}

func TestDisplayTitle(t *testing.T) {
	n := entities.NewNote("user-1", noteTime)
	assert.Equal(t, "Untitled", n.DisplayTitle())

	n.Rename("   ", noteTime)
	assert.Equal(t, "Untitled", n.DisplayTitle())

	n.Rename("Groceries", noteTime)
	assert.Equal(t, "Groceries", n.DisplayTitle())
}

func TestRenameBumpsUpdatedAt(t *testing.T) {
	n := entities.NewNote("user-1", noteTime)
	later := noteTime.Add(time.Hour)
	n.Rename("Plans", later)
	assert.Equal(t, later, n.UpdatedAt())
	assert.Equal(t, noteTime, n.CreatedAt())
}

func TestStripMarkup(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
	}{
		"plain text":     {"hello world", "hello world"},
		"single tag":     {"<b>bold</b>", "bold"},
		"nested tags":    {"<div><p>text</p></div>", "text"},
		"empty":          {"", ""},
		"only tags":      {"<br><hr>", ""},
		"unclosed tag":   {"before<div", "before"},
		"angle in text":  {"a < b", "a "},
		"tag with attrs": {`<a href="x">link</a>`, "link"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, entities.StripMarkup(tc.in))
		})
	}
}

func TestMatches(t *testing.T) {
	n := entities.NewNote("user-1", noteTime)
	n.Rename("Groceries", noteTime)
	n.UpdateContent("<ul><li>Milk</li><li>Bread</li></ul>", noteTime)

	t.Run("title match is case-insensitive", func(t *testing.T) {
		assert.True(t, n.Matches("groc"))
		assert.True(t, n.Matches("GROCERIES"))
	})

	t.Run("content matches against stripped markup", func(t *testing.T) {
		assert.True(t, n.Matches("milk"))
		assert.False(t, n.Matches("li>"))
		assert.False(t, n.Matches("ul"))
	})

	t.Run("empty term matches everything", func(t *testing.T) {
		assert.True(t, n.Matches(""))
	})

	t.Run("no match", func(t *testing.T) {
		assert.False(t, n.Matches("cheese"))
	})
}

func TestClone(t *testing.T) {
	n := entities.NewNote("user-1", noteTime)
	n.Rename("Original", noteTime)

	c := n.Clone()
	c.Rename("Changed", noteTime.Add(time.Minute))

	assert.Equal(t, "Original", n.Title())
	assert.Equal(t, "Changed", c.Title())
}

func TestReconstructNote(t *testing.T) {
	src := entities.NewNote("user-1", noteTime)
	got, err := entities.ReconstructNote(src.ID(), "user-1", "Saved", "body", noteTime, noteTime.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, got.ID().Equals(src.ID()))
	assert.Equal(t, "Saved", got.Title())

	_, err = entities.ReconstructNote("", "user-1", "x", "", noteTime, noteTime)
	require.Error(t, err)
}
