package aggregates

import (
	"fmt"
	"strings"
	"time"

	"mindmesh/domain/core/valueobjects"
)

// Node is a labeled idea on the mind-map canvas. Fields are exported: nodes
// are copied wholesale into history snapshots and export documents, and the
// aggregate is the only writer.
type Node struct {
	ID       string                `json:"id"`
	Label    string                `json:"label"`
	Position valueobjects.Position `json:"position"`
	Color    string                `json:"color,omitempty"`
}

// Edge connects two nodes at a pair of anchor handles. Its id is derived
// from (source, target, creation time) so that parallel edges between the
// same pair never collide.
type Edge struct {
	ID           string              `json:"id"`
	Source       string              `json:"source"`
	Target       string              `json:"target"`
	SourceHandle valueobjects.Handle `json:"sourceHandle,omitempty"`
	TargetHandle valueobjects.Handle `json:"targetHandle,omitempty"`
	Color        string              `json:"color,omitempty"`
}

// NewEdge constructs an edge between source and target.
func NewEdge(source, target string, sourceHandle, targetHandle valueobjects.Handle, color string, at time.Time) Edge {
	return Edge{
		ID:           fmt.Sprintf("edge-%s-%s-%d", source, target, at.UnixMilli()),
		Source:       source,
		Target:       target,
		SourceHandle: sourceHandle,
		TargetHandle: targetHandle,
		Color:        color,
	}
}

// Touches reports whether the edge references the node id as either end.
func (e Edge) Touches(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}

// NormalizeLabel trims a label and substitutes the placeholder for labels
// that trim to nothing.
func NormalizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return untitledLabel
	}
	return label
}

const untitledLabel = "Untitled"
