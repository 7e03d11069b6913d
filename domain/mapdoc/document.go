// Package mapdoc defines the transferable mind-map document formats: the
// versioned export/import document and the saved-map library record.
package mapdoc

import (
	"encoding/json"
	"time"

	"mindmesh/domain/core/aggregates"
	pkgerrors "mindmesh/pkg/errors"
)

// Version is the current export format version.
const Version = "1.0"

// Document is the export/import interchange format for a mind map.
type Document struct {
	Name       string            `json:"name"`
	Nodes      []aggregates.Node `json:"nodes"`
	Edges      []aggregates.Edge `json:"edges"`
	ExportDate string            `json:"exportDate"`
	Version    string            `json:"version"`
}

// NewDocument builds an export document for the given state.
func NewDocument(name string, nodes []aggregates.Node, edges []aggregates.Edge, at time.Time) Document {
	return Document{
		Name:       name,
		Nodes:      nodes,
		Edges:      edges,
		ExportDate: at.UTC().Format(time.RFC3339),
		Version:    Version,
	}
}

// Encode serializes the document as indented JSON.
func (d Document) Encode() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Decode parses and validates an import document. The nodes field must be
// present and be a sequence; anything else is rejected with a validation
// error so the importer can refuse without touching state.
func Decode(data []byte) (Document, error) {
	// Shadow struct with a pointer slice so a missing nodes field is
	// distinguishable from an empty one.
	var raw struct {
		Name       string             `json:"name"`
		Nodes      *[]aggregates.Node `json:"nodes"`
		Edges      []aggregates.Edge  `json:"edges"`
		ExportDate string             `json:"exportDate"`
		Version    string             `json:"version"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Document{}, pkgerrors.NewValidationError("malformed map document: " + err.Error())
	}
	if raw.Nodes == nil {
		return Document{}, pkgerrors.NewValidationError("map document is missing a nodes list")
	}
	return Document{
		Name:       raw.Name,
		Nodes:      *raw.Nodes,
		Edges:      raw.Edges,
		ExportDate: raw.ExportDate,
		Version:    raw.Version,
	}, nil
}

// GraphData is the node/edge payload of a saved-map record.
type GraphData struct {
	Nodes []aggregates.Node `json:"nodes"`
	Edges []aggregates.Edge `json:"edges"`
}

// SavedMap is one entry in the saved-map library. Name is the dedup key:
// saving under an existing name replaces that record.
type SavedMap struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Data      GraphData `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Info is the listing view of a saved map, without the graph payload.
type Info struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	NodeCount int       `json:"nodeCount"`
	EdgeCount int       `json:"edgeCount"`
	Timestamp time.Time `json:"timestamp"`
}

// Describe summarises a saved map for listings.
func (s SavedMap) Describe() Info {
	return Info{
		ID:        s.ID,
		Name:      s.Name,
		NodeCount: len(s.Data.Nodes),
		EdgeCount: len(s.Data.Edges),
		Timestamp: s.Timestamp,
	}
}
