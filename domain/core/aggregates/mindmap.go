package aggregates

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"mindmesh/domain/config"
	"mindmesh/domain/core/valueobjects"
	pkgerrors "mindmesh/pkg/errors"
)

// MindMap is the aggregate root for the graph editor state. It owns the
// node and edge collections and the selection set; all mutation goes
// through its methods. Node order is preserved: exports and the grid
// layout follow insertion order.
//
// The aggregate is not safe for concurrent use; the owning service
// serializes access.
type MindMap struct {
	name      string
	nodes     []Node
	edges     []Edge
	selection map[string]struct{}
	nextID    int
	cfg       *config.DomainConfig
}

// NewMindMap creates an empty mind map.
func NewMindMap(name string, cfg *config.DomainConfig) *MindMap {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &MindMap{
		name:      name,
		selection: make(map[string]struct{}),
		nextID:    1,
		cfg:       cfg,
	}
}

// Name returns the map's display name.
func (m *MindMap) Name() string {
	return m.name
}

// SetName updates the map's display name.
func (m *MindMap) SetName(name string) {
	m.name = name
}

// IsEmpty reports whether the map holds no nodes.
func (m *MindMap) IsEmpty() bool {
	return len(m.nodes) == 0
}

// NodeCount returns the number of nodes.
func (m *MindMap) NodeCount() int {
	return len(m.nodes)
}

// EdgeCount returns the number of edges.
func (m *MindMap) EdgeCount() int {
	return len(m.edges)
}

// Nodes returns a copy of the node collection in insertion order.
func (m *MindMap) Nodes() []Node {
	return slices.Clone(m.nodes)
}

// Edges returns a copy of the edge collection in insertion order.
func (m *MindMap) Edges() []Edge {
	return slices.Clone(m.edges)
}

// NodeByID looks up a node.
func (m *MindMap) NodeByID(id string) (Node, bool) {
	for _, n := range m.nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// HasNode reports whether a node exists.
func (m *MindMap) HasNode(id string) bool {
	_, ok := m.NodeByID(id)
	return ok
}

// AddNode appends a new node with the next sequential id. Label is
// normalized; position and color come from the caller's strategies.
func (m *MindMap) AddNode(label string, pos valueobjects.Position, color string) (Node, error) {
	if len(m.nodes) >= m.cfg.MaxNodesPerMap {
		return Node{}, pkgerrors.NewConflictError(
			fmt.Sprintf("maximum of %d nodes reached", m.cfg.MaxNodesPerMap))
	}

	node := Node{
		ID:       strconv.Itoa(m.nextID),
		Label:    NormalizeLabel(label),
		Position: pos,
		Color:    color,
	}
	m.nextID++
	m.nodes = append(m.nodes, node)
	return node, nil
}

// IsValidConnection is the connection predicate. Self-loops and parallel
// edges are accepted or rejected per the domain configuration; every other
// topology, cycles included, is allowed.
func (m *MindMap) IsValidConnection(source, target string) bool {
	if source == target && !m.cfg.AllowSelfConnections {
		return false
	}
	if !m.cfg.AllowParallelEdges && m.hasEdgeBetween(source, target) {
		return false
	}
	return true
}

func (m *MindMap) hasEdgeBetween(source, target string) bool {
	for _, e := range m.edges {
		if e.Source == source && e.Target == target {
			return true
		}
	}
	return false
}

// Connect creates an edge between two existing nodes, subject to the
// connection rules; the edge color mirrors the source node's color.
func (m *MindMap) Connect(source, target string, sourceHandle, targetHandle valueobjects.Handle, at time.Time) (Edge, error) {
	if source == target && !m.cfg.AllowSelfConnections {
		return Edge{}, pkgerrors.NewValidationError("cannot connect a node to itself")
	}
	if !m.cfg.AllowParallelEdges && m.hasEdgeBetween(source, target) {
		return Edge{}, pkgerrors.NewValidationError("nodes are already connected")
	}
	if !sourceHandle.IsValid() || !targetHandle.IsValid() {
		return Edge{}, pkgerrors.NewValidationError("unknown connection handle")
	}
	sourceNode, ok := m.NodeByID(source)
	if !ok {
		return Edge{}, pkgerrors.NewNotFoundError("source node")
	}
	if !m.HasNode(target) {
		return Edge{}, pkgerrors.NewNotFoundError("target node")
	}
	if len(m.edges) >= m.cfg.MaxEdgesPerMap {
		return Edge{}, pkgerrors.NewConflictError(
			fmt.Sprintf("maximum of %d edges reached", m.cfg.MaxEdgesPerMap))
	}

	edge := NewEdge(source, target, sourceHandle, targetHandle, sourceNode.Color, at)
	m.edges = append(m.edges, edge)
	return edge, nil
}

// RemoveNode deletes a node and, cascading, every edge touching it.
// Returns false when the node does not exist.
func (m *MindMap) RemoveNode(id string) bool {
	if !m.HasNode(id) {
		return false
	}
	m.removeNodes(map[string]struct{}{id: {}})
	return true
}

// RemoveNodes deletes the given nodes and all edges touching any of them,
// returning how many nodes were removed. Unknown ids are skipped.
func (m *MindMap) RemoveNodes(ids []string) int {
	doomed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if m.HasNode(id) {
			doomed[id] = struct{}{}
		}
	}
	if len(doomed) == 0 {
		return 0
	}
	m.removeNodes(doomed)
	return len(doomed)
}

func (m *MindMap) removeNodes(doomed map[string]struct{}) {
	m.nodes = slices.DeleteFunc(m.nodes, func(n Node) bool {
		_, ok := doomed[n.ID]
		return ok
	})
	m.edges = slices.DeleteFunc(m.edges, func(e Edge) bool {
		if _, ok := doomed[e.Source]; ok {
			return true
		}
		_, ok := doomed[e.Target]
		return ok
	})
	for id := range doomed {
		delete(m.selection, id)
	}
}

// RemoveEdge deletes a single edge. Returns false when the edge does not
// exist.
func (m *MindMap) RemoveEdge(id string) bool {
	before := len(m.edges)
	m.edges = slices.DeleteFunc(m.edges, func(e Edge) bool { return e.ID == id })
	return len(m.edges) != before
}

// Rename updates a node's label, normalizing whitespace-only labels to the
// placeholder. Returns false when the node does not exist.
func (m *MindMap) Rename(id, label string) bool {
	for i := range m.nodes {
		if m.nodes[i].ID == id {
			m.nodes[i].Label = NormalizeLabel(label)
			return true
		}
	}
	return false
}

// Move repositions a node. Returns false when the node does not exist.
func (m *MindMap) Move(id string, pos valueobjects.Position) bool {
	for i := range m.nodes {
		if m.nodes[i].ID == id {
			m.nodes[i].Position = pos
			return true
		}
	}
	return false
}

// AutoLayout repositions all nodes into a fixed-column grid in current
// array order. Purely cosmetic; node identity and edges are untouched.
func (m *MindMap) AutoLayout() {
	cols := m.cfg.GridColumns
	if cols < 1 {
		cols = 1
	}
	for i := range m.nodes {
		m.nodes[i].Position = valueobjects.Position{
			X: m.cfg.GridOriginX + float64(i%cols)*m.cfg.GridSpacingX,
			Y: m.cfg.GridOriginY + float64(i/cols)*m.cfg.GridSpacingY,
		}
	}
}

// ClearAll removes every node and edge and resets the id counter.
func (m *MindMap) ClearAll() {
	m.nodes = nil
	m.edges = nil
	m.selection = make(map[string]struct{})
	m.nextID = 1
}

// Select adds a node to the selection set. Unknown ids are ignored.
func (m *MindMap) Select(id string) {
	if m.HasNode(id) {
		m.selection[id] = struct{}{}
	}
}

// Deselect removes a node from the selection set.
func (m *MindMap) Deselect(id string) {
	delete(m.selection, id)
}

// ClearSelection empties the selection set.
func (m *MindMap) ClearSelection() {
	m.selection = make(map[string]struct{})
}

// SelectedIDs returns the selected node ids in insertion order of the node
// collection, so callers see a stable ordering.
func (m *MindMap) SelectedIDs() []string {
	if len(m.selection) == 0 {
		return nil
	}
	ids := make([]string, 0, len(m.selection))
	for _, n := range m.nodes {
		if _, ok := m.selection[n.ID]; ok {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// CopyState returns deep copies of the node and edge collections, suitable
// for history snapshots and export documents.
func (m *MindMap) CopyState() ([]Node, []Edge) {
	return slices.Clone(m.nodes), slices.Clone(m.edges)
}

// ReplaceState atomically replaces the node and edge collections, e.g. on
// import or undo. The next-id counter is recomputed as max(numeric ids)+1
// so subsequently created nodes never collide, and the selection is pruned
// to surviving nodes.
func (m *MindMap) ReplaceState(nodes []Node, edges []Edge) {
	m.nodes = slices.Clone(nodes)
	m.edges = slices.Clone(edges)

	next := 1
	for _, n := range m.nodes {
		if v, err := strconv.Atoi(n.ID); err == nil && v >= next {
			next = v + 1
		}
	}
	m.nextID = next

	for id := range m.selection {
		if !m.HasNode(id) {
			delete(m.selection, id)
		}
	}
}

// Validate checks aggregate invariants: unique node ids and no edge
// referencing a missing node.
func (m *MindMap) Validate() error {
	seen := make(map[string]struct{}, len(m.nodes))
	for _, n := range m.nodes {
		if _, dup := seen[n.ID]; dup {
			return pkgerrors.NewValidationError("duplicate node id " + n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	for _, e := range m.edges {
		if _, ok := seen[e.Source]; !ok {
			return pkgerrors.NewValidationError("edge " + e.ID + " references missing source node")
		}
		if _, ok := seen[e.Target]; !ok {
			return pkgerrors.NewValidationError("edge " + e.ID + " references missing target node")
		}
	}
	return nil
}
