package services

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mindmesh/application/ports"
	"mindmesh/domain/config"
	"mindmesh/domain/core/aggregates"
	"mindmesh/domain/core/valueobjects"
	"mindmesh/domain/history"
	"mindmesh/domain/mapdoc"
	pkgerrors "mindmesh/pkg/errors"
)

// PositionStrategy picks the canvas position for a newly added node.
type PositionStrategy func(cfg *config.DomainConfig) valueobjects.Position

// ColorStrategy picks the color for the n-th node added in a session.
type ColorStrategy func(cfg *config.DomainConfig, ordinal int) string

// RandomPosition places nodes uniformly within the canvas bounds.
func RandomPosition(cfg *config.DomainConfig) valueobjects.Position {
	return valueobjects.Position{
		X: rand.Float64() * cfg.CanvasWidth,
		Y: rand.Float64() * cfg.CanvasHeight,
	}
}

// PaletteColor cycles through the palette round-robin.
func PaletteColor(cfg *config.DomainConfig, ordinal int) string {
	if len(cfg.Palette) == 0 {
		return ""
	}
	return cfg.Palette[ordinal%len(cfg.Palette)]
}

// MindMapService is the mutation gateway for the graph editor state: one
// editing session per owner, each holding the mind-map aggregate and its
// undo/redo history. Every mutating operation checks its preconditions,
// records exactly one pre-mutation snapshot, then applies the mutation.
// Rejected or no-op requests never touch the history.
//
// A single mutex serializes operations in arrival order, mirroring the
// event-loop model the state was designed for.
type MindMapService struct {
	mu       sync.Mutex
	sessions map[string]*mapSession

	library ports.MapLibrary // nil when no saved-map store is configured
	cfg     *config.DomainConfig
	logger  *zap.Logger
	now     func() time.Time
	place   PositionStrategy
	color   ColorStrategy
	newID   func() string
}

type mapSession struct {
	m        *aggregates.MindMap
	h        *history.History
	colorSeq int
}

// MapState is the snapshot handed to the rendering layer after every
// operation.
type MapState struct {
	Name      string            `json:"name"`
	Nodes     []aggregates.Node `json:"nodes"`
	Edges     []aggregates.Edge `json:"edges"`
	Selection []string          `json:"selection,omitempty"`
	CanUndo   bool              `json:"canUndo"`
	CanRedo   bool              `json:"canRedo"`
}

// MindMapOption customizes a MindMapService.
type MindMapOption func(*MindMapService)

// WithMapClock injects the time source.
func WithMapClock(now func() time.Time) MindMapOption {
	return func(s *MindMapService) { s.now = now }
}

// WithPositionStrategy injects the node placement strategy.
func WithPositionStrategy(p PositionStrategy) MindMapOption {
	return func(s *MindMapService) { s.place = p }
}

// WithColorStrategy injects the node color strategy.
func WithColorStrategy(c ColorStrategy) MindMapOption {
	return func(s *MindMapService) { s.color = c }
}

// NewMindMapService creates a mind-map service.
func NewMindMapService(library ports.MapLibrary, cfg *config.DomainConfig, logger *zap.Logger, opts ...MindMapOption) *MindMapService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	s := &MindMapService{
		sessions: make(map[string]*mapSession),
		library:  library,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		place:    RandomPosition,
		color:    PaletteColor,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MindMapService) session(ownerID string) *mapSession {
	sess, ok := s.sessions[ownerID]
	if !ok {
		sess = &mapSession{
			m: aggregates.NewMindMap("Untitled Map", s.cfg),
			h: history.New(s.cfg.HistoryLimit),
		}
		s.sessions[ownerID] = sess
	}
	return sess
}

// record captures the pre-mutation snapshot. Callers invoke it exactly
// once, after validating preconditions and before mutating.
func (s *MindMapService) record(sess *mapSession) {
	nodes, edges := sess.m.CopyState()
	sess.h.Record(history.Snapshot{Nodes: nodes, Edges: edges})
}

func (s *MindMapService) state(sess *mapSession) MapState {
	nodes, edges := sess.m.CopyState()
	return MapState{
		Name:      sess.m.Name(),
		Nodes:     nodes,
		Edges:     edges,
		Selection: sess.m.SelectedIDs(),
		CanUndo:   sess.h.CanUndo(),
		CanRedo:   sess.h.CanRedo(),
	}
}

// State returns the current editor state for the owner.
func (s *MindMapService) State(ctx context.Context, ownerID string) MapState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state(s.session(ownerID))
}

// AddNode creates a node at a strategy-chosen position with the next
// palette color. The node cap is checked before any snapshot is taken.
func (s *MindMapService) AddNode(ctx context.Context, ownerID, label string) (aggregates.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(ownerID)
	if sess.m.NodeCount() >= s.cfg.MaxNodesPerMap {
		return aggregates.Node{}, pkgerrors.NewConflictError(
			fmt.Sprintf("maximum of %d nodes reached", s.cfg.MaxNodesPerMap))
	}

	s.record(sess)
	node, err := sess.m.AddNode(label, s.place(s.cfg), s.color(s.cfg, sess.colorSeq))
	if err != nil {
		return aggregates.Node{}, err
	}
	sess.colorSeq++
	return node, nil
}

// Connect creates an edge. Connections the domain rules forbid and unknown
// endpoints are rejected before any snapshot is taken, so failed connects
// never pollute history.
func (s *MindMapService) Connect(ctx context.Context, ownerID, source, target string, sourceHandle, targetHandle valueobjects.Handle) (aggregates.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(ownerID)
	if !sess.m.IsValidConnection(source, target) {
		if source == target {
			return aggregates.Edge{}, pkgerrors.NewValidationError("cannot connect a node to itself")
		}
		return aggregates.Edge{}, pkgerrors.NewValidationError("nodes are already connected")
	}
	if !sess.m.HasNode(source) {
		return aggregates.Edge{}, pkgerrors.NewNotFoundError("source node")
	}
	if !sess.m.HasNode(target) {
		return aggregates.Edge{}, pkgerrors.NewNotFoundError("target node")
	}

	s.record(sess)
	return sess.m.Connect(source, target, sourceHandle, targetHandle, s.now())
}

// IsValidConnection is the pure connection predicate, evaluated against
// the owner's current map under the configured connection rules.
func (s *MindMapService) IsValidConnection(ctx context.Context, ownerID, source, target string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session(ownerID).m.IsValidConnection(source, target)
}

// RemoveNode deletes a node and every edge touching it. Absent ids are
// no-ops and leave history untouched.
func (s *MindMapService) RemoveNode(ctx context.Context, ownerID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(ownerID)
	if !sess.m.HasNode(id) {
		return false
	}
	s.record(sess)
	return sess.m.RemoveNode(id)
}

// RemoveEdge deletes a single edge. Absent ids are no-ops.
func (s *MindMapService) RemoveEdge(ctx context.Context, ownerID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(ownerID)
	found := false
	for _, e := range sess.m.Edges() {
		if e.ID == id {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	s.record(sess)
	return sess.m.RemoveEdge(id)
}

// SetSelection replaces the selection set. Unknown ids are dropped.
// Selection is not a mutation of the graph and records no snapshot.
func (s *MindMapService) SetSelection(ctx context.Context, ownerID string, ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(ownerID)
	sess.m.ClearSelection()
	for _, id := range ids {
		sess.m.Select(id)
	}
}

// DeleteSelected removes every selected node (cascading to their edges)
// and returns how many nodes went away. An empty selection is a no-op.
func (s *MindMapService) DeleteSelected(ctx context.Context, ownerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(ownerID)
	selected := sess.m.SelectedIDs()
	if len(selected) == 0 {
		return 0
	}
	s.record(sess)
	removed := sess.m.RemoveNodes(selected)
	sess.m.ClearSelection()
	return removed
}

// RenameNode updates a node label; whitespace-only labels become the
// placeholder. Absent ids are no-ops.
func (s *MindMapService) RenameNode(ctx context.Context, ownerID, id, label string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(ownerID)
	if !sess.m.HasNode(id) {
		return false
	}
	s.record(sess)
	return sess.m.Rename(id, label)
}

// MoveNode repositions a node. Absent ids are no-ops.
func (s *MindMapService) MoveNode(ctx context.Context, ownerID, id string, pos valueobjects.Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(ownerID)
	if !sess.m.HasNode(id) {
		return false
	}
	s.record(sess)
	return sess.m.Move(id, pos)
}

// AutoLayout snaps all nodes to the fixed grid in array order.
func (s *MindMapService) AutoLayout(ctx context.Context, ownerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(ownerID)
	if sess.m.IsEmpty() {
		return
	}
	s.record(sess)
	sess.m.AutoLayout()
}

// ClearAll empties the map.
func (s *MindMapService) ClearAll(ctx context.Context, ownerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(ownerID)
	if sess.m.IsEmpty() && sess.m.EdgeCount() == 0 {
		return
	}
	s.record(sess)
	sess.m.ClearAll()
}

// Undo restores the most recent snapshot. Returns false when there is
// nothing to undo.
func (s *MindMapService) Undo(ctx context.Context, ownerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(ownerID)
	nodes, edges := sess.m.CopyState()
	snap, ok := sess.h.Undo(history.Snapshot{Nodes: nodes, Edges: edges})
	if !ok {
		return false
	}
	sess.m.ReplaceState(snap.Nodes, snap.Edges)
	return true
}

// Redo is the symmetric inverse of Undo.
func (s *MindMapService) Redo(ctx context.Context, ownerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(ownerID)
	nodes, edges := sess.m.CopyState()
	snap, ok := sess.h.Redo(history.Snapshot{Nodes: nodes, Edges: edges})
	if !ok {
		return false
	}
	sess.m.ReplaceState(snap.Nodes, snap.Edges)
	return true
}

// Export serializes the current graph into a versioned document.
func (s *MindMapService) Export(ctx context.Context, ownerID string) mapdoc.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(ownerID)
	nodes, edges := sess.m.CopyState()
	return mapdoc.NewDocument(sess.m.Name(), nodes, edges, s.now())
}

// Import atomically replaces the graph with the document's contents.
// Malformed documents (missing nodes list, dangling edges) are rejected
// with a validation error and zero state change; the id counter is
// recomputed past the imported ids.
func (s *MindMapService) Import(ctx context.Context, ownerID string, data []byte) error {
	doc, err := mapdoc.Decode(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(ownerID)
	if err := validateGraph(doc.Nodes, doc.Edges, s.cfg); err != nil {
		return err
	}

	s.record(sess)
	sess.m.ReplaceState(doc.Nodes, doc.Edges)
	if doc.Name != "" {
		sess.m.SetName(doc.Name)
	}
	return nil
}

// validateGraph checks an incoming node/edge collection against the
// aggregate invariants before it replaces any state.
func validateGraph(nodes []aggregates.Node, edges []aggregates.Edge, cfg *config.DomainConfig) error {
	scratch := aggregates.NewMindMap("", cfg)
	scratch.ReplaceState(nodes, edges)
	return scratch.Validate()
}

// SaveToLibrary stores the current graph in the saved-map library under
// name, replacing any earlier map saved under the same name.
func (s *MindMapService) SaveToLibrary(ctx context.Context, ownerID, name string) (mapdoc.Info, error) {
	if s.library == nil {
		return mapdoc.Info{}, pkgerrors.NewUnavailableError("map library")
	}
	if name == "" {
		return mapdoc.Info{}, pkgerrors.NewValidationError("map name is required")
	}

	s.mu.Lock()
	sess := s.session(ownerID)
	nodes, edges := sess.m.CopyState()
	rec := mapdoc.SavedMap{
		ID:        s.newID(),
		Name:      name,
		Data:      mapdoc.GraphData{Nodes: nodes, Edges: edges},
		Timestamp: s.now(),
	}
	s.mu.Unlock()

	if err := s.library.Put(ctx, ownerID, rec); err != nil {
		s.logger.Warn("saved map not persisted",
			zap.String("name", name),
			zap.Error(err),
		)
		return mapdoc.Info{}, err
	}
	return rec.Describe(), nil
}

// LoadFromLibrary replaces the current graph with a saved map. The load
// goes through the same gateway as import: snapshot first, replace after.
func (s *MindMapService) LoadFromLibrary(ctx context.Context, ownerID, name string) error {
	if s.library == nil {
		return pkgerrors.NewUnavailableError("map library")
	}
	rec, err := s.library.Get(ctx, ownerID, name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(ownerID)
	if err := validateGraph(rec.Data.Nodes, rec.Data.Edges, s.cfg); err != nil {
		return err
	}
	s.record(sess)
	sess.m.ReplaceState(rec.Data.Nodes, rec.Data.Edges)
	sess.m.SetName(rec.Name)
	return nil
}

// ListLibrary lists the owner's saved maps.
func (s *MindMapService) ListLibrary(ctx context.Context, ownerID string) ([]mapdoc.Info, error) {
	if s.library == nil {
		return nil, pkgerrors.NewUnavailableError("map library")
	}
	return s.library.List(ctx, ownerID)
}

// DeleteFromLibrary removes a saved map by name.
func (s *MindMapService) DeleteFromLibrary(ctx context.Context, ownerID, name string) error {
	if s.library == nil {
		return pkgerrors.NewUnavailableError("map library")
	}
	return s.library.Delete(ctx, ownerID, name)
}
