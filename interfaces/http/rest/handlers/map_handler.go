package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mindmesh/application/services"
	"mindmesh/domain/core/valueobjects"
	"mindmesh/domain/mapdoc"
	"mindmesh/pkg/auth"
	pkgerrors "mindmesh/pkg/errors"
	"mindmesh/pkg/utils"
)

// MapHandler serves the mind-map editor endpoints. Every mutating
// endpoint returns the resulting editor state so the client can rerender
// without a follow-up fetch.
type MapHandler struct {
	maps   *services.MindMapService
	logger *zap.Logger
}

// NewMapHandler creates a map handler.
func NewMapHandler(maps *services.MindMapService, logger *zap.Logger) *MapHandler {
	return &MapHandler{maps: maps, logger: logger}
}

// RegisterRoutes mounts the map routes on the router.
func (h *MapHandler) RegisterRoutes(r chi.Router) {
	r.Route("/map", func(r chi.Router) {
		r.Get("/", h.GetState)
		r.Post("/nodes", h.AddNode)
		r.Put("/nodes/{nodeID}", h.UpdateNode)
		r.Delete("/nodes/{nodeID}", h.RemoveNode)
		r.Post("/edges", h.Connect)
		r.Delete("/edges/{edgeID}", h.RemoveEdge)
		r.Put("/selection", h.SetSelection)
		r.Post("/selection/delete", h.DeleteSelected)
		r.Post("/undo", h.Undo)
		r.Post("/redo", h.Redo)
		r.Post("/layout", h.AutoLayout)
		r.Post("/clear", h.ClearAll)
		r.Get("/export", h.Export)
		r.Post("/import", h.Import)
		r.Route("/saved", func(r chi.Router) {
			r.Get("/", h.ListSaved)
			r.Post("/", h.SaveMap)
			r.Post("/{name}/load", h.LoadSaved)
			r.Delete("/{name}", h.DeleteSaved)
		})
	})
}

func (h *MapHandler) user(w http.ResponseWriter, r *http.Request) (*auth.UserContext, bool) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, pkgerrors.NewUnauthorizedError("authentication required"))
		return nil, false
	}
	return user, true
}

func (h *MapHandler) respondState(w http.ResponseWriter, r *http.Request, ownerID string, extra map[string]any) {
	payload := map[string]any{
		"state": h.maps.State(r.Context(), ownerID),
	}
	for k, v := range extra {
		payload[k] = v
	}
	respondJSON(w, http.StatusOK, payload)
}

// GetState returns the current editor state.
func (h *MapHandler) GetState(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	h.respondState(w, r, user.UserID, nil)
}

type addNodeRequest struct {
	Label string `json:"label"`
}

// AddNode creates a node; placement and color come from the server-side
// strategies.
func (h *MapHandler) AddNode(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	var req addNodeRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, pkgerrors.NewValidationError("invalid request body"))
		return
	}

	node, err := h.maps.AddNode(r.Context(), user.UserID, req.Label)
	if err != nil {
		respondError(w, err)
		return
	}
	h.respondState(w, r, user.UserID, map[string]any{"node": node})
}

type updateNodeRequest struct {
	Label    *string                `json:"label"`
	Position *valueobjects.Position `json:"position"`
}

// UpdateNode renames and/or moves a node. Unknown ids are acknowledged
// without effect.
func (h *MapHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	var req updateNodeRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, pkgerrors.NewValidationError("invalid request body"))
		return
	}

	id := chi.URLParam(r, "nodeID")
	applied := false
	if req.Label != nil {
		applied = h.maps.RenameNode(r.Context(), user.UserID, id, *req.Label) || applied
	}
	if req.Position != nil {
		applied = h.maps.MoveNode(r.Context(), user.UserID, id, *req.Position) || applied
	}
	h.respondState(w, r, user.UserID, map[string]any{"applied": applied})
}

// RemoveNode deletes a node and its incident edges.
func (h *MapHandler) RemoveNode(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	removed := h.maps.RemoveNode(r.Context(), user.UserID, chi.URLParam(r, "nodeID"))
	h.respondState(w, r, user.UserID, map[string]any{"removed": removed})
}

type connectRequest struct {
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	SourceHandle string `json:"sourceHandle"`
	TargetHandle string `json:"targetHandle"`
}

// Connect creates an edge between two nodes.
func (h *MapHandler) Connect(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	var req connectRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, pkgerrors.NewValidationError(err.Error()))
		return
	}

	edge, err := h.maps.Connect(r.Context(), user.UserID, req.Source, req.Target,
		valueobjects.Handle(req.SourceHandle), valueobjects.Handle(req.TargetHandle))
	if err != nil {
		respondError(w, err)
		return
	}
	h.respondState(w, r, user.UserID, map[string]any{"edge": edge})
}

// RemoveEdge deletes a single edge.
func (h *MapHandler) RemoveEdge(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	removed := h.maps.RemoveEdge(r.Context(), user.UserID, chi.URLParam(r, "edgeID"))
	h.respondState(w, r, user.UserID, map[string]any{"removed": removed})
}

type selectionRequest struct {
	IDs []string `json:"ids"`
}

// SetSelection replaces the selected node set.
func (h *MapHandler) SetSelection(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	var req selectionRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	h.maps.SetSelection(r.Context(), user.UserID, req.IDs)
	h.respondState(w, r, user.UserID, nil)
}

// DeleteSelected removes every selected node.
func (h *MapHandler) DeleteSelected(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	removed := h.maps.DeleteSelected(r.Context(), user.UserID)
	h.respondState(w, r, user.UserID, map[string]any{"removed": removed})
}

// Undo reverts the most recent mutation.
func (h *MapHandler) Undo(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	applied := h.maps.Undo(r.Context(), user.UserID)
	h.respondState(w, r, user.UserID, map[string]any{"applied": applied})
}

// Redo reapplies the most recently undone mutation.
func (h *MapHandler) Redo(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	applied := h.maps.Redo(r.Context(), user.UserID)
	h.respondState(w, r, user.UserID, map[string]any{"applied": applied})
}

// AutoLayout snaps the nodes onto the grid.
func (h *MapHandler) AutoLayout(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	h.maps.AutoLayout(r.Context(), user.UserID)
	h.respondState(w, r, user.UserID, nil)
}

// ClearAll empties the map.
func (h *MapHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	h.maps.ClearAll(r.Context(), user.UserID)
	h.respondState(w, r, user.UserID, nil)
}

// Export returns the graph as a versioned download document.
func (h *MapHandler) Export(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	doc := h.maps.Export(r.Context(), user.UserID)
	data, err := doc.Encode()
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="mindmap-export.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Import replaces the graph with an uploaded document. Malformed
// documents are rejected with no state change.
func (h *MapHandler) Import(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	data, err := readBody(r, maxImportBytes)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.maps.Import(r.Context(), user.UserID, data); err != nil {
		respondError(w, err)
		return
	}
	h.respondState(w, r, user.UserID, nil)
}

type saveMapRequest struct {
	Name string `json:"name" validate:"required"`
}

// SaveMap stores the current graph in the saved-map library.
func (h *MapHandler) SaveMap(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	var req saveMapRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, pkgerrors.NewValidationError(err.Error()))
		return
	}

	info, err := h.maps.SaveToLibrary(r.Context(), user.UserID, req.Name)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"map": info})
}

// ListSaved lists the owner's saved maps, newest first.
func (h *MapHandler) ListSaved(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	infos, err := h.maps.ListLibrary(r.Context(), user.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	if infos == nil {
		infos = []mapdoc.Info{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"maps":  infos,
		"count": len(infos),
	})
}

// LoadSaved replaces the current graph with a saved map.
func (h *MapHandler) LoadSaved(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	if err := h.maps.LoadFromLibrary(r.Context(), user.UserID, chi.URLParam(r, "name")); err != nil {
		respondError(w, err)
		return
	}
	h.respondState(w, r, user.UserID, nil)
}

// DeleteSaved removes a saved map from the library.
func (h *MapHandler) DeleteSaved(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	if err := h.maps.DeleteFromLibrary(r.Context(), user.UserID, chi.URLParam(r, "name")); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
