// Package handlers exposes the note store and mind-map editor over REST.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mindmesh/application/services"
	"mindmesh/domain/core/valueobjects"
	"mindmesh/pkg/auth"
	pkgerrors "mindmesh/pkg/errors"
	"mindmesh/pkg/utils"
)

// NoteHandler serves the note collection endpoints.
type NoteHandler struct {
	notes  *services.NoteService
	logger *zap.Logger
}

// NewNoteHandler creates a note handler.
func NewNoteHandler(notes *services.NoteService, logger *zap.Logger) *NoteHandler {
	return &NoteHandler{notes: notes, logger: logger}
}

// RegisterRoutes mounts the note routes on the router.
func (h *NoteHandler) RegisterRoutes(r chi.Router) {
	r.Route("/notes", func(r chi.Router) {
		r.Post("/", h.CreateNote)
		r.Get("/", h.ListNotes)
		r.Get("/active", h.GetActiveNote)
		r.Put("/{noteID}", h.UpdateNote)
		r.Delete("/{noteID}", h.DeleteNote)
		r.Post("/{noteID}/activate", h.ActivateNote)
	})
}

// CreateNote allocates a blank note and makes it active. A persistence
// failure still creates the note locally; the response carries saved=false
// so the client can show an unsaved indicator.
func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, pkgerrors.NewUnauthorizedError("authentication required"))
		return
	}

	note, saveErr := h.notes.Create(r.Context(), user.UserID)
	respondJSON(w, http.StatusCreated, map[string]any{
		"note":  toNoteDTO(note),
		"saved": saveErr == nil,
	})
}

// ListNotes returns the collection most recently updated first. With a
// query parameter it returns only the matching notes instead.
func (h *NoteHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, pkgerrors.NewUnauthorizedError("authentication required"))
		return
	}

	query := r.URL.Query().Get("query")
	dtos := []noteDTO{}
	if query != "" {
		for note := range h.notes.Search(r.Context(), user.UserID, query) {
			dtos = append(dtos, toNoteDTO(note))
		}
	} else {
		for _, note := range h.notes.Notes(r.Context(), user.UserID) {
			dtos = append(dtos, toNoteDTO(note))
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"notes": dtos,
		"count": len(dtos),
	})
}

// GetActiveNote returns the currently active note.
func (h *NoteHandler) GetActiveNote(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, pkgerrors.NewUnauthorizedError("authentication required"))
		return
	}

	note, ok := h.notes.Active(r.Context(), user.UserID)
	if !ok {
		respondError(w, pkgerrors.NewNotFoundError("active note"))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"note": toNoteDTO(note)})
}

type updateNoteRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// UpdateNote applies title and content changes. Updates against an id
// that no longer exists are acknowledged without effect, tolerating
// races with a concurrent delete.
func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, pkgerrors.NewUnauthorizedError("authentication required"))
		return
	}

	id, err := valueobjects.ParseNoteID(chi.URLParam(r, "noteID"))
	if err != nil {
		respondError(w, pkgerrors.NewValidationError("invalid note id"))
		return
	}

	var req updateNoteRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, pkgerrors.NewValidationError("invalid request body"))
		return
	}

	var saveErr error
	if req.Title != nil {
		saveErr = h.notes.UpdateTitle(r.Context(), user.UserID, id, *req.Title)
	}
	if req.Content != nil {
		if err := h.notes.UpdateContent(r.Context(), user.UserID, id, *req.Content); err != nil {
			saveErr = err
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"saved": saveErr == nil})
}

// DeleteNote removes a note. The service keeps the collection non-empty:
// deleting the last note synthesizes a fresh blank one.
func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, pkgerrors.NewUnauthorizedError("authentication required"))
		return
	}

	id, err := valueobjects.ParseNoteID(chi.URLParam(r, "noteID"))
	if err != nil {
		respondError(w, pkgerrors.NewValidationError("invalid note id"))
		return
	}

	saveErr := h.notes.Delete(r.Context(), user.UserID, id)
	active, _ := h.notes.Active(r.Context(), user.UserID)
	resp := map[string]any{"saved": saveErr == nil}
	if active != nil {
		resp["activeNote"] = toNoteDTO(active)
	}
	respondJSON(w, http.StatusOK, resp)
}

// ActivateNote points the editor at another note.
func (h *NoteHandler) ActivateNote(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, pkgerrors.NewUnauthorizedError("authentication required"))
		return
	}

	id, err := valueobjects.ParseNoteID(chi.URLParam(r, "noteID"))
	if err != nil {
		respondError(w, pkgerrors.NewValidationError("invalid note id"))
		return
	}

	h.notes.SelectActive(r.Context(), user.UserID, id)
	note, ok := h.notes.Active(r.Context(), user.UserID)
	if !ok {
		respondError(w, pkgerrors.NewNotFoundError("active note"))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"note": toNoteDTO(note)})
}
