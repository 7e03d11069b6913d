package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"mindmesh/domain/core/entities"
	pkgerrors "mindmesh/pkg/errors"
)

// maxImportBytes caps uploaded map documents at 10 MiB.
const maxImportBytes = 10 << 20

func readBody(r *http.Request, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, pkgerrors.NewValidationError("unreadable request body")
	}
	if int64(len(data)) > limit {
		return nil, pkgerrors.NewValidationError("request body too large")
	}
	return data, nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// respondError maps application errors onto HTTP status codes. Unknown
// errors become opaque 500s so internals never leak.
func respondError(w http.ResponseWriter, err error) {
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		respondJSON(w, appErr.HTTPStatus, map[string]any{
			"error":   true,
			"type":    string(appErr.Type),
			"message": appErr.Message,
		})
		return
	}
	respondJSON(w, http.StatusInternalServerError, map[string]any{
		"error":   true,
		"message": "Internal server error",
	})
}

// noteDTO is the wire shape of a note.
type noteDTO struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	DisplayTitle string `json:"displayTitle"`
	Content      string `json:"content"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

func toNoteDTO(n *entities.Note) noteDTO {
	return noteDTO{
		ID:           n.ID().String(),
		Title:        n.Title(),
		DisplayTitle: n.DisplayTitle(),
		Content:      n.Content(),
		CreatedAt:    n.CreatedAt().UTC().Format(time.RFC3339),
		UpdatedAt:    n.UpdatedAt().UTC().Format(time.RFC3339),
	}
}
