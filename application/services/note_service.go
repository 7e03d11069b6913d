package services

import (
	"context"
	"iter"
	"sync"
	"time"

	"go.uber.org/zap"

	"mindmesh/application/ports"
	"mindmesh/domain/core/entities"
	"mindmesh/domain/core/valueobjects"
	pkgerrors "mindmesh/pkg/errors"
)

// NoteService owns the note collections: one session per owner, each with
// an ordered (most-recent-first) collection and an active-note pointer.
//
// Mutation is serialized by a single mutex, the server-side rendition of
// the UI event loop: every operation runs to completion before the next is
// applied, so a later call always observes the effects of earlier ones.
//
// Expected conditions never fail: mutating an absent id is a silent no-op,
// tolerating races between concurrent user actions. Repository failures
// come back as transient errors while the in-memory mutation stands; the
// caller shows an unsaved indicator instead of rolling back.
type NoteService struct {
	mu       sync.Mutex
	sessions map[string]*noteSession

	repo   ports.NoteRepository // nil in the purely local variant
	logger *zap.Logger
	now    func() time.Time
}

type noteSession struct {
	notes    []*entities.Note
	activeID valueobjects.NoteID
	hydrated bool
}

// NoteServiceOption customizes a NoteService.
type NoteServiceOption func(*NoteService)

// WithNoteClock injects the time source, for deterministic tests.
func WithNoteClock(now func() time.Time) NoteServiceOption {
	return func(s *NoteService) { s.now = now }
}

// NewNoteService creates a note service. A nil repository selects the
// purely local variant.
func NewNoteService(repo ports.NoteRepository, logger *zap.Logger, opts ...NoteServiceOption) *NoteService {
	s := &NoteService{
		sessions: make(map[string]*noteSession),
		repo:     repo,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// session returns the owner's session, hydrating it from the repository on
// first access. Hydration failure leaves the session unhydrated so the next
// user action retries; the transient error is returned alongside whatever
// local state exists. Notes created or edited before hydration succeeds are
// folded in ahead of the stored ones, never replaced by them.
func (s *NoteService) session(ctx context.Context, ownerID string) (*noteSession, error) {
	sess, ok := s.sessions[ownerID]
	if !ok {
		sess = &noteSession{}
		s.sessions[ownerID] = sess
	}
	if sess.hydrated || s.repo == nil {
		return sess, nil
	}

	notes, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Warn("note hydration failed, continuing with local state",
			zap.String("ownerID", ownerID),
			zap.Error(err),
		)
		return sess, err
	}
	sess.notes = mergeHydrated(sess.notes, notes)
	if !sess.contains(sess.activeID) && len(sess.notes) > 0 {
		sess.activeID = sess.notes[0].ID()
	}
	sess.hydrated = true
	return sess, nil
}

// mergeHydrated folds stored notes into the local collection. The local
// copy wins on id collision: anything touched while the repository was
// unreachable is newer than what the store holds.
func mergeHydrated(local, stored []*entities.Note) []*entities.Note {
	if len(local) == 0 {
		return stored
	}
	seen := make(map[valueobjects.NoteID]struct{}, len(local))
	for _, n := range local {
		seen[n.ID()] = struct{}{}
	}
	merged := local
	for _, n := range stored {
		if _, ok := seen[n.ID()]; !ok {
			merged = append(merged, n)
		}
	}
	return merged
}

func (sess *noteSession) contains(id valueobjects.NoteID) bool {
	for _, n := range sess.notes {
		if n.ID().Equals(id) {
			return true
		}
	}
	return false
}

// Create allocates a blank note, prepends it to the collection and makes it
// active. The returned error, if any, is a transient persistence failure;
// the note exists locally regardless.
func (s *NoteService) Create(ctx context.Context, ownerID string) (*entities.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, hydrateErr := s.session(ctx, ownerID)
	note := s.createLocked(ctx, sess, ownerID)
	saveErr := s.persist(ctx, note)
	if hydrateErr != nil && saveErr == nil {
		saveErr = hydrateErr
	}
	return note.Clone(), saveErr
}

func (s *NoteService) createLocked(ctx context.Context, sess *noteSession, ownerID string) *entities.Note {
	note := entities.NewNote(ownerID, s.now())
	sess.notes = append([]*entities.Note{note}, sess.notes...)
	sess.activeID = note.ID()
	return note
}

// Delete removes the note with the given id. When the deleted note was
// active, the first remaining note becomes active; when no notes remain, a
// fresh blank note is synthesized and made active so the editor always has
// a target. Deleting an absent id is a no-op.
func (s *NoteService) Delete(ctx context.Context, ownerID string, id valueobjects.NoteID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, _ := s.session(ctx, ownerID)

	idx := -1
	for i, n := range sess.notes {
		if n.ID().Equals(id) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	sess.notes = append(sess.notes[:idx], sess.notes[idx+1:]...)

	var saveErr error
	if sess.activeID.Equals(id) {
		if len(sess.notes) > 0 {
			sess.activeID = sess.notes[0].ID()
		} else {
			fresh := s.createLocked(ctx, sess, ownerID)
			saveErr = s.persist(ctx, fresh)
		}
	}

	if s.repo != nil {
		if err := s.repo.Delete(ctx, ownerID, id); err != nil {
			s.logger.Warn("note delete not persisted",
				zap.String("noteID", id.String()),
				zap.Error(err),
			)
			if saveErr == nil {
				saveErr = err
			}
		}
	}
	return saveErr
}

// UpdateTitle replaces a note's title. Absent ids are silent no-ops.
func (s *NoteService) UpdateTitle(ctx context.Context, ownerID string, id valueobjects.NoteID, title string) error {
	return s.update(ctx, ownerID, id, func(n *entities.Note) {
		n.Rename(title, s.now())
	})
}

// UpdateContent replaces a note's content payload. Absent ids are silent
// no-ops.
func (s *NoteService) UpdateContent(ctx context.Context, ownerID string, id valueobjects.NoteID, content string) error {
	return s.update(ctx, ownerID, id, func(n *entities.Note) {
		n.UpdateContent(content, s.now())
	})
}

func (s *NoteService) update(ctx context.Context, ownerID string, id valueobjects.NoteID, mutate func(*entities.Note)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, _ := s.session(ctx, ownerID)
	for _, n := range sess.notes {
		if n.ID().Equals(id) {
			mutate(n)
			return s.persist(ctx, n)
		}
	}
	return nil
}

// SelectActive points the active-note cursor at the given note. Absent ids
// are silent no-ops.
func (s *NoteService) SelectActive(ctx context.Context, ownerID string, id valueobjects.NoteID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, _ := s.session(ctx, ownerID)
	for _, n := range sess.notes {
		if n.ID().Equals(id) {
			sess.activeID = id
			return
		}
	}
}

// Active returns the active note, or false when the collection is empty.
func (s *NoteService) Active(ctx context.Context, ownerID string) (*entities.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, _ := s.session(ctx, ownerID)
	for _, n := range sess.notes {
		if n.ID().Equals(sess.activeID) {
			return n.Clone(), true
		}
	}
	return nil, false
}

// Notes returns the collection in store order (most recent first).
func (s *NoteService) Notes(ctx context.Context, ownerID string) []*entities.Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, _ := s.session(ctx, ownerID)
	out := make([]*entities.Note, len(sess.notes))
	for i, n := range sess.notes {
		out[i] = n.Clone()
	}
	return out
}

// Search returns a lazy, restartable sequence of the notes matching term:
// case-insensitive substring match against title and markup-stripped
// content. The empty term yields all notes in store order. The sequence
// iterates over a stable copy taken at call time.
func (s *NoteService) Search(ctx context.Context, ownerID, term string) iter.Seq[*entities.Note] {
	s.mu.Lock()
	sess, _ := s.session(ctx, ownerID)
	stable := make([]*entities.Note, len(sess.notes))
	for i, n := range sess.notes {
		stable[i] = n.Clone()
	}
	s.mu.Unlock()

	return func(yield func(*entities.Note) bool) {
		for _, n := range stable {
			if !n.Matches(term) {
				continue
			}
			if !yield(n) {
				return
			}
		}
	}
}

// persist writes through to the repository when configured, converting any
// failure into a transient database error.
func (s *NoteService) persist(ctx context.Context, note *entities.Note) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Save(ctx, note); err != nil {
		s.logger.Warn("note save not persisted",
			zap.String("noteID", note.ID().String()),
			zap.Error(err),
		)
		if pkgerrors.GetAppError(err) != nil {
			return err
		}
		return pkgerrors.NewDatabaseError("save note", err)
	}
	return nil
}
