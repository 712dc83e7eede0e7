package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/headlines/internal/headlines"
)

// NoteStore keeps notes in insertion order behind a RWMutex.
type NoteStore struct {
	mu    sync.RWMutex
	order []string
	notes map[string]headlines.Note
	idGen headlines.IDGenerator
	clock headlines.Clock
}

// NewNoteStore constructs a NoteStore.
func NewNoteStore(idGen headlines.IDGenerator, clock headlines.Clock) *NoteStore {
	return &NoteStore{
		notes: make(map[string]headlines.Note),
		idGen: idGen,
		clock: clock,
	}
}

// Create stores a copy of fields under a fresh ID.
func (s *NoteStore) Create(_ context.Context, fields headlines.NoteFields) (headlines.Note, error) {
	id, err := s.idGen.NewID()
	if err != nil {
		return headlines.Note{}, headlines.NewStorageError("create note", err)
	}
	note := headlines.Note{ID: id, Fields: fields.Clone(), CreatedAt: s.clock.Now()}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.notes[id]; exists {
		return headlines.Note{}, headlines.NewStorageError("create note", errors.New("duplicate id "+id))
	}
	s.notes[id] = note
	s.order = append(s.order, id)
	return cloneNote(note), nil
}

// FindAll returns every note in insertion order.
func (s *NoteStore) FindAll(_ context.Context) ([]headlines.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]headlines.Note, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, cloneNote(s.notes[id]))
	}
	return out, nil
}

// FindByID fetches a note by ID.
func (s *NoteStore) FindByID(_ context.Context, id string) (headlines.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	note, ok := s.notes[id]
	if !ok {
		return headlines.Note{}, noteNotFound(id)
	}
	return cloneNote(note), nil
}

// DeleteByID hard-removes a note.
func (s *NoteStore) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notes[id]; !ok {
		return noteNotFound(id)
	}
	delete(s.notes, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func cloneNote(n headlines.Note) headlines.Note {
	n.Fields = n.Fields.Clone()
	return n
}

func noteNotFound(id string) error {
	return fmt.Errorf("note %s: %w", id, headlines.ErrNotFound)
}
