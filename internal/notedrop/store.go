package notedrop

import (
	"context"
	"sort"
	"sync"
)

// NoteTx is one unit of work over the note store. The caller that opens the
// transaction owns Commit/Rollback; the orchestrator only issues operations on
// the transaction it is handed. Rollback after Commit is a no-op.
//
// MarkFailed never clears a previously recorded external id: the id is the
// only pointer to a possibly-existing remote page, and a later successful
// resync overwrites it.
type NoteTx interface {
	CreateNote(ctx context.Context, senderID, senderLabel, text string) (Note, error)
	MarkSynced(ctx context.Context, noteID, externalID string) (Note, error)
	MarkFailed(ctx context.Context, noteID, errorText string) (Note, error)
	Commit() error
	Rollback() error
}

type NoteStore interface {
	Begin(ctx context.Context) (NoteTx, error)
	GetNote(ctx context.Context, id string) (Note, error)
	// ListUnsynced returns unsynced notes ordered by creation time ascending.
	// Each call is a fresh query.
	ListUnsynced(ctx context.Context) ([]Note, error)
	// ListNotes returns up to limit notes, newest first.
	ListNotes(ctx context.Context, limit int) ([]Note, error)
	Close() error
}

// MemoryStore keeps notes in process memory. Used by tests and the
// memory:// DSN; transactions stage mutations and apply them on Commit.
type MemoryStore struct {
	mu    sync.RWMutex
	notes map[string]Note
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{notes: map[string]Note{}}
}

func (s *MemoryStore) Begin(ctx context.Context) (NoteTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryTx{store: s, staged: map[string]Note{}}, nil
}

func (s *MemoryStore) GetNote(ctx context.Context, id string) (Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	note, ok := s.notes[id]
	if !ok {
		return Note{}, ErrNotFound
	}
	return note, nil
}

func (s *MemoryStore) ListUnsynced(ctx context.Context) ([]Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Note, 0)
	for _, note := range s.notes {
		if !note.Synced {
			out = append(out, note)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListNotes(ctx context.Context, limit int) ([]Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Note, 0, len(s.notes))
	for _, note := range s.notes {
		out = append(out, note)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

type memoryTx struct {
	store  *MemoryStore
	staged map[string]Note
	done   bool
}

func (t *memoryTx) CreateNote(ctx context.Context, senderID, senderLabel, text string) (Note, error) {
	note, err := newNote(senderID, senderLabel, text)
	if err != nil {
		return Note{}, err
	}
	t.staged[note.ID] = note
	return note, nil
}

func (t *memoryTx) MarkSynced(ctx context.Context, noteID, externalID string) (Note, error) {
	note, err := t.lookup(noteID)
	if err != nil {
		return Note{}, err
	}
	note.Synced = true
	note.ExternalID = externalID
	note.LastError = ""
	t.staged[note.ID] = note
	return note, nil
}

func (t *memoryTx) MarkFailed(ctx context.Context, noteID, errorText string) (Note, error) {
	note, err := t.lookup(noteID)
	if err != nil {
		return Note{}, err
	}
	note.Synced = false
	note.LastError = errorText
	t.staged[note.ID] = note
	return note, nil
}

func (t *memoryTx) lookup(noteID string) (Note, error) {
	if note, ok := t.staged[noteID]; ok {
		return note, nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	note, ok := t.store.notes[noteID]
	if !ok {
		return Note{}, ErrNotFound
	}
	return note, nil
}

func (t *memoryTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for id, note := range t.staged {
		t.store.notes[id] = note
	}
	return nil
}

func (t *memoryTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.staged = map[string]Note{}
	return nil
}
