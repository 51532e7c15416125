package notedrop

import (
	"context"
	"errors"
	"testing"
	"time"
)

func mustCreate(t *testing.T, store NoteStore, senderID, text string) Note {
	t.Helper()
	tx, err := store.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	note, err := tx.CreateNote(context.Background(), senderID, "", text)
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return note
}

func TestMemoryStoreCreateValidation(t *testing.T) {
	store := NewMemoryStore()
	tx, err := store.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.CreateNote(context.Background(), "42", "", "   "); !errors.Is(err, ErrEmptyText) {
		t.Errorf("blank text: err = %v, want ErrEmptyText", err)
	}
	if _, err := tx.CreateNote(context.Background(), "", "", "hello"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty sender: err = %v, want ErrInvalidInput", err)
	}

	note, err := tx.CreateNote(context.Background(), "42", "alice", "  hello  ")
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if note.Text != "hello" {
		t.Errorf("text = %q, want trimmed %q", note.Text, "hello")
	}
	if note.ID == "" {
		t.Error("note id is empty")
	}
	if note.Synced {
		t.Error("new note must start unsynced")
	}
}

func TestMemoryStoreMarkSyncedIdempotent(t *testing.T) {
	store := NewMemoryStore()
	note := mustCreate(t, store, "42", "hello")

	tx, err := store.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := tx.MarkSynced(context.Background(), note.ID, "page_1"); err != nil {
		t.Fatalf("first MarkSynced: %v", err)
	}
	updated, err := tx.MarkSynced(context.Background(), note.ID, "page_1")
	if err != nil {
		t.Fatalf("second MarkSynced: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !updated.Synced || updated.ExternalID != "page_1" {
		t.Fatalf("note = %+v, want synced with page_1", updated)
	}
}

func TestMemoryStoreMarkFailedPreservesExternalID(t *testing.T) {
	store := NewMemoryStore()
	note := mustCreate(t, store, "42", "hello")

	tx, _ := store.Begin(context.Background())
	if _, err := tx.MarkSynced(context.Background(), note.ID, "page_1"); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	tx, _ = store.Begin(context.Background())
	updated, err := tx.MarkFailed(context.Background(), note.ID, "status=503")
	if err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if updated.Synced {
		t.Error("note must be unsynced after MarkFailed")
	}
	if updated.ExternalID != "page_1" {
		t.Errorf("externalID = %q, want preserved page_1", updated.ExternalID)
	}
	if updated.LastError != "status=503" {
		t.Errorf("lastError = %q, want status=503", updated.LastError)
	}
}

func TestMemoryStoreMarkUnknownNote(t *testing.T) {
	store := NewMemoryStore()
	tx, _ := store.Begin(context.Background())
	defer tx.Rollback()
	if _, err := tx.MarkSynced(context.Background(), "nope", "page_1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkSynced: err = %v, want ErrNotFound", err)
	}
	if _, err := tx.MarkFailed(context.Background(), "nope", "boom"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkFailed: err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreRollbackDiscardsStagedNotes(t *testing.T) {
	store := NewMemoryStore()
	tx, _ := store.Begin(context.Background())
	note, err := tx.CreateNote(context.Background(), "42", "", "discard me")
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if _, err := store.GetNote(context.Background(), note.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetNote after rollback: err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreRollbackAfterCommitIsNoop(t *testing.T) {
	store := NewMemoryStore()
	tx, _ := store.Begin(context.Background())
	note, _ := tx.CreateNote(context.Background(), "42", "", "keep me")
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback after Commit: %v", err)
	}
	if _, err := store.GetNote(context.Background(), note.ID); err != nil {
		t.Fatalf("GetNote: %v", err)
	}
}

func TestMemoryStoreListUnsyncedOrdering(t *testing.T) {
	store := NewMemoryStore()
	first := mustCreate(t, store, "42", "first")
	// Creation timestamps need to differ for the ordering to be observable.
	time.Sleep(2 * time.Millisecond)
	second := mustCreate(t, store, "42", "second")
	time.Sleep(2 * time.Millisecond)
	synced := mustCreate(t, store, "42", "third")

	tx, _ := store.Begin(context.Background())
	if _, err := tx.MarkSynced(context.Background(), synced.ID, "page_1"); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	unsynced, err := store.ListUnsynced(context.Background())
	if err != nil {
		t.Fatalf("ListUnsynced: %v", err)
	}
	if len(unsynced) != 2 {
		t.Fatalf("len = %d, want 2", len(unsynced))
	}
	if unsynced[0].ID != first.ID || unsynced[1].ID != second.ID {
		t.Errorf("order = [%s %s], want oldest first", unsynced[0].Text, unsynced[1].Text)
	}
}

func TestMemoryStoreListNotesNewestFirstWithLimit(t *testing.T) {
	store := NewMemoryStore()
	mustCreate(t, store, "42", "first")
	time.Sleep(2 * time.Millisecond)
	mustCreate(t, store, "42", "second")
	time.Sleep(2 * time.Millisecond)
	third := mustCreate(t, store, "42", "third")

	notes, err := store.ListNotes(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("len = %d, want 2", len(notes))
	}
	if notes[0].ID != third.ID {
		t.Errorf("first note = %q, want newest", notes[0].Text)
	}
}
