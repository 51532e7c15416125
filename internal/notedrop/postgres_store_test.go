package notedrop

import (
	"context"
	"os"
	"testing"
)

// Integration coverage for the Postgres backend. Runs only when
// NOTEDROP_TEST_POSTGRES_DSN points at a database the test may write to.
func newTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("NOTEDROP_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("NOTEDROP_TEST_POSTGRES_DSN not set")
	}
	store, err := NewPostgresStore(dsn)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	store := newTestPostgresStore(t)
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	note, err := tx.CreateNote(ctx, "42", "alice", "Buy milk")
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if _, err := tx.MarkSynced(ctx, note.ID, "page_1"); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	stored, err := store.GetNote(ctx, note.ID)
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if !stored.Synced || stored.ExternalID != "page_1" {
		t.Errorf("stored = %+v, want synced to page_1", stored)
	}
}

func TestPostgresStoreMarkFailedPreservesExternalID(t *testing.T) {
	store := newTestPostgresStore(t)
	ctx := context.Background()

	note := mustCreate(t, store, "42", "hello")
	tx, _ := store.Begin(ctx)
	if _, err := tx.MarkSynced(ctx, note.ID, "page_1"); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	failed, err := tx.MarkFailed(ctx, note.ID, "status=503")
	if err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if failed.Synced || failed.ExternalID != "page_1" || failed.LastError != "status=503" {
		t.Errorf("failed = %+v", failed)
	}
}
