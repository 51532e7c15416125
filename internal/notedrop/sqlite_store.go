package notedrop

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the single-node default backend. Timestamps are stored as
// RFC3339Nano text so comparisons and ORDER BY stay lexicographic.
type SQLiteStore struct {
	path   string
	openDB sqlOpenFunc

	initOnce sync.Once
	initErr  error
	db       *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrInvalidInput
	}
	return &SQLiteStore{
		path:   path,
		openDB: sql.Open,
	}, nil
}

func (s *SQLiteStore) ensureReady() error {
	if s == nil {
		return ErrInvalidInput
	}
	s.initOnce.Do(func() {
		db, err := s.openDB("sqlite", s.path)
		if err != nil {
			s.initErr = err
			return
		}
		// modernc.org/sqlite serializes access per connection; a single
		// connection avoids SQLITE_BUSY under concurrent webhooks.
		db.SetMaxOpenConns(1)

		ctx, cancel := context.WithTimeout(context.Background(), postgresOperationTimeout)
		defer cancel()

		schema := `
			CREATE TABLE IF NOT EXISTS notes (
				id TEXT PRIMARY KEY,
				sender_id TEXT NOT NULL,
				sender_label TEXT,
				text TEXT NOT NULL,
				created_at TEXT NOT NULL,
				external_id TEXT,
				synced INTEGER NOT NULL DEFAULT 0,
				last_error TEXT
			)`
		if _, err := db.ExecContext(ctx, schema); err != nil {
			_ = db.Close()
			s.initErr = err
			return
		}
		if _, err := db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS notes_created_at_idx ON notes (created_at)"); err != nil {
			_ = db.Close()
			s.initErr = err
			return
		}
		s.db = db
	})
	return s.initErr
}

func (s *SQLiteStore) Begin(ctx context.Context) (NoteTx, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx}, nil
}

func (s *SQLiteStore) GetNote(ctx context.Context, id string) (Note, error) {
	if err := s.ensureReady(); err != nil {
		return Note{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, sender_id, sender_label, text, created_at, external_id, synced, last_error
		FROM notes WHERE id = ?`, id)
	return scanSQLiteNote(row)
}

func (s *SQLiteStore) ListUnsynced(ctx context.Context) ([]Note, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, sender_label, text, created_at, external_id, synced, last_error
		FROM notes WHERE synced = 0 ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSQLiteNotes(rows)
}

func (s *SQLiteStore) ListNotes(ctx context.Context, limit int) ([]Note, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, sender_label, text, created_at, external_id, synced, last_error
		FROM notes ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSQLiteNotes(rows)
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) CreateNote(ctx context.Context, senderID, senderLabel, text string) (Note, error) {
	note, err := newNote(senderID, senderLabel, text)
	if err != nil {
		return Note{}, err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO notes (id, sender_id, sender_label, text, created_at, synced)
		VALUES (?, ?, NULLIF(?, ''), ?, ?, 0)`,
		note.ID, note.SenderID, note.SenderLabel, note.Text, note.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Note{}, err
	}
	return note, nil
}

func (t *sqliteTx) MarkSynced(ctx context.Context, noteID, externalID string) (Note, error) {
	row := t.tx.QueryRowContext(ctx, `
		UPDATE notes
		SET synced = 1, external_id = ?, last_error = NULL
		WHERE id = ?
		RETURNING id, sender_id, sender_label, text, created_at, external_id, synced, last_error`,
		externalID, noteID)
	return scanSQLiteNote(row)
}

func (t *sqliteTx) MarkFailed(ctx context.Context, noteID, errorText string) (Note, error) {
	// external_id is deliberately left untouched.
	row := t.tx.QueryRowContext(ctx, `
		UPDATE notes
		SET synced = 0, last_error = ?
		WHERE id = ?
		RETURNING id, sender_id, sender_label, text, created_at, external_id, synced, last_error`,
		errorText, noteID)
	return scanSQLiteNote(row)
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func scanSQLiteNote(row rowScanner) (Note, error) {
	var note Note
	var senderLabel, externalID, lastError sql.NullString
	var createdAt string
	err := row.Scan(&note.ID, &note.SenderID, &senderLabel, &note.Text, &createdAt, &externalID, &note.Synced, &lastError)
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	if err != nil {
		return Note{}, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Note{}, err
	}
	note.CreatedAt = parsed.UTC()
	note.SenderLabel = senderLabel.String
	note.ExternalID = externalID.String
	note.LastError = lastError.String
	return note, nil
}

func collectSQLiteNotes(rows *sql.Rows) ([]Note, error) {
	notes := make([]Note, 0)
	for rows.Next() {
		note, err := scanSQLiteNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}
