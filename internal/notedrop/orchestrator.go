package notedrop

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Outcome string

const (
	OutcomeInvalid   Outcome = "invalid"
	OutcomeSynced    Outcome = "synced"
	OutcomeSavedOnly Outcome = "saved_only"
)

// The user-facing reply for each outcome, plus the generic fallback the
// caller sends when the store itself fails.
const (
	ReplyEmptyText  = "❌ Please provide note text.\nExample: /note Buy milk"
	ReplySynced     = "✅ Note saved and synced to Notion!"
	ReplySavedOnly  = "⚠️ Note saved locally but failed to sync to Notion."
	ReplyUnexpected = "⚠️ An unexpected error occurred. Please try again."
)

type Result struct {
	Outcome Outcome
	Reply   string
	Note    Note
}

type SyncEvent struct {
	NoteID     string    `json:"noteId"`
	SenderID   string    `json:"senderId"`
	Outcome    Outcome   `json:"outcome"`
	ExternalID string    `json:"externalId,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// EventSink receives terminal sync transitions. Implementations must not
// block; the orchestrator publishes inline.
type EventSink interface {
	Publish(event SyncEvent)
}

type Pusher interface {
	CreatePage(ctx context.Context, text, senderID string, createdAt time.Time) (string, error)
}

type OrchestratorOptions struct {
	Pusher Pusher
	Retry  RetryPolicy
	Events EventSink
	Logger zerolog.Logger
}

// Orchestrator owns the persist -> sync -> record-outcome sequence. Exactly
// one of MarkSynced/MarkFailed runs per processed note; a note is never left
// unmarked once created.
type Orchestrator struct {
	pusher Pusher
	retry  RetryPolicy
	events EventSink
	logger zerolog.Logger
}

func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	return &Orchestrator{
		pusher: opts.Pusher,
		retry:  opts.Retry.withDefaults(),
		events: opts.Events,
		logger: opts.Logger,
	}
}

// Process handles one inbound note command within the caller's transaction.
// Empty text short-circuits before any store operation. Store errors
// propagate; the caller rolls back and replies with ReplyUnexpected.
func (o *Orchestrator) Process(ctx context.Context, tx NoteTx, senderID, senderLabel, rawText string) (Result, error) {
	text := strings.TrimSpace(rawText)
	if text == "" {
		o.logger.Debug().Str("sender", senderID).Msg("empty note command")
		return Result{Outcome: OutcomeInvalid, Reply: ReplyEmptyText}, nil
	}
	note, err := tx.CreateNote(ctx, senderID, senderLabel, text)
	if err != nil {
		return Result{}, err
	}
	o.logger.Info().Str("note", note.ID).Str("sender", note.SenderID).Msg("note created")
	return o.sync(ctx, tx, note)
}

// Resync re-runs the push/mark sequence for an existing unsynced note. A
// stale external id from an earlier success stays in place until a new
// success overwrites it.
func (o *Orchestrator) Resync(ctx context.Context, tx NoteTx, note Note) (Result, error) {
	if note.Synced {
		return Result{}, ErrAlreadySynced
	}
	return o.sync(ctx, tx, note)
}

func (o *Orchestrator) sync(ctx context.Context, tx NoteTx, note Note) (Result, error) {
	var externalID string
	pushErr := o.retry.Do(ctx, IsRetryable, func(ctx context.Context) error {
		id, err := o.pusher.CreatePage(ctx, note.Text, note.SenderID, note.CreatedAt)
		if err != nil {
			return err
		}
		externalID = id
		return nil
	})
	if pushErr != nil {
		updated, err := tx.MarkFailed(ctx, note.ID, pushErr.Error())
		if err != nil {
			return Result{}, err
		}
		o.logger.Warn().Str("note", note.ID).Str("error", pushErr.Error()).Msg("note sync failed")
		o.publish(SyncEvent{
			NoteID:    updated.ID,
			SenderID:  updated.SenderID,
			Outcome:   OutcomeSavedOnly,
			Error:     updated.LastError,
			Timestamp: time.Now().UTC(),
		})
		return Result{Outcome: OutcomeSavedOnly, Reply: ReplySavedOnly, Note: updated}, nil
	}

	updated, err := tx.MarkSynced(ctx, note.ID, externalID)
	if err != nil {
		return Result{}, err
	}
	o.logger.Info().Str("note", note.ID).Str("page", externalID).Msg("note synced")
	o.publish(SyncEvent{
		NoteID:     updated.ID,
		SenderID:   updated.SenderID,
		Outcome:    OutcomeSynced,
		ExternalID: updated.ExternalID,
		Timestamp:  time.Now().UTC(),
	})
	return Result{Outcome: OutcomeSynced, Reply: ReplySynced, Note: updated}, nil
}

func (o *Orchestrator) publish(event SyncEvent) {
	if o.events == nil {
		return
	}
	o.events.Publish(event)
}
