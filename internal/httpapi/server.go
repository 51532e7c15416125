package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/agentworkforce/notedrop/internal/notedrop"
	"github.com/agentworkforce/notedrop/internal/telegram"
)

const webhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

type Replier interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type ServerConfig struct {
	WebhookSecret string
	AdminToken    string
	BotCommand    string
	MaxBodyBytes  int64
	Logger        zerolog.Logger
}

type Server struct {
	store   notedrop.NoteStore
	orch    *notedrop.Orchestrator
	replier Replier
	events  *SyncEventHub
	schema  *jsonschema.Schema
	cfg     ServerConfig
	logger  zerolog.Logger
}

func NewServer(store notedrop.NoteStore, orch *notedrop.Orchestrator, replier Replier, events *SyncEventHub, cfg ServerConfig) (*Server, error) {
	if cfg.BotCommand == "" {
		cfg.BotCommand = "/note"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	schema, err := compileWebhookSchema()
	if err != nil {
		return nil, err
	}
	return &Server{
		store:   store,
		orch:    orch,
		replier: replier,
		events:  events,
		schema:  schema,
		cfg:     cfg,
		logger:  cfg.Logger,
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/health" && r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	if r.URL.Path == "/webhook" && r.Method == http.MethodPost {
		s.handleWebhook(w, r)
		return
	}
	if r.URL.Path == "/dashboard" && r.Method == http.MethodGet {
		s.handleDashboard(w, r)
		return
	}
	if r.URL.Path == "/dashboard/ws" && r.Method == http.MethodGet {
		s.handleDashboardWS(w, r)
		return
	}
	if r.URL.Path == "/v1/admin/notes" && r.Method == http.MethodGet {
		s.handleAdminNotes(w, r)
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if len(parts) == 5 && parts[0] == "v1" && parts[1] == "admin" && parts[2] == "notes" && parts[4] == "resync" && r.Method == http.MethodPost {
		s.handleAdminResync(w, r, parts[3])
		return
	}

	writeError(w, http.StatusNotFound, "not_found", "route not found")
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if authErr := verifyWebhookSecret(r.Header.Get(webhookSecretHeader), s.cfg.WebhookSecret); authErr != nil {
		s.logger.Warn().Msg("webhook request with invalid secret token")
		writeError(w, authErr.status, authErr.code, authErr.message)
		return
	}
	body, ok := s.readRequestBody(w, r)
	if !ok {
		return
	}
	if err := validateWebhookPayload(s.schema, body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid update payload")
		return
	}
	var update telegram.Update
	if err := json.Unmarshal(body, &update); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json body")
		return
	}

	// Non-message, non-text and non-command updates are acknowledged
	// without further action.
	if update.Message == nil || update.Message.Text == "" || update.Message.From == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	noteText, isCommand := telegram.CommandArgument(update.Message.Text, s.cfg.BotCommand)
	if !isCommand {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	senderID := strconv.FormatInt(update.Message.From.ID, 10)
	reply := s.processNoteCommand(r.Context(), senderID, update.Message.From.Username, noteText)
	s.sendReply(r.Context(), update.Message.Chat.ID, reply)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// processNoteCommand owns the unit of work: one transaction per command,
// rolled back on any store failure.
func (s *Server) processNoteCommand(ctx context.Context, senderID, senderLabel, noteText string) string {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("begin transaction failed")
		return notedrop.ReplyUnexpected
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	result, err := s.orch.Process(ctx, tx, senderID, senderLabel, noteText)
	if err != nil {
		s.logger.Error().Err(err).Msg("note command failed")
		return notedrop.ReplyUnexpected
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error().Err(err).Msg("commit failed")
		return notedrop.ReplyUnexpected
	}
	committed = true
	return result.Reply
}

// sendReply delivers the outcome back to the chat. The note state is already
// committed; a delivery failure is logged and otherwise ignored.
func (s *Server) sendReply(ctx context.Context, chatID int64, text string) {
	if s.replier == nil || text == "" {
		return
	}
	if err := s.replier.SendMessage(ctx, chatID, text); err != nil {
		s.logger.Error().Err(err).Int64("chat", chatID).Msg("reply delivery failed")
	}
}

func (s *Server) handleAdminNotes(w http.ResponseWriter, r *http.Request) {
	if authErr := authorizeAdmin(r.Header.Get("Authorization"), s.cfg.AdminToken); authErr != nil {
		writeError(w, authErr.status, authErr.code, authErr.message)
		return
	}
	var (
		notes []notedrop.Note
		err   error
	)
	if strings.EqualFold(r.URL.Query().Get("synced"), "false") {
		notes, err = s.store.ListUnsynced(r.Context())
	} else {
		limit := 50
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			parsed, parseErr := strconv.Atoi(raw)
			if parseErr != nil || parsed < 1 || parsed > 500 {
				writeError(w, http.StatusBadRequest, "bad_request", "invalid limit")
				return
			}
			limit = parsed
		}
		notes, err = s.store.ListNotes(r.Context(), limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": notes})
}

func (s *Server) handleAdminResync(w http.ResponseWriter, r *http.Request, noteID string) {
	if authErr := authorizeAdmin(r.Header.Get("Authorization"), s.cfg.AdminToken); authErr != nil {
		writeError(w, authErr.status, authErr.code, authErr.message)
		return
	}
	note, err := s.store.GetNote(r.Context(), noteID)
	if err != nil {
		if errors.Is(err, notedrop.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "note not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	tx, err := s.store.Begin(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	result, err := s.orch.Resync(r.Context(), tx, note)
	if err != nil {
		if errors.Is(err, notedrop.ErrAlreadySynced) {
			writeError(w, http.StatusConflict, "already_synced", "note is already synced")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if err := tx.Commit(); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	committed = true
	writeJSON(w, http.StatusOK, map[string]any{
		"outcome": result.Outcome,
		"note":    result.Note,
	})
}

func (s *Server) readRequestBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "bad_request", "failed to read request body")
		return nil, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
