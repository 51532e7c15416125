package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("telegram http %d: %s", e.StatusCode, e.Message)
}

type ClientOptions struct {
	BaseURL    string
	BotToken   string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client sends replies through the Bot API. Delivery is best-effort from the
// caller's point of view: a failed send never touches note state.
type Client struct {
	baseURL    string
	botToken   string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewClient(opts ClientOptions) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		botToken:   strings.TrimSpace(opts.BotToken),
		httpClient: httpClient,
		logger:     opts.Logger,
	}
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	if c == nil {
		return fmt.Errorf("telegram client is nil")
	}
	if c.botToken == "" {
		return fmt.Errorf("telegram bot token is empty")
	}
	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := c.baseURL + "/bot" + c.botToken + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	respBody, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := strings.TrimSpace(string(respBody))
		var parsed struct {
			Description string `json:"description"`
		}
		if json.Unmarshal(respBody, &parsed) == nil && strings.TrimSpace(parsed.Description) != "" {
			message = parsed.Description
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: message}
	}
	c.logger.Debug().Int64("chat", chatID).Msg("reply sent")
	return nil
}
