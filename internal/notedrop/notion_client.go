package notedrop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Notion truncates title properties at 2000 characters; longer note text is
// cut rather than rejected.
const notionTitleLimit = 2000

type NotionClientOptions struct {
	BaseURL    string
	Token      string
	DatabaseID string
	HTTPClient *http.Client
	APIVersion string
	UserAgent  string
}

// NotionClient performs exactly one network call per CreatePage invocation.
// Retries are the orchestrator's responsibility.
type NotionClient struct {
	baseURL    string
	token      string
	databaseID string
	httpClient *http.Client
	apiVersion string
	userAgent  string
}

func NewNotionClient(opts NotionClientOptions) *NotionClient {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.notion.com"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "2022-06-28"
	}
	return &NotionClient{
		baseURL:    baseURL,
		token:      strings.TrimSpace(opts.Token),
		databaseID: strings.TrimSpace(opts.DatabaseID),
		httpClient: httpClient,
		apiVersion: apiVersion,
		userAgent:  strings.TrimSpace(opts.UserAgent),
	}
}

// CreatePage mirrors a note into the configured Notion database and returns
// the id of the created page.
func (c *NotionClient) CreatePage(ctx context.Context, text, senderID string, createdAt time.Time) (string, error) {
	if c == nil {
		return "", fmt.Errorf("notion client is nil")
	}
	if c.token == "" {
		return "", fmt.Errorf("notion token is empty")
	}
	if c.databaseID == "" {
		return "", fmt.Errorf("notion database id is empty")
	}

	payload := map[string]any{
		"parent": map[string]any{"database_id": c.databaseID},
		"properties": map[string]any{
			"Name": map[string]any{
				"title": []map[string]any{
					{"text": map[string]any{"content": truncateRunes(text, notionTitleLimit)}},
				},
			},
			"Telegram User": map[string]any{
				"rich_text": []map[string]any{
					{"text": map[string]any{"content": senderID}},
				},
			},
			"Created": map[string]any{
				"date": map[string]any{"start": createdAt.UTC().Format(time.RFC3339)},
			},
		},
	}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/pages", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", c.apiVersion)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	respBody, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return "", &TransportError{Err: readErr}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", newRemoteError(resp.StatusCode, resp.Header.Get("Retry-After"), respBody)
	}

	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode notion response: %w", err)
	}
	if strings.TrimSpace(parsed.ID) == "" {
		return "", fmt.Errorf("notion response missing page id")
	}
	return parsed.ID, nil
}

func newRemoteError(statusCode int, retryAfterHeader string, respBody []byte) *RemoteError {
	remoteErr := &RemoteError{
		StatusCode: statusCode,
		Message:    strings.TrimSpace(string(respBody)),
		RetryAfter: parseRetryAfterSeconds(retryAfterHeader),
	}
	var parsed map[string]any
	if json.Unmarshal(respBody, &parsed) == nil {
		if code, ok := parsed["code"].(string); ok {
			remoteErr.Code = code
		}
		if message, ok := parsed["message"].(string); ok && strings.TrimSpace(message) != "" {
			remoteErr.Message = message
		}
	}
	return remoteErr
}

func parseRetryAfterSeconds(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
