// Package telegram is a minimal Bot API client covering the send methods the
// delivery queue needs. It classifies API failures into the domain error
// taxonomy so callers never inspect HTTP status codes themselves.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bobintern/bountybot/internal/domain"
)

const defaultAPIBaseURL = "https://api.telegram.org"

// SendOptions carries the optional rendering parameters of a send call.
type SendOptions struct {
	Caption     string
	ParseMode   string
	ReplyMarkup *InlineKeyboardMarkup
}

// InlineKeyboardMarkup mirrors the Bot API reply_markup object.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

type InlineKeyboardButton struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
	Data string `json:"callback_data,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Client talks to the Telegram Bot API over HTTP.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewClient(logger *slog.Logger, token, baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		logger:     logger.With("component", "telegram_client"),
		httpClient: httpClient,
		baseURL:    baseURL,
		token:      token,
	}
}

// SendText delivers a plain text message. Options.Caption is ignored here,
// ParseMode and ReplyMarkup apply.
func (c *Client) SendText(ctx context.Context, chatID string, text string, opts *SendOptions) error {
	body := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	applyOptions(body, opts, false)
	return c.call(ctx, "sendMessage", chatID, body)
}

// SendPhoto delivers an image by URL or Telegram file id.
func (c *Client) SendPhoto(ctx context.Context, chatID string, photo string, opts *SendOptions) error {
	body := map[string]any{
		"chat_id": chatID,
		"photo":   photo,
	}
	applyOptions(body, opts, true)
	return c.call(ctx, "sendPhoto", chatID, body)
}

// SendDocument delivers a document by URL or Telegram file id.
func (c *Client) SendDocument(ctx context.Context, chatID string, document string, opts *SendOptions) error {
	body := map[string]any{
		"chat_id":  chatID,
		"document": document,
	}
	applyOptions(body, opts, true)
	return c.call(ctx, "sendDocument", chatID, body)
}

func applyOptions(body map[string]any, opts *SendOptions, caption bool) {
	if opts == nil {
		return
	}
	if caption && opts.Caption != "" {
		body["caption"] = opts.Caption
	}
	if opts.ParseMode != "" {
		body["parse_mode"] = opts.ParseMode
	}
	if opts.ReplyMarkup != nil {
		body["reply_markup"] = opts.ReplyMarkup
	}
}

func (c *Client) call(ctx context.Context, method, chatID string, body map[string]any) error {
	reqBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBytes))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", method, err)
	}
	defer httpResp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}

	var resp apiResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		if httpResp.StatusCode >= 200 && httpResp.StatusCode < 300 {
			c.logger.WarnContext(ctx, "unparseable success response", "method", method, "status_code", httpResp.StatusCode)
			return nil
		}
		return fmt.Errorf("%s returned status %d with unparseable body", method, httpResp.StatusCode)
	}
	if resp.OK {
		return nil
	}

	switch resp.ErrorCode {
	case http.StatusTooManyRequests:
		// Without a server-suggested wait, back off hard rather than hammer
		// the API during sustained throttling.
		retryAfter := 60
		if resp.Parameters != nil && resp.Parameters.RetryAfter > 0 {
			retryAfter = resp.Parameters.RetryAfter
		}
		return &domain.ThrottledError{RetryAfter: time.Duration(retryAfter) * time.Second}
	case http.StatusForbidden:
		return &domain.RecipientBlockedError{ChatID: chatID}
	default:
		return fmt.Errorf("%s failed: %d %s", method, resp.ErrorCode, resp.Description)
	}
}
