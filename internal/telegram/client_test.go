package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobintern/bountybot/internal/domain"
	"github.com/bobintern/bountybot/internal/platform/logger"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(logger.New("debug"), "test-token", srv.URL, srv.Client())
	return srv, client
}

func TestSendText_Success(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"ok":true,"result":{}}`))
	})

	err := client.SendText(context.Background(), "12345", "hello", &SendOptions{ParseMode: "HTML"})
	require.NoError(t, err)
	assert.Equal(t, "/bottest-token/sendMessage", gotPath)
	assert.Equal(t, "12345", gotBody["chat_id"])
	assert.Equal(t, "hello", gotBody["text"])
	assert.Equal(t, "HTML", gotBody["parse_mode"])
}

func TestSendPhoto_CaptionAndKeyboard(t *testing.T) {
	var gotBody map[string]any
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"ok":true,"result":{}}`))
	})

	opts := &SendOptions{
		Caption: "New bounty",
		ReplyMarkup: &InlineKeyboardMarkup{
			InlineKeyboard: [][]InlineKeyboardButton{{{Text: "View", URL: "https://example.com/b/1"}}},
		},
	}
	err := client.SendPhoto(context.Background(), "12345", "https://example.com/thumb.png", opts)
	require.NoError(t, err)
	assert.Equal(t, "New bounty", gotBody["caption"])
	markup, ok := gotBody["reply_markup"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, markup, "inline_keyboard")
}

func TestSendText_ThrottledCarriesRetryAfter(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 7","parameters":{"retry_after":7}}`))
	})

	err := client.SendText(context.Background(), "12345", "hello", nil)
	require.Error(t, err)
	wait, throttled := domain.IsThrottled(err)
	assert.True(t, throttled)
	assert.Equal(t, 7*time.Second, wait)
}

func TestSendText_ThrottledWithoutRetryAfterBacksOffHard(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests"}`))
	})

	err := client.SendText(context.Background(), "12345", "hello", nil)
	require.Error(t, err)
	wait, throttled := domain.IsThrottled(err)
	assert.True(t, throttled)
	assert.Equal(t, 60*time.Second, wait)
}

func TestSendText_BlockedRecipient(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	})

	err := client.SendText(context.Background(), "67890", "hello", nil)
	require.Error(t, err)
	assert.True(t, domain.IsRecipientBlocked(err))
}

func TestSendDocument_GenericAPIError(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	})

	err := client.SendDocument(context.Background(), "0", "file-id", nil)
	require.Error(t, err)
	_, throttled := domain.IsThrottled(err)
	assert.False(t, throttled)
	assert.False(t, domain.IsRecipientBlocked(err))
	assert.Contains(t, err.Error(), "chat not found")
}
