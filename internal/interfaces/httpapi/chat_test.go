package httpapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatBody(text string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"update_id": 1,
		"message": map[string]interface{}{
			"message_id": 10,
			"chat":       map[string]interface{}{"id": 4242},
			"text":       text,
		},
	})
	return string(b)
}

func TestChatWebhookRepliesWithPosition(t *testing.T) {
	resolver := newFakeResolver()
	srv, _ := newTestServer(t, resolver, ChatOptions{})

	rec := doRequest(srv, http.MethodPost, "/v1/chat/webhook", chatBody("  TRK-01 "), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var reply ChatReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, "sendMessage", reply.Method)
	assert.Equal(t, int64(4242), reply.ChatID)
	assert.Contains(t, reply.Text, "TRK-01: 34.050000, -118.250000")
	assert.Contains(t, reply.Text, "Map: https://maps.example.com/?q=")
	assert.Contains(t, reply.Text, "Satellite: https://img.example.com/export?")
	assert.Empty(t, reply.ParseMode)
	assert.Equal(t, []string{"TRK-01"}, resolver.calls)
}

func TestChatWebhookStaleAndThrottledWording(t *testing.T) {
	srv, _ := newTestServer(t, newFakeResolver(), ChatOptions{})

	rec := doRequest(srv, http.MethodPost, "/v1/chat/webhook", chatBody("TRK-OLD"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "possibly stale (age 2h0m0s)")

	rec = doRequest(srv, http.MethodPost, "/v1/chat/webhook", chatBody("TRK-LIMITED"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No position is known for TRK-LIMITED.")
	assert.Contains(t, rec.Body.String(), "throttling")
}

func TestChatWebhookIgnoresCommandsAndEmptyText(t *testing.T) {
	resolver := newFakeResolver()
	srv, _ := newTestServer(t, resolver, ChatOptions{})

	for _, text := range []string{"", "   ", "/start", "/help me"} {
		rec := doRequest(srv, http.MethodPost, "/v1/chat/webhook", chatBody(text), nil)
		assert.Equal(t, http.StatusOK, rec.Code, "text %q", text)
		assert.Empty(t, rec.Body.String(), "text %q", text)
	}
	rec := doRequest(srv, http.MethodPost, "/v1/chat/webhook", `{"update_id":2}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, resolver.calls)
}

func TestChatWebhookExplainsMalformedID(t *testing.T) {
	resolver := newFakeResolver()
	srv, _ := newTestServer(t, resolver, ChatOptions{})

	rec := doRequest(srv, http.MethodPost, "/v1/chat/webhook", chatBody("where is my truck?"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Send a tracker id")
	assert.Empty(t, resolver.calls)
}

func TestChatWebhookSecret(t *testing.T) {
	srv, _ := newTestServer(t, newFakeResolver(), ChatOptions{Secret: "s3cret"})

	rec := doRequest(srv, http.MethodPost, "/v1/chat/webhook", chatBody("TRK-01"), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(srv, http.MethodPost, "/v1/chat/webhook", chatBody("TRK-01"),
		map[string]string{HeaderWebhookSecret: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(srv, http.MethodPost, "/v1/chat/webhook", chatBody("TRK-01"),
		map[string]string{HeaderWebhookSecret: "s3cret"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChatWebhookEscapesHTML(t *testing.T) {
	srv, _ := newTestServer(t, newFakeResolver(), ChatOptions{ParseMode: "HTML"})

	rec := doRequest(srv, http.MethodPost, "/v1/chat/webhook", chatBody("TRK-01"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var reply ChatReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, "HTML", reply.ParseMode)
	assert.Contains(t, reply.Text, "&amp;bboxSR=3857")
	assert.NotContains(t, reply.Text, "&bboxSR")
}

func TestChatWebhookRejectsBadBody(t *testing.T) {
	srv, _ := newTestServer(t, newFakeResolver(), ChatOptions{})

	rec := doRequest(srv, http.MethodPost, "/v1/chat/webhook", `{"message":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "BAD_REQUEST")
}
