package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agrimech/manuals-qa/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(endpoint string) *Client {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewClient(logger, &config.Config{
		GeminiAPIKey:   "test-key",
		GeminiModel:    "test-model",
		GeminiEndpoint: endpoint,
	})
}

func candidateJSON(text string) string {
	return `{"candidates":[{"content":{"parts":[{"text":` + string(mustMarshal(text)) + `}]}}]}`
}

func mustMarshal(v interface{}) []byte {
	b, _ := json.Marshal(v)
	return b
}

func TestAskReturnsCandidateText(t *testing.T) {
	var gotReq generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(candidateJSON("Drain the pan...")))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	answer := client.Ask(context.Background(), "How do I change the oil?", "manual text", nil)

	assert.Equal(t, "Drain the pan...", answer)
	require.Len(t, gotReq.Contents, 1)
	assert.Equal(t, "user", gotReq.Contents[0].Role)
	assert.Equal(t, "Context: manual text\nQuestion: How do I change the oil?", gotReq.Contents[0].Parts[0].Text)
}

func TestAskMapsHistoryToRoles(t *testing.T) {
	var gotReq generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(candidateJSON("ok")))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	history := []Exchange{
		{Sender: "user", Text: "What oil grade?"},
		{Sender: "bot", Text: "Use 15W-40."},
	}
	client.Ask(context.Background(), "How much of it?", "", history)

	require.Len(t, gotReq.Contents, 3)
	assert.Equal(t, "user", gotReq.Contents[0].Role)
	assert.Equal(t, "What oil grade?", gotReq.Contents[0].Parts[0].Text)
	assert.Equal(t, "model", gotReq.Contents[1].Role)
	assert.Equal(t, "user", gotReq.Contents[2].Role)
}

func TestAskSentinelOnUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	assert.Equal(t, FailureSentinel, client.Ask(context.Background(), "q", "", nil))
}

func TestAskSentinelOnEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	assert.Equal(t, FailureSentinel, client.Ask(context.Background(), "q", "", nil))
}

func TestAskSentinelOnUnreachableUpstream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(server.URL)
	assert.Equal(t, FailureSentinel, client.Ask(context.Background(), "q", "", nil))
}

func TestAskSentinelOnMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	assert.Equal(t, FailureSentinel, client.Ask(context.Background(), "q", "", nil))
}
