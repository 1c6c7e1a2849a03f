package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edurag/edurag/internal/models"
	"github.com/edurag/edurag/pkg/engine"
	"github.com/edurag/edurag/server"
)

type fakeRetriever struct {
	chunks []models.Chunk
	err    error
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string) ([]models.Chunk, error) {
	return f.chunks, f.err
}

type fakeGenerator struct {
	answer string
	err    error

	mu        sync.Mutex
	histories []string
}

func (f *fakeGenerator) Generate(ctx context.Context, history, docContext, question string) (string, error) {
	f.mu.Lock()
	f.histories = append(f.histories, history)
	f.mu.Unlock()
	return f.answer, f.err
}

func (f *fakeGenerator) seenHistories() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.histories...)
}

func newTestServer(t *testing.T, gen *fakeGenerator, config server.Config) *httptest.Server {
	t.Helper()
	eng := engine.New(&fakeRetriever{chunks: []models.Chunk{{
		Content:  "Newton's first law states...",
		Metadata: models.ChunkMetadata{Source: "physics.pdf", Page: 12},
	}}}, gen, nil)
	ts := httptest.NewServer(server.New(config, eng, nil).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{answer: "ok"}, server.Config{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAskEndpoint(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{answer: "Objects keep moving."}, server.Config{})

	body := bytes.NewBufferString(`{"query": "What is the first law of motion?"}`)
	resp, err := http.Post(ts.URL+"/ask", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Answer  string `json:"answer"`
		Sources []struct {
			Source string `json:"source"`
			Page   int    `json:"page"`
		} `json:"sources"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Objects keep moving.", out.Answer)
	require.Len(t, out.Sources, 1)
	assert.Equal(t, "physics.pdf", out.Sources[0].Source)
	assert.Equal(t, 12, out.Sources[0].Page)
}

func TestAskEndpointRejectsBadInput(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{answer: "unused"}, server.Config{})

	resp, err := http.Post(ts.URL+"/ask", "application/json", strings.NewReader(`{"query": "   "}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/ask", "application/json", strings.NewReader(`not json`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/ask")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestAskEndpointIsStateless(t *testing.T) {
	gen := &fakeGenerator{answer: "same answer"}
	ts := newTestServer(t, gen, server.Config{})

	for i := 0; i < 2; i++ {
		resp, err := http.Post(ts.URL+"/ask", "application/json",
			strings.NewReader(`{"query": "what is energy?"}`))
		require.NoError(t, err)
		resp.Body.Close()
	}

	// No conversation carries over between requests.
	require.Len(t, gen.seenHistories(), 2)
	assert.Equal(t, "", gen.seenHistories()[0])
	assert.Equal(t, "", gen.seenHistories()[1])
}

func dialWebSocket(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) server.Message {
	t.Helper()
	var msg server.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketChatKeepsMemory(t *testing.T) {
	gen := &fakeGenerator{answer: "an answer"}
	ts := newTestServer(t, gen, server.Config{})
	conn := dialWebSocket(t, ts)

	require.NoError(t, conn.WriteJSON(server.Message{Type: "ask", Content: "first question"}))
	msg := readMessage(t, conn)
	assert.Equal(t, "response", msg.Type)
	assert.Equal(t, "an answer", msg.Content)

	require.NoError(t, conn.WriteJSON(server.Message{Type: "ask", Content: "second question"}))
	msg = readMessage(t, conn)
	assert.Equal(t, "response", msg.Type)

	require.Len(t, gen.seenHistories(), 2)
	assert.Equal(t, "", gen.seenHistories()[0])
	assert.Equal(t, "Student: first question\nAssistant: an answer", gen.seenHistories()[1])
}

func TestWebSocketReset(t *testing.T) {
	gen := &fakeGenerator{answer: "an answer"}
	ts := newTestServer(t, gen, server.Config{})
	conn := dialWebSocket(t, ts)

	require.NoError(t, conn.WriteJSON(server.Message{Type: "ask", Content: "first question"}))
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(server.Message{Type: "reset"}))
	msg := readMessage(t, conn)
	assert.Equal(t, "status", msg.Type)

	require.NoError(t, conn.WriteJSON(server.Message{Type: "ask", Content: "second question"}))
	readMessage(t, conn)

	require.Len(t, gen.seenHistories(), 2)
	assert.Equal(t, "", gen.seenHistories()[1], "reset clears the conversation")
}

func TestWebSocketRejectsUnknownType(t *testing.T) {
	ts := newTestServer(t, &fakeGenerator{answer: "unused"}, server.Config{})
	conn := dialWebSocket(t, ts)

	require.NoError(t, conn.WriteJSON(server.Message{Type: "bogus", Content: "x"}))
	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg.Type)
}
