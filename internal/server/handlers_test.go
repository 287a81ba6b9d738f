package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismspecs/pi-captive/internal/config"
	"github.com/prismspecs/pi-captive/internal/domain"
	"github.com/prismspecs/pi-captive/internal/hub"
	"github.com/prismspecs/pi-captive/internal/state"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:             "test",
		Port:               "0",
		LogLevel:           "error",
		LogFormat:          "text",
		MaxBodyBytes:       10 << 20,
		MaxClipBytes:       1 << 20,
		MaxConnections:     16,
		RateLimitPerSecond: 1000,
		RateLimitBurst:     1000,
	}
}

// newTestServer wires a full server over a fresh store and hub and exposes it
// through httptest.
func newTestServer(t *testing.T, cfg *config.Config) (*httptest.Server, *state.Store, *hub.Hub) {
	t.Helper()

	store := state.NewStore(cfg.MaxClipBytes)
	h := hub.NewHub(store, cfg.MaxConnections, clockwork.NewRealClock())
	t.Cleanup(func() { h.Stop() })

	srv := NewServer(cfg, store, h)
	ts := httptest.NewServer(srv.echo)
	t.Cleanup(func() { ts.Close() })

	return ts, store, h
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, out))
	return resp.StatusCode
}

func dialWS(t *testing.T, ts *httptest.Server) *ws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *ws.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame map[string]any
	require.NoError(t, json.Unmarshal(raw, &frame))
	return frame
}

func sendFrame(t *testing.T, conn *ws.Conn, frame any) {
	t.Helper()
	data, err := json.Marshal(frame)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(ws.TextMessage, data))
}

func waitForClientCount(h *hub.Hub, expected int) bool {
	for i := 0; i < 200; i++ {
		if h.ClientCount() == expected {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func TestHandleHealth(t *testing.T) {
	ts, store, _ := newTestServer(t, testConfig())

	store.AppendMessage("alice", "hi", 1)
	_, err := store.AppendSound("bob", "clip", 2)
	require.NoError(t, err)
	store.SetCanvas("drawn")

	var body map[string]any
	status := getJSON(t, ts.URL+"/health", &body)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["connections"])
	assert.Equal(t, float64(1), body["messages"])
	assert.Equal(t, float64(1), body["sounds"])
	assert.Equal(t, true, body["hasCanvas"])
}

func TestGetMessages_ReturnsLast50InOrder(t *testing.T) {
	ts, store, _ := newTestServer(t, testConfig())

	for i := 1; i <= 101; i++ {
		store.AppendMessage("alice", fmt.Sprintf("msg-%d", i), int64(i))
	}

	var messages []domain.Message
	status := getJSON(t, ts.URL+"/api/messages", &messages)

	assert.Equal(t, http.StatusOK, status)
	require.Len(t, messages, 50)
	assert.Equal(t, "msg-52", messages[0].Text)
	assert.Equal(t, "msg-101", messages[49].Text)
}

func TestGetSounds_ReturnsTail(t *testing.T) {
	ts, store, _ := newTestServer(t, testConfig())

	for i := 1; i <= 25; i++ {
		_, err := store.AppendSound("bob", fmt.Sprintf("clip-%d", i), int64(i))
		require.NoError(t, err)
	}

	var sounds []domain.SoundClip
	status := getJSON(t, ts.URL+"/api/sounds", &sounds)

	assert.Equal(t, http.StatusOK, status)
	require.Len(t, sounds, 20)
	assert.Equal(t, "clip-6", sounds[0].Data)
	assert.Equal(t, "clip-25", sounds[19].Data)
}

func TestGetCanvas(t *testing.T) {
	ts, store, _ := newTestServer(t, testConfig())

	var body map[string]any
	getJSON(t, ts.URL+"/api/canvas", &body)
	assert.Nil(t, body["data"])

	store.SetCanvas("raster")
	getJSON(t, ts.URL+"/api/canvas", &body)
	assert.Equal(t, "raster", body["data"])
}

func TestVersionEndpoint(t *testing.T) {
	ts, _, _ := newTestServer(t, testConfig())

	var body map[string]any
	status := getJSON(t, ts.URL+"/version", &body)

	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["go_version"])
}

// Scenario: two clients connect, one chats, both receive the identical echo,
// and the polling API ends with that message.
func TestChatFanOutEndToEnd(t *testing.T) {
	ts, _, h := newTestServer(t, testConfig())

	conn1 := dialWS(t, ts)
	conn2 := dialWS(t, ts)
	assert.Equal(t, domain.EventInit, readFrame(t, conn1)["type"])
	assert.Equal(t, domain.EventInit, readFrame(t, conn2)["type"])
	require.True(t, waitForClientCount(h, 2))

	sendFrame(t, conn1, domain.ChatMessageEvent{Type: domain.EventChatMessage, Name: "alice", Text: "hi", Timestamp: 1})

	frame1 := readFrame(t, conn1)
	frame2 := readFrame(t, conn2)
	assert.Equal(t, frame1, frame2)
	assert.Equal(t, "hi", frame1["text"])

	var messages []domain.Message
	getJSON(t, ts.URL+"/api/messages", &messages)
	require.NotEmpty(t, messages)
	assert.Equal(t, "hi", messages[len(messages)-1].Text)
	assert.Equal(t, "alice", messages[len(messages)-1].Author)
}

// Scenario: an oversized clip is dropped silently and the sound log stays
// unchanged.
func TestOversizedClipEndToEnd(t *testing.T) {
	cfg := testConfig()
	cfg.MaxClipBytes = 32
	ts, _, h := newTestServer(t, cfg)

	conn := dialWS(t, ts)
	readFrame(t, conn)
	require.True(t, waitForClientCount(h, 1))

	sendFrame(t, conn, domain.NoiseAddEvent{Type: domain.EventNoiseAdd, Name: "bob", Data: strings.Repeat("x", 64), Timestamp: 1})
	sendFrame(t, conn, domain.ChatMessageEvent{Type: domain.EventChatMessage, Name: "bob", Text: "still alive", Timestamp: 2})

	frame := readFrame(t, conn)
	assert.Equal(t, domain.EventChatMessage, frame["type"])

	var sounds []domain.SoundClip
	getJSON(t, ts.URL+"/api/sounds", &sounds)
	assert.Empty(t, sounds)
}

// Scenario: canvas clear reaches every client including the emitter, and the
// polling API reports an empty canvas.
func TestCanvasClearEndToEnd(t *testing.T) {
	ts, _, h := newTestServer(t, testConfig())

	conn1 := dialWS(t, ts)
	conn2 := dialWS(t, ts)
	readFrame(t, conn1)
	readFrame(t, conn2)
	require.True(t, waitForClientCount(h, 2))

	sendFrame(t, conn1, domain.CanvasUpdateEvent{Type: domain.EventCanvasUpdate, Data: "P"})
	frame2 := readFrame(t, conn2)
	assert.Equal(t, domain.EventCanvasUpdate, frame2["type"])
	assert.Equal(t, "P", frame2["data"])

	sendFrame(t, conn1, domain.CanvasClearEvent{Type: domain.EventCanvasClear})
	assert.Equal(t, domain.EventCanvasClear, readFrame(t, conn1)["type"])
	assert.Equal(t, domain.EventCanvasClear, readFrame(t, conn2)["type"])

	var body map[string]any
	getJSON(t, ts.URL+"/api/canvas", &body)
	assert.Nil(t, body["data"])
}

// stubCounter stands in for an unresponsive hub in health tests.
type stubCounter struct{ count int }

func (s stubCounter) ClientCount() int { return s.count }

func TestHandleHealth_DegradedWhenHubUnresponsive(t *testing.T) {
	cfg := testConfig()
	store := state.NewStore(cfg.MaxClipBytes)
	h := hub.NewHub(store, cfg.MaxConnections, clockwork.NewRealClock())
	t.Cleanup(func() { h.Stop() })

	srv := NewServer(cfg, store, h)
	srv.connCountCheck = stubCounter{count: -1}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleHealth(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, float64(0), body["connections"])
}

func TestRateLimit_DeniedRequestsGetErrorShape(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitPerSecond = 1
	cfg.RateLimitBurst = 1
	ts, _, _ := newTestServer(t, cfg)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	status := getJSON(t, ts.URL+"/health", &body)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "rate limit exceeded", body["error"])
	assert.Equal(t, "rate_limited", body["type"])
}

func TestHealthCountsConnections(t *testing.T) {
	ts, _, h := newTestServer(t, testConfig())

	conn := dialWS(t, ts)
	readFrame(t, conn)
	require.True(t, waitForClientCount(h, 1))

	var body map[string]any
	getJSON(t, ts.URL+"/health", &body)
	assert.Equal(t, float64(1), body["connections"])

	conn.Close()
	require.True(t, waitForClientCount(h, 0))
}
