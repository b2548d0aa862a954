package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, cfg *Config) *httptest.Server {
	t.Helper()
	if cfg == nil {
		cfg = defaultConfig()
	}
	sampler := testSampler(absentGPUProbe(), []procRecord{
		{pid: 1, name: "low", cpuPercent: 10},
		{pid: 2, name: "high", cpuPercent: 90},
	})
	ts := httptest.NewServer(newServer(cfg, sampler).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func dialWS(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg ClientMessage) ServerMessage {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
	var reply ServerMessage
	require.NoError(t, conn.ReadJSON(&reply))
	return reply
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	cfg := defaultConfig()
	cfg.Token = "secret"
	ts := newTestServer(t, cfg)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Correct token via query parameter connects.
	conn := dialWS(t, ts, "?token=secret")
	reply := roundTrip(t, conn, ClientMessage{Type: "machine_info"})
	assert.Equal(t, "machine_info", reply.Type)
	assert.NotEmpty(t, reply.OS)
}

func TestGetProcessesOverBridge(t *testing.T) {
	ts := newTestServer(t, nil)
	conn := dialWS(t, ts, "")

	reply := roundTrip(t, conn, ClientMessage{Type: "get_processes", SortBy: "cpu"})
	require.Equal(t, "processes", reply.Type)
	require.Len(t, reply.Processes, 2)
	assert.Equal(t, "high", reply.Processes[0].Name)

	// Unknown sort keys behave like cpu.
	reply = roundTrip(t, conn, ClientMessage{Type: "get_processes", SortBy: "nonsense"})
	require.Equal(t, "processes", reply.Type)
	assert.Equal(t, "high", reply.Processes[0].Name)
}

func TestTerminateRequiresPid(t *testing.T) {
	ts := newTestServer(t, nil)
	conn := dialWS(t, ts, "")

	reply := roundTrip(t, conn, ClientMessage{Type: "terminate_process"})
	assert.Equal(t, "error", reply.Type)
	assert.Equal(t, "pid required", reply.Message)
}

func TestUnknownMessageType(t *testing.T) {
	ts := newTestServer(t, nil)
	conn := dialWS(t, ts, "")

	reply := roundTrip(t, conn, ClientMessage{Type: "bogus"})
	assert.Equal(t, "error", reply.Type)
	assert.Contains(t, reply.Message, "unknown message type")
}

func TestInvalidJSONMessage(t *testing.T) {
	ts := newTestServer(t, nil)
	conn := dialWS(t, ts, "")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	var reply ServerMessage
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
	assert.Equal(t, "invalid message", reply.Message)
}

func TestCheckAuth(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		header string
		query  string
		want   bool
	}{
		{"no token configured", "", "", "", true},
		{"bearer header match", "s3cret", "Bearer s3cret", "", true},
		{"bearer header mismatch", "s3cret", "Bearer wrong", "", false},
		{"query param match", "s3cret", "", "s3cret", true},
		{"nothing provided", "s3cret", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws?token="+tt.query, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, checkAuth(r, tt.token))
		})
	}
}
