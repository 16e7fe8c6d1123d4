package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbhatt90/StudyBotAgent/checkpoint"
	"github.com/dbhatt90/StudyBotAgent/form"
	"github.com/dbhatt90/StudyBotAgent/retrieval"
	"github.com/dbhatt90/StudyBotAgent/session"
)

type testEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	hub := NewHub()
	registry := session.NewRegistry(session.Deps{
		Schema:   form.DefaultSchema(),
		Store:    checkpoint.NewMemoryStore(),
		Searcher: retrieval.ScenarioSearcher{},
		Emitter:  hub,
	})
	srv := httptest.NewServer(NewHandler(registry, hub).Router())
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, ctx context.Context, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(frame)))
}

func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn) testEnvelope {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var env testEnvelope
	require.NoError(t, sonic.Unmarshal(data, &env))
	return env
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestJoinAndMessageFlow(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn := dial(t, ctx, srv)

	send(t, ctx, conn, `{"event":"join","data":{"session_id":"ws-1"}}`)
	joined := readEvent(t, ctx, conn)
	require.Equal(t, "joined", joined.Event)

	var joinData struct {
		SessionID string `json:"session_id"`
		IsNew     bool   `json:"is_new_session"`
		History   []struct {
			Role string `json:"role"`
		} `json:"conversation_history"`
	}
	require.NoError(t, json.Unmarshal(joined.Data, &joinData))
	assert.Equal(t, "ws-1", joinData.SessionID)
	assert.True(t, joinData.IsNew)
	require.Len(t, joinData.History, 1, "join reply carries the greeting")

	send(t, ctx, conn, `{"event":"message","data":{"session_id":"ws-1","message":"hello"}}`)

	// Echo of the user's message, the agent's UI push, then the turn result.
	echo := readEvent(t, ctx, conn)
	assert.Equal(t, "user_message", echo.Event)

	push := readEvent(t, ctx, conn)
	assert.Equal(t, "agent_message", push.Event)

	result := readEvent(t, ctx, conn)
	assert.Equal(t, "agent_response", result.Event)
	var resp struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(result.Data, &resp))
	assert.Equal(t, "clarify", resp.Type)
	assert.NotEmpty(t, resp.Message)
}

func TestJoinMintsSessionID(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn := dial(t, ctx, srv)

	send(t, ctx, conn, `{"event":"join","data":{}}`)
	joined := readEvent(t, ctx, conn)
	require.Equal(t, "joined", joined.Event)

	var joinData struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(joined.Data, &joinData))
	assert.NotEmpty(t, joinData.SessionID)
}

func TestInvalidInputYieldsErrorEvents(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn := dial(t, ctx, srv)

	cases := []string{
		`{"event":"message","data":{"message":"hi"}}`,
		`{"event":"message","data":{"session_id":"ws-x","message":"  "}}`,
		`{"event":"status","data":{"session_id":"never-joined"}}`,
		`{"event":"warp","data":{}}`,
		`not json at all`,
	}
	for _, frame := range cases {
		send(t, ctx, conn, frame)
		env := readEvent(t, ctx, conn)
		assert.Equal(t, "error", env.Event, "frame %q", frame)
	}
}

func TestStatusAndReset(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn := dial(t, ctx, srv)

	send(t, ctx, conn, `{"event":"join","data":{"session_id":"ws-2"}}`)
	require.Equal(t, "joined", readEvent(t, ctx, conn).Event)

	send(t, ctx, conn, `{"event":"status","data":{"session_id":"ws-2"}}`)
	status := readEvent(t, ctx, conn)
	require.Equal(t, "status", status.Event)
	var st struct {
		SessionID   string  `json:"session_id"`
		ProgressPct float64 `json:"progress_pct"`
	}
	require.NoError(t, json.Unmarshal(status.Data, &st))
	assert.Equal(t, "ws-2", st.SessionID)
	assert.Zero(t, st.ProgressPct)

	send(t, ctx, conn, `{"event":"reset","data":{"session_id":"ws-2"}}`)
	reset := readEvent(t, ctx, conn)
	assert.Equal(t, "reset", reset.Event)
}
