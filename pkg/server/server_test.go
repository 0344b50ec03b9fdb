package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/botlang/pkg/config"
	"github.com/thomasrohde/botlang/pkg/diagnostics"
	"github.com/thomasrohde/botlang/pkg/runtime"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	cfg.Robot.Animate = false
	cfg.Math.Seed = 1
	if mutate != nil {
		mutate(cfg)
	}
	ts := httptest.NewServer(New(runtime.New(runtime.WithConfig(cfg)), nil).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, path, body string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]json.RawMessage
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

// ---- HTTP ----

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestRun(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, body := post(t, ts, "/run", `{"source": "print 1 + 2; moveFwd(10);", "filename": "web.bl"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var run RunResponse
	raw, _ := json.Marshal(body)
	require.NoError(t, json.Unmarshal(raw, &run))
	assert.Equal(t, runtime.ExitOK, run.ExitCode)
	assert.Equal(t, []string{"3"}, run.Output)
	assert.Len(t, run.Shapes, 1)
	assert.Empty(t, run.Diagnostics)
	require.NotNil(t, run.Robot)
	assert.InDelta(t, 290, run.Robot.Pos.Y, 1e-9)
	assert.NotEmpty(t, run.RunID)

	// empty arrays rather than null
	assert.Equal(t, "[]", string(body["diagnostics"]))
}

func TestRunFaults(t *testing.T) {
	tests := []struct {
		name   string
		source string
		exit   int
		code   string
	}{
		{"parse", "print ;", runtime.ExitStatic, diagnostics.EParse},
		{"runtime", `print "a" - 1;`, runtime.ExitRuntime, diagnostics.EType},
		{"loop", "while (true) {}", runtime.ExitRuntime, diagnostics.EInfiniteLoop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			body, _ := json.Marshal(RunRequest{Source: tt.source})
			resp, out := post(t, ts, "/run", string(body))
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			var run RunResponse
			raw, _ := json.Marshal(out)
			require.NoError(t, json.Unmarshal(raw, &run))
			assert.Equal(t, tt.exit, run.ExitCode)
			require.Len(t, run.Diagnostics, 1)
			assert.Equal(t, tt.code, run.Diagnostics[0].Code)
			assert.Equal(t, defaultFile, run.Diagnostics[0].Span.File)
		})
	}
}

func TestBadRequests(t *testing.T) {
	ts := newTestServer(t, nil)
	for _, body := range []string{`{`, `{"src": "print 1;"}`, `[1]`} {
		t.Run(body, func(t *testing.T) {
			resp, out := post(t, ts, "/run", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, string(out["error"]), "invalid request")
		})
	}
}

func TestCheckAndFormat(t *testing.T) {
	ts := newTestServer(t, nil)

	_, out := post(t, ts, "/check", `{"source": "print 1;"}`)
	assert.Equal(t, "[]", string(out["diagnostics"]))

	_, out = post(t, ts, "/check", `{"source": "return 1;"}`)
	assert.Contains(t, string(out["diagnostics"]), diagnostics.EResolve)

	resp, out := post(t, ts, "/fmt", `{"source": "var x=1;"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `"var x = 1;\n"`, string(out["source"]))

	resp, out = post(t, ts, "/fmt", `{"source": "var ;"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(out["diagnostics"]), diagnostics.EParse)
}

func TestKillUnknownRun(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, _ := post(t, ts, "/runs/nope/kill", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.Server.AllowedOrigins = []string{"http://canvas.example"}
	})

	preflight := func(origin string) *http.Response {
		req, err := http.NewRequest(http.MethodOptions, ts.URL+"/run", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}
	assert.Equal(t, "http://canvas.example", preflight("http://canvas.example").Header.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, preflight("http://evil.example").Header.Get("Access-Control-Allow-Origin"))
}

// ---- WebSocket ----

func dial(t *testing.T, ts *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUntilDone(t *testing.T, conn *websocket.Conn) []Message {
	t.Helper()
	var msgs []Message
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var m Message
		require.NoError(t, conn.ReadJSON(&m))
		msgs = append(msgs, m)
		if m.Type == MsgDone {
			return msgs
		}
	}
}

func TestWebSocketStreams(t *testing.T) {
	ts := newTestServer(t, nil)
	conn := dial(t, ts, nil)
	require.NoError(t, conn.WriteJSON(RunRequest{Source: "print 1; moveFwd(20); print 2;"}))

	msgs := readUntilDone(t, conn)
	var kinds []string
	for _, m := range msgs {
		kinds = append(kinds, m.Type)
	}
	assert.Equal(t, []string{MsgPrint, MsgShape, MsgPrint, MsgDone}, kinds)
	assert.Equal(t, "1", msgs[0].Line)
	require.NotNil(t, msgs[1].Shape)
	assert.Len(t, msgs[1].Shape.Points, 2)

	done := msgs[len(msgs)-1].Result
	require.NotNil(t, done)
	assert.Equal(t, runtime.ExitOK, done.ExitCode)
	assert.Equal(t, []string{"1", "2"}, done.Output)
}

func TestWebSocketDiagnostics(t *testing.T) {
	ts := newTestServer(t, nil)
	conn := dial(t, ts, nil)
	require.NoError(t, conn.WriteJSON(RunRequest{Source: "print 1; print nope;"}))

	msgs := readUntilDone(t, conn)
	require.Len(t, msgs, 3)
	assert.Equal(t, MsgPrint, msgs[0].Type)
	assert.Equal(t, MsgDiagnostic, msgs[1].Type)
	assert.Equal(t, diagnostics.ERuntime, msgs[1].Diagnostic.Code)
	assert.Equal(t, runtime.ExitRuntime, msgs[2].Result.ExitCode)
}

func TestWebSocketKill(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.Robot.Animate = true
		c.Robot.Speed = 1
	})
	conn := dial(t, ts, nil)
	require.NoError(t, conn.WriteJSON(RunRequest{Source: `print "go"; moveFwd(100000); print "never";`}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var first Message
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "go", first.Line)

	require.NoError(t, conn.WriteJSON(Message{Type: MsgKill}))
	msgs := readUntilDone(t, conn)
	done := msgs[len(msgs)-1].Result
	assert.Equal(t, runtime.ExitRuntime, done.ExitCode)
	assert.Equal(t, []string{"go"}, done.Output)
}

func TestWebSocketOrigin(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.Server.AllowedOrigins = []string{"http://canvas.example"}
	})
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
