package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"printwatch/internal/auth"
	"printwatch/internal/config"
	"printwatch/internal/relay"
	"printwatch/internal/storage"
)

type fixture struct {
	hub    *relay.Hub
	pump   *relay.Pump
	input  *io.PipeWriter
	server *httptest.Server
}

func newFixture(t *testing.T, authCfg config.AuthConfig) *fixture {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	hub := relay.NewHub(storage.NewLineBuffer(10), log)
	pump := relay.NewPump(100, log)
	pr, pw := io.Pipe()
	lines := pump.Start(pr)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx, lines)

	handler := NewHandler(hub, pump, auth.NewManager(authCfg), log)
	server := httptest.NewServer(NewRouter(handler))

	t.Cleanup(func() {
		server.Close()
		cancel()
		pw.Close()
	})
	return &fixture{hub: hub, pump: pump, input: pw, server: server}
}

func (f *fixture) wsURL(query string) string {
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	if query != "" {
		url += "?" + query
	}
	return url
}

func readMessage(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(msg)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, config.AuthConfig{})

	resp, err := http.Get(f.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestWebSocketReceivesStream(t *testing.T) {
	f := newFixture(t, config.AuthConfig{})

	// Two lines pass through before anyone listens; the history replay
	// hands them to the late joiner.
	fmt.Fprintln(f.input, `{"severity":"WARN","signal":"bed_temp_c"}`)
	fmt.Fprintln(f.input, `{"severity":"ALERT","signal":"extruder_flow_mm3_s"}`)
	require.Eventually(t, func() bool { return f.hub.Forwarded() == 2 }, 2*time.Second, 10*time.Millisecond)

	conn, _, err := websocket.DefaultDialer.Dial(f.wsURL(""), nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, `{"severity":"WARN","signal":"bed_temp_c"}`, readMessage(t, conn))
	assert.Equal(t, `{"severity":"ALERT","signal":"extruder_flow_mm3_s"}`, readMessage(t, conn))

	fmt.Fprintln(f.input, `{"control_action":"PAUSE_PRINT"}`)
	assert.Equal(t, `{"control_action":"PAUSE_PRINT"}`, readMessage(t, conn))
}

func TestStatsReportsCounters(t *testing.T) {
	f := newFixture(t, config.AuthConfig{})

	fmt.Fprintln(f.input, "one")
	fmt.Fprintln(f.input, "two")
	require.Eventually(t, func() bool { return f.hub.Forwarded() == 2 }, 2*time.Second, 10*time.Millisecond)

	conn, _, err := websocket.DefaultDialer.Dial(f.wsURL(""), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return f.hub.Listeners() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get(f.server.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats struct {
		Listeners      int64   `json:"listeners"`
		LinesForwarded int64   `json:"lines_forwarded"`
		LinesDropped   int64   `json:"lines_dropped"`
		UptimeSec      float64 `json:"uptime_s"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, int64(1), stats.Listeners)
	assert.Equal(t, int64(2), stats.LinesForwarded)
	assert.Equal(t, int64(0), stats.LinesDropped)
	assert.GreaterOrEqual(t, stats.UptimeSec, 0.0)
}

func TestTokenEndpointAbsentWhenAuthDisabled(t *testing.T) {
	f := newFixture(t, config.AuthConfig{})

	resp, err := http.Post(f.server.URL+"/auth/token", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func authEnabledConfig(t *testing.T) config.AuthConfig {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	return config.AuthConfig{
		Enabled:     true,
		APIKey:      "floor-key",
		JWTSecret:   "test-secret",
		TokenTTLMin: 5,
		Users:       []config.UserConfig{{Username: "operator", PasswordHash: string(hash)}},
	}
}

func fetchToken(t *testing.T, f *fixture, apiKey, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/auth/token", strings.NewReader(body))
	require.NoError(t, err)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, ""
	}
	var payload struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expires_in"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, int64(300), payload.ExpiresIn)
	return resp.StatusCode, payload.Token
}

func TestTokenIssuanceWithAPIKey(t *testing.T) {
	f := newFixture(t, authEnabledConfig(t))

	status, token := fetchToken(t, f, "floor-key", "")
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, token)

	status, _ = fetchToken(t, f, "wrong-key", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestTokenIssuanceWithCredentials(t *testing.T) {
	f := newFixture(t, authEnabledConfig(t))

	status, token := fetchToken(t, f, "", `{"username":"operator","password":"hunter2"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, token)

	status, _ = fetchToken(t, f, "", `{"username":"operator","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestWebSocketRequiresTokenWhenAuthEnabled(t *testing.T) {
	f := newFixture(t, authEnabledConfig(t))

	_, resp, err := websocket.DefaultDialer.Dial(f.wsURL(""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, token := fetchToken(t, f, "floor-key", "")
	require.NotEmpty(t, token)

	conn, _, err := websocket.DefaultDialer.Dial(f.wsURL("token="+token), nil)
	require.NoError(t, err)
	defer conn.Close()

	fmt.Fprintln(f.input, "authorized line")
	assert.Equal(t, "authorized line", readMessage(t, conn))
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	f := newFixture(t, authEnabledConfig(t))

	_, resp, err := websocket.DefaultDialer.Dial(f.wsURL("token=bogus"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
