package monitoring

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestHealthChecker_States(t *testing.T) {
	c := &clock{t: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	h := newHealthChecker(10*time.Minute, c.now)

	status, code := h.Status()
	assert.Equal(t, "degraded", status.Status, "no round yet")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	c.t = c.t.Add(time.Minute)
	h.RecordRound(nil)
	status, code = h.Status()
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1m0s", status.Uptime)

	c.t = c.t.Add(11 * time.Minute)
	status, _ = h.Status()
	assert.Equal(t, "degraded", status.Status, "stale")

	h.RecordRound(errors.New("bybit down"))
	status, code = h.Status()
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, []string{"bybit down"}, status.Errors)

	h.RecordRound(nil)
	status, _ = h.Status()
	assert.Equal(t, "healthy", status.Status)
	assert.Empty(t, status.Errors)
}

func TestHealthChecker_KeepsRecentErrors(t *testing.T) {
	h := NewHealthChecker(0)
	for i := 0; i < maxRecentErrors+5; i++ {
		h.RecordRound(errors.New("e"))
	}
	status, _ := h.Status()
	assert.Len(t, status.Errors, maxRecentErrors)

	h.RecordSignal("BTCUSDT")
	status, _ = h.Status()
	assert.Equal(t, "BTCUSDT", status.LastSymbol)
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.RecordDecision("spike", "BTCUSDT", "15m", "emit")
	m.RecordDecision("spike", "BTCUSDT", "15m", "emit")
	m.RecordNotification("wecom", false)
	m.UpdateStateRecords(3, 1)
	m.ObserveRound(250 * time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `signal_bot_decisions_total{decision="emit",detector="spike",symbol="BTCUSDT",timeframe="15m"} 2`)
	assert.Contains(t, body, `signal_bot_notifications_total{channel="wecom",result="failed"} 1`)
	assert.Contains(t, body, `signal_bot_state_records{kind="cooldown"} 3`)
	assert.Contains(t, body, `signal_bot_round_duration_seconds_count 1`)

	// registries are independent
	assert.NotContains(t, scrape(t, NewMetrics()), "signal_bot_decisions_total{")
}

func TestServer_Routes(t *testing.T) {
	h := NewHealthChecker(time.Hour)
	h.RecordRound(nil)
	m := NewMetrics()
	m.RecordError("data")
	srv := NewServer("127.0.0.1:0", h, m, func() interface{} {
		return map[string]int{"total_signal_keys": 2}
	}, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `signal_bot_errors_total{type="data"} 1`)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.JSONEq(t, `{"total_signal_keys":2}`, rec.Body.String())
}

func TestServer_StartAndShutdown(t *testing.T) {
	srv := NewServer("127.0.0.1:0", NewHealthChecker(0), NewMetrics(), nil, nil)
	require.NoError(t, srv.Start())
	defer srv.Shutdown(t.Context())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), "not available"))
}
