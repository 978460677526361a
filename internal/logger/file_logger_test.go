package logger

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWithConfig_WritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLoggerWithConfig(Config{Dir: dir, Name: "macd"})
	require.NoError(t, err)

	l.Info("polled %d symbols", 3)
	l.Signal("emitted %s", "BTCUSDT_5m_BUY")
	l.LogWarning("State Load", "corrupt file %s", "state.json")
	l.LogError("Fetch", errors.New("boom"))

	path := l.GetLogPath()
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, `"message":"polled 3 symbols"`)
	assert.Contains(t, content, `"kind":"SIGNAL"`)
	assert.Contains(t, content, "State Load: corrupt file state.json")
	assert.Contains(t, content, `"error":"boom"`)
	assert.Contains(t, content, `"session":"end"`)
	assert.Equal(t, 6, strings.Count(strings.TrimSpace(content), "\n")+1)
}

func TestNewLoggerWithConfig_LevelFiltering(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLoggerWithConfig(Config{Dir: dir, Name: "spike", Level: "warn"})
	require.NoError(t, err)

	l.Info("hidden")
	l.Warning("visible")
	path := l.GetLogPath()
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "visible")
}

func TestNewLoggerWithConfig_InvalidLevel(t *testing.T) {
	_, err := NewLoggerWithConfig(Config{Dir: t.TempDir(), Level: "loud"})
	assert.Error(t, err)
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Info("nothing")
	assert.Empty(t, l.GetLogPath())
	assert.NoError(t, l.Close())
}
