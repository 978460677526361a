package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/ducminhle1904/crypto-signal-bot/internal/errors"
	"github.com/ducminhle1904/crypto-signal-bot/internal/retry"
)

const testToken = "123456:ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghi"

type fakeNotifier struct {
	name  string
	err   error
	calls int32
	texts []string
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Send(_ context.Context, text string) error {
	atomic.AddInt32(&f.calls, 1)
	f.texts = append(f.texts, text)
	return f.err
}

func TestWeCom_Send(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	}))
	defer srv.Close()

	n, err := NewWeComNotifier(srv.URL, nil)
	require.NoError(t, err)
	require.NoError(t, n.Send(context.Background(), "hello"))

	assert.Equal(t, "text", got["msgtype"])
	text := got["text"].(map[string]interface{})
	assert.Equal(t, "hello", text["content"])
	assert.Equal(t, []interface{}{}, text["mentioned_list"])
}

func TestWeCom_ErrCodeIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errcode":93000,"errmsg":"invalid webhook url"}`))
	}))
	defer srv.Close()

	n, err := NewWeComNotifier(srv.URL, []string{"@all"})
	require.NoError(t, err)
	err = n.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, boterrors.ErrNotDelivered)
	assert.Contains(t, err.Error(), "93000")

	var botErr *boterrors.BotError
	require.True(t, errors.As(err, &botErr))
	assert.Equal(t, boterrors.ErrorCategoryNotify, botErr.Category)
}

func TestWeCom_HTTPErrorIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	n, err := NewWeComNotifier(srv.URL, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, n.Send(context.Background(), "hello"), boterrors.ErrNotDelivered)

	_, err = NewWeComNotifier("", nil)
	assert.Error(t, err)
}

func TestSlack_Send(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n, err := NewSlackNotifier(srv.URL, "#signals", "signal-bot")
	require.NoError(t, err)
	require.NoError(t, n.Send(context.Background(), "BTC spike"))

	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &msg))
	assert.Equal(t, "BTC spike", msg["text"])
	assert.Equal(t, "#signals", msg["channel"])
}

func TestSlack_ServerErrorIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n, err := NewSlackNotifier(srv.URL, "", "")
	require.NoError(t, err)
	assert.ErrorIs(t, n.Send(context.Background(), "x"), boterrors.ErrNotDelivered)
}

func TestTelegram_Send(t *testing.T) {
	var path string
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":1700000000,"chat":{"id":42,"type":"private"}}}`))
	}))
	defer srv.Close()

	n, err := NewTelegramNotifier(TelegramConfig{Token: testToken, ChatID: "42", APIServer: srv.URL})
	require.NoError(t, err)
	require.NoError(t, n.Send(context.Background(), "signal"))

	assert.Equal(t, "/bot"+testToken+"/sendMessage", path)
	assert.Equal(t, "signal", got["text"])
	assert.EqualValues(t, 42, got["chat_id"])
}

func TestTelegram_RejectedMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	n, err := NewTelegramNotifier(TelegramConfig{Token: testToken, ChatID: "@signals", APIServer: srv.URL})
	require.NoError(t, err)
	assert.ErrorIs(t, n.Send(context.Background(), "signal"), boterrors.ErrNotDelivered)
}

func TestTelegram_Config(t *testing.T) {
	_, err := NewTelegramNotifier(TelegramConfig{Token: "bad", ChatID: "1"})
	assert.Error(t, err)
	_, err = NewTelegramNotifier(TelegramConfig{Token: testToken})
	assert.Error(t, err)

	assert.Equal(t, int64(-100123), parseChatID("-100123").ID)
	assert.Equal(t, "@signals", parseChatID(" @signals ").Username)
}

func TestMulti_AnyDeliveryCounts(t *testing.T) {
	ok := &fakeNotifier{name: "ok"}
	bad := &fakeNotifier{name: "bad", err: errors.New("boom")}

	m := NewMultiNotifier(nil, bad, nil, ok)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, "bad+ok", m.Name())
	require.NoError(t, m.Send(context.Background(), "x"))
	assert.Equal(t, int32(1), ok.calls)
	assert.Equal(t, int32(1), bad.calls)
}

func TestMulti_AllFailing(t *testing.T) {
	m := NewMultiNotifier(nil,
		&fakeNotifier{name: "a", err: errors.New("a down")},
		&fakeNotifier{name: "b", err: errors.New("b down")},
	)
	err := m.Send(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a down")
	assert.Contains(t, err.Error(), "b down")

	assert.ErrorIs(t, NewMultiNotifier(nil).Send(context.Background(), "x"), boterrors.ErrNotDelivered)
}

type flakyNotifier struct {
	failures int
	calls    int
	err      error
}

func (f *flakyNotifier) Name() string { return "flaky" }

func (f *flakyNotifier) Send(context.Context, string) error {
	f.calls++
	if f.calls <= f.failures {
		if f.err != nil {
			return f.err
		}
		return errors.New("temporary")
	}
	return nil
}

func TestWithRetry(t *testing.T) {
	cfg := retry.Config{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}

	f := &flakyNotifier{failures: 2}
	require.NoError(t, WithRetry(f, cfg).Send(context.Background(), "x"))
	assert.Equal(t, 3, f.calls)

	f = &flakyNotifier{failures: 5}
	assert.Error(t, WithRetry(f, cfg).Send(context.Background(), "x"))
	assert.Equal(t, 3, f.calls)
	assert.Equal(t, "flaky", WithRetry(f, cfg).Name())

	f = &flakyNotifier{failures: 5, err: boterrors.NewNotifyError("flaky", "marshal", errors.New("bad body")).WithRetryable(false)}
	assert.Error(t, WithRetry(f, cfg).Send(context.Background(), "x"))
	assert.Equal(t, 1, f.calls, "not retryable")
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleNotifier(&buf, nil)
	require.NoError(t, c.Send(context.Background(), "line1\nline2"))
	assert.Equal(t, "line1\nline2\n"+strings.Repeat("-", 60)+"\n", buf.String())
}

func TestSendAlert(t *testing.T) {
	f := &fakeNotifier{name: "f"}
	require.NoError(t, SendAlert(context.Background(), f, AlertError, "state save failed"))
	require.Len(t, f.texts, 1)
	assert.True(t, strings.HasPrefix(f.texts[0], "🚨 Signal Bot Alert"))
	assert.Contains(t, f.texts[0], "state save failed")
	assert.True(t, strings.HasPrefix(FormatAlert("other", "x"), "ℹ️"))
}
