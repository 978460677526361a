package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	boterrors "github.com/ducminhle1904/crypto-signal-bot/internal/errors"
)

// WeComNotifier posts text messages to a WeCom group robot webhook
type WeComNotifier struct {
	webhookURL    string
	mentionedList []string
	client        *http.Client
}

type wecomText struct {
	Content       string   `json:"content"`
	MentionedList []string `json:"mentioned_list"`
}

type wecomRequest struct {
	MsgType string    `json:"msgtype"`
	Text    wecomText `json:"text"`
}

type wecomResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// NewWeComNotifier creates the notifier with a 10s HTTP timeout
func NewWeComNotifier(webhookURL string, mentioned []string) (*WeComNotifier, error) {
	if webhookURL == "" {
		return nil, boterrors.NewConfigurationError("wecom", "new", "webhook url is required")
	}
	if mentioned == nil {
		mentioned = []string{}
	}
	return &WeComNotifier{
		webhookURL:    webhookURL,
		mentionedList: mentioned,
		client:        &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Name returns "wecom"
func (w *WeComNotifier) Name() string { return "wecom" }

// Send posts the message. The robot answers 200 even on failure, so
// delivery is judged by errcode == 0.
func (w *WeComNotifier) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(wecomRequest{
		MsgType: "text",
		Text:    wecomText{Content: text, MentionedList: w.mentionedList},
	})
	if err != nil {
		return boterrors.NewNotifyError("wecom", "marshal", err).WithRetryable(false)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.webhookURL, bytes.NewReader(body))
	if err != nil {
		return boterrors.NewNotifyError("wecom", "request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return w.failed(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return w.failed(err)
	}
	if resp.StatusCode != http.StatusOK {
		return w.failed(fmt.Errorf("status %d: %s", resp.StatusCode, string(raw)))
	}

	var result wecomResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return w.failed(fmt.Errorf("decode response: %w", err))
	}
	if result.ErrCode != 0 {
		return w.failed(fmt.Errorf("errcode %d: %s", result.ErrCode, result.ErrMsg)).
			WithContext("errcode", result.ErrCode)
	}
	return nil
}

func (w *WeComNotifier) failed(err error) *boterrors.BotError {
	return boterrors.NewNotifyError("wecom", "send", fmt.Errorf("%w: %w", boterrors.ErrNotDelivered, err))
}
