package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorizeError_Sentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category ErrorCategory
		action   RecoveryAction
	}{
		{"unknown timeframe", fmt.Errorf("load: %w", ErrUnknownTimeframe), ErrorCategoryConfiguration, RecoveryActionStop},
		{"data unavailable", fmt.Errorf("fetch BTCUSDT: %w", ErrDataUnavailable), ErrorCategoryData, RecoveryActionSkip},
		{"not delivered", fmt.Errorf("telegram: %w", ErrNotDelivered), ErrorCategoryNotify, RecoveryActionSkip},
		{"timeout text", stderrors.New("context deadline exceeded"), ErrorCategoryTimeout, RecoveryActionRetry},
		{"rate limit text", stderrors.New("429 Too Many Requests"), ErrorCategoryRateLimit, RecoveryActionWait},
		{"unknown text", stderrors.New("something odd"), ErrorCategoryTemporary, RecoveryActionRetry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			botErr := CategorizeError(tt.err, "bot", "poll")
			require.NotNil(t, botErr)
			assert.Equal(t, tt.category, botErr.Category)
			assert.Equal(t, tt.action, botErr.GetRecoveryAction())
			assert.ErrorIs(t, botErr, tt.err)
		})
	}
}

func TestCategorizeError_KeepsExistingBotError(t *testing.T) {
	original := NewStateError("state", "save", stderrors.New("disk full"))
	wrapped := fmt.Errorf("commit: %w", original)

	got := CategorizeError(wrapped, "bot", "commit")
	assert.Same(t, original, got)
	assert.Equal(t, RecoveryActionSkip, got.GetRecoveryAction())
}

func TestBotError_Retryable(t *testing.T) {
	assert.False(t, NewConfigurationError("config", "validate", "bad mode").IsRetryable())
	assert.True(t, NewDataError("exchange", "fetch", ErrDataUnavailable).IsRetryable())
	assert.False(t, NewNotifyError("wecom", "marshal", ErrNotDelivered).WithRetryable(false).IsRetryable())
	assert.Nil(t, WrapError(nil, ErrorCategoryData, "x", "y"))
}

func TestBotError_MessageAndContext(t *testing.T) {
	err := NewNotifyError("notifications", "send", ErrNotDelivered).WithContext("channel", "telegram")

	assert.Contains(t, err.Error(), "[NOTIFY:notifications]")
	assert.Equal(t, "telegram", err.Context["channel"])
	assert.True(t, err.IsRetryable())
	assert.ErrorIs(t, err, ErrNotDelivered)
}

func TestErrorStats(t *testing.T) {
	stats := NewErrorStats(2)
	stats.RecordError(NewDataError("exchange", "fetch", ErrDataUnavailable))
	stats.RecordError(NewDataError("exchange", "fetch", ErrDataUnavailable))
	stats.RecordError(NewNotifyError("notifications", "send", ErrNotDelivered))

	assert.Equal(t, 3, stats.TotalErrors)
	assert.Len(t, stats.RecentErrors, 2)
	assert.Equal(t, 2, stats.ErrorsByCategory[ErrorCategoryData])
	assert.Equal(t, ErrorCategoryNotify, stats.RecentErrors[1].Category)
}
