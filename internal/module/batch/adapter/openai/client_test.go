package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/batchtrack/internal/module/batch/domain"
)

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient("")
	assert.ErrorIs(t, err, ErrAPIKeyNotSet)

	client, err := NewClient("sk-test")
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestClassifyError(t *testing.T) {
	// ステータスコードに応じてリトライ可否を分類する
	tests := []struct {
		name          string
		statusCode    int
		wantTransient bool
	}{
		{"404は恒久エラー", 404, false},
		{"408はリトライ対象", 408, true},
		{"429はリトライ対象", 429, true},
		{"500はリトライ対象", 500, true},
		{"503はリトライ対象", 503, true},
		{"400は恒久エラー", 400, false},
		{"401は恒久エラー", 401, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := &openai.Error{StatusCode: tt.statusCode}
			got := classifyError("status poll", apiErr)

			if tt.wantTransient {
				var transient *domain.TransientError
				assert.True(t, errors.As(got, &transient))
			} else {
				var permanent *domain.PermanentError
				assert.True(t, errors.As(got, &permanent))
			}
		})
	}
}

func TestClassifyError_NetworkFailureIsTransient(t *testing.T) {
	// APIエラー以外（ネットワーク障害など）はリトライ対象
	got := classifyError("status poll", errors.New("connection refused"))

	var transient *domain.TransientError
	assert.True(t, errors.As(got, &transient))
}

func TestClassifyError_ContextCanceledPassesThrough(t *testing.T) {
	// 呼び出し元によるキャンセルは分類せずそのまま伝播する
	got := classifyError("status poll", context.Canceled)
	assert.ErrorIs(t, got, context.Canceled)

	var transient *domain.TransientError
	assert.False(t, errors.As(got, &transient))
}

func TestClassifyError_Nil(t *testing.T) {
	assert.NoError(t, classifyError("status poll", nil))
}

func TestMapBatchErrors(t *testing.T) {
	raw := []openai.BatchError{
		{Code: "invalid_request", Line: 3, Message: "model not found", Param: "model"},
	}

	mapped := mapBatchErrors(raw)
	require.Len(t, mapped, 1)
	assert.Equal(t, "invalid_request", mapped[0].Code)
	assert.Equal(t, int64(3), mapped[0].Line)
	assert.Equal(t, "model not found", mapped[0].Message)
	assert.Equal(t, "model", mapped[0].Param)

	assert.Nil(t, mapBatchErrors(nil))
}
