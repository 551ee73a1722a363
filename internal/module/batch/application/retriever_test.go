package application

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/batchtrack/internal/module/batch/domain"
)

func TestRetriever_Retrieve_RejectsNonTerminal(t *testing.T) {
	retriever := NewRetriever(&fakeBatchService{}, t.TempDir(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	job := &domain.Job{JobID: "r1", State: domain.StateRunning}
	_, err := retriever.Retrieve(context.Background(), job)
	assert.ErrorContains(t, err, "non-terminal")
}

func TestRetriever_Retrieve_MaterializesResultFile(t *testing.T) {
	service := &fakeBatchService{
		files: map[string]string{"file-out": "line1\nline2\n"},
	}
	outputDir := t.TempDir()
	retriever := NewRetriever(service, outputDir,
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	job := &domain.Job{
		JobID:        "r2",
		State:        domain.StateSucceeded,
		OutputFileID: "file-out",
	}
	outcome, err := retriever.Retrieve(context.Background(), job)
	require.NoError(t, err)

	content, err := os.ReadFile(outcome.ResultPath)
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2\n", string(content))
}

func TestRetriever_Retrieve_SucceededWithoutOutputFile(t *testing.T) {
	// 成功終端なのに出力ファイルIDが不明な場合は取得の失敗として扱う
	retriever := NewRetriever(&fakeBatchService{}, t.TempDir(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	job := &domain.Job{JobID: "r3", State: domain.StateSucceeded}
	outcome, err := retriever.Retrieve(context.Background(), job)

	var retErr *domain.RetrievalError
	require.ErrorAs(t, err, &retErr)
	assert.Equal(t, domain.StateSucceeded, outcome.State)
	assert.Empty(t, outcome.ResultPath)
}

func TestRetriever_Retrieve_EnrichesFailureWithErrorFile(t *testing.T) {
	service := &fakeBatchService{
		files: map[string]string{"file-err": `{"custom_id":"a","error":"rate limited"}` + "\n"},
	}
	retriever := NewRetriever(service, t.TempDir(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	job := &domain.Job{
		JobID:       "r4",
		State:       domain.StateFailed,
		ErrorFileID: "file-err",
		ErrorDetail: &domain.FailureDetail{Reason: "failed"},
	}
	outcome, err := retriever.Retrieve(context.Background(), job)
	require.NoError(t, err)

	require.NotNil(t, outcome.Failure)
	assert.Equal(t, "failed", outcome.Failure.Reason)
	assert.Contains(t, outcome.Failure.ErrorFileContent, "rate limited")
}

func TestRetriever_Retrieve_CancelledHasNoPayload(t *testing.T) {
	service := &fakeBatchService{}
	retriever := NewRetriever(service, t.TempDir(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	job := &domain.Job{JobID: "r5", State: domain.StateCancelled}
	outcome, err := retriever.Retrieve(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, domain.StateCancelled, outcome.State)
	assert.Empty(t, outcome.ResultPath)
	assert.Equal(t, 0, service.fetchCalls)
}
