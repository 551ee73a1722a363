package openai

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/jinford/batchtrack/internal/module/batch/domain"
)

// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
const DefaultTimeout = 60 * time.Second

var (
	// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
	ErrAPIKeyNotSet = errors.New("OpenAI API key not set: please set OPENAI_API_KEY environment variable")
)

// Client はOpenAI Batch APIを使用した domain.BatchService 実装
type Client struct {
	client  openai.Client
	timeout time.Duration
}

// Option はClient構築時のオプション
type Option func(*Client)

// WithTimeout はAPI呼び出しのタイムアウトを設定する
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// NewClient はAPIキーを指定してClientを作成する
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	c := &Client{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Submit は入力ファイルをアップロードし、バッチ処理ジョブを作成する
func (c *Client) Submit(ctx context.Context, req domain.SubmitRequest) (domain.SubmitReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	file, err := c.client.Files.New(ctx, openai.FileNewParams{
		File:    openai.File(req.Input, req.Filename, "application/jsonl"),
		Purpose: openai.FilePurposeBatch,
	})
	if err != nil {
		return domain.SubmitReceipt{}, classifyError("file upload", err)
	}

	params := openai.BatchNewParams{
		CompletionWindow: openai.BatchNewParamsCompletionWindow(req.CompletionWindow),
		Endpoint:         openai.BatchNewParamsEndpoint(req.Endpoint),
		InputFileID:      file.ID,
	}
	if len(req.Metadata) > 0 {
		metadata := shared.Metadata{}
		for k, v := range req.Metadata {
			metadata[k] = v
		}
		params.Metadata = metadata
	}

	batch, err := c.client.Batches.New(ctx, params)
	if err != nil {
		return domain.SubmitReceipt{}, classifyError("batch creation", err)
	}

	return domain.SubmitReceipt{
		InputFileID: file.ID,
		BatchID:     batch.ID,
		Raw:         domain.RawStatus(batch.Status),
	}, nil
}

// Status はバッチの現在のステータスを照会する
func (c *Client) Status(ctx context.Context, batchID string) (domain.RemoteStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	batch, err := c.client.Batches.Get(ctx, batchID)
	if err != nil {
		return domain.RemoteStatus{}, classifyError("status poll", err)
	}

	return domain.RemoteStatus{
		Raw:          domain.RawStatus(batch.Status),
		OutputFileID: batch.OutputFileID,
		ErrorFileID:  batch.ErrorFileID,
		Counts: domain.RequestCounts{
			Completed: batch.RequestCounts.Completed,
			Failed:    batch.RequestCounts.Failed,
			Total:     batch.RequestCounts.Total,
		},
		Errors: mapBatchErrors(batch.Errors.Data),
	}, nil
}

// FetchFile はファイルの内容を取得する
func (c *Client) FetchFile(ctx context.Context, fileID string) (io.ReadCloser, error) {
	// ダウンロードは大きくなりうるため、タイムアウトは呼び出し元のctxに委ねる
	resp, err := c.client.Files.Content(ctx, fileID)
	if err != nil {
		return nil, classifyError("file download", err)
	}

	return resp.Body, nil
}

// Cancel はバッチのキャンセルを要求する
func (c *Client) Cancel(ctx context.Context, batchID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.client.Batches.Cancel(ctx, batchID); err != nil {
		return classifyError("batch cancel", err)
	}

	return nil
}

// classifyError はSDK・トランスポートのエラーをドメインのエラー分類へ写像する
//
// 404はジョブ識別子が不明・無効（PermanentError）、429と5xxおよび
// トランスポート層の障害はリトライ対象（TransientError）となる。
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	// 呼び出し元によるキャンセルはそのまま伝播する
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 404:
			return &domain.PermanentError{Op: op, Err: err}
		case apiErr.StatusCode == 408 || apiErr.StatusCode == 429 || apiErr.StatusCode >= 500:
			return &domain.TransientError{Op: op, Err: err}
		default:
			return &domain.PermanentError{Op: op, Err: err}
		}
	}

	// APIエラー以外（ネットワーク障害・タイムアウト）はリトライ対象
	return &domain.TransientError{Op: op, Err: err}
}

// mapBatchErrors はSDKのエラー表現をドメイン型へ変換する
func mapBatchErrors(raw []openai.BatchError) []domain.BatchError {
	if len(raw) == 0 {
		return nil
	}

	mapped := make([]domain.BatchError, 0, len(raw))
	for _, e := range raw {
		mapped = append(mapped, domain.BatchError{
			Code:    e.Code,
			Line:    e.Line,
			Message: e.Message,
			Param:   e.Param,
		})
	}
	return mapped
}

// インターフェース実装の確認
var _ domain.BatchService = (*Client)(nil)
