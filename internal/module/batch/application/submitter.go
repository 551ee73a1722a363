package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jinford/batchtrack/internal/module/batch/adapter/jsonl"
	"github.com/jinford/batchtrack/internal/module/batch/domain"
)

const (
	// DefaultEndpoint はバッチ対象のAPIエンドポイント
	DefaultEndpoint = "/v1/chat/completions"

	// DefaultCompletionWindow はバッチの完了ウィンドウ
	DefaultCompletionWindow = "24h"
)

// SubmitterConfig はSubmitterの設定
type SubmitterConfig struct {
	Endpoint         string
	CompletionWindow string
}

// Submitter はバッチ送信のユースケースを提供する
// 入力ファイルの検証、アップロード、バッチ作成、ジョブ登録までを担当する
type Submitter struct {
	service domain.BatchService
	jobs    domain.JobRepository
	counter *jsonl.TokenCounter
	cfg     SubmitterConfig
	log     *slog.Logger
	now     func() time.Time
}

// NewSubmitter は新しいSubmitterを作成する
// counter はnilでもよい（トークン数は文字数ベースの推定になる）
func NewSubmitter(
	service domain.BatchService,
	jobs domain.JobRepository,
	counter *jsonl.TokenCounter,
	cfg SubmitterConfig,
	log *slog.Logger,
) *Submitter {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.CompletionWindow == "" {
		cfg.CompletionWindow = DefaultCompletionWindow
	}
	return &Submitter{
		service: service,
		jobs:    jobs,
		counter: counter,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

// Submit は入力JSONLファイルを検証・アップロードしてバッチを作成し、
// 追跡対象のジョブとして登録する
//
// 同一JobIDのジョブが既に登録済みの場合は再送信せずエラーを返す
// （再起動時の二重送信防止）。
func (s *Submitter) Submit(ctx context.Context, jobID, inputPath string) (*domain.Job, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job ID is required")
	}

	// 登録済みジョブの確認（再送信防止）
	existing, err := s.jobs.Get(ctx, jobID)
	if err != nil && !errors.Is(err, domain.ErrJobNotFound) {
		return nil, fmt.Errorf("failed to check existing job: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: job %s is already tracked (state=%s)",
			domain.ErrJobExists, jobID, existing.State)
	}

	// 入力ファイルの検証とトークン数の見積もり
	stats, err := jsonl.ValidateFile(inputPath, s.counter)
	if err != nil {
		return nil, fmt.Errorf("input validation failed for %s: %w", inputPath, err)
	}

	s.log.Info("input file validated",
		"jobID", jobID,
		"path", inputPath,
		"requests", stats.Requests,
		"estimatedTokens", stats.Tokens,
	)

	f, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	receipt, err := s.service.Submit(ctx, domain.SubmitRequest{
		JobID:            jobID,
		Input:            f,
		Filename:         filepath.Base(inputPath),
		Endpoint:         s.cfg.Endpoint,
		CompletionWindow: s.cfg.CompletionWindow,
		Metadata:         map[string]string{"job_id": jobID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit batch: %w", err)
	}

	now := s.now()
	job := &domain.Job{
		JobID:         jobID,
		InputFileID:   receipt.InputFileID,
		RemoteBatchID: receipt.BatchID,
		State:         domain.StateSubmitted,
		Counts:        domain.RequestCounts{Total: int64(stats.Requests)},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("batch %s created but job registration failed: %w",
			receipt.BatchID, err)
	}

	s.log.Info("batch submitted",
		"jobID", jobID,
		"batchID", receipt.BatchID,
		"inputFileID", receipt.InputFileID,
	)

	return job, nil
}
