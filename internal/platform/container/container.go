package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/batchtrack/internal/module/batch/adapter/jsonl"
	"github.com/jinford/batchtrack/internal/module/batch/adapter/memory"
	openaiadapter "github.com/jinford/batchtrack/internal/module/batch/adapter/openai"
	"github.com/jinford/batchtrack/internal/module/batch/adapter/pg"
	"github.com/jinford/batchtrack/internal/module/batch/application"
	"github.com/jinford/batchtrack/internal/module/batch/domain"
	"github.com/jinford/batchtrack/internal/platform/database"
	"github.com/jinford/batchtrack/pkg/config"
)

// Container はアプリケーションの依存関係を保持する
type Container struct {
	Logger    *slog.Logger
	Database  *database.Database // メモリストア構成時はnil
	Service   domain.BatchService
	Jobs      domain.JobRepository
	Tracker   *application.Tracker
	Submitter *application.Submitter
	Retriever *application.Retriever
}

type containerOptions struct {
	service domain.BatchService
	jobs    domain.JobRepository
}

// Option はContainer構築時のオプション
type Option func(*containerOptions)

// WithBatchService はリモートバッチサービスを差し替える（テスト用）
func WithBatchService(service domain.BatchService) Option {
	return func(opts *containerOptions) {
		opts.service = service
	}
}

// WithJobRepository はジョブリポジトリを差し替える（テスト用）
func WithJobRepository(jobs domain.JobRepository) Option {
	return func(opts *containerOptions) {
		opts.jobs = jobs
	}
}

// New は設定からコンテナを生成する
func New(ctx context.Context, logger *slog.Logger, cfg *config.Config, opts ...Option) (*Container, error) {
	options := containerOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	c := &Container{Logger: logger}

	// リモートバッチサービス（OpenAI）
	c.Service = options.service
	if c.Service == nil {
		client, err := openaiadapter.NewClient(cfg.OpenAI.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		c.Service = client
	}

	// ジョブリポジトリ（postgres / memory）
	c.Jobs = options.jobs
	if c.Jobs == nil {
		switch cfg.Store {
		case config.StoreMemory:
			c.Jobs = memory.NewJobRepository()
		default:
			db, err := database.New(ctx, database.ConnectionParams{
				Host:     cfg.Database.Host,
				Port:     cfg.Database.Port,
				User:     cfg.Database.User,
				Password: cfg.Database.Password,
				DBName:   cfg.Database.DBName,
				SSLMode:  cfg.Database.SSLMode,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to initialize database: %w", err)
			}
			c.Database = db

			repo := pg.NewJobRepository(db.Pool)
			if err := repo.EnsureSchema(ctx); err != nil {
				db.Close()
				return nil, err
			}
			c.Jobs = repo
		}
	}

	// トークンカウンタ（エンコーディングが取得できない場合は推定にフォールバック）
	counter, err := jsonl.NewTokenCounter()
	if err != nil {
		logger.Warn("tiktoken encoding unavailable, falling back to estimation", "error", err)
		counter = nil
	}

	backoff := application.BackoffPolicy{
		BaseInterval: cfg.Tracker.PollBaseInterval,
		MaxInterval:  cfg.Tracker.PollMaxInterval,
		MaxAttempts:  cfg.Tracker.PollMaxAttempts,
		MaxElapsed:   cfg.Tracker.PollMaxElapsed,
	}

	c.Retriever = application.NewRetriever(c.Service, cfg.OutputDir, logger)
	c.Tracker = application.NewTracker(c.Service, c.Jobs, c.Retriever, backoff, logger)
	c.Submitter = application.NewSubmitter(c.Service, c.Jobs, counter, application.SubmitterConfig{
		Endpoint:         cfg.OpenAI.Endpoint,
		CompletionWindow: cfg.OpenAI.CompletionWindow,
	}, logger)

	return c, nil
}

// Close はコンテナが保持するリソースをクリーンアップする
func (c *Container) Close() {
	if c.Database != nil {
		c.Database.Close()
	}
}
