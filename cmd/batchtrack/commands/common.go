package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/batchtrack/internal/platform/container"
	"github.com/jinford/batchtrack/internal/platform/logger"
	"github.com/jinford/batchtrack/pkg/config"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config    *config.Config
	Container *container.Container
}

// NewAppContext は設定ファイルを読み込み、依存関係を初期化してAppContextを作成する
func NewAppContext(ctx context.Context, envFile string, opts ...container.Option) (*AppContext, error) {
	// 設定の読み込み
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	// ロガーの初期化
	appLogger := logger.New(logger.DefaultConfig())

	// コンテナの初期化
	cont, err := container.New(ctx, appLogger, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("コンテナの初期化に失敗: %w", err)
	}

	return &AppContext{
		Config:    cfg,
		Container: cont,
	}, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.Container != nil {
		ac.Container.Close()
	}
}

// Logger はAppContextのロガーを返す
func (ac *AppContext) Logger() *slog.Logger {
	if ac.Container != nil {
		return ac.Container.Logger
	}
	return slog.Default()
}
