package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/jinford/batchtrack/internal/module/batch/application"
	"github.com/jinford/batchtrack/pkg/config"
)

// PrepareAction はプロンプト一覧をジョブ単位のJSONL入力ファイルへ分割するアクション
func PrepareAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	input := cmd.String("input")
	outputDir := cmd.String("output-dir")
	systemPrompt := cmd.String("system-prompt")
	chunkSize := cmd.Int("chunk-size")
	model := cmd.String("model")

	// prepareはリモートにもDBにも触れないため、設定のみ読み込む
	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	if model == "" {
		model = cfg.OpenAI.Model
	}

	pre := &application.Preprocessor{
		Model:        model,
		SystemPrompt: systemPrompt,
		ChunkSize:    int(chunkSize),
		Endpoint:     cfg.OpenAI.Endpoint,
	}

	paths, err := pre.Prepare(input, outputDir)
	if err != nil {
		return fmt.Errorf("入力ファイルの分割に失敗: %w", err)
	}

	fmt.Printf("✓ %d個のジョブ入力ファイルを生成しました\n", len(paths))
	for _, path := range paths {
		fmt.Println(path)
	}

	return nil
}
