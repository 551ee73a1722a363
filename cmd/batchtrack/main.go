package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/jinford/batchtrack/cmd/batchtrack/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	envFlag := &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}

	app := &cli.Command{
		Name:  "batchtrack",
		Usage: "OpenAIバッチ処理ジョブの送信・進捗追跡・結果取得ツール",
		Commands: []*cli.Command{
			{
				Name:  "prepare",
				Usage: "プロンプト一覧をジョブ単位のJSONL入力ファイルへ分割",
				Flags: []cli.Flag{
					envFlag,
					&cli.StringFlag{
						Name:     "input",
						Usage:    "プロンプトファイル（1行1プロンプト）",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "output-dir",
						Usage:    "JSONL出力先ディレクトリ",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "system-prompt",
						Usage: "全リクエスト共通のシステムプロンプト",
					},
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "ジョブ1件あたりのリクエスト数",
						Value: 1000,
					},
					&cli.StringFlag{
						Name:  "model",
						Usage: "リクエストに設定するモデル名（未指定時は設定値）",
					},
				},
				Action: commands.PrepareAction,
			},
			{
				Name:  "submit",
				Usage: "JSONL入力ファイルをバッチとして送信",
				Flags: []cli.Flag{
					envFlag,
					&cli.StringFlag{
						Name:     "input",
						Usage:    "バッチ入力JSONLファイル",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "job-id",
						Usage: "ジョブID（未指定時はファイル名から導出）",
					},
				},
				Action: commands.SubmitAction,
			},
			{
				Name:  "submit-all",
				Usage: "ディレクトリ内の全ジョブ入力ファイル（job_*.jsonl）を送信",
				Flags: []cli.Flag{
					envFlag,
					&cli.StringFlag{
						Name:     "dir",
						Usage:    "JSONL入力ディレクトリ",
						Required: true,
					},
				},
				Action: commands.SubmitAllAction,
			},
			{
				Name:      "track",
				Usage:     "ジョブを終端状態まで追跡し、結果を取得",
				ArgsUsage: "JOB_ID [JOB_ID...]",
				Flags:     []cli.Flag{envFlag},
				Action:    commands.TrackAction,
			},
			{
				Name:      "status",
				Usage:     "ジョブのステータスを1回だけ照会",
				ArgsUsage: "JOB_ID",
				Flags:     []cli.Flag{envFlag},
				Action:    commands.StatusAction,
			},
			{
				Name:      "cancel",
				Usage:     "実行中のバッチをキャンセル",
				ArgsUsage: "JOB_ID",
				Flags:     []cli.Flag{envFlag},
				Action:    commands.CancelAction,
			},
			{
				Name:   "list",
				Usage:  "追跡中の全ジョブを一覧表示",
				Flags:  []cli.Flag{envFlag},
				Action: commands.ListAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
