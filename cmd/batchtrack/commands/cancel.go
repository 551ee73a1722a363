package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// CancelAction は実行中のバッチをキャンセルするアクション
// リモートへキャンセルを要求し、ローカルの状態を Cancelled として記録する
func CancelAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	jobID := cmd.Args().First()

	if jobID == "" {
		return fmt.Errorf("ジョブIDを指定してください")
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.Container.Tracker.Cancel(ctx, jobID); err != nil {
		return fmt.Errorf("キャンセルに失敗: %w", err)
	}

	fmt.Printf("✓ ジョブ %s をキャンセルしました\n", jobID)
	return nil
}
