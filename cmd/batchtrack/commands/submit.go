package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"
)

// SubmitAction は入力JSONLファイルをバッチとして送信するアクション
func SubmitAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	jobID := cmd.String("job-id")
	input := cmd.String("input")

	// ジョブIDが未指定の場合はファイル名から導出する（job_0.jsonl → job_0）
	if jobID == "" {
		jobID = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	job, err := appCtx.Container.Submitter.Submit(ctx, jobID, input)
	if err != nil {
		return fmt.Errorf("バッチの送信に失敗: %w", err)
	}

	fmt.Printf("✓ バッチを送信しました\n")
	fmt.Printf("  job_id:   %s\n", job.JobID)
	fmt.Printf("  batch_id: %s\n", job.RemoteBatchID)
	fmt.Printf("  state:    %s\n", job.State)

	return nil
}

// SubmitAllAction はディレクトリ内の全ジョブ入力ファイルを送信するアクション
func SubmitAllAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	dir := cmd.String("dir")

	paths, err := filepath.Glob(filepath.Join(dir, "job_*.jsonl"))
	if err != nil {
		return fmt.Errorf("入力ファイルの探索に失敗: %w", err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("%s にジョブ入力ファイル（job_*.jsonl）が見つかりません", dir)
	}
	sort.Strings(paths)

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	submitted := 0
	for _, path := range paths {
		jobID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

		job, err := appCtx.Container.Submitter.Submit(ctx, jobID, path)
		if err != nil {
			return fmt.Errorf("%s の送信に失敗: %w", path, err)
		}

		fmt.Printf("✓ %s → batch %s\n", job.JobID, job.RemoteBatchID)
		submitted++
	}

	fmt.Printf("%d件のバッチを送信しました\n", submitted)
	return nil
}
