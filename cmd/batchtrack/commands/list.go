package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// ListAction は追跡中の全ジョブを一覧表示するアクション
func ListAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	jobs, err := appCtx.Container.Jobs.List(ctx)
	if err != nil {
		return fmt.Errorf("ジョブ一覧の取得に失敗: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("追跡中のジョブはありません")
		return nil
	}

	fmt.Printf("%-20s %-24s %-10s %-20s %s\n",
		"JOB_ID", "BATCH_ID", "STATE", "PROGRESS", "LAST_POLLED")
	for _, job := range jobs {
		polled := "-"
		if !job.LastPolledAt.IsZero() {
			polled = job.LastPolledAt.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%-20s %-24s %-10s %-20s %s\n",
			job.JobID,
			job.RemoteBatchID,
			job.State,
			fmt.Sprintf("%d/%d (failed=%d)", job.Counts.Completed, job.Counts.Total, job.Counts.Failed),
			polled,
		)
	}

	return nil
}
