package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// StatusAction はジョブのステータスを1回だけ照会するアクション（ループしない）
func StatusAction(ctx context.Context, cmd *cli.Command) error {
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

	job, err := appCtx.Container.Tracker.Status(ctx, jobID)
	if err != nil {
		return fmt.Errorf("ステータスの取得に失敗: %w", err)
	}

	fmt.Printf("job_id:    %s\n", job.JobID)
	fmt.Printf("batch_id:  %s\n", job.RemoteBatchID)
	fmt.Printf("state:     %s\n", job.State)
	fmt.Printf("progress:  completed=%d failed=%d total=%d\n",
		job.Counts.Completed, job.Counts.Failed, job.Counts.Total)
	if !job.LastPolledAt.IsZero() {
		fmt.Printf("polled_at: %s\n", job.LastPolledAt.Format("2006-01-02 15:04:05"))
	}
	if job.ResultPath != "" {
		fmt.Printf("result:    %s\n", job.ResultPath)
	}
	if job.ErrorDetail != nil {
		fmt.Printf("failure:   %s\n", job.ErrorDetail.Reason)
	}

	return nil
}
