package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/jinford/batchtrack/internal/module/batch/domain"
)

// 終了コード: ジョブ自体の失敗とトラッキングの失敗を区別する
const (
	exitJobFailed      = 1
	exitTrackingFailed = 2
)

// TrackAction はジョブを終端状態まで追跡するアクション
// 複数のジョブIDを指定した場合は並行に追跡する
func TrackAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	jobIDs := cmd.Args().Slice()

	if len(jobIDs) == 0 {
		return fmt.Errorf("追跡するジョブIDを1つ以上指定してください")
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	results := appCtx.Container.Tracker.TrackAll(ctx, jobIDs)

	worst := 0
	for _, result := range results {
		printOutcome(result.Outcome, result.Err)
		if code := exitCodeFor(result.Outcome, result.Err); code > worst {
			worst = code
		}
	}

	if worst != 0 {
		return cli.Exit("", worst)
	}
	return nil
}

// exitCodeFor はトラッキング結果を終了コードへ写像する
//
// 0: 成功終端に到達し結果を取得済み
// 1: ジョブ自体が失敗・キャンセルで終端した
// 2: トラッキング自体が失敗した（中断・上限超過・取得失敗など）
func exitCodeFor(outcome domain.Outcome, err error) int {
	if err != nil {
		return exitTrackingFailed
	}
	switch outcome.State {
	case domain.StateSucceeded:
		return 0
	case domain.StateFailed, domain.StateCancelled:
		return exitJobFailed
	default:
		return exitTrackingFailed
	}
}

// printOutcome はトラッキング結果を標準出力へ表示する
func printOutcome(outcome domain.Outcome, err error) {
	switch {
	case err != nil:
		fmt.Fprintf(os.Stderr, "✗ %s: トラッキングに失敗: %v\n", outcome.JobID, err)
	case outcome.State == domain.StateSucceeded:
		fmt.Printf("✓ %s: 成功 (completed=%d/%d)\n",
			outcome.JobID, outcome.Counts.Completed, outcome.Counts.Total)
		fmt.Println(outcome.ResultPath)
	case outcome.State == domain.StateFailed:
		fmt.Printf("✗ %s: 失敗", outcome.JobID)
		if outcome.Failure != nil {
			fmt.Printf(" (%s)", outcome.Failure.Reason)
		}
		fmt.Println()
		if outcome.Failure != nil {
			for _, e := range outcome.Failure.Errors {
				fmt.Printf("  - [%s] %s\n", e.Code, e.Message)
			}
		}
	default:
		fmt.Printf("- %s: %s\n", outcome.JobID, outcome.State)
	}
}
