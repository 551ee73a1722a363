package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jinford/batchtrack/internal/module/batch/domain"
)

// maxErrorFileBytes はエラーファイル取り込みの上限サイズ
const maxErrorFileBytes = 1 << 20

// Retriever は終端到達後の結果取得を担当する
// 成功時は結果ファイルをダウンロードして実体化し、失敗時は失敗詳細を構成する
type Retriever struct {
	service   domain.BatchService
	outputDir string
	log       *slog.Logger
}

// NewRetriever は新しいRetrieverを作成する
func NewRetriever(service domain.BatchService, outputDir string, log *slog.Logger) *Retriever {
	return &Retriever{
		service:   service,
		outputDir: outputDir,
		log:       log,
	}
}

// Retrieve は終端状態のジョブの最終結果を取得する
//
// 前提条件: job.State が終端であること（Trackerが保証する）。
// ダウンロード自体の失敗は RetrievalError となり、ジョブレベルの失敗とは
// 区別される。再ポーリングなしで Retrieve のみ再実行できる。
func (r *Retriever) Retrieve(ctx context.Context, job *domain.Job) (domain.Outcome, error) {
	if !job.State.IsTerminal() {
		return domain.Outcome{JobID: job.JobID, State: job.State},
			fmt.Errorf("retrieve called with non-terminal state %s for job %s", job.State, job.JobID)
	}

	switch job.State {
	case domain.StateSucceeded:
		return r.retrieveResult(ctx, job)
	case domain.StateFailed:
		return r.retrieveFailure(ctx, job)
	default:
		// Cancelled / Unknown には取得すべきペイロードがない
		return domain.Outcome{
			JobID:   job.JobID,
			State:   job.State,
			Failure: job.ErrorDetail,
			Counts:  job.Counts,
		}, nil
	}
}

// retrieveResult は成功終端の結果ファイルをダウンロードして保存する
func (r *Retriever) retrieveResult(ctx context.Context, job *domain.Job) (domain.Outcome, error) {
	outcome := domain.Outcome{
		JobID:  job.JobID,
		State:  domain.StateSucceeded,
		Counts: job.Counts,
	}

	if job.OutputFileID == "" {
		return outcome, &domain.RetrievalError{
			JobID: job.JobID,
			Err:   fmt.Errorf("job reported succeeded but no output file ID is known"),
		}
	}

	body, err := r.service.FetchFile(ctx, job.OutputFileID)
	if err != nil {
		return outcome, &domain.RetrievalError{JobID: job.JobID, Err: err}
	}
	defer body.Close()

	path := filepath.Join(r.outputDir, job.JobID+"_output.jsonl")
	if err := r.materialize(path, body); err != nil {
		return outcome, &domain.RetrievalError{JobID: job.JobID, Err: err}
	}

	r.log.Info("result retrieved", "jobID", job.JobID, "path", path)

	outcome.ResultPath = path
	return outcome, nil
}

// retrieveFailure は失敗終端の失敗詳細を構成する
// エラーファイルが存在する場合は内容を取り込む
func (r *Retriever) retrieveFailure(ctx context.Context, job *domain.Job) (domain.Outcome, error) {
	outcome := domain.Outcome{
		JobID:  job.JobID,
		State:  domain.StateFailed,
		Counts: job.Counts,
	}

	detail := job.ErrorDetail
	if detail == nil {
		detail = &domain.FailureDetail{Reason: string(domain.StateFailed)}
	}

	if job.ErrorFileID != "" && detail.ErrorFileContent == "" {
		body, err := r.service.FetchFile(ctx, job.ErrorFileID)
		if err != nil {
			// ジョブの失敗は確定しているが、詳細の取得に失敗した
			outcome.Failure = detail
			return outcome, &domain.RetrievalError{JobID: job.JobID, Err: err}
		}
		defer body.Close()

		content, err := io.ReadAll(io.LimitReader(body, maxErrorFileBytes))
		if err != nil {
			outcome.Failure = detail
			return outcome, &domain.RetrievalError{JobID: job.JobID, Err: err}
		}
		detail.ErrorFileContent = string(content)
	}

	r.log.Info("failure detail retrieved",
		"jobID", job.JobID, "reason", detail.Reason, "errors", len(detail.Errors))

	outcome.Failure = detail
	return outcome, nil
}

// materialize はダウンロード内容をファイルとして書き出す
func (r *Retriever) materialize(path string, body io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	return nil
}
