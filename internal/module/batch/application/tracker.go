package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jinford/batchtrack/internal/module/batch/domain"
)

// Tracker はジョブ1件のポーリングループを駆動するオーケストレーター
// poll → reconcile → persist を終端到達まで繰り返し、終端で結果取得へ引き渡す
type Tracker struct {
	service   domain.BatchService
	jobs      domain.JobRepository
	retriever *Retriever
	backoff   BackoffPolicy
	log       *slog.Logger

	// sleep はテストから差し替え可能な待機関数
	sleep func(ctx context.Context, d time.Duration) error

	// now はテストから差し替え可能な現在時刻関数
	now func() time.Time
}

// TrackerOption はTracker構築時のオプション
type TrackerOption func(*Tracker)

// WithSleepFunc は待機関数を差し替える（テスト用）
func WithSleepFunc(fn func(ctx context.Context, d time.Duration) error) TrackerOption {
	return func(t *Tracker) {
		t.sleep = fn
	}
}

// WithNowFunc は現在時刻関数を差し替える（テスト用）
func WithNowFunc(fn func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = fn
	}
}

// NewTracker は新しいTrackerを作成する
func NewTracker(
	service domain.BatchService,
	jobs domain.JobRepository,
	retriever *Retriever,
	backoff BackoffPolicy,
	log *slog.Logger,
	opts ...TrackerOption,
) *Tracker {
	t := &Tracker{
		service:   service,
		jobs:      jobs,
		retriever: retriever,
		backoff:   backoff,
		log:       log,
		sleep:     sleepContext,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track はジョブを終端状態まで追跡し、最終結果を返す
//
// 既に終端到達済みのジョブは新たなポーリングを発行せず、保存済みの結果を返す。
// TransientError はバックオフ方針の範囲でリトライし、上限超過時は
// StateUnknown を記録して ErrGiveUp を返す。
// PermanentError / ProtocolError は即座に中断し、リトライしない。
func (t *Tracker) Track(ctx context.Context, jobID string) (domain.Outcome, error) {
	job, err := t.jobs.Get(ctx, jobID)
	if err != nil {
		return domain.Outcome{JobID: jobID, State: domain.StateUnknown},
			fmt.Errorf("failed to load job %s: %w", jobID, err)
	}

	// 終端到達済みならポーリングせずに保存済みの結果を返す（冪等性）
	if job.State.IsTerminal() {
		return t.terminalOutcome(ctx, job)
	}

	start := t.now()
	attempt := 0

	for {
		status, err := t.service.Status(ctx, job.RemoteBatchID)
		if err != nil {
			if !domain.IsTransient(err) {
				// PermanentError などは即座に中断
				t.log.Error("polling aborted",
					"jobID", job.JobID, "error", err)
				return outcomeFromJob(job), err
			}

			t.log.Warn("transient polling failure",
				"jobID", job.JobID, "attempt", attempt, "error", err)

			attempt++
			if t.backoff.Exhausted(attempt, t.now().Sub(start)) {
				return t.giveUp(ctx, job, err)
			}
			if err := t.waitNext(ctx, job, attempt); err != nil {
				return t.cancelled(ctx, job, err)
			}
			continue
		}

		newState, err := domain.Reconcile(job.State, status.Raw)
		if err != nil {
			// ProtocolError: サービス契約違反のためリトライしない
			t.log.Error("state reconciliation failed",
				"jobID", job.JobID, "state", job.State, "raw", status.Raw, "error", err)
			return outcomeFromJob(job), err
		}

		job.State = newState
		job.Touch(status, t.now())
		if err := t.jobs.Update(ctx, job); err != nil {
			return outcomeFromJob(job), fmt.Errorf("failed to persist job state: %w", err)
		}

		t.log.Info("job state observed",
			"jobID", job.JobID,
			"state", job.State,
			"completed", status.Counts.Completed,
			"failed", status.Counts.Failed,
			"total", status.Counts.Total,
		)

		if job.State.IsTerminal() {
			if job.State == domain.StateFailed && job.ErrorDetail == nil {
				job.ErrorDetail = &domain.FailureDetail{
					Reason: string(status.Raw),
					Errors: status.Errors,
				}
			}
			return t.retrieve(ctx, job)
		}

		attempt++
		if t.backoff.Exhausted(attempt, t.now().Sub(start)) {
			return t.giveUp(ctx, job, nil)
		}
		if err := t.waitNext(ctx, job, attempt); err != nil {
			return t.cancelled(ctx, job, err)
		}
	}
}

// TrackResult はTrackAllの1ジョブ分の結果
type TrackResult struct {
	JobID   string
	Outcome domain.Outcome
	Err     error
}

// TrackAll は複数ジョブを並行に追跡する
// ジョブ間で共有する可変状態はなく、各ジョブは独立したループで追跡される
func (t *Tracker) TrackAll(ctx context.Context, jobIDs []string) []TrackResult {
	results := make([]TrackResult, len(jobIDs))

	var wg sync.WaitGroup
	for i, jobID := range jobIDs {
		wg.Add(1)
		go func(i int, jobID string) {
			defer wg.Done()
			outcome, err := t.Track(ctx, jobID)
			results[i] = TrackResult{JobID: jobID, Outcome: outcome, Err: err}
		}(i, jobID)
	}
	wg.Wait()

	return results
}

// Status はポーリングを1回だけ実行し、照合後のジョブを返す（ループしない）
func (t *Tracker) Status(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := t.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", jobID, err)
	}

	if job.State.IsTerminal() {
		return job, nil
	}

	status, err := t.service.Status(ctx, job.RemoteBatchID)
	if err != nil {
		return nil, err
	}

	newState, err := domain.Reconcile(job.State, status.Raw)
	if err != nil {
		return nil, err
	}

	job.State = newState
	job.Touch(status, t.now())
	if job.State == domain.StateFailed && job.ErrorDetail == nil {
		job.ErrorDetail = &domain.FailureDetail{
			Reason: string(status.Raw),
			Errors: status.Errors,
		}
	}
	if err := t.jobs.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist job state: %w", err)
	}

	return job, nil
}

// Cancel はリモートにキャンセルを要求し、ローカル状態を Cancelled として記録する
func (t *Tracker) Cancel(ctx context.Context, jobID string) error {
	job, err := t.jobs.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", jobID, err)
	}

	if job.State.IsTerminal() {
		return fmt.Errorf("job %s is already terminal (%s)", jobID, job.State)
	}

	if err := t.service.Cancel(ctx, job.RemoteBatchID); err != nil {
		return err
	}

	job.State = domain.StateCancelled
	job.UpdatedAt = t.now()
	if err := t.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("failed to persist cancellation: %w", err)
	}

	t.log.Info("job cancelled", "jobID", jobID)
	return nil
}

// retrieve は終端状態のジョブの結果取得を実行する
func (t *Tracker) retrieve(ctx context.Context, job *domain.Job) (domain.Outcome, error) {
	outcome, err := t.retriever.Retrieve(ctx, job)
	if err != nil {
		return outcome, err
	}

	job.ResultPath = outcome.ResultPath
	job.ErrorDetail = outcome.Failure
	if err := t.jobs.Update(ctx, job); err != nil {
		return outcome, fmt.Errorf("failed to persist outcome: %w", err)
	}

	return outcome, nil
}

// terminalOutcome は保存済みの終端ジョブから結果を再構成する
// 成功終端なのに結果が未取得の場合（前回の取得失敗）は取得のみ再試行する
func (t *Tracker) terminalOutcome(ctx context.Context, job *domain.Job) (domain.Outcome, error) {
	switch job.State {
	case domain.StateSucceeded:
		if job.ResultPath == "" {
			return t.retrieve(ctx, job)
		}
	case domain.StateFailed:
		if job.ErrorDetail == nil {
			return t.retrieve(ctx, job)
		}
	}
	return outcomeFromJob(job), nil
}

// giveUp はポーリング上限超過を StateUnknown として記録する
func (t *Tracker) giveUp(ctx context.Context, job *domain.Job, cause error) (domain.Outcome, error) {
	job.State = domain.StateUnknown
	job.UpdatedAt = t.now()
	if err := t.jobs.Update(ctx, job); err != nil {
		t.log.Error("failed to persist give-up state", "jobID", job.JobID, "error", err)
	}

	t.log.Warn("polling ceiling exceeded", "jobID", job.JobID, "cause", cause)

	err := domain.ErrGiveUp
	if cause != nil {
		err = fmt.Errorf("%w: last error: %v", domain.ErrGiveUp, cause)
	}
	return outcomeFromJob(job), err
}

// cancelled はキャンセル観測時にローカル状態を Cancelled として記録する
// リモートのジョブは実行され続けている可能性があるが、以後のポーリングは行わない
func (t *Tracker) cancelled(ctx context.Context, job *domain.Job, cause error) (domain.Outcome, error) {
	job.State = domain.StateCancelled
	job.UpdatedAt = t.now()

	// 呼び出し元のctxは既にキャンセル済みのため、保存は独立したctxで行う
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := t.jobs.Update(persistCtx, job); err != nil {
		t.log.Error("failed to persist cancellation", "jobID", job.JobID, "error", err)
	}

	t.log.Info("tracking cancelled", "jobID", job.JobID)
	return outcomeFromJob(job), cause
}

// waitNext は次のポーリングまでバックオフ待機する
func (t *Tracker) waitNext(ctx context.Context, job *domain.Job, attempt int) error {
	delay := t.backoff.Jittered(t.backoff.Delay(attempt - 1))
	t.log.Debug("waiting before next poll",
		"jobID", job.JobID, "attempt", attempt, "delay", delay)
	return t.sleep(ctx, delay)
}

// outcomeFromJob はジョブの現在状態からOutcomeを構成する
func outcomeFromJob(job *domain.Job) domain.Outcome {
	return domain.Outcome{
		JobID:      job.JobID,
		State:      job.State,
		ResultPath: job.ResultPath,
		Failure:    job.ErrorDetail,
		Counts:     job.Counts,
	}
}

// sleepContext はコンテキストキャンセルに応答する待機
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
