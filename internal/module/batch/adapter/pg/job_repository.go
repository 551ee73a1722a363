package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jinford/batchtrack/internal/module/batch/domain"
)

// uniqueViolation はPostgreSQLの一意制約違反のSQLSTATE
const uniqueViolation = "23505"

// schema はジョブ進捗テーブルの定義
// 元実装と同様、起動時に存在しなければ作成する
const schema = `
CREATE TABLE IF NOT EXISTS batch_jobs (
    job_id          TEXT PRIMARY KEY,
    input_file_id   TEXT NOT NULL DEFAULT '',
    remote_batch_id TEXT NOT NULL DEFAULT '',
    state           TEXT NOT NULL,
    completed_count BIGINT NOT NULL DEFAULT 0,
    failed_count    BIGINT NOT NULL DEFAULT 0,
    total_count     BIGINT NOT NULL DEFAULT 0,
    output_file_id  TEXT NOT NULL DEFAULT '',
    error_file_id   TEXT NOT NULL DEFAULT '',
    result_path     TEXT NOT NULL DEFAULT '',
    error_detail    JSONB,
    created_at      TIMESTAMPTZ NOT NULL,
    last_polled_at  TIMESTAMPTZ,
    updated_at      TIMESTAMPTZ NOT NULL
)`

// JobRepository は domain.JobRepository のPostgreSQL実装
type JobRepository struct {
	pool *pgxpool.Pool
}

// NewJobRepository は新しいJobRepositoryを作成する
func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

// EnsureSchema はジョブ進捗テーブルを作成する（存在する場合は何もしない）
func (r *JobRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure batch_jobs schema: %w", err)
	}
	return nil
}

// Create は新規ジョブを登録する
func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	detail, err := marshalDetail(job.ErrorDetail)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO batch_jobs (
			job_id, input_file_id, remote_batch_id, state,
			completed_count, failed_count, total_count,
			output_file_id, error_file_id, result_path, error_detail,
			created_at, last_polled_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		job.JobID, job.InputFileID, job.RemoteBatchID, string(job.State),
		job.Counts.Completed, job.Counts.Failed, job.Counts.Total,
		job.OutputFileID, job.ErrorFileID, job.ResultPath, detail,
		job.CreatedAt, nullableTime(job.LastPolledAt), job.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", domain.ErrJobExists, job.JobID)
		}
		return fmt.Errorf("failed to insert job: %w", err)
	}

	return nil
}

// Get はJobIDでジョブを取得する
func (r *JobRepository) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT job_id, input_file_id, remote_batch_id, state,
		       completed_count, failed_count, total_count,
		       output_file_id, error_file_id, result_path, error_detail,
		       created_at, last_polled_at, updated_at
		FROM batch_jobs
		WHERE job_id = $1`, jobID)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, jobID)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return job, nil
}

// List は登録済みの全ジョブを作成日時順に返す
func (r *JobRepository) List(ctx context.Context) ([]*domain.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT job_id, input_file_id, remote_batch_id, state,
		       completed_count, failed_count, total_count,
		       output_file_id, error_file_id, result_path, error_detail,
		       created_at, last_polled_at, updated_at
		FROM batch_jobs
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

// Update はジョブの可変フィールドを保存する
func (r *JobRepository) Update(ctx context.Context, job *domain.Job) error {
	detail, err := marshalDetail(job.ErrorDetail)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE batch_jobs SET
			state = $2,
			completed_count = $3,
			failed_count = $4,
			total_count = $5,
			output_file_id = $6,
			error_file_id = $7,
			result_path = $8,
			error_detail = $9,
			last_polled_at = $10,
			updated_at = now()
		WHERE job_id = $1`,
		job.JobID, string(job.State),
		job.Counts.Completed, job.Counts.Failed, job.Counts.Total,
		job.OutputFileID, job.ErrorFileID, job.ResultPath, detail,
		nullableTime(job.LastPolledAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrJobNotFound, job.JobID)
	}

	return nil
}

// rowScanner はpgx.Rowとpgx.Rowsの共通部分
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job          domain.Job
		state        string
		detail       []byte
		lastPolledAt *time.Time
	)

	err := row.Scan(
		&job.JobID, &job.InputFileID, &job.RemoteBatchID, &state,
		&job.Counts.Completed, &job.Counts.Failed, &job.Counts.Total,
		&job.OutputFileID, &job.ErrorFileID, &job.ResultPath, &detail,
		&job.CreatedAt, &lastPolledAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.State = domain.State(state)
	if lastPolledAt != nil {
		job.LastPolledAt = *lastPolledAt
	}
	if len(detail) > 0 {
		var fd domain.FailureDetail
		if err := json.Unmarshal(detail, &fd); err != nil {
			return nil, fmt.Errorf("failed to unmarshal error detail: %w", err)
		}
		job.ErrorDetail = &fd
	}

	return &job, nil
}

// marshalDetail は失敗詳細をJSONBカラム用に変換する（nilはNULL）
func marshalDetail(detail *domain.FailureDetail) ([]byte, error) {
	if detail == nil {
		return nil, nil
	}
	data, err := json.Marshal(detail)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal error detail: %w", err)
	}
	return data, nil
}

// nullableTime はゼロ値の時刻をNULLとして保存する
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// インターフェース実装の確認
var _ domain.JobRepository = (*JobRepository)(nil)
