package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jinford/batchtrack/internal/module/batch/domain"
)

// JobRepository は domain.JobRepository のインメモリ実装
// 永続ストアが構成されていない場合の単発実行と、テストで使用する
type JobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

// NewJobRepository は新しいインメモリリポジトリを作成する
func NewJobRepository() *JobRepository {
	return &JobRepository{
		jobs: make(map[string]*domain.Job),
	}
}

// Create は新規ジョブを登録する
func (r *JobRepository) Create(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.JobID]; exists {
		return fmt.Errorf("%w: %s", domain.ErrJobExists, job.JobID)
	}

	r.jobs[job.JobID] = cloneJob(job)
	return nil
}

// Get はJobIDでジョブを取得する
func (r *JobRepository) Get(_ context.Context, jobID string) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, jobID)
	}

	return cloneJob(job), nil
}

// List は登録済みの全ジョブを作成日時順に返す
func (r *JobRepository) List(_ context.Context) ([]*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]*domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, cloneJob(job))
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})

	return jobs, nil
}

// Update はジョブの可変フィールドを保存する
func (r *JobRepository) Update(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.JobID]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrJobNotFound, job.JobID)
	}

	r.jobs[job.JobID] = cloneJob(job)
	return nil
}

// cloneJob は呼び出し元との状態共有を避けるためのコピーを返す
func cloneJob(job *domain.Job) *domain.Job {
	clone := *job
	if job.ErrorDetail != nil {
		detail := *job.ErrorDetail
		detail.Errors = append([]domain.BatchError(nil), job.ErrorDetail.Errors...)
		clone.ErrorDetail = &detail
	}
	return &clone
}

// インターフェース実装の確認
var _ domain.JobRepository = (*JobRepository)(nil)
