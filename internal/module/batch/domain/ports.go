package domain

import (
	"context"
	"io"
)

// SubmitRequest はバッチ送信の入力
type SubmitRequest struct {
	JobID            string
	Input            io.Reader
	Filename         string
	Endpoint         string
	CompletionWindow string
	Metadata         map[string]string
}

// SubmitReceipt はバッチ送信の結果
type SubmitReceipt struct {
	InputFileID string
	BatchID     string
	Raw         RawStatus
}

// BatchService はリモートバッチサービスへのポート
// 実装はトランスポートの詳細を隠蔽し、障害をドメインのエラー分類に写像する
type BatchService interface {
	// Submit は入力ファイルをアップロードしバッチを作成する
	Submit(ctx context.Context, req SubmitRequest) (SubmitReceipt, error)

	// Status はバッチの現在のステータスを1回照会する
	Status(ctx context.Context, batchID string) (RemoteStatus, error)

	// FetchFile は結果・エラーファイルの内容を取得する
	FetchFile(ctx context.Context, fileID string) (io.ReadCloser, error)

	// Cancel はバッチのキャンセルを要求する
	Cancel(ctx context.Context, batchID string) error
}

// JobRepository はジョブ進捗の永続化ポート
// 状態遷移のたびに書き込まれ、再起動時の二重送信・追跡漏れを防ぐ
type JobRepository interface {
	// Create は新規ジョブを登録する。同一JobIDが存在する場合は ErrJobExists を返す
	Create(ctx context.Context, job *Job) error

	// Get はJobIDでジョブを取得する。存在しない場合は ErrJobNotFound を返す
	Get(ctx context.Context, jobID string) (*Job, error)

	// List は登録済みの全ジョブを作成日時順に返す
	List(ctx context.Context) ([]*Job, error)

	// Update はジョブの可変フィールド（状態・件数・結果参照など）を保存する
	Update(ctx context.Context, job *Job) error
}
