package domain

import "time"

// State はジョブのローカルライフサイクル状態
type State string

const (
	// StateSubmitted は送信直後の初期状態
	StateSubmitted State = "submitted"
	// StateValidating はリモートサービスが入力を検証中の状態
	StateValidating State = "validating"
	// StateRunning はバッチ処理が実行中の状態
	StateRunning State = "running"
	// StateSucceeded は正常終了した終端状態
	StateSucceeded State = "succeeded"
	// StateFailed は失敗で終了した終端状態
	StateFailed State = "failed"
	// StateCancelled はキャンセルされた終端状態
	StateCancelled State = "cancelled"
	// StateUnknown はポーリング上限超過によりトラッカー自身が付与する終端状態
	// リモートサービスのステータスからは決して遷移しない
	StateUnknown State = "unknown"
)

// IsTerminal は終端状態かどうかを返す
func (s State) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCancelled, StateUnknown:
		return true
	}
	return false
}

// RawStatus はリモートサービスが返す生のステータス値
// 語彙はOpenAI Batch APIに準拠する
type RawStatus string

const (
	RawValidating RawStatus = "validating"
	RawInProgress RawStatus = "in_progress"
	RawFinalizing RawStatus = "finalizing"
	RawCompleted  RawStatus = "completed"
	RawFailed     RawStatus = "failed"
	RawExpired    RawStatus = "expired"
	RawCancelling RawStatus = "cancelling"
	RawCancelled  RawStatus = "cancelled"
)

// RequestCounts はバッチ内リクエストの処理件数
type RequestCounts struct {
	Completed int64
	Failed    int64
	Total     int64
}

// BatchError はリモートサービスが報告する個別エラー
type BatchError struct {
	Code    string `json:"code"`
	Line    int64  `json:"line,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

// FailureDetail は失敗終端時の構造化された失敗情報
type FailureDetail struct {
	// Reason は失敗区分（リモートの生ステータス: failed / expired など）
	Reason string `json:"reason"`
	// Errors はリモートサービスが報告したエラー一覧
	Errors []BatchError `json:"errors,omitempty"`
	// ErrorFileContent はエラーファイルの内容（取得できた場合のみ）
	ErrorFileContent string `json:"error_file_content,omitempty"`
}

// RemoteStatus はステータス照会1回分の結果
type RemoteStatus struct {
	Raw          RawStatus
	OutputFileID string
	ErrorFileID  string
	Counts       RequestCounts
	Errors       []BatchError
}

// Job は追跡対象のバッチジョブ
// JobID は送信時に確定し、以後変更されない
type Job struct {
	JobID         string
	InputFileID   string
	RemoteBatchID string
	State         State
	Counts        RequestCounts
	OutputFileID  string
	ErrorFileID   string

	// ResultPath と ErrorDetail は相互排他で、終端到達まで両方とも空
	ResultPath  string
	ErrorDetail *FailureDetail

	CreatedAt    time.Time
	LastPolledAt time.Time
	UpdatedAt    time.Time
}

// Touch はポーリング観測をジョブへ反映する
func (j *Job) Touch(status RemoteStatus, polledAt time.Time) {
	j.Counts = status.Counts
	if status.OutputFileID != "" {
		j.OutputFileID = status.OutputFileID
	}
	if status.ErrorFileID != "" {
		j.ErrorFileID = status.ErrorFileID
	}
	j.LastPolledAt = polledAt
}

// Outcome はトラッキングの最終結果
type Outcome struct {
	JobID string
	State State
	// ResultPath は成功時のみ設定される結果ファイルのパス
	ResultPath string
	// Failure は失敗時のみ設定される失敗情報
	Failure *FailureDetail
	// Counts は最後に観測したリクエスト処理件数
	Counts RequestCounts
}
