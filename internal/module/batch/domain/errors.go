package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrGiveUp はポーリング上限を超過した場合のエラー
	ErrGiveUp = errors.New("polling ceiling exceeded before terminal state")

	// ErrJobNotFound はジョブがストアに存在しない場合のエラー
	ErrJobNotFound = errors.New("job not found")

	// ErrJobExists は同一JobIDのジョブが既に存在する場合のエラー
	ErrJobExists = errors.New("job already exists")
)

// TransientError は一時的な障害（ネットワーク・タイムアウト・レート制限など）
// バックオフ方針に従いリトライ対象となる
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient error during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError はジョブIDが不明・無効な場合など回復不能な障害
// リトライせず即座にトラッキングを中断する
type PermanentError struct {
	Op  string
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent error during %s: %v", e.Op, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// ProtocolError はサービス契約違反（未知のステータス値・不正な状態遷移）
// リトライしても自己修復しないため、即座にトラッキングを中断する
type ProtocolError struct {
	From   State
	Raw    RawStatus
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s (state=%s raw=%q)", e.Reason, e.From, e.Raw)
}

// RetrievalError は終端状態の確認後に結果・失敗詳細の取得自体が失敗した場合のエラー
// ジョブレベルの失敗とは区別され、再ポーリングなしで取得のみ再試行できる
type RetrievalError struct {
	JobID string
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("failed to retrieve outcome for job %s: %v", e.JobID, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// IsTransient はリトライ対象のエラーかどうかを判定する
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
