package commands

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jinford/batchtrack/internal/module/batch/domain"
)

func TestExitCodeFor(t *testing.T) {
	// ジョブ自体の失敗(1)とトラッキングの失敗(2)を区別する
	tests := []struct {
		name    string
		outcome domain.Outcome
		err     error
		want    int
	}{
		{
			name:    "成功終端",
			outcome: domain.Outcome{State: domain.StateSucceeded, ResultPath: "/tmp/out.jsonl"},
			want:    0,
		},
		{
			name:    "失敗終端はジョブの失敗",
			outcome: domain.Outcome{State: domain.StateFailed},
			want:    exitJobFailed,
		},
		{
			name:    "キャンセル終端はジョブの失敗",
			outcome: domain.Outcome{State: domain.StateCancelled},
			want:    exitJobFailed,
		},
		{
			name:    "上限超過はトラッキングの失敗",
			outcome: domain.Outcome{State: domain.StateUnknown},
			err:     domain.ErrGiveUp,
			want:    exitTrackingFailed,
		},
		{
			name:    "成功終端でも取得失敗はトラッキングの失敗",
			outcome: domain.Outcome{State: domain.StateSucceeded},
			err:     &domain.RetrievalError{JobID: "j", Err: errors.New("download interrupted")},
			want:    exitTrackingFailed,
		},
		{
			name:    "非終端で打ち切られた場合もトラッキングの失敗",
			outcome: domain.Outcome{State: domain.StateRunning},
			err:     errors.New("context canceled"),
			want:    exitTrackingFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCodeFor(tt.outcome, tt.err))
		})
	}
}
