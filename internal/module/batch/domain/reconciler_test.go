package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_Mapping(t *testing.T) {
	tests := []struct {
		name string
		prev State
		raw  RawStatus
		want State
	}{
		{"送信直後に検証中へ", StateSubmitted, RawValidating, StateValidating},
		{"検証中から実行中へ", StateValidating, RawInProgress, StateRunning},
		{"finalizingは実行中扱い", StateRunning, RawFinalizing, StateRunning},
		{"cancellingは実行中扱い", StateRunning, RawCancelling, StateRunning},
		{"実行中から成功へ", StateRunning, RawCompleted, StateSucceeded},
		{"実行中から失敗へ", StateRunning, RawFailed, StateFailed},
		{"expiredは失敗扱い", StateRunning, RawExpired, StateFailed},
		{"実行中からキャンセルへ", StateRunning, RawCancelled, StateCancelled},
		{"送信直後に即完了も許容", StateSubmitted, RawCompleted, StateSucceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Reconcile(tt.prev, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReconcile_UnrecognizedStatus(t *testing.T) {
	got, err := Reconcile(StateRunning, RawStatus("weird"))

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, StateRunning, protoErr.From)
	assert.Equal(t, RawStatus("weird"), protoErr.Raw)
	// エラー時は状態を変更しない
	assert.Equal(t, StateRunning, got)
}

func TestReconcile_TerminalIsMonotonic(t *testing.T) {
	// 終端状態に到達した後は、どの生ステータスを与えても状態が変化しない
	terminals := []State{StateSucceeded, StateFailed, StateCancelled, StateUnknown}
	raws := []RawStatus{
		RawValidating, RawInProgress, RawFinalizing,
		RawCompleted, RawFailed, RawExpired, RawCancelling, RawCancelled,
	}

	for _, terminal := range terminals {
		for _, raw := range raws {
			got, err := Reconcile(terminal, raw)
			assert.Equal(t, terminal, got,
				"terminal=%s raw=%s: 状態が変化してはならない", terminal, raw)

			mapped, ok := mapRawStatus(raw)
			if ok && mapped == terminal {
				// 同じ終端状態の再観測はエラーではない
				assert.NoError(t, err)
			} else {
				var protoErr *ProtocolError
				assert.True(t, errors.As(err, &protoErr),
					"terminal=%s raw=%s: ProtocolErrorになるべき", terminal, raw)
			}
		}
	}
}

func TestReconcile_SequenceMonotonicity(t *testing.T) {
	// 生ステータスの列を順に与え、終端到達後の照合が状態を変えないことを確認する
	sequence := []RawStatus{
		RawValidating, RawInProgress, RawInProgress, RawFinalizing,
		RawCompleted, RawCompleted, RawInProgress, RawFailed,
	}

	state := StateSubmitted
	reachedTerminal := false
	for _, raw := range sequence {
		next, err := Reconcile(state, raw)
		if reachedTerminal {
			assert.Equal(t, state, next)
		} else if err == nil {
			state = next
		}
		if state.IsTerminal() {
			reachedTerminal = true
		}
	}

	assert.Equal(t, StateSucceeded, state)
}

func TestState_IsTerminal(t *testing.T) {
	assert.False(t, StateSubmitted.IsTerminal())
	assert.False(t, StateValidating.IsTerminal())
	assert.False(t, StateRunning.IsTerminal())
	assert.True(t, StateSucceeded.IsTerminal())
	assert.True(t, StateFailed.IsTerminal())
	assert.True(t, StateCancelled.IsTerminal())
	assert.True(t, StateUnknown.IsTerminal())
}
