package domain

// Reconcile はリモートの生ステータスをローカルのライフサイクル状態に対応付ける
// 純粋関数であり副作用を持たない
//
// 終端状態は単調で、一度到達したら以後の照合で変化しない。
// 未知のステータス値、および終端から別状態への遷移は ProtocolError となる。
func Reconcile(prev State, raw RawStatus) (State, error) {
	mapped, ok := mapRawStatus(raw)
	if !ok {
		return prev, &ProtocolError{
			From:   prev,
			Raw:    raw,
			Reason: "unrecognized raw status",
		}
	}

	if prev.IsTerminal() {
		if mapped == prev {
			return prev, nil
		}
		return prev, &ProtocolError{
			From:   prev,
			Raw:    raw,
			Reason: "terminal state may not transition",
		}
	}

	return mapped, nil
}

// mapRawStatus は生ステータスの閉じた語彙をローカル状態へ写像する
// 新しい語彙はここに追加し、フォールスルーで握りつぶさない
func mapRawStatus(raw RawStatus) (State, bool) {
	switch raw {
	case RawValidating:
		return StateValidating, true
	case RawInProgress, RawFinalizing, RawCancelling:
		// finalizing と cancelling はリモート側でまだ終端に達していない
		return StateRunning, true
	case RawCompleted:
		return StateSucceeded, true
	case RawFailed, RawExpired:
		return StateFailed, true
	case RawCancelled:
		return StateCancelled, true
	}
	return "", false
}
