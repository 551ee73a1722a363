package application

import (
	"math"
	"math/rand/v2"
	"time"
)

const (
	// DefaultBaseInterval はポーリング間隔の基底値
	DefaultBaseInterval = 60 * time.Second

	// DefaultMaxInterval はポーリング間隔の上限
	DefaultMaxInterval = 10 * time.Minute

	// DefaultMaxElapsed はポーリング全体の打ち切り時間
	// 元実装のバッチ完了待ちタイムアウト（24時間）に合わせる
	DefaultMaxElapsed = 24 * time.Hour

	// jitterFraction は同期的なリトライストームを避けるための揺らぎ幅
	jitterFraction = 0.2
)

// BackoffPolicy はポーリングのバックオフ方針
// 基底間隔から倍々で増加し、上限で頭打ちになる
// MaxAttempts / MaxElapsed は0で無制限
type BackoffPolicy struct {
	BaseInterval time.Duration
	MaxInterval  time.Duration
	MaxAttempts  int
	MaxElapsed   time.Duration
}

// DefaultBackoffPolicy はデフォルトのバックオフ方針を返す
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		BaseInterval: DefaultBaseInterval,
		MaxInterval:  DefaultMaxInterval,
		MaxAttempts:  0,
		MaxElapsed:   DefaultMaxElapsed,
	}
}

// Delay はattempt回目（0始まり）の待機時間を返す
// 列は単調非減少で、MaxIntervalを超えない
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	base := p.BaseInterval
	if base <= 0 {
		base = DefaultBaseInterval
	}
	limit := p.MaxInterval
	if limit <= 0 {
		limit = DefaultMaxInterval
	}
	if base > limit {
		return limit
	}

	// 2^attempt * base（オーバーフロー回避のため上限到達で打ち切る）
	d := base
	for i := 0; i < attempt; i++ {
		if d >= limit/2 {
			return limit
		}
		d *= 2
	}
	if d > limit {
		d = limit
	}
	return d
}

// Jittered は待機時間に±20%の揺らぎを加える
// 結果は常に (0, MaxInterval] の範囲に収まる
func (p BackoffPolicy) Jittered(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	factor := 1 + jitterFraction*(2*rand.Float64()-1)
	jittered := time.Duration(math.Round(float64(d) * factor))

	limit := p.MaxInterval
	if limit <= 0 {
		limit = DefaultMaxInterval
	}
	if jittered > limit {
		jittered = limit
	}
	if jittered <= 0 {
		jittered = d
	}
	return jittered
}

// Exhausted はattempt回試行しelapsed経過した時点で打ち切るべきかを返す
func (p BackoffPolicy) Exhausted(attempt int, elapsed time.Duration) bool {
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		return true
	}
	if p.MaxElapsed > 0 && elapsed >= p.MaxElapsed {
		return true
	}
	return false
}
