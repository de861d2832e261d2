// Package retry は指数バックオフ付きの逐次リトライエンジンを提供する。
// リモート呼び出しの一時的な失敗を、分類器に基づいて回復する。
package retry

import (
	"context"
	"errors"
	"math"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/hitoshi/hnlens/internal/model"
)

// Options はリトライ動作の設定を保持する。
type Options struct {
	// MaxRetries は初回実行を除く最大再試行回数（0以上）。
	MaxRetries int
	// InitialDelay は初回再試行前の待機時間。
	InitialDelay time.Duration
	// MaxDelay は再試行間の待機時間の上限。
	MaxDelay time.Duration
	// Multiplier は指数バックオフの倍率。
	Multiplier float64

	// OnRetry は待機に入る直前に呼ばれるフック（ログ・メトリクス用）。
	// attemptは0始まりの失敗した試行番号、delayはこれから待機する時間。
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultOptions は既定のリトライ設定を返す。
// maxRetriesが負の場合は3を使用する。
func DefaultOptions(maxRetries int) Options {
	if maxRetries < 0 {
		maxRetries = 3
	}
	return Options{
		MaxRetries:   maxRetries,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
	}
}

// HTTPStatusCoder はHTTPステータスコードを公開する外部エラーの
// インターフェース。型付きAppError以外のHTTP系エラーの分類に使用する。
type HTTPStatusCoder interface {
	error
	HTTPStatusCode() int
}

// transientErrnos は一時的とみなすネットワークエラーコードの明示テーブル。
// 接続リセット、タイムアウト、接続拒否、到達不能、再試行可、
// パイプ破損、中断を対象とする。
var transientErrnos = []syscall.Errno{
	syscall.ECONNRESET,
	syscall.ETIMEDOUT,
	syscall.ECONNREFUSED,
	syscall.ENETUNREACH,
	syscall.EAGAIN,
	syscall.EPIPE,
	syscall.ECONNABORTED,
}

// networkErrorPatterns はネットワーク障害を示すメッセージパターンの
// 明示テーブル（小文字で部分一致）。
var networkErrorPatterns = []string{
	"network error",
	"failed to fetch",
	"network request failed",
	"timeout",
	"aborted",
}

// statusRetryable はHTTPステータスコードによる再試行可否を判定する。
// 5xxと429は再試行可、それ以外の4xxは再試行不可。
// どちらでもないステータスはdecided=falseで判定を保留する。
func statusRetryable(status int) (retryable, decided bool) {
	switch {
	case status >= 500 && status <= 599:
		return true, true
	case status == 429:
		return true, true
	case status >= 400 && status <= 499:
		return false, true
	default:
		return false, false
	}
}

// IsRetryable はエラーが再試行可能かを分類する。
//
// 判定順序:
//  1. 型付き運用エラー（AppError）: マップ済みステータスが5xxまたは429のときのみ可
//  2. HTTPStatusCoderを実装するエラー: 同じステータス規則
//  3. 既知の一時的ネットワークエラーコード（transientErrnos、DNS解決失敗、
//     net.Errorのタイムアウト）: 可
//  4. メッセージがnetworkErrorPatternsに一致: 可
//  5. それ以外: 不可
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if ae, ok := model.AsAppError(err); ok {
		retryable, _ := statusRetryable(ae.StatusCode)
		return retryable
	}

	var coder HTTPStatusCoder
	if errors.As(err, &coder) {
		if retryable, decided := statusRetryable(coder.HTTPStatusCode()); decided {
			return retryable
		}
	}

	for _, errno := range transientErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}

	// DNS解決失敗（名前が見つからない・一時的失敗）も一時的エラーとして扱う
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range networkErrorPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}

// CalculateBackoff はn回目（0始まり）の失敗後の待機時間を計算する。
// min(InitialDelay × Multiplier^attempt, MaxDelay)。
func CalculateBackoff(attempt int, opts Options) time.Duration {
	delay := float64(opts.InitialDelay) * math.Pow(opts.Multiplier, float64(attempt))
	if delay < 0 || delay > float64(opts.MaxDelay) {
		return opts.MaxDelay
	}
	return time.Duration(delay)
}

// Do はopを実行し、再試行可能な失敗をバックオフを挟んで再試行する。
// 成功した時点の値を返す。再試行不能なエラーは即座に返し、
// 回数を使い切った場合は最後に観測したエラーを返す。
// 試行は厳密に逐次で、待機はコンテキストのキャンセルで中断できる。
func Do[T any](ctx context.Context, opts Options, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		value, err := op(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}
		if attempt >= opts.MaxRetries {
			return zero, err
		}

		delay := CalculateBackoff(attempt, opts)
		if opts.OnRetry != nil {
			opts.OnRetry(attempt, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}
