package model

import (
	"errors"
	"fmt"
	"net/http"
)

// 定義済みエラーコード
const (
	ErrCodeNotFound = "NOT_FOUND"
	ErrCodeGateway  = "GATEWAY_ERROR"
	ErrCodeTimeout  = "TIMEOUT"
)

// GenericErrorMessage は非運用エラーをユーザーへ返すときの定型メッセージ。
// 内部バグの生メッセージを境界の外へ漏らさないために使用する。
const GenericErrorMessage = "内部エラーが発生しました。しばらく待ってから再度お試しください。"

// AppError は運用上想定されるエラーの統一フォーマットを表す。
// エラー種別ごとに固定の外向きHTTPステータスを持つ。
type AppError struct {
	Code       string // エラーコード
	Message    string // エラーメッセージ
	StatusCode int    // 外向きHTTPステータス

	// Operational は想定内の運用エラー（メッセージをそのまま提示してよい）か、
	// プログラミングエラー（定型文に差し替える）かを区別する。
	Operational bool
}

// Error はerrorインターフェースを実装する。
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NewNotFoundError はリソース未検出エラー（404相当）を生成する。
// アップストリームの404応答、またはnullアイテム応答に対応する。
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Code:        ErrCodeNotFound,
		Message:     message,
		StatusCode:  http.StatusNotFound,
		Operational: true,
	}
}

// NewGatewayError はアップストリーム異常応答エラー（502相当）を生成する。
// 404以外の非2xxステータスに対応する。
func NewGatewayError(message string) *AppError {
	return &AppError{
		Code:        ErrCodeGateway,
		Message:     message,
		StatusCode:  http.StatusBadGateway,
		Operational: true,
	}
}

// NewTimeoutError はローカルタイムアウトエラー（504相当）を生成する。
func NewTimeoutError(message string) *AppError {
	return &AppError{
		Code:        ErrCodeTimeout,
		Message:     message,
		StatusCode:  http.StatusGatewayTimeout,
		Operational: true,
	}
}

// AsAppError はエラーチェーンからAppErrorを取り出す。
// 一般のエラーと型付き運用エラーを区別する分類器として使用する。
func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsNotFound はエラーがリソース未検出かを判定する。
func IsNotFound(err error) bool {
	ae, ok := AsAppError(err)
	return ok && ae.Code == ErrCodeNotFound
}

// IsTimeout はエラーがローカルタイムアウトかを判定する。
func IsTimeout(err error) bool {
	ae, ok := AsAppError(err)
	return ok && ae.Code == ErrCodeTimeout
}

// UserFacingMessage はエラーからユーザーに提示してよいメッセージを返す。
// 運用エラー以外は定型文に差し替える。
func UserFacingMessage(err error) string {
	if ae, ok := AsAppError(err); ok && ae.Operational {
		return ae.Message
	}
	return GenericErrorMessage
}
