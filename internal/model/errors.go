// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ErrorKind はエラーの種別を表す。
// トランスポート層はこの種別でHTTPステータスコードを選択する。
type ErrorKind int

const (
	// KindUnexpected は分類されないエラー（ストレージ障害など）。
	KindUnexpected ErrorKind = iota
	// KindNotFound は参照先のリソースが存在しないことを示す。
	KindNotFound
	// KindConflict は一意性制約に違反することを示す。
	KindConflict
	// KindInvalidInput は入力の形式が不正であることを示す。
	KindInvalidInput
	// KindRateLimited はリクエスト数が上限を超えたことを示す。
	KindRateLimited
)

// String はErrorKindの名前を返す。
func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidInput:
		return "invalid_input"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "unexpected"
	}
}

// APIError は呼び出し元に提示できるドメインエラーを表す。
// Messageはそのままレスポンスに載せるため、内部情報を含めてはならない。
type APIError struct {
	Kind    ErrorKind // エラー種別
	Code    string    // エラーコード
	Message string    // エラーメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeSubscriberNotFound = "SUBSCRIBER_NOT_FOUND"
	ErrCodeUsernameTaken      = "USERNAME_TAKEN"
	ErrCodeSleepEntryExists   = "SLEEP_ENTRY_EXISTS"
	ErrCodeResourceNotFound   = "RESOURCE_NOT_FOUND"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewSubscriberNotFoundError はユーザー未検出エラーを生成する。
func NewSubscriberNotFoundError(id int64) *APIError {
	return &APIError{
		Kind:    KindNotFound,
		Code:    ErrCodeSubscriberNotFound,
		Message: fmt.Sprintf("User with id %d not found", id),
	}
}

// NewResourceNotFoundError は汎用のリソース未検出エラーを生成する。
func NewResourceNotFoundError() *APIError {
	return &APIError{
		Kind:    KindNotFound,
		Code:    ErrCodeResourceNotFound,
		Message: "Resource not found",
	}
}

// NewUsernameTakenError はユーザー名重複エラーを生成する。
func NewUsernameTakenError(username string) *APIError {
	return &APIError{
		Kind:    KindConflict,
		Code:    ErrCodeUsernameTaken,
		Message: fmt.Sprintf("Username '%s' already exists", username),
	}
}

// NewSleepEntryExistsError は同一日付の睡眠記録が既に存在する場合のエラーを生成する。
func NewSleepEntryExistsError(date Date) *APIError {
	return &APIError{
		Kind:    KindConflict,
		Code:    ErrCodeSleepEntryExists,
		Message: fmt.Sprintf("Sleep log already exists for date %s", date),
	}
}

// NewInvalidRequestError はリクエストの解析に失敗した場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Kind:    KindInvalidInput,
		Code:    ErrCodeInvalidRequest,
		Message: reason,
	}
}

// NewValidationError はフィールド検証エラーを生成する。
// violationsは "field: reason" 形式の文字列。
func NewValidationError(violations []string) *APIError {
	msg := "Validation failed"
	for i, v := range violations {
		if i == 0 {
			msg += ": " + v
		} else {
			msg += ", " + v
		}
	}
	return &APIError{
		Kind:    KindInvalidInput,
		Code:    ErrCodeValidationFailed,
		Message: msg,
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Kind:    KindRateLimited,
		Code:    ErrCodeRateLimited,
		Message: "Too many requests. Please try again later.",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録し、呼び出し元には一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Kind:    KindUnexpected,
		Code:    ErrCodeInternal,
		Message: "An unexpected error occurred",
	}
}

// KindOf はエラーチェーンからAPIErrorを探し、その種別を返す。
// APIErrorを含まない場合はKindUnexpectedを返す。
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnexpected
}
