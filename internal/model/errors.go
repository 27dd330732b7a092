// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// JSONにはこの4フィールドだけがそのまま出る。
type APIError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"` // auth, validation, connection, event, system
	Action   string `json:"action"`   // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeConnectionNotFound = "CONNECTION_NOT_FOUND"
	ErrCodeInvalidConnection  = "INVALID_CONNECTION"
	ErrCodeInvalidEvent       = "INVALID_EVENT"
	ErrCodeInvalidSignup      = "INVALID_SIGNUP"
	ErrCodeUserAlreadyExists  = "USER_ALREADY_EXISTS"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeSummaryUnavailable = "SUMMARY_UNAVAILABLE"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeCSRFTokenInvalid   = "CSRF_TOKEN_INVALID"
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
)

// NewConnectionNotFoundError は接続が見つからない場合のエラーを生成する。
// 存在しない場合と他ユーザーの所有である場合を区別しないため、IDはメッセージに含めない。
func NewConnectionNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeConnectionNotFound,
		Message:  "指定された接続が見つかりません。",
		Category: "connection",
		Action:   "接続一覧を再読み込みしてください。",
	}
}

// NewInvalidConnectionError は接続の入力値が不正な場合のエラーを生成する。
func NewInvalidConnectionError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidConnection,
		Message:  fmt.Sprintf("接続の入力内容が不正です: %s", reason),
		Category: "validation",
		Action:   "プロバイダー名とアカウント名を入力してください。",
	}
}

// NewInvalidEventError はイベントの入力値が不正な場合のエラーを生成する。
func NewInvalidEventError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEvent,
		Message:  fmt.Sprintf("イベントの入力内容が不正です: %s", reason),
		Category: "validation",
		Action:   "イベント種別には login または logout を指定してください。",
	}
}

// NewInvalidSignupError はサインアップの入力値が不正な場合のエラーを生成する。
func NewInvalidSignupError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSignup,
		Message:  fmt.Sprintf("サインアップの入力内容が不正です: %s", reason),
		Category: "validation",
		Action:   "メールアドレスとパスワードを入力してください。",
	}
}

// NewUserAlreadyExistsError は同じメールアドレスのユーザーが既に存在する場合のエラーを生成する。
func NewUserAlreadyExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeUserAlreadyExists,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "ログイン画面からログインしてください。",
	}
}

// NewInvalidCredentialsError はログイン情報が一致しない場合のエラーを生成する。
// ユーザーが存在しない場合とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewSummaryUnavailableError はサマリーの集計に必要なデータを取得できなかった場合のエラーを生成する。
// 部分的な結果は返さない。
func NewSummaryUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeSummaryUnavailable,
		Message:  "アクティビティの集計に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidRequestError はリクエストボディをJSONとして読めない場合のエラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewCSRFTokenInvalidError はdouble-submitトークンの検証失敗を表す。
func NewCSRFTokenInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFTokenInvalid,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "auth",
		Action:   "CSRFトークンを再取得してから再試行してください。",
	}
}

func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。しばらくしてから再試行してください。",
		Category: "system",
		Action:   "Retry-Afterの秒数が経過してから再試行してください。",
	}
}
