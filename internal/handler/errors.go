package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/identityx/internal/middleware"
	"github.com/hitoshi/identityx/internal/model"
)

// statusByErrorCode はサービス層のエラーコードとHTTPステータスの対応。
// 未登録のコードは500として扱う。
var statusByErrorCode = map[string]int{
	model.ErrCodeConnectionNotFound: http.StatusNotFound,
	model.ErrCodeUserNotFound:       http.StatusNotFound,
	model.ErrCodeInvalidConnection:  http.StatusBadRequest,
	model.ErrCodeInvalidEvent:       http.StatusBadRequest,
	model.ErrCodeInvalidSignup:      http.StatusBadRequest,
	model.ErrCodeInvalidRequest:     http.StatusBadRequest,
	model.ErrCodeUserAlreadyExists:  http.StatusConflict,
	model.ErrCodeInvalidCredentials: http.StatusUnauthorized,
	model.ErrCodeSummaryUnavailable: http.StatusServiceUnavailable,
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSONBody はリクエストボディをdstに読み込む。
// 読めなければ400 INVALID_REQUESTを書き込んでfalseを返す。
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return false
	}
	return true
}

// requireUserID はセッションミドルウェアが注入したユーザーIDを返す。
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorized(w)
		return "", false
	}
	return userID, true
}

// handleServiceError はサービス層のエラーを統一エラーフォーマットで返す。
// *model.APIError以外は詳細をログにだけ残し、500 INTERNAL_ERRORにする。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("internal server error", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	status, ok := statusByErrorCode[apiErr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		slog.Error("service unavailable", slog.String("code", apiErr.Code))
	}
	middleware.WriteErrorResponse(w, status, apiErr)
}
