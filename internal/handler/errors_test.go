package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/identityx/internal/model"
)

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"他ユーザーの接続", model.NewConnectionNotFoundError(), http.StatusNotFound, model.ErrCodeConnectionNotFound},
		{"ラップされた入力エラー", fmt.Errorf("create: %w", model.NewInvalidConnectionError("provider is required")), http.StatusBadRequest, model.ErrCodeInvalidConnection},
		{"重複サインアップ", model.NewUserAlreadyExistsError(), http.StatusConflict, model.ErrCodeUserAlreadyExists},
		{"ログイン失敗", model.NewInvalidCredentialsError(), http.StatusUnauthorized, model.ErrCodeInvalidCredentials},
		{"サマリー集計失敗", model.NewSummaryUnavailableError(), http.StatusServiceUnavailable, model.ErrCodeSummaryUnavailable},
		{"未登録のコード", &model.APIError{Code: "SOMETHING_NEW", Category: "system"}, http.StatusInternalServerError, "SOMETHING_NEW"},
		{"APIError以外", errors.New("pq: connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			handleServiceError(w, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if strings.Contains(w.Body.String(), "pq:") {
				t.Error("internal error details must not leak into the response")
			}
			if code := parseAPIErrorResponse(t, w)["code"]; code != tt.wantCode {
				t.Errorf("code = %q, want %q", code, tt.wantCode)
			}
		})
	}
}

func TestDecodeJSONBody_InvalidJSON(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/connections", strings.NewReader(`{"provider":`))

	var dst struct{ Provider string }
	if decodeJSONBody(w, r, &dst) {
		t.Fatal("decodeJSONBody should fail for truncated JSON")
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if code := parseAPIErrorResponse(t, w)["code"]; code != model.ErrCodeInvalidRequest {
		t.Errorf("code = %q, want %q", code, model.ErrCodeInvalidRequest)
	}
}
