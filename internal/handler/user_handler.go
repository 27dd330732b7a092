package handler

import (
	"context"
	"net/http"
)

// UserServiceInterface は退会処理だけを要求する。
// 所有データはevents、connections、sessions、usersの順に消える。
type UserServiceInterface interface {
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler は /api/users 配下を扱う。
type UserHandler struct {
	service UserServiceInterface
	cookies AuthHandlerConfig
}

// NewUserHandler のcookiesはログイン時と同じDomain/Secureで失効Cookieを出すために渡す。
func NewUserHandler(service UserServiceInterface, cookies AuthHandlerConfig) *UserHandler {
	return &UserHandler{
		service: service,
		cookies: cookies,
	}
}

// Withdraw は DELETE /api/users/me。失敗時はCookieを残し、再試行できるようにする。
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}
	clearSessionCookie(w, h.cookies)
	w.WriteHeader(http.StatusNoContent)
}
