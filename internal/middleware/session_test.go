package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/identityx/internal/model"
)

type mockSessionRepository struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

type mockTokenParser struct {
	parseFn func(token string) (string, error)
}

func (m *mockTokenParser) ParseSessionID(token string) (string, error) {
	return m.parseFn(token)
}

// newSessionFixture はsess-aliceとsess-bobだけが有効なセッションストアと、
// "jwt-<セッションID>" 形式のトークンを受け付けるパーサーを返す。
func newSessionFixture() (*mockSessionRepository, *mockTokenParser) {
	users := map[string]string{"sess-alice": "user-alice", "sess-bob": "user-bob"}
	repo := &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			if id == "sess-broken" {
				return nil, context.DeadlineExceeded
			}
			userID, ok := users[id]
			if !ok {
				return nil, nil
			}
			return &model.Session{ID: id, UserID: userID, ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	tokens := &mockTokenParser{
		parseFn: func(token string) (string, error) {
			if len(token) > 4 && token[:4] == "jwt-" {
				return token[4:], nil
			}
			return "", errors.New("token is malformed")
		},
	}
	return repo, tokens
}

func TestSessionMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		cookie        *http.Cookie
		authorization string
		noTokens      bool
		wantUser      string
		wantSession   string
	}{
		{name: "Cookieのセッション", cookie: &http.Cookie{Name: SessionCookieName, Value: "sess-alice"}, wantUser: "user-alice", wantSession: "sess-alice"},
		{name: "Bearerのセッション", authorization: "Bearer jwt-sess-bob", wantUser: "user-bob", wantSession: "sess-bob"},
		{name: "BearerがCookieより優先", cookie: &http.Cookie{Name: SessionCookieName, Value: "sess-alice"}, authorization: "Bearer jwt-sess-bob", wantUser: "user-bob", wantSession: "sess-bob"},
		{name: "認証情報なし"},
		{name: "空のCookie", cookie: &http.Cookie{Name: SessionCookieName, Value: ""}},
		{name: "期限切れまたは削除済みセッション", cookie: &http.Cookie{Name: SessionCookieName, Value: "sess-withdrawn"}},
		{name: "ストア障害", cookie: &http.Cookie{Name: SessionCookieName, Value: "sess-broken"}},
		{name: "不正なBearerはCookieに戻らない", cookie: &http.Cookie{Name: SessionCookieName, Value: "sess-alice"}, authorization: "Bearer stale"},
		{name: "Bearer以外のAuthorization", authorization: "Basic dXNlcjpwYXNz"},
		{name: "パーサーなしでBearer", authorization: "Bearer jwt-sess-bob", noTokens: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, tokens := newSessionFixture()
			var parser TokenParser = tokens
			if tt.noTokens {
				parser = nil
			}

			var gotUser, gotSession string
			handler := NewSessionMiddleware(repo, parser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser, _ = UserIDFromContext(r.Context())
				gotSession, _ = SessionIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if tt.wantUser == "" {
				if w.Code != http.StatusUnauthorized {
					t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
				}
				if code := parseErrorResponse(t, w)["code"]; code != "UNAUTHORIZED" {
					t.Errorf("code = %q, want %q", code, "UNAUTHORIZED")
				}
				return
			}
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			if gotUser != tt.wantUser || gotSession != tt.wantSession {
				t.Errorf("context = (%q, %q), want (%q, %q)", gotUser, gotSession, tt.wantUser, tt.wantSession)
			}
		})
	}
}

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()
	if _, err := UserIDFromContext(ctx); err == nil {
		t.Error("UserIDFromContext on empty context should fail")
	}
	if _, err := SessionIDFromContext(ctx); err == nil {
		t.Error("SessionIDFromContext on empty context should fail")
	}
	if _, err := UserIDFromContext(ContextWithUserID(ctx, "")); err == nil {
		t.Error("empty user ID should be treated as missing")
	}

	ctx = ContextWithSessionID(ContextWithUserID(ctx, "user-alice"), "sess-alice")
	if got, _ := UserIDFromContext(ctx); got != "user-alice" {
		t.Errorf("UserIDFromContext = %q, want %q", got, "user-alice")
	}
	if got, _ := SessionIDFromContext(ctx); got != "sess-alice" {
		t.Errorf("SessionIDFromContext = %q, want %q", got, "sess-alice")
	}
}

func TestHasBearerToken(t *testing.T) {
	tests := map[string]bool{
		"Bearer abc":         true,
		"bearer abc":         false,
		"Basic dXNlcjpwYXNz": false,
		"":                   false,
	}
	for header, want := range tests {
		req := httptest.NewRequest(http.MethodPost, "/api/events", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		if got := hasBearerToken(req); got != want {
			t.Errorf("hasBearerToken(%q) = %v, want %v", header, got, want)
		}
	}
}
