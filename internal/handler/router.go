package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/identityx/internal/metrics"
	"github.com/hitoshi/identityx/internal/middleware"
	"github.com/hitoshi/identityx/internal/notify"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// 運用
	HealthChecker   HealthChecker
	MetricsGatherer prometheus.Gatherer
	HTTPMetrics     middleware.StatusRecorder
	Logger          *slog.Logger

	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	TokenParser       middleware.TokenParser
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 接続
	ConnectionService    ConnectionServiceInterface
	ConnectionSubscriber notify.Subscriber
	StreamCloser         *StreamCloser // サーバー停止時にSSEストリームを終了させる

	// イベント・サマリー
	EventService   EventServiceInterface
	SummaryService SummaryServiceInterface

	// ユーザー
	UserService UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → SecurityHeaders → Metrics → CORS
//	  公開ルート:   Logging → RateLimit(Auth)
//	  認証ルート:   Session → Logging → RateLimit(General) → CSRF
//
// /health と /metrics はアクセスログの対象外とする。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rateLimiter := deps.RateLimiter
	if rateLimiter == nil {
		rateLimiter = middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware(middleware.SecurityHeadersConfig{HSTS: deps.AuthConfig.CookieSecure}))
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	connHandler := NewConnectionHandler(deps.ConnectionService, deps.ConnectionSubscriber).CloseStreamsWith(deps.StreamCloser)
	eventHandler := NewEventHandler(deps.EventService, deps.SummaryService)
	userHandler := NewUserHandler(deps.UserService, deps.AuthConfig)

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- 認証不要のルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewLoggingMiddleware(logger))

		r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(rateLimiter.AuthMiddleware())
			r.Post("/api/auth/signup", authHandler.Signup)
			r.Post("/api/auth/login", authHandler.Login)
		})
	})

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder, deps.TokenParser))
		r.Use(middleware.NewLoggingMiddleware(logger))
		r.Use(rateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Post("/api/auth/logout", authHandler.Logout)
		r.Get("/api/auth/me", authHandler.Me)

		// 接続管理
		r.Route("/api/connections", func(r chi.Router) {
			r.Get("/", connHandler.ListConnections)
			r.Post("/", connHandler.CreateConnection)
			r.Get("/stream", connHandler.StreamConnectionChanges)
			r.Delete("/{id}", connHandler.DeleteConnection)
		})

		// イベント
		r.Route("/api/events", func(r chi.Router) {
			r.Post("/", eventHandler.RecordEvent)
			r.Get("/summary", eventHandler.GetSummary)
			r.Get("/summary/{range}", eventHandler.GetSummary)
			r.Get("/{connectionId}", eventHandler.ListConnectionEvents)
		})

		// ユーザー管理
		r.Delete("/api/users/me", userHandler.Withdraw)
	})

	return r
}
