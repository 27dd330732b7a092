// Package app はサブコマンドごとの依存関係の組み立てとプロセスのライフサイクルを管理する。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/identityx/internal/auth"
	"github.com/hitoshi/identityx/internal/config"
	"github.com/hitoshi/identityx/internal/connection"
	"github.com/hitoshi/identityx/internal/database"
	"github.com/hitoshi/identityx/internal/event"
	"github.com/hitoshi/identityx/internal/handler"
	"github.com/hitoshi/identityx/internal/logger"
	"github.com/hitoshi/identityx/internal/metrics"
	"github.com/hitoshi/identityx/internal/middleware"
	"github.com/hitoshi/identityx/internal/notify"
	"github.com/hitoshi/identityx/internal/repository"
	"github.com/hitoshi/identityx/internal/security"
	"github.com/hitoshi/identityx/internal/summary"
	"github.com/hitoshi/identityx/internal/user"
	"github.com/hitoshi/identityx/internal/worker/cleanup"
)

const (
	dbPingTimeout   = 5 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込んでログレベルを反映する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		_ = logger.SetLevel("info")
		slog.Warn("invalid LOG_LEVEL, using info", slog.String("error", err.Error()))
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// ctxが終了するとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Ping(ctx, db, dbPingTimeout); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established")

	notifier, closeNotifier, err := newNotifier(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeNotifier()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	rateLimiter := middleware.NewRateLimiter(
		middleware.PerMinuteRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth),
	)
	defer rateLimiter.Stop()

	streams := handler.NewStreamCloser()
	deps := buildRouterDeps(cfg, db, notifier, collector, reg, rateLimiter)
	deps.StreamCloser = streams
	server := newHTTPServer(":"+cfg.ServerPort, handler.NewRouter(deps), streams)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// newHTTPServer はAPIサーバーを生成する。
// Shutdown開始時にstreamsを閉じ、SSEストリームが停止を妨げないようにする。
func newHTTPServer(addr string, h http.Handler, streams *handler.StreamCloser) *http.Server {
	server := &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	if streams != nil {
		server.RegisterOnShutdown(streams.Close)
	}
	return server
}

// buildRouterDeps はリポジトリ、サービス、アダプタを組み立ててRouterDepsを返す。
func buildRouterDeps(
	cfg *config.Config,
	db *sql.DB,
	notifier notify.Notifier,
	collector *metrics.Collector,
	gatherer prometheus.Gatherer,
	rateLimiter *middleware.RateLimiter,
) *handler.RouterDeps {
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	connRepo := repository.NewPostgresConnectionRepo(db)
	eventRepo := repository.NewPostgresEventRepo(db)

	tokens := auth.NewTokenIssuer(cfg.SessionSecret)
	authService := auth.NewService(userRepo, sessionRepo, tokens, auth.ServiceConfig{
		SessionMaxAge: cfg.SessionMaxAge,
		BcryptCost:    cfg.BcryptCost,
	})

	connService := connection.NewService(connRepo, security.NewInputSanitizer(), notifier, slog.Default())
	eventService := event.NewService(eventRepo, connService, collector)
	summaryService := summary.NewService(connRepo, eventRepo, collector, slog.Default(), cfg.StoreQueryTimeout)
	userService := user.NewService(userRepo, sessionRepo, eventRepo, connRepo)

	return &handler.RouterDeps{
		HealthChecker:   db,
		MetricsGatherer: gatherer,
		HTTPMetrics:     collector,
		Logger:          slog.Default(),

		SessionFinder:     sessionRepo,
		TokenParser:       tokens,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig:        middleware.CSRFConfig{CookieSecure: cfg.CookieSecure, CookieDomain: cfg.CookieDomain},
		RateLimiter:       rateLimiter,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		ConnectionService:    handler.NewConnectionServiceAdapter(connService),
		ConnectionSubscriber: notifier,

		EventService:   handler.NewEventServiceAdapter(eventService),
		SummaryService: handler.NewSummaryServiceAdapter(summaryService),

		UserService: handler.NewUserServiceAdapter(userService),
	}
}

// newNotifier はREDIS_URLが設定されていればRedis、なければプロセス内のNotifierを返す。
func newNotifier(ctx context.Context, cfg *config.Config) (notify.Notifier, func(), error) {
	if cfg.RedisURL == "" {
		slog.Info("REDIS_URL is not set, using in-process connection notifier")
		return notify.NewLocalNotifier(), func() {}, nil
	}

	client, err := notify.OpenRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Info("redis connection established")

	return notify.NewRedisNotifier(client, slog.Default()), func() { client.Close() }, nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションの削除をSESSION_CLEANUP_INTERVALごとに実行し、ctxが終了すると停止する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Ping(ctx, db, dbPingTimeout); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established (worker)")

	slog.Info("worker starting",
		slog.Duration("session_cleanup_interval", cfg.SessionCleanupInterval),
	)

	cleanup.NewCleanupJob(db, slog.Default()).RunEvery(ctx, cfg.SessionCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	result, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("schema_version", uint64(result.Version)),
		slog.Bool("applied", result.Applied),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
func runHealthcheck(port string) error {
	return checkHealth(fmt.Sprintf("http://localhost:%s/health", port))
}

func checkHealth(endpoint string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
