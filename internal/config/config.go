// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL       string
	StoreQueryTimeout time.Duration

	// Session
	SessionSecret          string
	SessionMaxAge          int
	SessionCleanupInterval time.Duration
	BcryptCost             int

	// Rate Limit（1分あたりのリクエスト数）
	RateLimitGeneral int
	RateLimitAuth    int

	// Notification
	RedisURL string

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

var requiredKeys = []string{"DATABASE_URL", "SESSION_SECRET", "BASE_URL"}

var defaults = map[string]any{
	"SERVER_PORT":              "8080",
	"SESSION_MAX_AGE":          3600,
	"BCRYPT_COST":              12,
	"STORE_QUERY_TIMEOUT":      5 * time.Second,
	"RATE_LIMIT_GENERAL":       120,
	"RATE_LIMIT_AUTH":          10,
	"SESSION_CLEANUP_INTERVAL": time.Hour,
	"REDIS_URL":                "",
	"LOG_LEVEL":                "info",
	"COOKIE_DOMAIN":            "",
	"CORS_ALLOWED_ORIGIN":      "http://localhost:5173",
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込むが、既存の環境変数は上書きしない。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	return load(newViper())
}

// loadDotEnv は.envファイルを読み込む。ファイルが存在しない場合は何もしない。
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	return v
}

func load(v *viper.Viper) (*Config, error) {
	var missing []string
	for _, key := range requiredKeys {
		if strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg := &Config{
		DatabaseURL:   v.GetString("DATABASE_URL"),
		SessionSecret: v.GetString("SESSION_SECRET"),
		BaseURL:       v.GetString("BASE_URL"),

		ServerPort:             stringOr(v, "SERVER_PORT"),
		SessionMaxAge:          intOr(v, "SESSION_MAX_AGE"),
		BcryptCost:             intOr(v, "BCRYPT_COST"),
		StoreQueryTimeout:      durationOr(v, "STORE_QUERY_TIMEOUT"),
		RateLimitGeneral:       intOr(v, "RATE_LIMIT_GENERAL"),
		RateLimitAuth:          intOr(v, "RATE_LIMIT_AUTH"),
		SessionCleanupInterval: durationOr(v, "SESSION_CLEANUP_INTERVAL"),
		RedisURL:               v.GetString("REDIS_URL"),
		LogLevel:               stringOr(v, "LOG_LEVEL"),
		CookieDomain:           v.GetString("COOKIE_DOMAIN"),
		CORSAllowedOrigin:      stringOr(v, "CORS_ALLOWED_ORIGIN"),
	}
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")

	return cfg, nil
}

// stringOr は値が空の場合にデフォルト値を返す。
func stringOr(v *viper.Viper, key string) string {
	if s := strings.TrimSpace(v.GetString(key)); s != "" {
		return s
	}
	return cast.ToString(defaults[key])
}

// intOr は正の整数に変換できない値をデフォルト値に置き換える。
func intOr(v *viper.Viper, key string) int {
	i, err := cast.ToIntE(v.Get(key))
	if err != nil || i <= 0 {
		return cast.ToInt(defaults[key])
	}
	return i
}

// durationOr は "5s" のような形式の値を変換する。不正な値はデフォルト値になる。
func durationOr(v *viper.Viper, key string) time.Duration {
	d, err := cast.ToDurationE(v.Get(key))
	if err != nil || d <= 0 {
		return cast.ToDuration(defaults[key])
	}
	return d
}
