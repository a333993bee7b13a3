// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// ログ設定
	LogLevel string // debug, info, warn, error

	// ユーザーストア設定
	DatabasePath string // SQLite データベースファイルのパス

	// パスワード設定
	BcryptCost int // bcrypt のコスト係数

	// セッション設定
	SessionSecret           string // セッションクッキー署名用の秘密鍵
	SessionMaxLifetimeHours int    // ログインから強制再ログインまでの時間
	SessionIdleMinutes      int    // 無操作でセッションを破棄するまでの時間

	// ログイン試行制限
	LimiterRedisURL    string // 空ならプロセス内メモリで管理
	LoginMaxAttempts   int
	LoginWindowMinutes int
	LoginLockMinutes   int
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	config := &Config{
		// サーバー設定
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		// CORS設定
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:8080"),

		// ログ設定
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// ユーザーストア設定
		DatabasePath: getEnv("DATABASE_PATH", "trainer_hub.db"),

		// パスワード設定
		BcryptCost: getEnvAsInt("BCRYPT_COST", 10),

		// セッション設定
		SessionSecret:           getEnv("SESSION_SECRET", ""),
		SessionMaxLifetimeHours: getEnvAsInt("SESSION_MAX_LIFETIME_HOURS", 12),
		SessionIdleMinutes:      getEnvAsInt("SESSION_IDLE_MINUTES", 30),

		// ログイン試行制限
		LimiterRedisURL:    getEnv("LIMITER_REDIS_URL", ""),
		LoginMaxAttempts:   getEnvAsInt("LOGIN_MAX_ATTEMPTS", 5),
		LoginWindowMinutes: getEnvAsInt("LOGIN_WINDOW_MINUTES", 15),
		LoginLockMinutes:   getEnvAsInt("LOGIN_LOCK_MINUTES", 10),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.LoginMaxAttempts <= 0 {
		return fmt.Errorf("LOGIN_MAX_ATTEMPTS must be positive")
	}

	// ローカル開発ではセッション鍵は任意（起動時に警告を出す）
	if c.GinMode == "release" {
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in release mode")
		}
		if len(c.SessionSecret) < 32 {
			return fmt.Errorf("SESSION_SECRET must be at least 32 bytes in release mode")
		}
	}

	return nil
}

// SessionMaxLifetime はセッションの最大寿命を返します。
func (c *Config) SessionMaxLifetime() time.Duration {
	return time.Duration(c.SessionMaxLifetimeHours) * time.Hour
}

// SessionIdleTimeout は無操作タイムアウトを返します。
func (c *Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

// LoginWindow は失敗回数を数える期間を返します。
func (c *Config) LoginWindow() time.Duration {
	return time.Duration(c.LoginWindowMinutes) * time.Minute
}

// LoginLockDuration はロック時間を返します。
func (c *Config) LoginLockDuration() time.Duration {
	return time.Duration(c.LoginLockMinutes) * time.Minute
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
