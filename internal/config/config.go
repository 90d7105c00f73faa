package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv" // .envファイルを読み込むため
)

// Config はアプリケーション全体の設定値です。
type Config struct {
	Env                 string        // APP_ENV
	Port                string        // PORT
	DatabaseURL         string        // DATABASE_URL（空ならリザルトを保存しない）
	JWTSecret           string        // SUPABASE_JWT_SECRET
	BypassAuth          bool          // BYPASS_AUTH=true で認証をスキップ（テスト用）
	AllowedOrigins      []string      // ALLOWED_ORIGINS（カンマ区切り）
	TickInterval        time.Duration // TICK_INTERVAL_MS: サーバーのゲームループ1ティックの長さ
	BroadcastEveryTicks int           // BROADCAST_EVERY_TICKS: 何ティックごとに状態を送るか
}

// デフォルト値
const (
	DefaultPort                = "8080"
	DefaultTickIntervalMS      = 16
	DefaultBroadcastEveryTicks = 3
)

var defaultAllowedOrigins = []string{"http://localhost:3000"}

// Load は環境変数から設定を読み込みます。
// 本番環境以外では、先に .env ファイルを読み込みます（存在しなくてもエラーにはしません）。
//
// Returns:
//   *Config: 読み込んだ設定
//   error: 数値の環境変数が不正な場合
func Load() (*Config, error) {
	env := os.Getenv("APP_ENV")
	if env != "production" {
		if err := godotenv.Load(); err != nil {
			log.Printf("[Config] .env file not loaded: %v", err)
		}
	}

	cfg := &Config{
		Env:                 env,
		Port:                getEnv("PORT", DefaultPort),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		JWTSecret:           os.Getenv("SUPABASE_JWT_SECRET"),
		BypassAuth:          os.Getenv("BYPASS_AUTH") == "true",
		AllowedOrigins:      splitList(os.Getenv("ALLOWED_ORIGINS")),
		TickInterval:        DefaultTickIntervalMS * time.Millisecond,
		BroadcastEveryTicks: DefaultBroadcastEveryTicks,
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = defaultAllowedOrigins
	}

	if v := os.Getenv("TICK_INTERVAL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("TICK_INTERVAL_MS が不正です (%q): 正の整数を指定してください", v)
		}
		cfg.TickInterval = time.Duration(ms) * time.Millisecond
	}

	if v := os.Getenv("BROADCAST_EVERY_TICKS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("BROADCAST_EVERY_TICKS が不正です (%q): 正の整数を指定してください", v)
		}
		cfg.BroadcastEveryTicks = n
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
