package config

import (
	"time"
)

// デフォルト値の定義
const (
	DefaultAPIBaseURL      = "http://127.0.0.1:8000"
	DefaultRequestTimeout  = 60 * time.Second
	DefaultConcurrency     = 3
	DefaultRateInterval    = 0 // 0 はペース制御なし
	DefaultRateBurst       = 2
	DefaultCacheExpiration = 30 * time.Minute
	DefaultCacheCleanup    = 1 * time.Hour
	DefaultTargetLanguage  = "English"
	DefaultDisplayCurrency = "USD"
	DefaultGalleryTitle    = "MenuLens Gallery"
	DefaultChatHistory     = 10
)

// Config は Go Menu Kit の各 Runner を動作させるための基本設定です。
type Config struct {
	// --- Backend Settings ---
	APIBaseURL     string
	RequestTimeout time.Duration

	// --- Image Phase Settings ---
	Concurrency  int           // 画像検索の同時実行数
	RateInterval time.Duration // 画像検索リクエスト間の最小間隔
	RateBurst    int

	// --- Cache Settings ---
	CacheExpiration time.Duration
	CacheCleanup    time.Duration
	RedisAddr       string // 空ならインメモリキャッシュのみ

	// --- Display Settings ---
	TargetLanguage  string
	SourceCurrency  string // 空ならバックエンドの推定に任せる
	DisplayCurrency string
	GalleryTitle    string

	// --- Chat Settings ---
	ChatHistoryLimit int // アシスタントに渡す直近の会話数
}

// DefaultConfig は推奨されるデフォルト設定を返すヘルパー関数です。
func DefaultConfig() Config {
	return Config{
		APIBaseURL:       DefaultAPIBaseURL,
		RequestTimeout:   DefaultRequestTimeout,
		Concurrency:      DefaultConcurrency,
		RateInterval:     DefaultRateInterval,
		RateBurst:        DefaultRateBurst,
		CacheExpiration:  DefaultCacheExpiration,
		CacheCleanup:     DefaultCacheCleanup,
		TargetLanguage:   DefaultTargetLanguage,
		DisplayCurrency:  DefaultDisplayCurrency,
		GalleryTitle:     DefaultGalleryTitle,
		ChatHistoryLimit: DefaultChatHistory,
	}
}
