package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shouni/go-menu-kit/pkg/asset"
	kitcfg "github.com/shouni/go-menu-kit/pkg/config"

	"github.com/joho/godotenv"
	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義
const (
	DefaultHTTPTimeout    = kitcfg.DefaultRequestTimeout
	DefaultOutputDir      = asset.DefaultOutputDir
	DefaultDishesFile     = "output/" + asset.DefaultDishesJSON
	DefaultChatLogFile    = "output/" + asset.DefaultChatLogName
	DefaultListenAddr     = "127.0.0.1:8080"
	DefaultSettingsDir    = ".menulens"
	DefaultSettingsFile   = "settings.json"
	DefaultRedisCacheTTL  = 24 * time.Hour
	DefaultShutdownPeriod = 10 * time.Second
)

// Config はアプリケーション全体の環境設定を保持する構造体です。
type Config struct {
	APIBaseURL    string
	HTTPTimeout   time.Duration
	SettingsFile  string
	RedisAddr     string
	RedisCacheTTL time.Duration
	Concurrency   int
	GeminiAPIKey  string // 設定されている場合は --direct チャットが利用可能
	LogLevel      slog.Level

	Options Options
}

// LoadDotEnv はカレントディレクトリの .env を環境変数に読み込みます。ファイルがなければ何もしません。
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env", "error", err)
	}
}

// LoadConfig は環境変数から設定を読み込み、構造体を返します。
func LoadConfig() *Config {
	cfg := &Config{
		APIBaseURL:    envutil.GetEnv("MENULENS_API_BASE_URL", kitcfg.DefaultAPIBaseURL),
		HTTPTimeout:   envDuration("MENULENS_HTTP_TIMEOUT", DefaultHTTPTimeout),
		SettingsFile:  envutil.GetEnv("MENULENS_SETTINGS_FILE", defaultSettingsPath()),
		RedisAddr:     envutil.GetEnv("MENULENS_REDIS_ADDR", ""),
		RedisCacheTTL: envDuration("MENULENS_REDIS_TTL", DefaultRedisCacheTTL),
		Concurrency:   envInt("MENULENS_CONCURRENCY", kitcfg.DefaultConcurrency),
		GeminiAPIKey:  envutil.GetEnv("GEMINI_API_KEY", ""),
		LogLevel:      envLogLevel("MENULENS_LOG_LEVEL", slog.LevelInfo),
	}
	return cfg
}

// KitConfig は環境設定と CLI オプションから pkg/config の設定を組み立てます。
func (c *Config) KitConfig() kitcfg.Config {
	kc := kitcfg.DefaultConfig()
	kc.APIBaseURL = c.APIBaseURL
	kc.RequestTimeout = c.HTTPTimeout
	kc.RedisAddr = c.RedisAddr
	if c.Concurrency > 0 {
		kc.Concurrency = c.Concurrency
	}

	o := c.Options
	if o.Concurrency > 0 {
		kc.Concurrency = o.Concurrency
	}
	if o.RateInterval > 0 {
		kc.RateInterval = o.RateInterval
	}
	if o.TargetLanguage != "" {
		kc.TargetLanguage = o.TargetLanguage
	}
	if o.SourceCurrency != "" {
		kc.SourceCurrency = o.SourceCurrency
	}
	if o.DisplayCurrency != "" {
		kc.DisplayCurrency = o.DisplayCurrency
	}
	if o.Title != "" {
		kc.GalleryTitle = o.Title
	}
	return kc
}

// Options は CLI フラグから渡される実行時のパラメータです。
type Options struct {
	// 入力関連
	ImageFile  string // --image: メニュー写真のパスまたはURL
	DishesFile string // --dishes-file: 保存済みの解析結果
	Message    string // --message: チャットの質問
	ChatLog    string // --chat-log
	ChatMode   string // --mode: chat または recommend

	// 出力関連
	OutputDir string // --output-dir
	Title     string // --title

	// 解析・表示設定
	TargetLanguage  string // --lang
	SourceCurrency  string // --source-currency
	DisplayCurrency string // --currency
	Full            bool   // --full: 画像検索まで含めた一括解析を使う
	SkipImages      bool   // --skip-images
	ProxyImages     bool   // --proxy-images

	// 実行制御
	Concurrency  int           // --concurrency
	RateInterval time.Duration // --rate-interval
	Direct       bool          // --direct: チャットを Gemini で直接処理する
	ListenAddr   string        // --addr
	Demo         bool          // --demo
}

func defaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(DefaultSettingsDir, DefaultSettingsFile)
	}
	return filepath.Join(home, DefaultSettingsDir, DefaultSettingsFile)
}

func envInt(key string, def int) int {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Ignoring invalid integer in environment", "key", key, "value", raw)
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	// 単位なしは秒として扱う
	if sec, err := strconv.Atoi(raw); err == nil {
		return time.Duration(sec) * time.Second
	}
	slog.Warn("Ignoring invalid duration in environment", "key", key, "value", raw)
	return def
}

func envLogLevel(key string, def slog.Level) slog.Level {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(raw)); err != nil {
		slog.Warn("Ignoring invalid log level in environment", "key", key, "value", raw)
		return def
	}
	return lvl
}
