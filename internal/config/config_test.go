package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	kitcfg "github.com/shouni/go-menu-kit/pkg/config"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Run("環境変数が未設定ならデフォルト値を使うこと", func(t *testing.T) {
		for _, k := range []string{"MENULENS_API_BASE_URL", "MENULENS_HTTP_TIMEOUT", "MENULENS_CONCURRENCY", "MENULENS_LOG_LEVEL", "MENULENS_REDIS_ADDR"} {
			t.Setenv(k, "")
			os.Unsetenv(k)
		}
		cfg := LoadConfig()
		assert.Equal(t, kitcfg.DefaultAPIBaseURL, cfg.APIBaseURL)
		assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
		assert.Equal(t, kitcfg.DefaultConcurrency, cfg.Concurrency)
		assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
		assert.NotEmpty(t, cfg.SettingsFile)
	})

	t.Run("環境変数の値を解釈すること", func(t *testing.T) {
		t.Setenv("MENULENS_API_BASE_URL", "http://backend:9000")
		t.Setenv("MENULENS_HTTP_TIMEOUT", "90")
		t.Setenv("MENULENS_CONCURRENCY", "5")
		t.Setenv("MENULENS_LOG_LEVEL", "debug")
		t.Setenv("MENULENS_REDIS_TTL", "2h")

		cfg := LoadConfig()
		assert.Equal(t, "http://backend:9000", cfg.APIBaseURL)
		assert.Equal(t, 90*time.Second, cfg.HTTPTimeout)
		assert.Equal(t, 5, cfg.Concurrency)
		assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
		assert.Equal(t, 2*time.Hour, cfg.RedisCacheTTL)
	})

	t.Run("不正な値は無視すること", func(t *testing.T) {
		t.Setenv("MENULENS_CONCURRENCY", "many")
		t.Setenv("MENULENS_HTTP_TIMEOUT", "soon")
		cfg := LoadConfig()
		assert.Equal(t, kitcfg.DefaultConcurrency, cfg.Concurrency)
		assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
	})
}

func TestConfig_KitConfig(t *testing.T) {
	cfg := &Config{
		APIBaseURL:  "http://backend:9000",
		HTTPTimeout: 45 * time.Second,
		Concurrency: 4,
		Options: Options{
			Concurrency:     2,
			TargetLanguage:  "Japanese",
			DisplayCurrency: "EUR",
			Title:           "Lunch",
		},
	}

	kc := cfg.KitConfig()
	assert.Equal(t, "http://backend:9000", kc.APIBaseURL)
	assert.Equal(t, 45*time.Second, kc.RequestTimeout)
	assert.Equal(t, 2, kc.Concurrency, "CLI フラグは環境変数より優先されるべきです")
	assert.Equal(t, "Japanese", kc.TargetLanguage)
	assert.Equal(t, "EUR", kc.DisplayCurrency)
	assert.Equal(t, "Lunch", kc.GalleryTitle)
	assert.Equal(t, kitcfg.DefaultRateBurst, kc.RateBurst)
}
