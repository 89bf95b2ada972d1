package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shouni/go-menu-kit/examples"
	"github.com/shouni/go-menu-kit/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, opts config.Options) *config.Config {
	t.Helper()
	dir := t.TempDir()
	if opts.OutputDir == "" {
		opts.OutputDir = filepath.Join(dir, "output")
	}
	return &config.Config{
		APIBaseURL:   "http://127.0.0.1:1",
		HTTPTimeout:  config.DefaultHTTPTimeout,
		SettingsFile: filepath.Join(dir, "settings.json"),
		Options:      opts,
	}
}

func TestExecuteImageOnly(t *testing.T) {
	ctx := context.Background()

	t.Run("画像が揃っていれば検索せずに公開すること", func(t *testing.T) {
		dir := t.TempDir()
		dishesFile := filepath.Join(dir, "dishes.json")
		require.NoError(t, os.WriteFile(dishesFile, []byte(`[
			{"original_name":"ラーメン","english_name":"Ramen","price":"980","currency":"JPY","image_url":"https://img.example/ramen.jpg"}
		]`), 0o644))

		cfg := testConfig(t, config.Options{DishesFile: dishesFile, Title: "Lunch", DisplayCurrency: "USD"})
		require.NoError(t, ExecuteImageOnly(ctx, cfg))

		md, err := os.ReadFile(filepath.Join(cfg.Options.OutputDir, "gallery.md"))
		require.NoError(t, err)
		assert.Contains(t, string(md), "# Lunch")
		assert.Contains(t, string(md), "980 JPY (≈ $6.47)")

		assert.FileExists(t, filepath.Join(cfg.Options.OutputDir, "dishes.json"))
		assert.FileExists(t, filepath.Join(cfg.Options.OutputDir, "gallery.html"))
	})

	t.Run("解析結果ファイルがなければエラー", func(t *testing.T) {
		cfg := testConfig(t, config.Options{DishesFile: filepath.Join(t.TempDir(), "missing.json")})
		assert.Error(t, ExecuteImageOnly(ctx, cfg))
	})
}

func TestExecuteChat_DirectRequiresKey(t *testing.T) {
	dir := t.TempDir()
	dishesFile := filepath.Join(dir, "dishes.json")
	require.NoError(t, os.WriteFile(dishesFile, examples.DishesJSON, 0o644))

	cfg := testConfig(t, config.Options{
		DishesFile: dishesFile,
		Message:    "Which dishes are vegan?",
		ChatLog:    filepath.Join(dir, "chat.json"),
		Direct:     true,
	})
	_, err := ExecuteChat(context.Background(), cfg)
	assert.Error(t, err)
	assert.NoFileExists(t, cfg.Options.ChatLog, "失敗時は会話履歴を保存しないこと")
}
