package builder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shouni/go-menu-kit/internal/config"
	kitcfg "github.com/shouni/go-menu-kit/pkg/config"
	"github.com/shouni/go-menu-kit/pkg/imagecache"
	"github.com/shouni/go-menu-kit/pkg/settings"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeImageCache(t *testing.T) {
	ctx := context.Background()

	t.Run("Redis 未設定ならインメモリのみ", func(t *testing.T) {
		c, closers := InitializeImageCache(ctx, kitcfg.DefaultConfig(), time.Hour)
		assert.IsType(t, &imagecache.Memory{}, c)
		assert.Empty(t, closers)
	})

	t.Run("Redis に接続できなければインメモリにフォールバックする", func(t *testing.T) {
		kc := kitcfg.DefaultConfig()
		kc.RedisAddr = "127.0.0.1:1"
		c, closers := InitializeImageCache(ctx, kc, time.Hour)
		assert.IsType(t, &imagecache.Memory{}, c)
		assert.Empty(t, closers)
	})

	t.Run("Redis に接続できればメモリと Redis を重ねる", func(t *testing.T) {
		mr := miniredis.RunT(t)
		kc := kitcfg.DefaultConfig()
		kc.RedisAddr = mr.Addr()
		c, closers := InitializeImageCache(ctx, kc, time.Hour)
		require.Len(t, closers, 1)
		defer closers[0].Close()
		assert.IsType(t, &imagecache.Chain{}, c)

		require.NoError(t, c.Set(ctx, "k", imagecache.Entry{ImageURL: "https://img.example/a.jpg"}))
		assert.True(t, mr.Exists("menulens:image:k"), "Redis にも保存されるべきです")
	})
}

func TestBuildAppContext(t *testing.T) {
	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "settings.json")
	require.NoError(t, settings.NewStore(settingsPath).Save(settings.Settings{LLMModel: "saved-model"}))

	cfg := &config.Config{
		APIBaseURL:   "http://127.0.0.1:8000",
		HTTPTimeout:  5 * time.Second,
		SettingsFile: settingsPath,
		Options:      config.Options{DisplayCurrency: "EUR"},
	}
	appCtx, err := BuildAppContext(context.Background(), cfg)
	require.NoError(t, err)
	defer appCtx.Close()

	assert.Equal(t, "saved-model", appCtx.Workflow.Client().Settings().LLMModel, "保存済みの設定がクライアントに注入されるべきです")
	assert.Equal(t, "EUR", appCtx.Options.DisplayCurrency)
	assert.Equal(t, settingsPath, appCtx.Settings.Path())
	assert.False(t, appCtx.Workflow.HasDirectChat())

	t.Run("不正なベースURLはエラーになる", func(t *testing.T) {
		bad := *cfg
		bad.APIBaseURL = "not a url"
		_, err := BuildAppContext(context.Background(), &bad)
		assert.Error(t, err)
	})
}
