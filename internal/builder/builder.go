package builder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shouni/go-menu-kit/internal/config"
	kitcfg "github.com/shouni/go-menu-kit/pkg/config"
	"github.com/shouni/go-menu-kit/pkg/imagecache"
	"github.com/shouni/go-menu-kit/pkg/settings"
	"github.com/shouni/go-menu-kit/pkg/storage"
	"github.com/shouni/go-menu-kit/pkg/workflow"

	"github.com/shouni/go-http-kit/pkg/httpkit"
)

// BuildAppContext は、環境設定と CLI オプションから AppContext を初期化します。
// 保存済みの実行時設定を読み込み、API クライアントに注入します。
func BuildAppContext(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	kc := cfg.KitConfig()
	httpClient := httpkit.New(kc.RequestTimeout)
	local := storage.NewLocal(httpClient)

	settingsStore := settings.NewStore(cfg.SettingsFile)
	st, err := settingsStore.Load()
	if err != nil {
		return nil, fmt.Errorf("実行時設定の読み込みに失敗しました: %w", err)
	}

	cache, closers := InitializeImageCache(ctx, kc, cfg.RedisCacheTTL)

	manager, err := workflow.New(ctx, workflow.ManagerArgs{
		Config:       kc,
		HTTPClient:   httpClient,
		Reader:       local,
		Writer:       local,
		Settings:     st,
		Cache:        cache,
		GeminiAPIKey: cfg.GeminiAPIKey,
		ProxyImages:  cfg.Options.ProxyImages,
	})
	if err != nil {
		return nil, fmt.Errorf("ワークフローの初期化に失敗しました: %w", err)
	}

	slog.DebugContext(ctx, "Application context initialized",
		"api_base_url", kc.APIBaseURL,
		"timeout", kc.RequestTimeout,
		"concurrency", kc.Concurrency,
		"settings_file", settingsStore.Path(),
		"custom_settings", !st.IsEmpty(),
	)

	return NewAppContext(cfg, httpClient, local, local, settingsStore, manager, closers...), nil
}

// InitializeImageCache は画像検索結果のキャッシュを初期化します。
// Redis が設定されていて接続できる場合は、インメモリキャッシュの後段に Redis を重ねます。
func InitializeImageCache(ctx context.Context, kc kitcfg.Config, redisTTL time.Duration) (imagecache.Cache, []io.Closer) {
	mem := imagecache.NewMemory(kc.CacheExpiration, kc.CacheCleanup)
	if kc.RedisAddr == "" {
		return mem, nil
	}

	rc := imagecache.NewRedis(kc.RedisAddr, redisTTL)
	if err := rc.Ping(ctx); err != nil {
		slog.WarnContext(ctx, "Redis is unreachable; using in-memory image cache only", "addr", kc.RedisAddr, "error", err)
		_ = rc.Close()
		return mem, nil
	}

	slog.InfoContext(ctx, "Using Redis as a shared image cache", "addr", kc.RedisAddr, "ttl", redisTTL)
	return imagecache.NewChain(mem, rc), []io.Closer{rc}
}
