package runner

import (
	"context"
	"log/slog"

	"github.com/shouni/go-menu-kit/pkg/config"
	"github.com/shouni/go-menu-kit/pkg/domain"
	"github.com/shouni/go-menu-kit/pkg/loader"
	"github.com/shouni/go-menu-kit/pkg/session"
)

// DishImageRunner は料理ごとの画像検索を並列に実行します。
type DishImageRunner struct {
	cfg    config.Config
	loader *loader.ImageLoader
	store  *session.Store
}

// NewDishImageRunner は依存関係を注入して初期化します。
func NewDishImageRunner(cfg config.Config, l *loader.ImageLoader, store *session.Store) *DishImageRunner {
	return &DishImageRunner{
		cfg:    cfg,
		loader: l,
		store:  store,
	}
}

// Run は gen の世代の料理について画像を取得し、セッションに反映します。
// 1品ごとの失敗は Summary に数えるだけで、エラーになるのは ctx のキャンセル時のみです。
func (r *DishImageRunner) Run(ctx context.Context, gen session.Generation, dishes domain.Dishes) (loader.Summary, error) {
	slog.InfoContext(ctx, "ImageRunner: Starting dish image search", "dishes", len(dishes), "concurrency", r.cfg.Concurrency)

	sum, err := r.loader.Load(ctx, gen, dishes)
	if err != nil {
		return sum, err
	}
	if sum.Failed > 0 {
		slog.WarnContext(ctx, "Some dishes have no image", "failed", sum.Failed, "total", sum.Total)
	}
	return sum, nil
}

// RunCurrent はセッションの現在の料理リストに対して Run を実行します。
func (r *DishImageRunner) RunCurrent(ctx context.Context) (session.State, loader.Summary, error) {
	snap := r.store.Snapshot()
	sum, err := r.Run(ctx, snap.Generation, snap.Dishes)
	return r.store.Snapshot(), sum, err
}
