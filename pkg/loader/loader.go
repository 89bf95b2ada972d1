// Package loader は、テキスト解析済みの料理に対して代表画像を並列に取得し、
// 取得できた順に共有状態へ反映する画像読み込みフェーズを実装します。
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/shouni/go-menu-kit/pkg/config"
	"github.com/shouni/go-menu-kit/pkg/domain"
	"github.com/shouni/go-menu-kit/pkg/fanout"
	"github.com/shouni/go-menu-kit/pkg/imagecache"
	"github.com/shouni/go-menu-kit/pkg/session"
	"golang.org/x/sync/singleflight"
)

// Searcher は1品分の画像検索を行います。
type Searcher interface {
	SearchDishImage(ctx context.Context, dish domain.Dish) (domain.Dish, error)
}

// Sink は画像検索の進行を受け取る共有状態です。*session.Store が実装します。
type Sink interface {
	StartImages(gen session.Generation, total int) error
	MarkSearching(gen session.Generation, name string) error
	ApplyImageResult(gen session.Generation, name string, dish domain.Dish) error
	FinishSearch(gen session.Generation, name string) error
	CompleteOne(gen session.Generation) (session.Progress, error)
}

// Summary は画像読み込みフェーズの結果です。
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"` // 結果を反映できた件数（画像が見つからなかった場合も含む）
	Failed    int `json:"failed"`    // 検索に失敗し、元のデータのまま残った件数
	Cached    int `json:"cached"`    // キャッシュから反映した件数
	Discarded int `json:"discarded"` // 世代が進んだため破棄した件数
}

// ImageLoader は上限付きの並列数で画像検索を実行します。
type ImageLoader struct {
	searcher    Searcher
	sink        Sink
	cache       imagecache.Cache
	cacheScope  string
	concurrency int
	interval    time.Duration
	burst       int
	onProgress  func(session.Progress)
	group       singleflight.Group
}

// Option は ImageLoader の任意設定です。
type Option func(*ImageLoader)

// WithConcurrency は同時に実行する画像検索の数を設定します。
func WithConcurrency(n int) Option {
	return func(l *ImageLoader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithCache は検索結果のキャッシュを設定します。
func WithCache(c imagecache.Cache) Option {
	return func(l *ImageLoader) {
		l.cache = c
	}
}

// WithCacheScope はキャッシュキーに含める設定の識別子を指定します。imagecache.Scope の戻り値を渡します。
func WithCacheScope(scope string) Option {
	return func(l *ImageLoader) {
		l.cacheScope = scope
	}
}

// WithRate は画像検索リクエストの開始間隔を制限します。
func WithRate(interval time.Duration, burst int) Option {
	return func(l *ImageLoader) {
		l.interval = interval
		l.burst = burst
	}
}

// WithProgress は1品の処理が終わるたびに呼ばれるコールバックを設定します。
func WithProgress(fn func(session.Progress)) Option {
	return func(l *ImageLoader) {
		l.onProgress = fn
	}
}

// New は ImageLoader を生成します。
func New(searcher Searcher, sink Sink, opts ...Option) *ImageLoader {
	l := &ImageLoader{
		searcher:    searcher,
		sink:        sink,
		concurrency: config.DefaultConcurrency,
		burst:       config.DefaultRateBurst,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load は gen の世代に属する dishes の画像を取得して Sink に反映します。
//
// 1品ごとの失敗はログに記録して件数に数えるだけで、他の料理の処理は続行します。
// 返されるエラーは ctx のキャンセルのみです。
func (l *ImageLoader) Load(ctx context.Context, gen session.Generation, dishes domain.Dishes) (Summary, error) {
	total := len(dishes)
	sum := Summary{Total: total}
	if total == 0 {
		return sum, nil
	}

	if err := l.sink.StartImages(gen, total); err != nil {
		if errors.Is(err, session.ErrStale) {
			sum.Discarded = total
			return sum, nil
		}
		return sum, err
	}

	var succeeded, failed, cached, discarded atomic.Int64
	startTime := time.Now()
	slog.InfoContext(ctx, "Starting image phase", "dishes", total, "concurrency", fanout.Workers(l.concurrency, total))

	err := fanout.ForEach(ctx, dishes, l.concurrency, func(ctx context.Context, i int, dish domain.Dish) error {
		logger := slog.With("dish_index", i+1, "original_name", dish.OriginalName, "generation", gen)

		if err := l.sink.MarkSearching(gen, dish.OriginalName); err != nil {
			if errors.Is(err, session.ErrStale) {
				discarded.Add(1)
				return nil
			}
			logger.Warn("Failed to mark dish as searching", "error", err)
		}

		updated, fromCache, err := l.search(ctx, dish)
		switch {
		case err != nil:
			logger.Warn("Image search failed; keeping text-only dish", "error", err)
			if ferr := l.sink.FinishSearch(gen, dish.OriginalName); errors.Is(ferr, session.ErrStale) {
				discarded.Add(1)
			} else {
				failed.Add(1)
			}
		default:
			aerr := l.sink.ApplyImageResult(gen, dish.OriginalName, updated)
			switch {
			case errors.Is(aerr, session.ErrStale):
				discarded.Add(1)
			case aerr != nil:
				logger.Warn("Failed to apply image result", "error", aerr)
				failed.Add(1)
			default:
				succeeded.Add(1)
				if fromCache {
					cached.Add(1)
				}
				logger.Debug("Image result applied", "has_image", updated.HasImage(), "source", updated.ImageSource, "cached", fromCache)
			}
		}

		progress, perr := l.sink.CompleteOne(gen)
		if perr == nil && l.onProgress != nil {
			l.onProgress(progress)
		}
		return nil
	}, fanout.WithRate(l.interval, l.burst))

	sum.Succeeded = int(succeeded.Load())
	sum.Failed = int(failed.Load())
	sum.Cached = int(cached.Load())
	sum.Discarded = int(discarded.Load())

	slog.InfoContext(ctx, "Image phase completed",
		"total", sum.Total,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"cached", sum.Cached,
		"discarded", sum.Discarded,
		"duration", time.Since(startTime).Round(time.Millisecond),
	)
	if err != nil {
		return sum, fmt.Errorf("画像検索が中断されました: %w", err)
	}
	return sum, nil
}

// search はキャッシュを確認し、なければ検索します。
// 同じ料理への同時リクエストは1回の検索にまとめます。
// キャッシュや他のリクエストから得た結果は、画像関連のフィールドだけを dish に重ねます。
func (l *ImageLoader) search(ctx context.Context, dish domain.Dish) (domain.Dish, bool, error) {
	key := imagecache.Key(dish, l.cacheScope)
	if l.cache != nil {
		if hit, ok, err := l.cache.Get(ctx, key); err == nil && ok {
			return hit.ApplyTo(dish), true, nil
		}
	}

	v, err, shared := l.group.Do(key, func() (interface{}, error) {
		res, err := l.searcher.SearchDishImage(ctx, dish)
		if err != nil {
			return nil, err
		}
		// 画像が見つからなかった結果はキャッシュしない
		if l.cache != nil && res.HasImage() {
			if err := l.cache.Set(ctx, key, imagecache.EntryFrom(res)); err != nil {
				slog.WarnContext(ctx, "Failed to cache image result", "key", key, "error", err)
			}
		}
		return res, nil
	})
	if err != nil {
		return domain.Dish{}, false, err
	}

	res, ok := v.(domain.Dish)
	if !ok {
		return domain.Dish{}, false, fmt.Errorf("unexpected return type from singleflight: %T", v)
	}
	if shared {
		return imagecache.EntryFrom(res).ApplyTo(dish), false, nil
	}
	return res.Clone(), false, nil
}
