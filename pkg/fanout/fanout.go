// Package fanout は、件数上限付きのワーカープールで要素を並列処理するユーティリティを提供します。
package fanout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ProgressFunc は1件の処理が終わるたびに、完了件数と総件数を受け取ります。
// 成否に関わらず呼ばれ、呼び出しは直列化されます。
type ProgressFunc func(done, total int)

// ItemError は1件分の失敗を要素のインデックスとともに保持します。
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

type options struct {
	interval time.Duration
	burst    int
	progress ProgressFunc
}

// Option は ForEach の任意設定です。
type Option func(*options)

// WithRate は各要素の処理開始を interval 間隔に制限します。interval が 0 以下なら制限しません。
func WithRate(interval time.Duration, burst int) Option {
	return func(o *options) {
		o.interval = interval
		o.burst = burst
	}
}

// WithProgress は進捗コールバックを設定します。
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// Workers は items 件を limit 並列で処理する際のワーカー数 min(limit, n) を返します。
func Workers(limit, n int) int {
	if limit < 1 {
		limit = 1
	}
	return min(limit, n)
}

// ForEach は items の各要素に fn を適用します。
//
// min(limit, len(items)) 個のワーカーが共有の FIFO キューから要素を1件ずつ取り出し、
// 各要素はちょうど1回だけ処理されます。1件の失敗で他の処理は中断されず、
// すべての失敗は *ItemError として errors.Join でまとめて返されます。
// ctx がキャンセルされると、ワーカーは新しい要素を取り出さなくなります。
func ForEach[T any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, index int, item T) error, opts ...Option) error {
	total := len(items)
	if total == 0 {
		return nil
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	var limiter *rate.Limiter
	if o.interval > 0 {
		burst := o.burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Every(o.interval), burst)
	}

	queue := make(chan int, total)
	for i := range items {
		queue <- i
	}
	close(queue)

	var (
		mu   sync.Mutex
		errs []error
		done int
	)
	record := func(idx int, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs = append(errs, &ItemError{Index: idx, Err: err})
		}
		done++
		if o.progress != nil {
			o.progress(done, total)
		}
	}

	// 要素単位の失敗で他のワーカーを止めないよう、errgroup のコンテキストは使わない
	var eg errgroup.Group
	for w := 0; w < Workers(limit, total); w++ {
		eg.Go(func() error {
			for idx := range queue {
				if err := ctx.Err(); err != nil {
					return err
				}
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return err
					}
				}
				record(idx, fn(ctx, idx, items[idx]))
			}
			return nil
		})
	}

	cancelErr := eg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if cancelErr != nil {
		errs = append(errs, cancelErr)
	}
	return errors.Join(errs...)
}
