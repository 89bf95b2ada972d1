package fanout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkers(t *testing.T) {
	assert.Equal(t, 3, Workers(3, 5))
	assert.Equal(t, 2, Workers(3, 2))
	assert.Equal(t, 1, Workers(0, 4))
	assert.Equal(t, 0, Workers(3, 0))
}

func TestForEach_ExactlyOnce(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7, 50} {
		items := make([]int, n)
		for i := range items {
			items[i] = i
		}

		visits := make([]atomic.Int32, n)
		err := ForEach(context.Background(), items, 3, func(ctx context.Context, idx int, item int) error {
			visits[item].Add(1)
			return nil
		})
		require.NoError(t, err)

		for i := range visits {
			assert.Equal(t, int32(1), visits[i].Load(), "n=%d item=%d", n, i)
		}
	}
}

func TestForEach_BoundedInFlight(t *testing.T) {
	t.Run("5件を3並列で処理すると最初に3件が同時に実行され2件が待機すること", func(t *testing.T) {
		items := []string{"a", "b", "c", "d", "e"}
		release := make(chan struct{})

		var inFlight, maxInFlight, started atomic.Int32
		firstWave := make(chan struct{})

		errCh := make(chan error, 1)
		go func() {
			errCh <- ForEach(context.Background(), items, 3, func(ctx context.Context, idx int, item string) error {
				cur := inFlight.Add(1)
				for {
					m := maxInFlight.Load()
					if cur <= m || maxInFlight.CompareAndSwap(m, cur) {
						break
					}
				}
				if started.Add(1) == 3 {
					close(firstWave)
				}
				<-release
				inFlight.Add(-1)
				return nil
			})
		}()

		select {
		case <-firstWave:
		case <-time.After(2 * time.Second):
			t.Fatal("最初の3件が開始されませんでした")
		}
		// 3件がブロック中の間は4件目が開始されない
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, int32(3), started.Load())

		close(release)
		require.NoError(t, <-errCh)
		assert.Equal(t, int32(5), started.Load())
		assert.Equal(t, int32(3), maxInFlight.Load())
	})
}

func TestForEach_ErrorsDoNotAbort(t *testing.T) {
	boom := errors.New("boom")
	var processed atomic.Int32

	err := ForEach(context.Background(), []int{0, 1, 2, 3, 4}, 2, func(ctx context.Context, idx int, item int) error {
		processed.Add(1)
		if item%2 == 1 {
			return boom
		}
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(5), processed.Load(), "失敗があっても全件処理されるべきです")

	var ie *ItemError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, []int{1, 3}, ie.Index)
}

func TestForEach_Progress(t *testing.T) {
	var mu sync.Mutex
	var calls [][2]int

	err := ForEach(context.Background(), []int{1, 2, 3, 4}, 3, func(ctx context.Context, idx int, item int) error {
		if item == 2 {
			return errors.New("fail")
		}
		return nil
	}, WithProgress(func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, [2]int{done, total})
	}))
	require.Error(t, err)

	require.Len(t, calls, 4, "成否に関わらず毎回呼ばれるべきです")
	for i, c := range calls {
		assert.Equal(t, [2]int{i + 1, 4}, c)
	}
}

func TestForEach_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var processed atomic.Int32

	err := ForEach(ctx, make([]int, 20), 1, func(ctx context.Context, idx int, item int) error {
		if processed.Add(1) == 2 {
			cancel()
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(2), processed.Load())
}

func TestForEach_Rate(t *testing.T) {
	start := time.Now()
	err := ForEach(context.Background(), make([]int, 3), 3, func(ctx context.Context, idx int, item int) error {
		return nil
	}, WithRate(20*time.Millisecond, 1))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}
