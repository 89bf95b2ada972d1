package session

import (
	"sync"
	"testing"

	"github.com/shouni/go-menu-kit/pkg/domain"
	"github.com/shouni/go-menu-kit/pkg/filter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeDishes() domain.Dishes {
	return domain.Dishes{
		{OriginalName: "ramen", EnglishName: "Ramen"},
		{OriginalName: "gyoza", EnglishName: "Dumplings", DietaryTags: []string{"vegetarian"}},
		{OriginalName: "sushi", EnglishName: "Sushi"},
	}
}

func loadedStore(t *testing.T) (*Store, Generation) {
	t.Helper()
	s := NewStore()
	gen := s.Begin()
	require.NoError(t, s.Load(gen, threeDishes(), nil))
	return s, gen
}

func TestStore_BeginAndLoad(t *testing.T) {
	s := NewStore()
	gen := s.Begin()

	st := s.Snapshot()
	assert.True(t, st.Loading)
	assert.NotEmpty(t, st.SessionID)
	assert.Equal(t, gen, st.Generation)

	require.NoError(t, s.Load(gen, threeDishes(), map[string]any{"ocr": "ok"}))
	st = s.Snapshot()
	assert.False(t, st.Loading)
	assert.Len(t, st.Dishes, 3)
	require.NotNil(t, st.Selected)
	assert.Equal(t, "ramen", st.Selected.OriginalName, "先頭の料理が選択されるべきです")

	next := s.Begin()
	assert.Greater(t, next, gen)
	assert.Empty(t, s.Snapshot().Dishes, "新しいセッションでは料理リストがクリアされるべきです")
}

func TestStore_ApplyImageResult(t *testing.T) {
	t.Run("一致する料理のみが置き換わり他の料理は変わらないこと", func(t *testing.T) {
		s, gen := loadedStore(t)
		before := s.Snapshot().Dishes

		require.NoError(t, s.MarkSearching(gen, "gyoza"))
		require.NoError(t, s.ApplyImageResult(gen, "gyoza", domain.Dish{
			OriginalName: "gyoza", EnglishName: "Dumplings", ImageURL: "https://img/gyoza.jpg", IsSearching: true,
		}))

		after := s.Snapshot().Dishes
		assert.Equal(t, before[0], after[0])
		assert.Equal(t, before[2], after[2])
		assert.Equal(t, "https://img/gyoza.jpg", after[1].ImageURL)
		assert.False(t, after[1].IsSearching, "結果の反映後は検索中フラグが下りるべきです")
	})

	t.Run("選択中の料理と同じ名前なら選択も置き換わること", func(t *testing.T) {
		s, gen := loadedStore(t)
		_, err := s.Select("sushi")
		require.NoError(t, err)

		require.NoError(t, s.ApplyImageResult(gen, "sushi", domain.Dish{OriginalName: "sushi", ImageURL: "u"}))
		sel := s.Snapshot().Selected
		require.NotNil(t, sel)
		assert.Equal(t, "u", sel.ImageURL)
	})

	t.Run("選択中の料理と異なる名前なら選択は変わらないこと", func(t *testing.T) {
		s, gen := loadedStore(t)
		before := s.Snapshot().Selected

		require.NoError(t, s.ApplyImageResult(gen, "sushi", domain.Dish{OriginalName: "sushi", ImageURL: "u"}))
		assert.Equal(t, before, s.Snapshot().Selected)
	})

	t.Run("重複名では最初の1件のみが更新されること", func(t *testing.T) {
		s := NewStore()
		gen := s.Begin()
		require.NoError(t, s.Load(gen, domain.Dishes{{OriginalName: "x"}, {OriginalName: "x"}}, nil))

		require.NoError(t, s.ApplyImageResult(gen, "x", domain.Dish{OriginalName: "x", ImageURL: "u"}))
		ds := s.Snapshot().Dishes
		assert.Equal(t, "u", ds[0].ImageURL)
		assert.Empty(t, ds[1].ImageURL)
	})

	t.Run("存在しない名前は ErrDishNotFound になること", func(t *testing.T) {
		s, gen := loadedStore(t)
		assert.ErrorIs(t, s.ApplyImageResult(gen, "pizza", domain.Dish{}), ErrDishNotFound)
	})
}

func TestStore_Select(t *testing.T) {
	s, _ := loadedStore(t)

	got, err := s.Select("gyoza")
	require.NoError(t, err)
	assert.Equal(t, "gyoza", got.OriginalName)
	require.NotNil(t, s.Snapshot().Selected)
	assert.Equal(t, "gyoza", s.Snapshot().Selected.OriginalName)

	_, err = s.Select("pho")
	assert.ErrorIs(t, err, ErrDishNotFound)
	assert.Equal(t, "gyoza", s.Snapshot().Selected.OriginalName, "見つからない場合は選択を変えないこと")
}

func TestStore_StaleGeneration(t *testing.T) {
	s, gen := loadedStore(t)
	require.NoError(t, s.StartImages(gen, 3))

	s.Reset()

	assert.ErrorIs(t, s.ApplyImageResult(gen, "ramen", domain.Dish{ImageURL: "late"}), ErrStale)
	assert.ErrorIs(t, s.MarkSearching(gen, "ramen"), ErrStale)
	_, err := s.CompleteOne(gen)
	assert.ErrorIs(t, err, ErrStale)
	assert.ErrorIs(t, s.Load(gen, threeDishes(), nil), ErrStale)

	st := s.Snapshot()
	assert.Empty(t, st.Dishes)
	assert.Nil(t, st.Selected)
	assert.Zero(t, st.Progress)
}

func TestStore_Progress(t *testing.T) {
	s, gen := loadedStore(t)
	require.NoError(t, s.StartImages(gen, 3))
	assert.True(t, s.Snapshot().Searching)

	for i := 1; i <= 3; i++ {
		p, err := s.CompleteOne(gen)
		require.NoError(t, err)
		assert.Equal(t, Progress{Done: i, Total: 3}, p)
	}
	assert.False(t, s.Snapshot().Searching)

	p, err := s.CompleteOne(gen)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Done, "総数を超えて加算されないべきです")
}

func TestStore_FailAndFinishSearch(t *testing.T) {
	s := NewStore()
	gen := s.Begin()
	require.NoError(t, s.Fail(gen, "backend down"))
	st := s.Snapshot()
	assert.False(t, st.Loading)
	assert.Equal(t, "backend down", st.Error)

	s2, gen2 := loadedStore(t)
	require.NoError(t, s2.MarkSearching(gen2, "ramen"))
	assert.True(t, s2.Snapshot().Selected.IsSearching, "選択中の料理にも検索中フラグが同期されるべきです")
	require.NoError(t, s2.FinishSearch(gen2, "ramen"))
	assert.False(t, s2.Snapshot().Dishes[0].IsSearching)
	assert.Empty(t, s2.Snapshot().Error)
}

func TestStore_SnapshotIsDeepCopy(t *testing.T) {
	s, _ := loadedStore(t)
	snap := s.Snapshot()
	snap.Dishes[0].EnglishName = "mutated"
	snap.Selected.EnglishName = "mutated"

	again := s.Snapshot()
	assert.Equal(t, "Ramen", again.Dishes[0].EnglishName)
	assert.Equal(t, "Ramen", again.Selected.EnglishName)
}

func TestStore_Filtered(t *testing.T) {
	s, _ := loadedStore(t)
	got := s.Filtered(filter.Filter{Dietary: []string{"vegetarian"}})
	require.Len(t, got, 1)
	assert.Equal(t, "gyoza", got[0].OriginalName)
}

func TestStore_ConcurrentUpdates(t *testing.T) {
	s := NewStore()
	gen := s.Begin()
	ds := make(domain.Dishes, 20)
	for i := range ds {
		ds[i] = domain.Dish{OriginalName: string(rune('a' + i))}
	}
	require.NoError(t, s.Load(gen, ds, nil))
	require.NoError(t, s.StartImages(gen, len(ds)))

	var wg sync.WaitGroup
	for _, d := range ds {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_ = s.MarkSearching(gen, name)
			_ = s.ApplyImageResult(gen, name, domain.Dish{OriginalName: name, ImageURL: name + ".jpg"})
			_, _ = s.CompleteOne(gen)
			_ = s.Snapshot()
		}(d.OriginalName)
	}
	wg.Wait()

	st := s.Snapshot()
	assert.Equal(t, 0, st.Dishes.SearchingCount())
	assert.Equal(t, Progress{Done: 20, Total: 20}, st.Progress)
	for _, d := range st.Dishes {
		assert.Equal(t, d.OriginalName+".jpg", d.ImageURL)
	}
}
