package parser

import (
	"context"
	"strings"
	"testing"

	"github.com/shouni/go-menu-kit/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDishesParser_ParseFromPath(t *testing.T) {
	mem := storage.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.Write(ctx, "out/dishes.json", strings.NewReader(`{
		"session_id": "abc",
		"dishes": [
			{"original_name": "ramen", "english_name": "Ramen", "image_url": "images/ramen.jpg", "is_searching": true},
			{"original_name": "", "english_name": "Nameless"},
			{"original_name": "gyoza", "image_urls": ["https://cdn.example/gyoza.jpg"]}
		]
	}`), "application/json"))

	dishes, err := NewDishesParser(mem).ParseFromPath(ctx, "out/dishes.json")
	require.NoError(t, err)
	require.Len(t, dishes, 2, "original_name のない料理は除外されるべきです")

	assert.Equal(t, "images/ramen.jpg", dishes[0].ImageURL, "ローカルファイルでは相対パスを保持するべきです")
	assert.False(t, dishes[0].IsSearching)
	assert.Equal(t, "https://cdn.example/gyoza.jpg", dishes[1].ImageURLs[0])

	_, err = NewDishesParser(mem).ParseFromPath(ctx, "out/missing.json")
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	t.Run("URL から読み込んだ場合は相対パスを解決すること", func(t *testing.T) {
		dishes, err := Parse("https://example.com/runs/1/dishes.json?token=x",
			[]byte(`[{"original_name": "a", "image_url": "img/a.jpg", "image_urls": ["/abs/b.jpg", "data:image/png;base64,AAA"]}]`))
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/runs/1/img/a.jpg", dishes[0].ImageURL)
		assert.Equal(t, "https://example.com/abs/b.jpg", dishes[0].ImageURLs[0])
		assert.Equal(t, "data:image/png;base64,AAA", dishes[0].ImageURLs[1])
	})

	t.Run("GCS は公開URLに変換すること", func(t *testing.T) {
		dishes, err := Parse("gs://bucket/runs/dishes.json", []byte(`[{"original_name": "a", "image_url": "a.jpg"}]`))
		require.NoError(t, err)
		assert.Equal(t, "https://storage.googleapis.com/bucket/runs/a.jpg", dishes[0].ImageURL)
	})

	t.Run("有効な料理がなければエラーになること", func(t *testing.T) {
		_, err := Parse("x.json", []byte(`[]`))
		assert.Error(t, err)
		_, err = Parse("x.json", []byte(`{broken`))
		assert.Error(t, err)
	})
}
