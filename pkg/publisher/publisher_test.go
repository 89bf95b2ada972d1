package publisher

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shouni/go-menu-kit/pkg/domain"
	"github.com/shouni/go-menu-kit/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDishes() domain.Dishes {
	return domain.Dishes{
		{
			OriginalName: "ผัดไทย",
			EnglishName:  "Pad Thai",
			Description:  "Stir-fried rice noodles",
			FlavorTags:   []string{"sweet", "savory"},
			DietaryTags:  []string{"contains peanuts"},
			Ingredients:  []string{"rice noodles", "shrimp"},
			Price:        "120",
			Currency:     "THB",
			ImageURL:     "https://img.example/padthai.jpg",
		},
		{
			OriginalName: "Tom_Yum",
			EnglishName:  "Tom_Yum",
		},
	}
}

func TestBuildMarkdown(t *testing.T) {
	md := BuildMarkdown(sampleDishes(), Options{Title: "Bangkok", DisplayCurrency: "USD"})

	assert.True(t, strings.HasPrefix(md, "# Bangkok\n"))
	assert.Contains(t, md, "## 1. Pad Thai {#"+DishAnchor(sampleDishes()[0])+"}")
	assert.Contains(t, md, "*ผัดไทย*")
	assert.Contains(t, md, "![Pad Thai](<https://img.example/padthai.jpg>)")
	assert.Contains(t, md, "- **Price:** 120 THB (≈ $3.29)")
	assert.Contains(t, md, "- **Flavor:** sweet, savory")
	assert.Contains(t, md, "- **Ingredients:** rice noodles, shrimp")

	t.Run("画像がない料理は案内を表示すること", func(t *testing.T) {
		assert.Contains(t, md, "## 2. Tom\\_Yum")
		assert.Contains(t, md, noImageNotice)
		assert.Equal(t, 1, strings.Count(md, "*ผัดไทย*"), "英名と同じ原語名は重複表示しないべきです")
	})

	t.Run("画像URLの書き換え関数を適用すること", func(t *testing.T) {
		out := BuildMarkdown(sampleDishes()[:1], Options{ImageURL: func(s string) string { return "/proxy?u=" + s }})
		assert.Contains(t, out, "](</proxy?u=https://img.example/padthai.jpg>)")
		assert.True(t, strings.HasPrefix(out, "# "+escapeMarkdown(DefaultTitle)))
	})
}

func TestDishAnchor(t *testing.T) {
	a := DishAnchor(domain.Dish{OriginalName: "ผัดไทย"})
	b := DishAnchor(domain.Dish{OriginalName: "ผัดไทย", EnglishName: "different"})
	assert.Equal(t, a, b, "アンカーは OriginalName のみで決まるべきです")
	assert.Regexp(t, `^dish-[0-9a-f]{10}$`, a)
}

func TestGalleryPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	conv, err := NewGoldmarkConverter()
	require.NoError(t, err)

	dir := t.TempDir()
	mem := storage.NewMemory()
	pub := NewGalleryPublisher(mem, conv)

	res, err := pub.Publish(ctx, sampleDishes(), Options{OutputDir: dir, Snapshot: true, DisplayCurrency: "JPY"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "dishes.json"), res.JSONPath)
	assert.True(t, strings.HasSuffix(res.SnapshotPath, "dishes_1.json"), res.SnapshotPath)
	assert.Equal(t, mem.Files[res.JSONPath], mem.Files[res.SnapshotPath])

	var saved domain.Dishes
	require.NoError(t, json.Unmarshal(mem.Files[res.JSONPath], &saved))
	assert.Equal(t, sampleDishes(), saved)

	assert.Contains(t, string(mem.Files[res.MarkdownPath]), "## 1. Pad Thai")

	html := string(mem.Files[res.HTMLPath])
	assert.True(t, strings.HasSuffix(res.HTMLPath, "gallery.html"))
	assert.Equal(t, "text/html; charset=utf-8", mem.ContentTypes[res.HTMLPath])
	assert.Contains(t, html, "<title>MenuLens Gallery</title>")
	assert.Contains(t, html, `id="`+DishAnchor(sampleDishes()[0])+`"`)
	assert.Contains(t, html, `<img src="https://img.example/padthai.jpg" alt="Pad Thai">`)

	t.Run("既存の連番の次の番号で保存すること", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "dishes_4.json"), []byte("[]"), 0o644))
		res, err := pub.Publish(ctx, sampleDishes(), Options{OutputDir: dir, Snapshot: true})
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(res.SnapshotPath, "dishes_5.json"), res.SnapshotPath)
	})

	t.Run("コンバーターがなければHTMLを出力しないこと", func(t *testing.T) {
		res, err := NewGalleryPublisher(storage.NewMemory(), nil).Publish(ctx, nil, Options{OutputDir: dir})
		require.NoError(t, err)
		assert.Empty(t, res.HTMLPath)
		assert.Empty(t, res.SnapshotPath)

		_, err = NewGalleryPublisher(storage.NewMemory(), nil).RenderHTML(nil, Options{})
		assert.Error(t, err)
	})
}

func TestGoldmarkConverter_EscapesRawHTML(t *testing.T) {
	conv, err := NewGoldmarkConverter()
	require.NoError(t, err)

	out, err := conv.Convert("<b>t</b>", []byte("<script>alert(1)</script>\n\ntext"))
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script>alert(1)</script>")
	assert.Contains(t, string(out), "<title>&lt;b&gt;t&lt;/b&gt;</title>")
}
