package domain

import (
	"reflect"
	"testing"
)

func TestParseDishes(t *testing.T) {
	t.Run("バックエンド形式のレスポンスからパースできること", func(t *testing.T) {
		input := []byte(`{
			"success": true,
			"dishes": [
				{
					"original_name": "宮保鶏丁",
					"english_name": "Kung Pao Chicken",
					"flavor_tags": ["spicy", "savory"],
					"price": 1200,
					"currency": "JPY"
				},
				{
					"original_name": "ผัดไทย",
					"english_name": "Pad Thai",
					"price": "฿120"
				}
			]
		}`)

		dishes, err := ParseDishes(input)
		if err != nil {
			t.Fatalf("正常なJSONでエラーが発生しました: %v", err)
		}
		if len(dishes) != 2 {
			t.Fatalf("期待値 2件, 実際の値 %d件", len(dishes))
		}
		if dishes[0].Price != "1200" {
			t.Errorf("数値の価格が文字列化されていません: %q", dishes[0].Price)
		}
		if dishes[1].Price != "฿120" {
			t.Errorf("文字列の価格が保持されていません: %q", dishes[1].Price)
		}
	})

	t.Run("配列形式でもパースできること", func(t *testing.T) {
		dishes, err := ParseDishes([]byte(`[{"original_name":"a","english_name":"A"}]`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(dishes) != 1 || dishes[0].EnglishName != "A" {
			t.Errorf("unexpected dishes: %+v", dishes)
		}
	})

	t.Run("不正なJSONでエラーが返ること", func(t *testing.T) {
		if _, err := ParseDishes([]byte(`{ invalid json }`)); err == nil {
			t.Error("不正なJSONでエラーが発生しませんでした")
		}
	})
}

func TestPrice_Float(t *testing.T) {
	tests := []struct {
		in   Price
		want float64
		ok   bool
	}{
		{"1200", 1200, true},
		{"¥1,200", 1200, true},
		{"12.50", 12.5, true},
		{"12.50-15.00", 12.5015, true},
		{"฿.5", 0.5, true},
		{"0", 0, true},
		{".", 0, false},
		{"時価", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := tt.in.Float()
		if ok != tt.ok || got != tt.want {
			t.Errorf("Price(%q).Float() = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDishes_IndexOfAndDuplicates(t *testing.T) {
	ds := Dishes{
		{OriginalName: "ramen"},
		{OriginalName: "gyoza"},
		{OriginalName: "ramen"},
	}

	if got := ds.IndexOf("ramen"); got != 0 {
		t.Errorf("最初に一致したインデックスを返すべきです: %d", got)
	}
	if got := ds.IndexOf("sushi"); got != -1 {
		t.Errorf("見つからない場合は -1 であるべきです: %d", got)
	}
	if got := ds.DuplicateNames(); !reflect.DeepEqual(got, []string{"ramen"}) {
		t.Errorf("重複名の検出が不正です: %v", got)
	}
}

func TestDishes_FindByOriginalName(t *testing.T) {
	ds := Dishes{
		{OriginalName: "ramen", EnglishName: "Ramen", FlavorTags: []string{"umami"}},
		{OriginalName: "gyoza"},
	}

	got := ds.FindByOriginalName("ramen")
	if got == nil || got.EnglishName != "Ramen" {
		t.Fatalf("一致する料理を返すべきです: %v", got)
	}
	got.FlavorTags[0] = "mutated"
	if ds[0].FlavorTags[0] != "umami" {
		t.Errorf("コピーを返すべきです")
	}
	if ds.FindByOriginalName("sushi") != nil {
		t.Errorf("見つからない場合は nil であるべきです")
	}
}

func TestDish_Clone(t *testing.T) {
	orig := Dish{OriginalName: "ramen", FlavorTags: []string{"umami"}, ImageScores: []float64{0.9}}
	c := orig.Clone()
	c.FlavorTags[0] = "salty"
	c.ImageScores[0] = 0.1

	if orig.FlavorTags[0] != "umami" || orig.ImageScores[0] != 0.9 {
		t.Error("Clone が元のスライスを共有しています")
	}
}

func TestDish_PrimaryImage(t *testing.T) {
	if got := (Dish{ImageURLs: []string{"", "b.jpg"}}).PrimaryImage(); got != "b.jpg" {
		t.Errorf("image_urls の最初の有効なURLを返すべきです: %q", got)
	}
	if got := (Dish{ImageURL: "a.jpg", ImageURLs: []string{"b.jpg"}}).PrimaryImage(); got != "a.jpg" {
		t.Errorf("image_url を優先すべきです: %q", got)
	}
	if (Dish{}).HasImage() {
		t.Error("画像のない料理で HasImage が true になっています")
	}
}

func TestChatHistory_Append(t *testing.T) {
	h := ChatHistory{{Role: RoleUser, Content: "hi"}}
	next := h.Append(RoleAssistant, "hello")

	if len(h) != 1 {
		t.Error("元の履歴が変更されています")
	}
	if len(next) != 2 || next[1].Role != RoleAssistant {
		t.Errorf("履歴の追加が不正です: %+v", next)
	}
}
