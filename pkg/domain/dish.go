package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Dish はメニューから識別された1品の料理を表します。
// テキスト解析フェーズで生成され、画像検索フェーズで画像関連のフィールドが補完されます。
// OriginalName は1回の解析セッション内で料理を一意に識別するキーとして扱います。
type Dish struct {
	ID           string   `json:"id,omitempty"`
	OriginalName string   `json:"original_name"`
	EnglishName  string   `json:"english_name"`
	Description  string   `json:"description,omitempty"`
	FlavorTags   []string `json:"flavor_tags,omitempty"`
	DietaryTags  []string `json:"dietary_tags,omitempty"`
	Ingredients  []string `json:"ingredients,omitempty"`
	SearchTerm   string   `json:"search_term,omitempty"`

	Price    Price  `json:"price,omitempty"`
	Currency string `json:"currency,omitempty"`

	ImageURL    string    `json:"image_url,omitempty"`
	ImageURLs   []string  `json:"image_urls,omitempty"`
	ImageScores []float64 `json:"image_scores,omitempty"`
	ImageSource string    `json:"image_source,omitempty"` // search / generated など、バックエンドが返す取得元
	IsSearching bool      `json:"is_searching"`
}

// String は料理の情報を文字列で返します。
func (d Dish) String() string {
	if d.EnglishName == "" {
		return d.OriginalName
	}
	return fmt.Sprintf("%s (%s)", d.EnglishName, d.OriginalName)
}

// HasImage は画像URLが1つ以上設定されているかを返します。
func (d Dish) HasImage() bool {
	return d.PrimaryImage() != ""
}

// PrimaryImage は表示に使う代表画像のURLを返します。
// image_url を優先し、なければ image_urls の先頭を使います。
func (d Dish) PrimaryImage() string {
	if d.ImageURL != "" {
		return d.ImageURL
	}
	for _, u := range d.ImageURLs {
		if u != "" {
			return u
		}
	}
	return ""
}

// Clone はスライスを含めたディープコピーを返します。
func (d Dish) Clone() Dish {
	c := d
	c.FlavorTags = cloneStrings(d.FlavorTags)
	c.DietaryTags = cloneStrings(d.DietaryTags)
	c.Ingredients = cloneStrings(d.Ingredients)
	c.ImageURLs = cloneStrings(d.ImageURLs)
	if d.ImageScores != nil {
		c.ImageScores = make([]float64, len(d.ImageScores))
		copy(c.ImageScores, d.ImageScores)
	}
	return c
}

func cloneStrings(src []string) []string {
	if src == nil {
		return nil
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}

// Price はメニュー上の価格表記です。
// バックエンドは数値と文字列のどちらでも返すため、どちらも文字列として受け入れます。
type Price string

// UnmarshalJSON は数値・文字列・null のいずれも受け付けます。
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("price: %w", err)
		}
		*p = Price(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("price must be a string or number: %w", err)
	}
	*p = Price(n.String())
	return nil
}

// Float は価格表記から数値部分のみを取り出して返します。
// "¥1,200" や "1200円" のような表記も 1200 として扱います。
// 数字と小数点以外を取り除いた後、先頭から読める範囲だけを数値にするため、
// "12.50-15.00" は 12.5015 になります。
func (p Price) Float() (float64, bool) {
	var sb strings.Builder
	seenDot := false
scan:
	for _, r := range string(p) {
		switch {
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '.':
			if seenDot {
				break scan
			}
			seenDot = true
			sb.WriteRune(r)
		}
	}
	num := sb.String()
	if num == "" || num == "." {
		return 0, false
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// IsZero は価格が未設定かどうかを返します。
func (p Price) IsZero() bool {
	return strings.TrimSpace(string(p)) == ""
}
