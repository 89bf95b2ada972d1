// Package filter は料理リストの食事制限フィルタとキーワード検索を提供します。
package filter

import (
	"sort"
	"strings"

	"github.com/shouni/go-menu-kit/pkg/domain"
)

// Filter は料理の絞り込み条件です。ゼロ値はすべての料理に一致します。
type Filter struct {
	// Dietary の各タグをすべて持つ料理のみに絞り込みます（大文字小文字は区別しません）。
	Dietary []string
	// Query は名前・説明・タグ・材料に対する部分一致検索です。
	Query string
}

// Parse はカンマ区切りの食事制限タグと検索語から Filter を作ります。
func Parse(dietary, query string) Filter {
	var tags []string
	for _, t := range strings.Split(dietary, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return Filter{Dietary: tags, Query: strings.TrimSpace(query)}
}

// IsZero は絞り込み条件が空かどうかを返します。
func (f Filter) IsZero() bool {
	return len(f.Dietary) == 0 && strings.TrimSpace(f.Query) == ""
}

// Match は料理が条件に一致するかを返します。
func (f Filter) Match(d domain.Dish) bool {
	for _, want := range f.Dietary {
		if !containsFold(d.DietaryTags, want) {
			return false
		}
	}

	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	fields := []string{d.OriginalName, d.EnglishName, d.Description}
	fields = append(fields, d.FlavorTags...)
	fields = append(fields, d.DietaryTags...)
	fields = append(fields, d.Ingredients...)
	for _, v := range fields {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}

// Apply は条件に一致する料理を元の順序のまま返します。
func (f Filter) Apply(dishes domain.Dishes) domain.Dishes {
	if f.IsZero() {
		return dishes
	}
	out := make(domain.Dishes, 0, len(dishes))
	for _, d := range dishes {
		if f.Match(d) {
			out = append(out, d)
		}
	}
	return out
}

// AvailableDietaryTags は料理リストに含まれる食事制限タグを小文字化・重複排除・ソートして返します。
func AvailableDietaryTags(dishes domain.Dishes) []string {
	seen := make(map[string]struct{})
	for _, d := range dishes {
		for _, t := range d.DietaryTags {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				seen[t] = struct{}{}
			}
		}
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

func containsFold(list []string, want string) bool {
	want = strings.TrimSpace(want)
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), want) {
			return true
		}
	}
	return false
}
