package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Dishes は解析セッション内の料理リストです。並び順はバックエンドの返却順を保持します。
type Dishes []Dish

// IndexOf は OriginalName が一致する最初の料理のインデックスを返します。見つからなければ -1 です。
func (ds Dishes) IndexOf(originalName string) int {
	for i := range ds {
		if ds[i].OriginalName == originalName {
			return i
		}
	}
	return -1
}

// FindByOriginalName は OriginalName から料理を特定します。
func (ds Dishes) FindByOriginalName(originalName string) *Dish {
	idx := ds.IndexOf(originalName)
	if idx < 0 {
		return nil
	}
	res := ds[idx].Clone()
	return &res
}

// DuplicateNames は2回以上出現する OriginalName をソートして返します。
// 重複した名前はマージ時に先頭の1件しか更新されないため、呼び出し側で警告に使います。
func (ds Dishes) DuplicateNames() []string {
	counts := make(map[string]int, len(ds))
	for _, d := range ds {
		counts[d.OriginalName]++
	}

	dups := make([]string, 0)
	for name, n := range counts {
		if n > 1 {
			dups = append(dups, name)
		}
	}
	sort.Strings(dups)
	return dups
}

// Clone は各要素までディープコピーしたリストを返します。
func (ds Dishes) Clone() Dishes {
	if ds == nil {
		return nil
	}
	out := make(Dishes, len(ds))
	for i, d := range ds {
		out[i] = d.Clone()
	}
	return out
}

// SearchingCount は画像検索中の料理の数を返します。
func (ds Dishes) SearchingCount() int {
	n := 0
	for _, d := range ds {
		if d.IsSearching {
			n++
		}
	}
	return n
}

// ParseDishes は JSON バイト列から料理リストをパースして返します。
// 配列形式と {"dishes": [...]} 形式の両方を受け付けます。
func ParseDishes(data []byte) (Dishes, error) {
	var list Dishes
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Dishes Dishes `json:"dishes"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("料理リストのJSONパースに失敗しました: %w", err)
	}
	return wrapped.Dishes, nil
}
