package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/shouni/go-menu-kit/pkg/domain"
	"github.com/shouni/go-menu-kit/pkg/storage"
)

// Parser は解析するためのインターフェースを定義します。
type Parser interface {
	ParseFromPath(ctx context.Context, fullPath string) (domain.Dishes, error)
}

// DishesParser は保存済みの解析結果（dishes.json）を読み込む構造体です。
type DishesParser struct {
	reader storage.InputReader
}

// NewDishesParser は新しい DishesParser インスタンスを生成します。
func NewDishesParser(r storage.InputReader) *DishesParser {
	return &DishesParser{reader: r}
}

// ParseFromPath は指定されたローカルファイルパスや URL からコンテンツを読み込み、
// 料理リストを返します。相対パスの画像URLは読み込み元を基準に解決します。
func (p *DishesParser) ParseFromPath(ctx context.Context, dishesFile string) (domain.Dishes, error) {
	slog.InfoContext(ctx, "解析結果ファイルを読み込んでいます", "path", dishesFile)
	rc, err := p.reader.Open(ctx, dishesFile)
	if err != nil {
		return nil, fmt.Errorf("解析結果ファイルのオープンに失敗しました (%s): %w", dishesFile, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("解析結果ファイルの読み込みに失敗しました (%s): %w", dishesFile, err)
	}

	return Parse(dishesFile, data)
}

// Parse は JSON を料理リストに変換します。
// original_name を持たない料理は結合キーとして扱えないため除外します。
func Parse(sourceURL string, data []byte) (domain.Dishes, error) {
	dishes, err := domain.ParseDishes(data)
	if err != nil {
		return nil, err
	}

	baseURL := resolveBaseURL(sourceURL)
	out := make(domain.Dishes, 0, len(dishes))
	for i, d := range dishes {
		if strings.TrimSpace(d.OriginalName) == "" {
			slog.Warn("original_name のない料理をスキップします", "index", i, "english_name", d.EnglishName)
			continue
		}
		d.ImageURL = resolveFullPath(baseURL, d.ImageURL)
		for j, u := range d.ImageURLs {
			d.ImageURLs[j] = resolveFullPath(baseURL, u)
		}
		// 保存時点で検索中だった料理も、読み込み後は検索済みとして扱う
		d.IsSearching = false
		out = append(out, d)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("有効な料理情報が見つかりませんでした")
	}
	if dups := out.DuplicateNames(); len(dups) > 0 {
		slog.Warn("original_name が重複しています", "names", dups)
	}
	return out, nil
}
