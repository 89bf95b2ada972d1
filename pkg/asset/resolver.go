package asset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/shouni/go-utils/urlpath"
)

const (
	// DefaultOutputDir は成果物を格納するデフォルトのディレクトリ名です。
	DefaultOutputDir = "output"
	// DefaultDishesJSON は解析結果（料理リスト）のデフォルト JSON ファイル名です。
	DefaultDishesJSON = "dishes.json"
	// DefaultGalleryName はギャラリーのデフォルト Markdown ファイル名です。
	DefaultGalleryName = "gallery.md"
	// DefaultChatLogName はチャット履歴のデフォルト JSON ファイル名です。
	DefaultChatLogName = "chat.json"
)

// DishesSnapshotRegex は連番付きの解析結果 (dishes_1.json 等) に一致します。
var DishesSnapshotRegex = createIndexedRegex(DefaultDishesJSON)

// ResolveOutputPath は、ベースとなるディレクトリパスとファイル名から、
// GCS/ローカルを考慮した最終的な出力パスを生成します。
func ResolveOutputPath(baseDir, fileName string) (string, error) {
	return urlpath.ResolvePath(baseDir, fileName)
}

// ResolveBaseURL は、入力パス（URLまたはローカルパス）から
// 親ディレクトリのパスを解決し、末尾がセパレータで終わるように正規化します。
func ResolveBaseURL(rawPath string) string {
	return urlpath.ResolveBaseDir(rawPath)
}

// GenerateIndexedPath は、指定されたベースパスの拡張子の前に連番を挿入し、
// 新しいパス文字列を生成します。index は1以上の整数である必要があります。
// 例: "output/dishes.json", 2 -> "output/dishes_2.json"
func GenerateIndexedPath(basePath string, index int) (string, error) {
	return urlpath.GenerateIndexedPath(basePath, index)
}

// HTMLPathFor は Markdown のパスから同名の HTML のパスを返します。
func HTMLPathFor(markdownPath string) string {
	return strings.TrimSuffix(markdownPath, filepath.Ext(markdownPath)) + ".html"
}

// LatestSnapshot はローカルディレクトリ内で最大の連番を持つ解析結果のパスと連番を返します。
// 見つからなければ空文字と 0 を返します。
func LatestSnapshot(dir string) (string, int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("ディレクトリ '%s' の読み込みに失敗しました: %w", dir, err)
	}

	latest, latestIdx := "", 0
	ext := filepath.Ext(DefaultDishesJSON)
	prefix := strings.TrimSuffix(DefaultDishesJSON, ext) + "_"
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !DishesSnapshotRegex.MatchString(name) {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ext))
		if err != nil {
			continue
		}
		if idx > latestIdx {
			latest, latestIdx = filepath.Join(dir, name), idx
		}
	}
	return latest, latestIdx, nil
}

// createIndexedRegex は、ファイル名に基づきインデックス付きファイル用の正規表現を生成します。
// 例: "dishes.json" -> ^dishes_\d+\.json$
func createIndexedRegex(fileName string) *regexp.Regexp {
	ext := filepath.Ext(fileName)
	baseName := strings.TrimSuffix(fileName, ext)

	pattern := fmt.Sprintf(`^%s_\d+%s$`, regexp.QuoteMeta(baseName), regexp.QuoteMeta(ext))
	return regexp.MustCompile(pattern)
}
