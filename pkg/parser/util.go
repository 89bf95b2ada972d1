package parser

import (
	"log/slog"
	"net/url"
	"path"
	"strings"
)

// resolveBaseURL は解析結果ファイルの URL から、画像参照用のベースURLを導き出します。
// ローカルファイルの場合は空文字を返し、相対パスはそのまま残します。
func resolveBaseURL(sourceURL string) string {
	if sourceURL == "" {
		return ""
	}

	u, err := url.Parse(sourceURL)
	if err != nil {
		slog.Warn("sourceURLの解析に失敗しました",
			"url", sourceURL,
			"error", err,
		)
		return ""
	}

	dir := path.Dir(u.Path)
	if dir == "." || dir == "/" {
		dir = ""
	}

	switch u.Scheme {
	case "gs":
		// GCS の場合は公開URL形式に変換する
		baseURL := &url.URL{
			Scheme: "https",
			Host:   "storage.googleapis.com",
			Path:   path.Join(u.Host, dir) + "/",
		}
		return baseURL.String()

	case "http", "https":
		u.Path = dir + "/"
		u.RawQuery = ""
		u.Fragment = ""
		return u.String()

	default:
		return ""
	}
}

// resolveFullPath はベースURLと相対パスから絶対URLを構築します。
func resolveFullPath(baseURL string, refPath string) string {
	refPath = strings.TrimSpace(refPath)
	if refPath == "" || baseURL == "" {
		return refPath
	}

	u, err := url.Parse(refPath)
	if err != nil {
		return refPath
	}
	// data: URI や絶対URLはそのまま使う
	if u.Scheme != "" {
		return refPath
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return refPath
	}
	return base.ResolveReference(u).String()
}
