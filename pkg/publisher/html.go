package publisher

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// Converter は Markdown を HTML ページに変換します。
type Converter interface {
	Convert(title string, markdown []byte) ([]byte, error)
}

// GoldmarkConverter は goldmark で Markdown を変換し、ギャラリー用のページに埋め込みます。
type GoldmarkConverter struct {
	md   goldmark.Markdown
	page *template.Template
}

// NewGoldmarkConverter は GoldmarkConverter を生成します。
func NewGoldmarkConverter() (*GoldmarkConverter, error) {
	page, err := template.New("gallery").Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("ギャラリーテンプレートの解析に失敗しました: %w", err)
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAttribute()),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	return &GoldmarkConverter{md: md, page: page}, nil
}

func (c *GoldmarkConverter) Convert(title string, markdown []byte) ([]byte, error) {
	var body bytes.Buffer
	if err := c.md.Convert(markdown, &body); err != nil {
		return nil, fmt.Errorf("markdownの変換に失敗しました: %w", err)
	}

	var out bytes.Buffer
	err := c.page.Execute(&out, struct {
		Title string
		Body  template.HTML
	}{
		Title: title,
		// goldmark は生の HTML をエスケープするため、そのまま埋め込める
		Body: template.HTML(body.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("HTMLページの生成に失敗しました: %w", err)
	}
	return out.Bytes(), nil
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{ .Title }}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 860px; margin: 0 auto; padding: 1.5rem; color: #0f172a; background: #f8fafc; }
h1 { color: #4338ca; }
h2 { margin-top: 2rem; }
img { max-width: 100%; border-radius: 12px; }
blockquote { color: #64748b; border-left: 4px solid #cbd5e1; margin: 0; padding: .5rem 1rem; background: #f1f5f9; }
hr { border: none; border-top: 1px solid #e2e8f0; margin: 2rem 0; }
</style>
</head>
<body>
{{ .Body }}
</body>
</html>
`
