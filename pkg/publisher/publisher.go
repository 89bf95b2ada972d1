package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-menu-kit/pkg/asset"
	"github.com/shouni/go-menu-kit/pkg/domain"
	"github.com/shouni/go-menu-kit/pkg/storage"
)

// DefaultTitle はギャラリーのデフォルトタイトルです。
const DefaultTitle = "MenuLens Gallery"

// Options はパブリッシュ動作を制御する設定項目です。
type Options struct {
	OutputDir       string
	Title           string
	SourceCurrency  string // 料理に通貨がない場合の換算元
	DisplayCurrency string // 換算先。空なら換算しない
	// Snapshot が true の場合、dishes.json に加えて連番付きのコピー (dishes_N.json) も保存します。
	Snapshot bool
	// ImageURL は画像URLを書き換える関数です（画像プロキシ経由にする場合など）。
	ImageURL func(string) string
}

// PublishResult はパブリッシュ処理の結果として生成されたファイルの情報を保持します。
type PublishResult struct {
	JSONPath     string // 生成された dishes.json のパス
	SnapshotPath string // 連番付きのコピーのパス（Snapshot 指定時のみ）
	MarkdownPath string // 生成された gallery.md のパス
	HTMLPath     string // 生成された HTML のパス
}

// GalleryPublisher は解析結果の永続化とギャラリーへの変換を担います。
type GalleryPublisher struct {
	writer    storage.OutputWriter
	converter Converter
}

// NewGalleryPublisher は GalleryPublisher を生成します。converter が nil の場合は HTML を出力しません。
func NewGalleryPublisher(writer storage.OutputWriter, converter Converter) *GalleryPublisher {
	return &GalleryPublisher{
		writer:    writer,
		converter: converter,
	}
}

// Publish は料理リストの JSON、Markdown、HTML を保存し、生成されたファイル情報を返します。
func (p *GalleryPublisher) Publish(ctx context.Context, dishes domain.Dishes, opts Options) (PublishResult, error) {
	result := PublishResult{}
	if dishes == nil {
		dishes = domain.Dishes{}
	}

	jsonPath, err := asset.ResolveOutputPath(opts.OutputDir, asset.DefaultDishesJSON)
	if err != nil {
		return result, err
	}
	data, err := json.MarshalIndent(dishes, "", "  ")
	if err != nil {
		return result, fmt.Errorf("料理リストのエンコードに失敗しました: %w", err)
	}
	if err := p.writer.Write(ctx, jsonPath, bytes.NewReader(data), "application/json"); err != nil {
		return result, fmt.Errorf("JSONファイルの書き込みに失敗しました: %w", err)
	}
	result.JSONPath = jsonPath

	if opts.Snapshot {
		snapPath, err := p.nextSnapshotPath(opts.OutputDir, jsonPath)
		if err != nil {
			return result, err
		}
		if err := p.writer.Write(ctx, snapPath, bytes.NewReader(data), "application/json"); err != nil {
			return result, fmt.Errorf("スナップショットの書き込みに失敗しました: %w", err)
		}
		result.SnapshotPath = snapPath
	}

	markdownPath, err := asset.ResolveOutputPath(opts.OutputDir, asset.DefaultGalleryName)
	if err != nil {
		return result, err
	}
	content := BuildMarkdown(dishes, opts)
	if err := p.writer.Write(ctx, markdownPath, strings.NewReader(content), "text/markdown; charset=utf-8"); err != nil {
		return result, fmt.Errorf("markdownファイルの書き込みに失敗しました: %w", err)
	}
	result.MarkdownPath = markdownPath

	if p.converter != nil {
		slog.InfoContext(ctx, "Converting gallery to HTML", "dishes", len(dishes))
		htmlBytes, err := p.converter.Convert(titleOf(opts), []byte(content))
		if err != nil {
			return result, fmt.Errorf("HTMLの変換に失敗しました: %w", err)
		}

		htmlPath := asset.HTMLPathFor(markdownPath)
		if err := p.writer.Write(ctx, htmlPath, bytes.NewReader(htmlBytes), "text/html; charset=utf-8"); err != nil {
			return result, fmt.Errorf("HTMLファイルの書き込みに失敗しました: %w", err)
		}
		result.HTMLPath = htmlPath
	}

	return result, nil
}

// RenderHTML はファイルに保存せずにギャラリーの HTML を生成します。
func (p *GalleryPublisher) RenderHTML(dishes domain.Dishes, opts Options) ([]byte, error) {
	if p.converter == nil {
		return nil, fmt.Errorf("HTMLコンバーターが設定されていません")
	}
	return p.converter.Convert(titleOf(opts), []byte(BuildMarkdown(dishes, opts)))
}

// nextSnapshotPath はローカルの出力先にある既存の連番を調べ、次の連番のパスを返します。
func (p *GalleryPublisher) nextSnapshotPath(outputDir, jsonPath string) (string, error) {
	_, latest, err := asset.LatestSnapshot(outputDir)
	if err != nil {
		return "", err
	}
	return asset.GenerateIndexedPath(jsonPath, latest+1)
}

func titleOf(opts Options) string {
	if opts.Title == "" {
		return DefaultTitle
	}
	return opts.Title
}
