package runner

import (
	"context"

	"github.com/shouni/go-menu-kit/pkg/config"
	"github.com/shouni/go-menu-kit/pkg/domain"
	"github.com/shouni/go-menu-kit/pkg/publisher"
)

// GalleryPublishRunner は pkg/publisher を利用した標準実装です。
type GalleryPublishRunner struct {
	cfg       config.Config
	publisher *publisher.GalleryPublisher
	imageURL  func(string) string
}

// NewGalleryPublishRunner は依存関係を注入して初期化します。imageURL は nil でも構いません。
func NewGalleryPublishRunner(cfg config.Config, pub *publisher.GalleryPublisher, imageURL func(string) string) *GalleryPublishRunner {
	return &GalleryPublishRunner{
		cfg:       cfg,
		publisher: pub,
		imageURL:  imageURL,
	}
}

// Run は料理リストを outputDir に保存し、ギャラリーを生成します。
func (pr *GalleryPublishRunner) Run(ctx context.Context, dishes domain.Dishes, outputDir string) (publisher.PublishResult, error) {
	opts := pr.options()
	opts.OutputDir = outputDir
	opts.Snapshot = true
	return pr.publisher.Publish(ctx, dishes, opts)
}

// RenderHTML は保存処理を行わず、ギャラリーの HTML のみを生成して返却します。
// ローカルサーバーでの表示に使います。
func (pr *GalleryPublishRunner) RenderHTML(dishes domain.Dishes, displayCurrency string) ([]byte, error) {
	opts := pr.options()
	if displayCurrency != "" {
		opts.DisplayCurrency = displayCurrency
	}
	return pr.publisher.RenderHTML(dishes, opts)
}

func (pr *GalleryPublishRunner) options() publisher.Options {
	return publisher.Options{
		Title:           pr.cfg.GalleryTitle,
		DisplayCurrency: pr.cfg.DisplayCurrency,
		SourceCurrency:  pr.cfg.SourceCurrency,
		ImageURL:        pr.imageURL,
	}
}
