package workflow

import (
	"fmt"

	"github.com/shouni/go-menu-kit/pkg/assistant"
	"github.com/shouni/go-menu-kit/pkg/imagecache"
	"github.com/shouni/go-menu-kit/pkg/loader"
	"github.com/shouni/go-menu-kit/pkg/prompts"
	"github.com/shouni/go-menu-kit/pkg/publisher"
	"github.com/shouni/go-menu-kit/pkg/runner"
)

// BuildScanRunner は、メニュー解析を担当する Runner を作成します。
func (m *Manager) BuildScanRunner() (ScanRunner, error) {
	return runner.NewMenuScanRunner(m.cfg, m.Client(), m.store, m.reader), nil
}

// BuildImageRunner は、料理画像の並列取得を担当する Runner を作成します。
// opts は設定値から組み立てたオプションの後に適用されます。
func (m *Manager) BuildImageRunner(opts ...loader.Option) (ImageRunner, error) {
	client := m.Client()
	base := []loader.Option{
		loader.WithConcurrency(m.cfg.Concurrency),
		loader.WithRate(m.cfg.RateInterval, m.cfg.RateBurst),
		loader.WithCache(m.cache),
		loader.WithCacheScope(imagecache.Scope(client.Settings())),
	}
	l := loader.New(client, m.store, append(base, opts...)...)

	return runner.NewDishImageRunner(m.cfg, l, m.store), nil
}

// BuildPublishRunner は、成果物のパブリッシュを担当する Runner を作成します。
func (m *Manager) BuildPublishRunner() (PublishRunner, error) {
	var imageURL func(string) string
	if m.proxyImages {
		imageURL = m.Client().ProxyImageURL
	}

	pub := publisher.NewGalleryPublisher(m.writer, m.converter)
	return runner.NewGalleryPublishRunner(m.cfg, pub, imageURL), nil
}

// BuildChatRunner は、チャットを担当する Runner を作成します。
// direct が true の場合はバックエンドを介さず Gemini で返答を生成します。
// mode は prompts.ModeChat または prompts.ModeRecommend で、直接チャットのプロンプトを切り替えます。
func (m *Manager) BuildChatRunner(direct bool, mode string) (ChatRunner, error) {
	switch mode {
	case "", prompts.ModeChat:
		mode = prompts.ModeChat
	case prompts.ModeRecommend:
		if !direct {
			return nil, fmt.Errorf("%s モードは直接チャットでのみ利用できます", mode)
		}
	default:
		return nil, fmt.Errorf("未対応のチャットモードです: %s", mode)
	}

	var a assistant.Assistant = assistant.NewBackend(m.Client())

	if direct {
		aiClient := m.directModel()
		if aiClient == nil {
			return nil, fmt.Errorf("Gemini の APIキーが設定されていないため直接チャットは利用できません")
		}
		eff := m.Client().Settings().Resolve()
		g, err := assistant.NewGemini(&geminiTextGenerator{client: aiClient}, m.promptBuilder, assistant.GeminiConfig{
			Model:        eff.LLMModel,
			Language:     m.cfg.TargetLanguage,
			Mode:         mode,
			HistoryLimit: m.cfg.ChatHistoryLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("アシスタントの初期化に失敗しました: %w", err)
		}
		a = g
	}

	return runner.NewMenuChatRunner(m.cfg, a, m.reader, m.writer), nil
}
