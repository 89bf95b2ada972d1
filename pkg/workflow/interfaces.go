package workflow

import (
	"context"

	"github.com/shouni/go-menu-kit/pkg/domain"
	"github.com/shouni/go-menu-kit/pkg/loader"
	"github.com/shouni/go-menu-kit/pkg/publisher"
	"github.com/shouni/go-menu-kit/pkg/runner"
	"github.com/shouni/go-menu-kit/pkg/session"
)

// Workflow は、メニュー解析ワークフローの各工程を担当するRunnerを構築するためのインターフェースを定義します。
type Workflow interface {
	BuildScanRunner() (ScanRunner, error)
	BuildImageRunner(opts ...loader.Option) (ImageRunner, error)
	BuildPublishRunner() (PublishRunner, error)
	BuildChatRunner(direct bool, mode string) (ChatRunner, error)
}

// ScanRunner は、メニュー画像を解析して料理リストをセッションに反映する責務を持ちます。
type ScanRunner interface {
	Run(ctx context.Context, in runner.ScanInput) (runner.ScanResult, error)
	RunFromPath(ctx context.Context, imagePath string, in runner.ScanInput) (runner.ScanResult, error)
}

// ImageRunner は、料理ごとの代表画像を並列に取得してセッションに反映する責務を持ちます。
type ImageRunner interface {
	Run(ctx context.Context, gen session.Generation, dishes domain.Dishes) (loader.Summary, error)
	RunCurrent(ctx context.Context) (session.State, loader.Summary, error)
}

// PublishRunner は、料理リストを保存し、ギャラリーとして出力する責務を持ちます。
type PublishRunner interface {
	Run(ctx context.Context, dishes domain.Dishes, outputDir string) (publisher.PublishResult, error)
	RenderHTML(dishes domain.Dishes, displayCurrency string) ([]byte, error)
}

// ChatRunner は、解析済みのメニューについてアシスタントと会話する責務を持ちます。
type ChatRunner interface {
	Run(ctx context.Context, message string, dishes domain.Dishes, history domain.ChatHistory) (string, domain.ChatHistory, error)
	LoadHistory(ctx context.Context, historyPath string) (domain.ChatHistory, error)
	RunAndSave(ctx context.Context, message string, dishes domain.Dishes, historyPath string) (string, error)
}
