package builder

import (
	"errors"
	"io"

	"github.com/shouni/go-menu-kit/internal/config"
	"github.com/shouni/go-menu-kit/pkg/settings"
	"github.com/shouni/go-menu-kit/pkg/storage"
	"github.com/shouni/go-menu-kit/pkg/workflow"

	"github.com/shouni/go-http-kit/pkg/httpkit"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する
// これを各 Execute 関数に渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config   *config.Config       // Configは、環境変数から読み込まれたグローバルな設定です（APIのURL、タイムアウトなど）。
	Options  config.Options       // Optionsは、コマンドラインから渡された実行時の設定です（言語、通貨、出力先など）。
	Reader   storage.InputReader  // Readerは、メニュー画像や解析結果の読み込みに使用する入力元です。
	Writer   storage.OutputWriter // Writerは、生成された内容を保存するための出力先です。
	Settings *settings.Store      // Settingsは、ユーザーの実行時設定の永続化先です。
	Workflow *workflow.Manager    // Workflowは、各工程の Runner を構築するマネージャーです。

	httpClient httpkit.HTTPClient // httpClient はバックエンドとの通信に使う共通クライアント
	closers    []io.Closer
}

// NewAppContext は AppContext の新しいインスタンスを生成する
func NewAppContext(
	cfg *config.Config,
	httpClient httpkit.HTTPClient,
	reader storage.InputReader,
	writer storage.OutputWriter,
	settingsStore *settings.Store,
	manager *workflow.Manager,
	closers ...io.Closer,
) *AppContext {
	return &AppContext{
		Config:     cfg,
		Options:    cfg.Options,
		Reader:     reader,
		Writer:     writer,
		Settings:   settingsStore,
		Workflow:   manager,
		httpClient: httpClient,
		closers:    closers,
	}
}

// Close は共有キャッシュなどの外部接続を閉じます。
func (a *AppContext) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
