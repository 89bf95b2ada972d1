package cmd

import (
	"log/slog"

	"github.com/shouni/go-menu-kit/internal/config"
	"github.com/shouni/go-menu-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// serveCmd は、ギャラリーと JSON API を提供するローカルサーバーを起動します。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "ローカルサーバーでギャラリーと API を提供します。",
	Long: `ブラウザからメニュー写真をアップロードして解析し、画像検索の進捗を確認しながら
ギャラリーを閲覧できるローカルサーバーを起動します。Ctrl+C で安全に停止します。`,
	RunE: serveCommand,
}

func init() {
	serveCmd.Flags().StringVar(&opts.ListenAddr, "addr", config.DefaultListenAddr, "待ち受けアドレスです。")
	serveCmd.Flags().BoolVar(&opts.Demo, "demo", false, "サンプルの料理リストを読み込んだ状態で起動します。")
	serveCmd.Flags().BoolVar(&opts.Direct, "direct", false, "チャットの既定を Gemini の直接呼び出しにします。")
}

func serveCommand(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	slog.Info("Starting MenuLens server", "addr", cfg.Options.ListenAddr, "api", cfg.APIBaseURL, "demo", cfg.Options.Demo)
	return pipeline.ExecuteServe(cmd.Context(), cfg)
}
