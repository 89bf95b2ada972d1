package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shouni/go-menu-kit/internal/config"

	"github.com/spf13/cobra"
)

const appName = "menulens"

var (
	// opts は各サブコマンドのフラグが書き込む実行時オプションです。
	opts    config.Options
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "メニュー写真を解析し、料理の写真付きギャラリーを作成します。",
	Long: `メニュー写真をバックエンドで解析し、料理ごとの説明・価格・食事制限タグと
代表画像をまとめたギャラリー (Markdown / HTML) を生成します。
ローカルサーバーでの閲覧、通貨換算、メニューについてのチャットにも対応しています。`,
	SilenceUsage:      true,
	PersistentPreRunE: preRunAppE,
}

func init() {
	addAppFlags(rootCmd)
	rootCmd.AddCommand(
		scanCmd,
		imageCmd,
		chatCmd,
		serveCmd,
		convertCmd,
		settingsCmd,
	)
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義します。
func addAppFlags(rootCmd *cobra.Command) {
	// --- 出力関連 ---
	rootCmd.PersistentFlags().StringVarP(&opts.OutputDir, "output-dir", "o", config.DefaultOutputDir, "ギャラリーと解析結果の出力先ディレクトリです。")
	rootCmd.PersistentFlags().StringVar(&opts.Title, "title", "", "ギャラリーのタイトルです。")

	// --- 解析・表示設定 ---
	rootCmd.PersistentFlags().StringVarP(&opts.TargetLanguage, "lang", "l", "", "説明文の翻訳先の言語です (既定: English)。")
	rootCmd.PersistentFlags().StringVar(&opts.SourceCurrency, "source-currency", "", "メニューに記載された価格の通貨コードです。")
	rootCmd.PersistentFlags().StringVarP(&opts.DisplayCurrency, "currency", "c", "", "換算して併記する通貨コードです (既定: USD)。")
	rootCmd.PersistentFlags().BoolVar(&opts.ProxyImages, "proxy-images", false, "料理画像をバックエンドの画像プロキシ経由で表示します。")

	// --- 実行制御 ---
	rootCmd.PersistentFlags().IntVar(&opts.Concurrency, "concurrency", 0, "画像検索の同時実行数です (既定: 3)。")
	rootCmd.PersistentFlags().DurationVar(&opts.RateInterval, "rate-interval", 0, "画像検索リクエストの最小間隔です。")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "デバッグログを出力します。")
}

// preRunAppE は、コマンド実行前に .env の読み込みとロガーの設定を行います。
func preRunAppE(cmd *cobra.Command, args []string) error {
	config.LoadDotEnv()

	level := config.LoadConfig().LogLevel
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadConfig は環境変数から設定を読み込み、CLI フラグの値を反映します。
func loadConfig() *config.Config {
	cfg := config.LoadConfig()
	cfg.Options = opts
	return cfg
}

// Execute は、アプリケーションのメインエントリポイントです。
// SIGINT / SIGTERM でキャンセルされるコンテキストでコマンドを実行します。
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
