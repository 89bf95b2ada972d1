package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-menu-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// scanCmd は、メニュー写真の解析から画像取得、ギャラリー出力までを実行します。
var scanCmd = &cobra.Command{
	Use:   "scan [image]",
	Short: "メニュー写真を解析してギャラリーを作成します。",
	Long: `メニュー写真 (jpg / jpeg / png / webp) をバックエンドで解析し、料理ごとの代表画像を
並列に検索したうえで、解析結果 (dishes.json) とギャラリー (gallery.md / gallery.html) を出力します。
画像はローカルのパスまたは URL で指定できます。`,
	Args: cobra.MaximumNArgs(1),
	RunE: scanCommand,
}

func init() {
	scanCmd.Flags().StringVarP(&opts.ImageFile, "image", "i", "", "メニュー写真のパスまたは URL です。")
	scanCmd.Flags().BoolVar(&opts.Full, "full", false, "画像検索まで含めた一括解析を使います (進捗表示なし)。")
	scanCmd.Flags().BoolVar(&opts.SkipImages, "skip-images", false, "料理画像の検索を行いません。")
}

func scanCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if opts.ImageFile == "" && len(args) == 1 {
		opts.ImageFile = args[0]
	}
	if opts.ImageFile == "" {
		return fmt.Errorf("メニュー写真（--image または引数）を指定してください")
	}

	cfg := loadConfig()

	slog.Info("Starting menu scan",
		"image", cfg.Options.ImageFile,
		"api", cfg.APIBaseURL,
		"full", cfg.Options.Full,
		"output", cfg.Options.OutputDir)

	if err := pipeline.ExecuteScan(ctx, cfg); err != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生しました: %w", err)
	}
	return nil
}
