package cmd

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-menu-kit/internal/config"
	"github.com/shouni/go-menu-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// imageCmd は、保存済みの解析結果を読み込んで画像取得フェーズのみを実行するサブコマンドです。
// メニューの再解析をスキップして、画像取得（Phase 2）とパブリッシュ（Phase 3）のみを行います。
var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "保存済みの解析結果に料理画像を補完します。",
	Long: `scan で出力した dishes.json (または手で修正したもの) を読み込み、画像のない料理について
代表画像を検索してギャラリーを作り直します。解析のコストをかけずに画像だけ取り直したい場合に使います。`,
	RunE: imageCommand,
}

func init() {
	imageCmd.Flags().StringVarP(&opts.DishesFile, "dishes-file", "f", config.DefaultDishesFile, "読み込む解析結果 JSON のパスまたは URL です。")
}

// imageCommand は、image サブコマンドの実行ロジック本体です。
func imageCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if opts.DishesFile == "" {
		return fmt.Errorf("読み込むJSONファイル（--dishes-file）を指定してください")
	}

	cfg := loadConfig()

	slog.Info("Starting image-only mode",
		"input_json", cfg.Options.DishesFile,
		"output", cfg.Options.OutputDir)

	return pipeline.ExecuteImageOnly(ctx, cfg)
}
