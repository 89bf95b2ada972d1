package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-menu-kit/examples"
	"github.com/shouni/go-menu-kit/internal/builder"
	"github.com/shouni/go-menu-kit/internal/config"
	"github.com/shouni/go-menu-kit/internal/server"
	"github.com/shouni/go-menu-kit/pkg/domain"
	"github.com/shouni/go-menu-kit/pkg/loader"
	"github.com/shouni/go-menu-kit/pkg/parser"
	"github.com/shouni/go-menu-kit/pkg/runner"
	"github.com/shouni/go-menu-kit/pkg/session"
)

// ExecuteScan は、メニュー写真の解析（Phase 1）、料理画像の取得（Phase 2）、
// ギャラリーの出力（Phase 3）を順に実行します。
func ExecuteScan(ctx context.Context, cfg *config.Config) error {
	appCtx, err := builder.BuildAppContext(ctx, cfg)
	if err != nil {
		return fmt.Errorf("アプリケーションの初期化に失敗しました: %w", err)
	}
	defer closeApp(appCtx)

	// --- Phase 1: Scan Phase (メニュー解析) ---
	scan, err := runScanStep(ctx, appCtx)
	if err != nil {
		return err
	}

	// --- Phase 2: Image Phase (料理画像の取得) ---
	// 一括解析では画像検索も済んでいるので省略します。
	if !appCtx.Options.SkipImages && !appCtx.Options.Full {
		if err := runImageStep(ctx, appCtx, scan.Generation, scan.Dishes); err != nil {
			return err
		}
	}

	// --- Phase 3: Publish Phase (公開/保存) ---
	if err := runPublishStep(ctx, appCtx, appCtx.Workflow.Store().Dishes()); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Menu scan completed", "dishes", len(scan.Dishes))
	return nil
}

// ExecuteImageOnly は、保存済みの解析結果を読み込み、画像のない料理について
// 画像取得と公開処理（Phase 2 & 3）を実行します。
func ExecuteImageOnly(ctx context.Context, cfg *config.Config) error {
	appCtx, err := builder.BuildAppContext(ctx, cfg)
	if err != nil {
		return fmt.Errorf("アプリケーションの初期化に失敗しました: %w", err)
	}
	defer closeApp(appCtx)

	dishes, err := parser.NewDishesParser(appCtx.Reader).ParseFromPath(ctx, appCtx.Options.DishesFile)
	if err != nil {
		return err
	}

	store := appCtx.Workflow.Store()
	gen := store.Begin()
	if err := store.Load(gen, dishes, nil); err != nil {
		return fmt.Errorf("解析結果の反映に失敗しました: %w", err)
	}

	var missing domain.Dishes
	for _, d := range dishes {
		if !d.HasImage() {
			missing = append(missing, d)
		}
	}
	if len(missing) == 0 {
		slog.InfoContext(ctx, "All dishes already have images", "dishes", len(dishes))
	} else if err := runImageStep(ctx, appCtx, gen, missing); err != nil {
		return err
	}

	if err := runPublishStep(ctx, appCtx, store.Dishes()); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Image search and publish completed", "input", appCtx.Options.DishesFile, "searched", len(missing))
	return nil
}

// ExecuteChat は、保存済みの解析結果を前提にアシスタントへ質問し、返答を返します。
// 会話履歴は Options.ChatLog に保存され、次回の質問に引き継がれます。
func ExecuteChat(ctx context.Context, cfg *config.Config) (string, error) {
	appCtx, err := builder.BuildAppContext(ctx, cfg)
	if err != nil {
		return "", fmt.Errorf("アプリケーションの初期化に失敗しました: %w", err)
	}
	defer closeApp(appCtx)

	var dishes domain.Dishes
	if appCtx.Options.DishesFile != "" {
		dishes, err = parser.NewDishesParser(appCtx.Reader).ParseFromPath(ctx, appCtx.Options.DishesFile)
		if err != nil {
			return "", err
		}
	}

	chatRunner, err := appCtx.Workflow.BuildChatRunner(appCtx.Options.Direct, appCtx.Options.ChatMode)
	if err != nil {
		return "", fmt.Errorf("ChatRunnerの構築に失敗しました: %w", err)
	}

	reply, err := chatRunner.RunAndSave(ctx, appCtx.Options.Message, dishes, appCtx.Options.ChatLog)
	if err != nil {
		return "", fmt.Errorf("チャットの実行に失敗しました: %w", err)
	}
	return reply, nil
}

// ExecuteServe は、ローカルサーバーを起動し、ctx がキャンセルされるまでギャラリーと API を提供します。
func ExecuteServe(ctx context.Context, cfg *config.Config) error {
	appCtx, err := builder.BuildAppContext(ctx, cfg)
	if err != nil {
		return fmt.Errorf("アプリケーションの初期化に失敗しました: %w", err)
	}
	defer closeApp(appCtx)

	srvOpts := server.Options{
		Addr:       appCtx.Options.ListenAddr,
		DirectChat: appCtx.Options.Direct,
	}
	if appCtx.Options.Demo {
		demo, err := examples.SampleDishes()
		if err != nil {
			return fmt.Errorf("デモデータの読み込みに失敗しました: %w", err)
		}
		srvOpts.DemoDishes = demo
	}

	srv, err := server.New(appCtx.Workflow, appCtx.Settings, srvOpts)
	if err != nil {
		return fmt.Errorf("サーバーの初期化に失敗しました: %w", err)
	}
	return srv.ListenAndServe(ctx, config.DefaultShutdownPeriod)
}

func runScanStep(ctx context.Context, appCtx *builder.AppContext) (runner.ScanResult, error) {
	scanRunner, err := appCtx.Workflow.BuildScanRunner()
	if err != nil {
		return runner.ScanResult{}, fmt.Errorf("ScanRunnerの構築に失敗しました: %w", err)
	}

	in := runner.ScanInput{
		TargetLanguage: appCtx.Options.TargetLanguage,
		SourceCurrency: appCtx.Options.SourceCurrency,
		Full:           appCtx.Options.Full,
	}
	res, err := scanRunner.RunFromPath(ctx, appCtx.Options.ImageFile, in)
	if err != nil {
		return res, fmt.Errorf("メニュー解析フェーズに失敗しました: %w", err)
	}
	return res, nil
}

func runImageStep(ctx context.Context, appCtx *builder.AppContext, gen session.Generation, dishes domain.Dishes) error {
	imageRunner, err := appCtx.Workflow.BuildImageRunner(
		loader.WithProgress(func(p session.Progress) {
			slog.InfoContext(ctx, "Finding dish images...", "done", p.Done, "total", p.Total)
		}),
	)
	if err != nil {
		return fmt.Errorf("ImageRunnerの構築に失敗しました: %w", err)
	}

	sum, err := imageRunner.Run(ctx, gen, dishes)
	if err != nil {
		return fmt.Errorf("画像取得フェーズに失敗しました: %w", err)
	}
	slog.InfoContext(ctx, "Image phase finished",
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"cached", sum.Cached,
	)
	return nil
}

func runPublishStep(ctx context.Context, appCtx *builder.AppContext, dishes domain.Dishes) error {
	publishRunner, err := appCtx.Workflow.BuildPublishRunner()
	if err != nil {
		return fmt.Errorf("PublishRunnerの構築に失敗しました: %w", err)
	}

	res, err := publishRunner.Run(ctx, dishes, appCtx.Options.OutputDir)
	if err != nil {
		return fmt.Errorf("公開フェーズに失敗しました: %w", err)
	}
	slog.InfoContext(ctx, "Gallery published",
		"json", res.JSONPath,
		"snapshot", res.SnapshotPath,
		"markdown", res.MarkdownPath,
		"html", res.HTMLPath,
	)
	return nil
}

func closeApp(appCtx *builder.AppContext) {
	if err := appCtx.Close(); err != nil {
		slog.Warn("Failed to close application resources", "error", err)
	}
}
