package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/shouni/go-menu-kit/pkg/apiclient"
	"github.com/shouni/go-menu-kit/pkg/config"
	"github.com/shouni/go-menu-kit/pkg/domain"
	"github.com/shouni/go-menu-kit/pkg/session"
	"github.com/shouni/go-menu-kit/pkg/storage"
)

// Analyzer はメニュー画像の解析 API です。*apiclient.Client が実装します。
type Analyzer interface {
	ValidateAnalyzeRequest(req apiclient.AnalyzeRequest) error
	AnalyzeMenuText(ctx context.Context, req apiclient.AnalyzeRequest) (*apiclient.AnalyzeResult, error)
	AnalyzeMenu(ctx context.Context, req apiclient.AnalyzeRequest) (*apiclient.AnalyzeResult, error)
}

// ScanInput はメニュー解析の入力です。
type ScanInput struct {
	Image          []byte
	FileName       string
	TargetLanguage string
	SourceCurrency string
	// Full が true の場合は画像検索まで含めた一括解析 (/api/analyze-menu) を使います。
	Full bool
}

// ScanResult は解析フェーズの結果です。
type ScanResult struct {
	Generation session.Generation
	Dishes     domain.Dishes
	Metadata   map[string]any
}

// MenuScanRunner はメニュー画像を解析し、結果をセッションに反映します。
type MenuScanRunner struct {
	cfg      config.Config
	analyzer Analyzer
	store    *session.Store
	reader   storage.InputReader
}

// NewMenuScanRunner は依存関係を注入して初期化します。
func NewMenuScanRunner(cfg config.Config, analyzer Analyzer, store *session.Store, reader storage.InputReader) *MenuScanRunner {
	return &MenuScanRunner{
		cfg:      cfg,
		analyzer: analyzer,
		store:    store,
		reader:   reader,
	}
}

// Run は新しい解析セッションを開始し、解析結果で料理リストを置き換えます。
// 入力の検証は通信前に行い、失敗はセッションのエラーとして記録します。
func (r *MenuScanRunner) Run(ctx context.Context, in ScanInput) (ScanResult, error) {
	gen := r.store.Begin()
	res := ScanResult{Generation: gen}

	if in.TargetLanguage == "" {
		in.TargetLanguage = r.cfg.TargetLanguage
	}
	req := apiclient.AnalyzeRequest{
		Image:          in.Image,
		FileName:       in.FileName,
		TargetLanguage: in.TargetLanguage,
		SourceCurrency: in.SourceCurrency,
	}

	if err := r.analyzer.ValidateAnalyzeRequest(req); err != nil {
		r.fail(gen, err)
		return res, err
	}

	slog.InfoContext(ctx, "ScanRunner: Analyzing menu",
		"file", in.FileName,
		"bytes", len(in.Image),
		"language", in.TargetLanguage,
		"full", in.Full,
	)
	startTime := time.Now()

	analyze := r.analyzer.AnalyzeMenuText
	if in.Full {
		analyze = r.analyzer.AnalyzeMenu
	}
	result, err := analyze(ctx, req)
	if err != nil {
		r.fail(gen, err)
		return res, fmt.Errorf("メニューの解析に失敗しました: %w", err)
	}

	if err := r.store.Load(gen, result.Dishes, result.Metadata); err != nil {
		if errors.Is(err, session.ErrStale) {
			slog.WarnContext(ctx, "Discarding analysis result from a previous session", "generation", gen)
		}
		return res, fmt.Errorf("解析結果の反映に失敗しました: %w", err)
	}

	slog.InfoContext(ctx, "ScanRunner: Menu analyzed",
		"dishes", len(result.Dishes),
		"duration", time.Since(startTime).Round(time.Millisecond),
	)

	res.Dishes = result.Dishes.Clone()
	res.Metadata = result.Metadata
	return res, nil
}

// RunFromPath は InputReader からメニュー画像を読み込んで Run を実行します。
func (r *MenuScanRunner) RunFromPath(ctx context.Context, imagePath string, in ScanInput) (ScanResult, error) {
	rc, err := r.reader.Open(ctx, imagePath)
	if err != nil {
		return ScanResult{}, fmt.Errorf("メニュー画像 '%s' の読み込みに失敗しました: %w", imagePath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return ScanResult{}, fmt.Errorf("メニュー画像 '%s' の読み込みに失敗しました: %w", imagePath, err)
	}
	in.Image = data
	if in.FileName == "" {
		in.FileName = path.Base(imagePath)
	}
	return r.Run(ctx, in)
}

func (r *MenuScanRunner) fail(gen session.Generation, err error) {
	if ferr := r.store.Fail(gen, apiclient.UserMessage(err)); ferr != nil {
		slog.Debug("Session moved on before the error was recorded", "generation", gen, "error", ferr)
	}
}
