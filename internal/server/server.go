// Package server は、解析結果のギャラリーと JSON API を提供するローカル HTTP サーバーです。
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shouni/go-menu-kit/pkg/domain"
	"github.com/shouni/go-menu-kit/pkg/session"
	"github.com/shouni/go-menu-kit/pkg/settings"
	"github.com/shouni/go-menu-kit/pkg/workflow"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const (
	// DefaultMaxUploadBytes はアップロードを受け付けるリクエストボディの上限です。
	DefaultMaxUploadBytes = 12 << 20
	defaultRequestTimeout = 3 * time.Minute
	readHeaderTimeout     = 10 * time.Second
)

// Options はサーバーの挙動を調整します。
type Options struct {
	Addr           string
	MaxUploadBytes int64
	// DirectChat が true の場合、チャットの既定を Gemini の直接呼び出しにします。
	DirectChat bool
	// DemoDishes が空でなければ、起動時にセッションへ読み込みます。
	DemoDishes domain.Dishes
}

// Server は Workflow と実行時設定を HTTP で公開します。
type Server struct {
	wf       *workflow.Manager
	settings *settings.Store
	opts     Options
	router   chi.Router

	// 画像検索はリクエストを越えて続くため、サーバー自身のコンテキストで動かします。
	baseCtx context.Context
	stop    context.CancelFunc

	mu           sync.Mutex
	cancelImages context.CancelFunc
	jobs         sync.WaitGroup
}

// New は Server を初期化します。settingsStore が nil の場合、設定の保存は行いません。
func New(wf *workflow.Manager, settingsStore *settings.Store, opts Options) (*Server, error) {
	if wf == nil {
		return nil, fmt.Errorf("workflow.Manager は必須です")
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}

	baseCtx, stop := context.WithCancel(context.Background())
	s := &Server{
		wf:       wf,
		settings: settingsStore,
		opts:     opts,
		baseCtx:  baseCtx,
		stop:     stop,
	}
	s.router = s.routes()

	if len(opts.DemoDishes) > 0 {
		store := wf.Store()
		if err := store.Load(store.Begin(), opts.DemoDishes, map[string]any{"source": "demo"}); err != nil {
			stop()
			return nil, fmt.Errorf("デモデータの読み込みに失敗しました: %w", err)
		}
		slog.Info("Loaded demo dishes", "dishes", len(opts.DemoDishes))
	}
	return s, nil
}

// Handler はルーティング済みの http.Handler を返します。
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.CleanPath)
	r.Use(chimw.Timeout(defaultRequestTimeout))

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleGallery)

	r.Route("/api", func(api chi.Router) {
		api.Get("/state", s.handleState)
		api.Get("/dishes", s.handleDishes)
		api.Post("/dishes/{name}/select", s.handleSelect)
		api.Post("/scan", s.handleScan)
		api.Post("/reset", s.handleReset)
		api.Post("/chat", s.handleChat)
		api.Get("/convert", s.handleConvert)
		api.Get("/currencies", s.handleCurrencies)
		api.Get("/settings", s.handleGetSettings)
		api.Put("/settings", s.handlePutSettings)
		api.Delete("/settings", s.handleDeleteSettings)
	})
	return r
}

// ListenAndServe は ctx がキャンセルされるまでサーバーを動かし、その後 shutdownPeriod 以内に停止します。
func (s *Server) ListenAndServe(ctx context.Context, shutdownPeriod time.Duration) error {
	httpServer := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "addr", s.opts.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received", "timeout", shutdownPeriod)
	case err, ok := <-serverErr:
		if ok {
			s.Close()
			return fmt.Errorf("サーバーの起動に失敗しました: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownPeriod)
	defer cancel()

	err := httpServer.Shutdown(shutdownCtx)
	s.Close()
	s.waitJobs(shutdownCtx)
	if err != nil {
		return fmt.Errorf("サーバーの停止に失敗しました: %w", err)
	}
	slog.Info("Server stopped cleanly")
	return nil
}

// Close は実行中の画像検索をすべて中断します。
func (s *Server) Close() {
	s.stop()
}

func (s *Server) waitJobs(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("Image jobs did not stop before the shutdown deadline")
	}
}

// startImages は gen の世代の画像検索をバックグラウンドで開始します。
// 実行中の以前のジョブは中断します。
func (s *Server) startImages(gen session.Generation, dishes domain.Dishes) error {
	imageRunner, err := s.wf.BuildImageRunner()
	if err != nil {
		return fmt.Errorf("ImageRunnerの構築に失敗しました: %w", err)
	}

	ctx, cancel := context.WithCancel(s.baseCtx)
	s.mu.Lock()
	if s.cancelImages != nil {
		s.cancelImages()
	}
	s.cancelImages = cancel
	s.mu.Unlock()

	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		defer cancel()

		sum, err := imageRunner.Run(ctx, gen, dishes)
		if err != nil {
			slog.Warn("Image phase interrupted", "generation", gen, "error", err)
			return
		}
		slog.Info("Image phase finished", "generation", gen, "succeeded", sum.Succeeded, "failed", sum.Failed, "discarded", sum.Discarded)
	}()
	return nil
}

func (s *Server) stopImages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelImages != nil {
		s.cancelImages()
		s.cancelImages = nil
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}
