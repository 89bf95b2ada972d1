package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shouni/go-menu-kit/pkg/apiclient"
	"github.com/shouni/go-menu-kit/pkg/config"
	"github.com/shouni/go-menu-kit/pkg/imagecache"
	"github.com/shouni/go-menu-kit/pkg/prompts"
	"github.com/shouni/go-menu-kit/pkg/publisher"
	"github.com/shouni/go-menu-kit/pkg/session"
	"github.com/shouni/go-menu-kit/pkg/settings"
	"github.com/shouni/go-menu-kit/pkg/storage"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// ManagerArgs は Manager の初期化に必要な依存関係です。
type ManagerArgs struct {
	Config     config.Config
	HTTPClient apiclient.Doer
	Reader     storage.InputReader
	Writer     storage.OutputWriter
	Settings   settings.Settings

	// 以下は任意です。nil の場合はデフォルトの実装を使います。
	Store         *session.Store
	Cache         imagecache.Cache
	PromptBuilder prompts.PromptBuilder
	Converter     publisher.Converter

	// GeminiAPIKey が設定されている場合、チャットをバックエンドを介さず Gemini で直接処理できます。
	// 空の場合は Settings.LLMAPIKey を使います。
	GeminiAPIKey string
	// AIClientFactory は直接チャット用のクライアントを生成します。nil の場合は gemini.NewClient を使います。
	AIClientFactory AIClientFactory
	// ProxyImages が true の場合、ギャラリーの画像をバックエンドの画像プロキシ経由で表示します。
	ProxyImages bool
}

// AIClientFactory は APIキーと温度から Gemini クライアントを生成します。
type AIClientFactory func(ctx context.Context, apiKey string, temperature float32) (gemini.GenerativeModel, error)

// Manager は、ワークフローの各工程を担う Runner 群を構築・管理します。
type Manager struct {
	cfg           config.Config
	reader        storage.InputReader
	writer        storage.OutputWriter
	store         *session.Store
	cache         imagecache.Cache
	promptBuilder prompts.PromptBuilder
	converter     publisher.Converter
	proxyImages   bool
	envGeminiKey  string
	newAIClient   AIClientFactory

	mu       sync.RWMutex
	client   *apiclient.Client
	aiClient gemini.GenerativeModel
	aiKey    string
	aiTemp   float32
}

// New は、設定と依存関係を基に新しい Manager を初期化します。
func New(ctx context.Context, args ManagerArgs) (*Manager, error) {
	if args.HTTPClient == nil {
		return nil, fmt.Errorf("httpClient は必須です")
	}
	if args.Reader == nil {
		return nil, fmt.Errorf("InputReader は必須です")
	}
	if args.Writer == nil {
		return nil, fmt.Errorf("OutputWriter は必須です")
	}

	client, err := apiclient.New(args.Config.APIBaseURL, args.HTTPClient, args.Settings)
	if err != nil {
		return nil, fmt.Errorf("APIクライアントの初期化に失敗しました: %w", err)
	}

	pb, err := initializePromptBuilder(args.PromptBuilder)
	if err != nil {
		return nil, err
	}

	converter, err := initializeConverter(args.Converter)
	if err != nil {
		return nil, err
	}

	store := args.Store
	if store == nil {
		store = session.NewStore()
	}
	cache := args.Cache
	if cache == nil {
		cache = imagecache.NewMemory(args.Config.CacheExpiration, args.Config.CacheCleanup)
	}

	newAIClient := args.AIClientFactory
	if newAIClient == nil {
		newAIClient = initializeAIClient
	}

	m := &Manager{
		cfg:           args.Config,
		reader:        args.Reader,
		writer:        args.Writer,
		store:         store,
		cache:         cache,
		promptBuilder: pb,
		converter:     converter,
		proxyImages:   args.ProxyImages,
		envGeminiKey:  args.GeminiAPIKey,
		newAIClient:   newAIClient,
		client:        client,
	}
	if err := m.refreshAIClientLocked(ctx, args.Settings); err != nil {
		return nil, err
	}
	return m, nil
}

// Store はセッションの共有状態を返します。
func (m *Manager) Store() *session.Store {
	return m.store
}

// Client は現在の実行時設定を持つ API クライアントを返します。
func (m *Manager) Client() *apiclient.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

// UpdateSettings は実行時設定を差し替えます。以降に構築された Runner から反映されます。
// APIキーや温度が変わった場合は直接チャット用のクライアントも作り直します。
func (m *Manager) UpdateSettings(st settings.Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.refreshAIClientLocked(context.Background(), st); err != nil {
		return err
	}
	m.client = m.client.WithSettings(st)
	return nil
}

// HasDirectChat はバックエンドを介さないチャットが利用可能かを返します。
func (m *Manager) HasDirectChat() bool {
	return m.directModel() != nil
}

func (m *Manager) directModel() gemini.GenerativeModel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.aiClient
}

// refreshAIClientLocked は st から求めた APIキーと温度が現在のクライアントと異なる場合に作り直します。
// 呼び出し側は m.mu を保持している必要があります。
func (m *Manager) refreshAIClientLocked(ctx context.Context, st settings.Settings) error {
	apiKey := m.envGeminiKey
	if apiKey == "" {
		apiKey = st.LLMAPIKey
	}
	temperature := defaultGeminiTemperature
	if st.LLMTemperature != nil {
		temperature = float32(*st.LLMTemperature)
	}

	if apiKey == "" {
		m.aiClient, m.aiKey, m.aiTemp = nil, "", 0
		return nil
	}
	if m.aiClient != nil && apiKey == m.aiKey && temperature == m.aiTemp {
		return nil
	}

	aiClient, err := m.newAIClient(ctx, apiKey, temperature)
	if err != nil {
		return err
	}
	m.aiClient, m.aiKey, m.aiTemp = aiClient, apiKey, temperature
	slog.Debug("Direct chat client configured", "temperature", temperature)
	return nil
}

// initializeAIClient は gemini クライアントを初期化します。
func initializeAIClient(ctx context.Context, apiKey string, temperature float32) (gemini.GenerativeModel, error) {
	clientConfig := gemini.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(temperature),
	}
	aiClient, err := gemini.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return aiClient, nil
}

// initializePromptBuilder は PromptBuilder を初期化します。
// 引数として既存のビルダーが渡された場合はそれを返し、nil の場合は新規作成します。
func initializePromptBuilder(pb prompts.PromptBuilder) (prompts.PromptBuilder, error) {
	if pb != nil {
		return pb, nil
	}

	builder, err := prompts.NewTextPromptBuilder()
	if err != nil {
		return nil, fmt.Errorf("TextPromptBuilder の新規作成に失敗しました: %w", err)
	}
	return builder, nil
}

// initializeConverter は HTML コンバーターを初期化します。
func initializeConverter(c publisher.Converter) (publisher.Converter, error) {
	if c != nil {
		return c, nil
	}

	conv, err := publisher.NewGoldmarkConverter()
	if err != nil {
		return nil, fmt.Errorf("HTMLコンバーターの初期化に失敗しました: %w", err)
	}
	return conv, nil
}
