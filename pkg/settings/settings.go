package settings

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// デフォルト値の定義
const (
	DefaultLLMModel             = "gemini-2.5-flash-lite"
	DefaultLLMBaseURL           = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultLLMTemperature       = 0.2
	DefaultLLMTimeout           = 30 * time.Second
	DefaultGenerationModel      = "dall-e-3"
	DefaultImageVerifyThreshold = 0.7
	DefaultEnableImageGen       = true
	DefaultEnableRAGPipeline    = true
)

// 設定キー。バックエンドが受け付けるオーバーライド項目名と一致させています。
const (
	KeyLLMAPIKey             = "llm_api_key"
	KeyLLMBaseURL            = "llm_base_url"
	KeyLLMModel              = "llm_model"
	KeyLLMTemperature        = "llm_temperature"
	KeyLLMTimeout            = "llm_timeout"
	KeySearchAPIKey          = "search_api_key"
	KeySearchEngineID        = "search_engine_id"
	KeyGenerationAPIKey      = "generation_api_key"
	KeyGenerationModel       = "generation_model"
	KeyEnableImageGeneration = "enable_image_generation"
	KeyEnableRAGPipeline     = "enable_rag_pipeline"
	KeyImageVerifyThreshold  = "image_verify_threshold"
)

// Settings はユーザーが指定した実行時設定（APIキー、モデル、機能トグル）を保持します。
// 未設定の項目はゼロ値または nil のままで、リクエストには含めません。
// バックエンド側のデフォルトを上書きしたい項目だけを設定する想定です。
type Settings struct {
	LLMAPIKey      string   `json:"llm_api_key,omitempty"`
	LLMBaseURL     string   `json:"llm_base_url,omitempty"`
	LLMModel       string   `json:"llm_model,omitempty"`
	LLMTemperature *float64 `json:"llm_temperature,omitempty"`
	LLMTimeoutSec  int      `json:"llm_timeout,omitempty"`

	SearchAPIKey   string `json:"search_api_key,omitempty"`
	SearchEngineID string `json:"search_engine_id,omitempty"`

	GenerationAPIKey      string   `json:"generation_api_key,omitempty"`
	GenerationModel       string   `json:"generation_model,omitempty"`
	EnableImageGeneration *bool    `json:"enable_image_generation,omitempty"`
	EnableRAGPipeline     *bool    `json:"enable_rag_pipeline,omitempty"`
	ImageVerifyThreshold  *float64 `json:"image_verify_threshold,omitempty"`
}

// Effective はデフォルト値で補完済みの設定です。直接 LLM を呼ぶ場合などに使います。
type Effective struct {
	LLMAPIKey             string
	LLMBaseURL            string
	LLMModel              string
	LLMTemperature        float64
	LLMTimeout            time.Duration
	SearchAPIKey          string
	SearchEngineID        string
	GenerationAPIKey      string
	GenerationModel       string
	EnableImageGeneration bool
	EnableRAGPipeline     bool
	ImageVerifyThreshold  float64
}

// Resolve は未設定の項目をデフォルト値で埋めた Effective を返します。
func (s Settings) Resolve() Effective {
	e := Effective{
		LLMAPIKey:             s.LLMAPIKey,
		LLMBaseURL:            orDefault(s.LLMBaseURL, DefaultLLMBaseURL),
		LLMModel:              orDefault(s.LLMModel, DefaultLLMModel),
		LLMTemperature:        DefaultLLMTemperature,
		LLMTimeout:            DefaultLLMTimeout,
		SearchAPIKey:          s.SearchAPIKey,
		SearchEngineID:        s.SearchEngineID,
		GenerationAPIKey:      s.GenerationAPIKey,
		GenerationModel:       orDefault(s.GenerationModel, DefaultGenerationModel),
		EnableImageGeneration: DefaultEnableImageGen,
		EnableRAGPipeline:     DefaultEnableRAGPipeline,
		ImageVerifyThreshold:  DefaultImageVerifyThreshold,
	}
	if s.LLMTemperature != nil {
		e.LLMTemperature = *s.LLMTemperature
	}
	if s.LLMTimeoutSec > 0 {
		e.LLMTimeout = time.Duration(s.LLMTimeoutSec) * time.Second
	}
	if s.EnableImageGeneration != nil {
		e.EnableImageGeneration = *s.EnableImageGeneration
	}
	if s.EnableRAGPipeline != nil {
		e.EnableRAGPipeline = *s.EnableRAGPipeline
	}
	if s.ImageVerifyThreshold != nil {
		e.ImageVerifyThreshold = *s.ImageVerifyThreshold
	}
	return e
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// Validate は値の範囲をチェックします。
func (s Settings) Validate() error {
	if s.LLMTemperature != nil && (*s.LLMTemperature < 0 || *s.LLMTemperature > 2) {
		return fmt.Errorf("%s must be between 0 and 2, got %v", KeyLLMTemperature, *s.LLMTemperature)
	}
	if s.LLMTimeoutSec < 0 {
		return fmt.Errorf("%s must not be negative, got %d", KeyLLMTimeout, s.LLMTimeoutSec)
	}
	if s.ImageVerifyThreshold != nil && (*s.ImageVerifyThreshold < 0 || *s.ImageVerifyThreshold > 1) {
		return fmt.Errorf("%s must be between 0 and 1, got %v", KeyImageVerifyThreshold, *s.ImageVerifyThreshold)
	}
	return nil
}

// IsEmpty は上書き項目が1つも設定されていないかを返します。
func (s Settings) IsEmpty() bool {
	return len(s.FormFields()) == 0
}

// FormFields は multipart リクエストに追加するオーバーライド項目を返します。
// 設定されている項目のみを含みます。
func (s Settings) FormFields() map[string]string {
	fields := make(map[string]string)
	put := func(key, val string) {
		if strings.TrimSpace(val) != "" {
			fields[key] = val
		}
	}

	put(KeyLLMAPIKey, s.LLMAPIKey)
	put(KeyLLMBaseURL, s.LLMBaseURL)
	put(KeyLLMModel, s.LLMModel)
	if s.LLMTemperature != nil {
		fields[KeyLLMTemperature] = strconv.FormatFloat(*s.LLMTemperature, 'f', -1, 64)
	}
	if s.LLMTimeoutSec > 0 {
		fields[KeyLLMTimeout] = strconv.Itoa(s.LLMTimeoutSec)
	}
	put(KeySearchAPIKey, s.SearchAPIKey)
	put(KeySearchEngineID, s.SearchEngineID)
	put(KeyGenerationAPIKey, s.GenerationAPIKey)
	put(KeyGenerationModel, s.GenerationModel)
	if s.EnableImageGeneration != nil {
		fields[KeyEnableImageGeneration] = strconv.FormatBool(*s.EnableImageGeneration)
	}
	if s.EnableRAGPipeline != nil {
		fields[KeyEnableRAGPipeline] = strconv.FormatBool(*s.EnableRAGPipeline)
	}
	if s.ImageVerifyThreshold != nil {
		fields[KeyImageVerifyThreshold] = strconv.FormatFloat(*s.ImageVerifyThreshold, 'f', -1, 64)
	}
	return fields
}

// JSONOverrides は JSON ボディにマージするオーバーライド項目を型付きで返します。
func (s Settings) JSONOverrides() map[string]any {
	out := make(map[string]any)
	for k, v := range s.FormFields() {
		out[k] = v
	}
	// 数値・真偽値は文字列ではなく元の型で送る
	if s.LLMTemperature != nil {
		out[KeyLLMTemperature] = *s.LLMTemperature
	}
	if s.LLMTimeoutSec > 0 {
		out[KeyLLMTimeout] = s.LLMTimeoutSec
	}
	if s.EnableImageGeneration != nil {
		out[KeyEnableImageGeneration] = *s.EnableImageGeneration
	}
	if s.EnableRAGPipeline != nil {
		out[KeyEnableRAGPipeline] = *s.EnableRAGPipeline
	}
	if s.ImageVerifyThreshold != nil {
		out[KeyImageVerifyThreshold] = *s.ImageVerifyThreshold
	}
	return out
}

// Set はキー名と文字列値から1項目を更新します。空文字を渡すと未設定に戻します。
// 値が不正な場合は何も変更しません。
func (s *Settings) Set(key, value string) error {
	next := *s
	if err := next.apply(key, strings.TrimSpace(value)); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*s = next
	return nil
}

func (s *Settings) apply(key, value string) error {
	switch key {
	case KeyLLMAPIKey:
		s.LLMAPIKey = value
	case KeyLLMBaseURL:
		s.LLMBaseURL = value
	case KeyLLMModel:
		s.LLMModel = value
	case KeySearchAPIKey:
		s.SearchAPIKey = value
	case KeySearchEngineID:
		s.SearchEngineID = value
	case KeyGenerationAPIKey:
		s.GenerationAPIKey = value
	case KeyGenerationModel:
		s.GenerationModel = value
	case KeyLLMTemperature:
		f, err := parseFloatPtr(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		s.LLMTemperature = f
	case KeyImageVerifyThreshold:
		f, err := parseFloatPtr(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		s.ImageVerifyThreshold = f
	case KeyLLMTimeout:
		if value == "" {
			s.LLMTimeoutSec = 0
			break
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		s.LLMTimeoutSec = n
	case KeyEnableImageGeneration:
		b, err := parseBoolPtr(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		s.EnableImageGeneration = b
	case KeyEnableRAGPipeline:
		b, err := parseBoolPtr(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		s.EnableRAGPipeline = b
	default:
		return fmt.Errorf("unknown settings key %q (available: %s)", key, strings.Join(Keys(), ", "))
	}
	return nil
}

// Keys は設定可能なキーの一覧をソートして返します。
func Keys() []string {
	keys := []string{
		KeyLLMAPIKey, KeyLLMBaseURL, KeyLLMModel, KeyLLMTemperature, KeyLLMTimeout,
		KeySearchAPIKey, KeySearchEngineID,
		KeyGenerationAPIKey, KeyGenerationModel,
		KeyEnableImageGeneration, KeyEnableRAGPipeline, KeyImageVerifyThreshold,
	}
	sort.Strings(keys)
	return keys
}

// Masked は APIキーを伏せ字にしたコピーを返します。表示用です。
func (s Settings) Masked() Settings {
	m := s
	m.LLMAPIKey = mask(s.LLMAPIKey)
	m.SearchAPIKey = mask(s.SearchAPIKey)
	m.GenerationAPIKey = mask(s.GenerationAPIKey)
	return m
}

func mask(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}

func parseFloatPtr(v string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func parseBoolPtr(v string) (*bool, error) {
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
