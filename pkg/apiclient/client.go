package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/shouni/go-menu-kit/pkg/domain"
	"github.com/shouni/go-menu-kit/pkg/settings"
)

// バックエンドのエンドポイント
const (
	PathAnalyzeTextOnly = "/api/analyze-text-only"
	PathAnalyzeMenu     = "/api/analyze-menu"
	PathSearchDishImage = "/api/search-dish-image"
	PathMenuChat        = "/api/menu-chat"
	PathProxyImage      = "/api/proxy-image"
	PathHealth          = "/health"
)

// アップロード画像の制限。バックエンドの受け入れ条件と揃えています。
const (
	DefaultMaxFileSize = 10 << 20
	maxErrorBodyBytes  = 64 << 10
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// Doer は HTTP リクエストを実行するトランスポートです。
// タイムアウトはトランスポート側で固定的に設定します。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client は MenuLens バックエンドの API クライアントです。
type Client struct {
	baseURL     string
	doer        Doer
	settings    settings.Settings
	maxFileSize int64
}

// Option は Client の任意設定です。
type Option func(*Client)

// WithMaxFileSize はアップロード画像の上限サイズを変更します。
func WithMaxFileSize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxFileSize = n
		}
	}
}

// New は Client を生成します。st はリクエストごとにオーバーライド項目として送信されます。
func New(baseURL string, doer Doer, st settings.Settings, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("不正なAPIベースURLです: %q", baseURL)
	}
	if doer == nil {
		return nil, fmt.Errorf("HTTPクライアントが指定されていません")
	}
	c := &Client{
		baseURL:     strings.TrimRight(u.String(), "/"),
		doer:        doer,
		settings:    st,
		maxFileSize: DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL はバックエンドのベースURLを返します。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Settings は送信に使う実行時設定を返します。
func (c *Client) Settings() settings.Settings {
	return c.settings
}

// WithSettings は実行時設定だけを差し替えた Client のコピーを返します。
func (c *Client) WithSettings(st settings.Settings) *Client {
	next := *c
	next.settings = st
	return &next
}

// AnalyzeRequest はメニュー解析のリクエストです。
type AnalyzeRequest struct {
	Image          []byte
	FileName       string
	TargetLanguage string
	SourceCurrency string // 空なら送信しない
}

// AnalyzeResult はメニュー解析の結果です。
type AnalyzeResult struct {
	Dishes   domain.Dishes
	Metadata map[string]any
}

type analyzeResponse struct {
	Success   bool           `json:"success"`
	Dishes    domain.Dishes  `json:"dishes"`
	Error     string         `json:"error"`
	ErrorCode string         `json:"error_code"`
	Metadata  map[string]any `json:"metadata"`
}

// AnalyzeMenuText はメニュー画像をテキスト解析のみで処理します（フェーズ1）。
func (c *Client) AnalyzeMenuText(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	return c.analyze(ctx, "analyze-text-only", PathAnalyzeTextOnly, req)
}

// AnalyzeMenu は画像検索まで含めた旧来の一括解析を行います。
func (c *Client) AnalyzeMenu(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	return c.analyze(ctx, "analyze-menu", PathAnalyzeMenu, req)
}

// ValidateAnalyzeRequest は通信前にアップロード内容を検証します。
func (c *Client) ValidateAnalyzeRequest(req AnalyzeRequest) error {
	const op = "validate"
	if len(req.Image) == 0 {
		return validationError(op, "menu image is required")
	}
	if int64(len(req.Image)) > c.maxFileSize {
		return validationError(op, "image is too large: %d bytes (max %d MB)", len(req.Image), c.maxFileSize>>20)
	}
	ext := strings.ToLower(filepath.Ext(req.FileName))
	if !allowedExtensions[ext] {
		return validationError(op, "unsupported image type %q (allowed: jpg, jpeg, png, webp)", ext)
	}
	if strings.TrimSpace(req.TargetLanguage) == "" {
		return validationError(op, "target language is required")
	}
	return nil
}

func (c *Client) analyze(ctx context.Context, op, path string, req AnalyzeRequest) (*AnalyzeResult, error) {
	if err := c.ValidateAnalyzeRequest(req); err != nil {
		return nil, err
	}

	body, contentType, err := c.buildMultipart(req)
	if err != nil {
		return nil, &AnalysisError{Kind: KindValidation, Op: op, Message: "failed to build upload", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, &AnalysisError{Kind: KindNetwork, Op: op, Err: err}
	}
	httpReq.Header.Set("Content-Type", contentType)

	var res analyzeResponse
	if err := c.do(httpReq, op, &res); err != nil {
		return nil, err
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "menu analysis failed"
		}
		return nil, &AnalysisError{Kind: KindBackendRejected, Op: op, Message: msg, Code: res.ErrorCode}
	}

	slog.DebugContext(ctx, "Menu analyzed", "op", op, "dishes", len(res.Dishes))
	return &AnalyzeResult{Dishes: res.Dishes, Metadata: res.Metadata}, nil
}

func (c *Client) buildMultipart(req AnalyzeRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", filepath.Base(req.FileName))
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(req.Image); err != nil {
		return nil, "", err
	}

	fields := c.settings.FormFields()
	fields["target_language"] = req.TargetLanguage
	if req.SourceCurrency != "" {
		fields["source_currency"] = req.SourceCurrency
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

// SearchDishImage は1品分の代表画像を検索し、画像情報が補完された料理を返します（フェーズ2）。
func (c *Client) SearchDishImage(ctx context.Context, dish domain.Dish) (domain.Dish, error) {
	const op = "search-dish-image"

	payload, err := dishPayload(dish, c.settings.JSONOverrides())
	if err != nil {
		return domain.Dish{}, &AnalysisError{Kind: KindValidation, Op: op, Err: err}
	}

	var res analyzeResponse
	if err := c.postJSON(ctx, op, PathSearchDishImage, payload, &res); err != nil {
		return domain.Dish{}, err
	}
	if !res.Success {
		return domain.Dish{}, &AnalysisError{Kind: KindBackendRejected, Op: op, Message: res.Error, Code: res.ErrorCode}
	}
	if len(res.Dishes) == 0 {
		return domain.Dish{}, &AnalysisError{Kind: KindBackendRejected, Op: op, Message: "no dish returned"}
	}
	return res.Dishes[0], nil
}

// dishPayload は料理の JSON にオーバーライド項目を平坦にマージします。
func dishPayload(dish domain.Dish, overrides map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(dish)
	if err != nil {
		return nil, err
	}
	payload := make(map[string]any)
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	for k, v := range overrides {
		payload[k] = v
	}
	return payload, nil
}

// SendChatMessage はメニューを文脈としてアシスタントに質問し、返答を返します。
func (c *Client) SendChatMessage(ctx context.Context, message string, dishes domain.Dishes, history domain.ChatHistory) (string, error) {
	const op = "menu-chat"
	if strings.TrimSpace(message) == "" {
		return "", validationError(op, "message is empty")
	}
	if dishes == nil {
		dishes = domain.Dishes{}
	}
	if history == nil {
		history = domain.ChatHistory{}
	}

	payload := map[string]any{
		"message": message,
		"dishes":  dishes,
		"history": history,
	}
	for k, v := range c.settings.JSONOverrides() {
		payload[k] = v
	}

	var res struct {
		Success   bool   `json:"success"`
		Reply     string `json:"reply"`
		Error     string `json:"error"`
		ErrorCode string `json:"error_code"`
	}
	if err := c.postJSON(ctx, op, PathMenuChat, payload, &res); err != nil {
		return "", err
	}
	if !res.Success {
		return "", &AnalysisError{Kind: KindBackendRejected, Op: op, Message: res.Error, Code: res.ErrorCode}
	}
	return res.Reply, nil
}

// HealthStatus はバックエンドの稼働状態です。
type HealthStatus struct {
	Status             string `json:"status"`
	Service            string `json:"service"`
	Version            string `json:"version"`
	RAGPipelineEnabled bool   `json:"rag_pipeline_enabled"`
}

// Health はバックエンドのヘルスチェックを行います。
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	const op = "health"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+PathHealth, nil)
	if err != nil {
		return nil, &AnalysisError{Kind: KindNetwork, Op: op, Err: err}
	}
	var hs HealthStatus
	if err := c.do(httpReq, op, &hs); err != nil {
		return nil, err
	}
	return &hs, nil
}

// ProxyImageURL は画像プロキシ経由のURLを返します。空文字ならそのまま返します。
func (c *Client) ProxyImageURL(raw string) string {
	if raw == "" {
		return ""
	}
	return c.baseURL + PathProxyImage + "?url=" + url.QueryEscape(raw)
}

func (c *Client) postJSON(ctx context.Context, op, path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return &AnalysisError{Kind: KindValidation, Op: op, Err: err}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return &AnalysisError{Kind: KindNetwork, Op: op, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.do(httpReq, op, out)
}

// do はリクエストを実行し、2xx ならボディを out にデコードします。
func (c *Client) do(req *http.Request, op string, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.doer.Do(req)
	if err != nil {
		return &AnalysisError{Kind: KindNetwork, Op: op, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		msg, code := extractMessage(body)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &AnalysisError{Kind: KindNetwork, Op: op, Message: msg, StatusCode: resp.StatusCode, Code: code}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &AnalysisError{Kind: KindDecode, Op: op, Message: "invalid response body", StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}
