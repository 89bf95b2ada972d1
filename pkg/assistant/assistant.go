// Package assistant は、解析済みのメニューを文脈として質問に答えるチャットアシスタントを提供します。
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shouni/go-menu-kit/pkg/domain"
	"github.com/shouni/go-menu-kit/pkg/prompts"
)

// DefaultHistoryLimit はプロンプトに含める直近の会話数です。
const DefaultHistoryLimit = 10

// ErrEmptyMessage は空の質問が渡されたことを表します。
var ErrEmptyMessage = errors.New("message is empty")

// Assistant はメニューに関する質問に返答します。
type Assistant interface {
	Reply(ctx context.Context, message string, dishes domain.Dishes, history domain.ChatHistory) (string, error)
}

// ChatClient はバックエンドのチャット API です。*apiclient.Client が実装します。
type ChatClient interface {
	SendChatMessage(ctx context.Context, message string, dishes domain.Dishes, history domain.ChatHistory) (string, error)
}

// Backend はバックエンドの /api/menu-chat に質問を委譲します。
type Backend struct {
	client ChatClient
}

// NewBackend は Backend を生成します。
func NewBackend(client ChatClient) *Backend {
	return &Backend{client: client}
}

func (b *Backend) Reply(ctx context.Context, message string, dishes domain.Dishes, history domain.ChatHistory) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	return b.client.SendChatMessage(ctx, message, dishes, history)
}

// TextGenerator はプロンプトからテキストを生成する LLM です。
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt, model string) (string, error)
}

// GeminiConfig は Gemini の挙動設定です。
type GeminiConfig struct {
	Model        string
	Language     string
	Mode         string // prompts.ModeChat または prompts.ModeRecommend
	HistoryLimit int
}

// Gemini はバックエンドを介さず、ユーザーの LLM 設定で直接返答を生成します。
type Gemini struct {
	gen     TextGenerator
	prompts prompts.PromptBuilder
	cfg     GeminiConfig
}

// NewGemini は Gemini を生成します。
func NewGemini(gen TextGenerator, pb prompts.PromptBuilder, cfg GeminiConfig) (*Gemini, error) {
	if gen == nil {
		return nil, fmt.Errorf("TextGenerator は必須です")
	}
	if pb == nil {
		return nil, fmt.Errorf("PromptBuilder は必須です")
	}
	if cfg.Mode == "" {
		cfg.Mode = prompts.ModeChat
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	return &Gemini{gen: gen, prompts: pb, cfg: cfg}, nil
}

func (g *Gemini) Reply(ctx context.Context, message string, dishes domain.Dishes, history domain.ChatHistory) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	if len(history) > g.cfg.HistoryLimit {
		history = history[len(history)-g.cfg.HistoryLimit:]
	}

	prompt, err := g.prompts.Build(g.cfg.Mode, prompts.TemplateData{
		Message:  message,
		Language: g.cfg.Language,
		Dishes:   dishes,
		History:  history,
	})
	if err != nil {
		return "", fmt.Errorf("プロンプト生成に失敗: %w", err)
	}

	slog.InfoContext(ctx, "Calling LLM for chat reply", "model", g.cfg.Model, "mode", g.cfg.Mode, "dishes", len(dishes))
	startTime := time.Now()
	reply, err := g.gen.GenerateText(ctx, prompt, g.cfg.Model)
	if err != nil {
		return "", fmt.Errorf("チャット応答の生成に失敗しました: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("チャット応答が空でした")
	}
	slog.DebugContext(ctx, "Chat reply generated", "duration", time.Since(startTime).Round(time.Millisecond))
	return reply, nil
}
