package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/shouni/go-menu-kit/pkg/assistant"
	"github.com/shouni/go-menu-kit/pkg/config"
	"github.com/shouni/go-menu-kit/pkg/domain"
	"github.com/shouni/go-menu-kit/pkg/storage"
)

// MenuChatRunner は解析済みのメニューについてアシスタントと会話します。
type MenuChatRunner struct {
	cfg       config.Config
	assistant assistant.Assistant
	reader    storage.InputReader
	writer    storage.OutputWriter
}

// NewMenuChatRunner は依存関係を注入して初期化します。
func NewMenuChatRunner(cfg config.Config, a assistant.Assistant, reader storage.InputReader, writer storage.OutputWriter) *MenuChatRunner {
	return &MenuChatRunner{
		cfg:       cfg,
		assistant: a,
		reader:    reader,
		writer:    writer,
	}
}

// Run は質問をアシスタントに送り、返答と、質問・返答を追加した会話履歴を返します。
// 失敗した場合、history は変更されません。
func (r *MenuChatRunner) Run(ctx context.Context, message string, dishes domain.Dishes, history domain.ChatHistory) (string, domain.ChatHistory, error) {
	slog.InfoContext(ctx, "ChatRunner: Asking assistant", "dishes", len(dishes), "history", len(history))

	reply, err := r.assistant.Reply(ctx, message, dishes, history)
	if err != nil {
		return "", history, fmt.Errorf("アシスタントの応答に失敗しました: %w", err)
	}

	next := history.Append(domain.RoleUser, message).Append(domain.RoleAssistant, reply)
	return reply, next, nil
}

// LoadHistory は保存済みの会話履歴を読み込みます。ファイルがなければ空の履歴を返します。
func (r *MenuChatRunner) LoadHistory(ctx context.Context, historyPath string) (domain.ChatHistory, error) {
	rc, err := r.reader.Open(ctx, historyPath)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ChatHistory{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("会話履歴の読み込みに失敗しました: %w", err)
	}
	defer rc.Close()

	var history domain.ChatHistory
	if err := json.NewDecoder(rc).Decode(&history); err != nil {
		return nil, fmt.Errorf("会話履歴 '%s' のデコードに失敗しました: %w", historyPath, err)
	}
	return history, nil
}

// RunAndSave は保存済みの会話履歴を引き継いで Run を実行し、更新後の履歴を保存します。
func (r *MenuChatRunner) RunAndSave(ctx context.Context, message string, dishes domain.Dishes, historyPath string) (string, error) {
	history, err := r.LoadHistory(ctx, historyPath)
	if err != nil {
		return "", err
	}

	reply, next, err := r.Run(ctx, message, dishes, history)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return "", fmt.Errorf("会話履歴のエンコードに失敗しました: %w", err)
	}
	if err := r.writer.Write(ctx, historyPath, bytes.NewReader(data), "application/json"); err != nil {
		return "", fmt.Errorf("会話履歴の保存に失敗しました: %w", err)
	}
	slog.InfoContext(ctx, "Chat history saved", "path", historyPath, "messages", len(next))
	return reply, nil
}
