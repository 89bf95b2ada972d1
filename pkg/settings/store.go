package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const (
	// StorageKey は現行の設定を保存するキーです。
	StorageKey = "menulens_api_settings"
	// LegacyStorageKey は旧バージョンのモデル設定のキーです。読み込み時のみ参照します。
	LegacyStorageKey = "menulens_model_settings"
)

// legacyModelSettings は旧バージョンが保存していたモデル設定の形式です。
type legacyModelSettings struct {
	LLMModel   string `json:"llmModel"`
	ImageModel string `json:"imageModel"`
}

// Store は設定を JSON ドキュメントとしてファイルに永続化します。
// ドキュメントはキーごとの値を保持し、知らないキーは保存時にもそのまま残します。
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore は指定したパスを保存先とする Store を生成します。
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path は保存先のパスを返します。
func (s *Store) Path() string {
	return s.path
}

// Load は保存済みの設定を読み込みます。
// 現行キーがなければ旧キーから移行し、どちらもなければ空の設定を返します。
func (s *Store) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDocument()
	if err != nil {
		return Settings{}, err
	}

	if raw, ok := doc[StorageKey]; ok {
		var st Settings
		if err := json.Unmarshal(raw, &st); err != nil {
			return Settings{}, fmt.Errorf("設定 %s のデコードに失敗しました: %w", StorageKey, err)
		}
		return st, nil
	}

	if raw, ok := doc[LegacyStorageKey]; ok {
		var legacy legacyModelSettings
		if err := json.Unmarshal(raw, &legacy); err != nil {
			// 旧設定が壊れていても起動は妨げない
			slog.Warn("Failed to parse legacy model settings", "key", LegacyStorageKey, "error", err)
			return Settings{}, nil
		}
		slog.Info("Migrating legacy model settings", "llm_model", legacy.LLMModel, "image_model", legacy.ImageModel)
		return Settings{
			LLMModel:        legacy.LLMModel,
			GenerationModel: legacy.ImageModel,
		}, nil
	}

	return Settings{}, nil
}

// Save は設定を現行キーで保存します。
func (s *Store) Save(st Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDocument()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("設定のエンコードに失敗しました: %w", err)
	}
	doc[StorageKey] = raw
	return s.writeDocument(doc)
}

// Clear は現行キーと旧キーの両方を削除します。
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDocument()
	if err != nil {
		return err
	}
	delete(doc, StorageKey)
	delete(doc, LegacyStorageKey)
	return s.writeDocument(doc)
}

func (s *Store) readDocument() (map[string]json.RawMessage, error) {
	doc := make(map[string]json.RawMessage)
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("設定ファイル '%s' の読み込みに失敗しました: %w", s.path, err)
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("設定ファイル '%s' のパースに失敗しました: %w", s.path, err)
	}
	return doc, nil
}

func (s *Store) writeDocument(doc map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("設定ファイルのエンコードに失敗しました: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("設定ディレクトリの作成に失敗しました: %w", err)
	}
	// APIキーを含むため所有者のみ読み書き可能にする
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("設定ファイルの書き込みに失敗しました: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("設定ファイルの置き換えに失敗しました: %w", err)
	}
	return nil
}
