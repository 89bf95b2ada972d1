// Package storage は成果物の読み書きを抽象化します。
// ローカルファイルへの書き込みと、ローカルファイルまたは HTTP(S) からの読み込みをサポートします。
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// InputReader は入力元からコンテンツを読み込むためのインターフェースです。
type InputReader interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// OutputWriter はデータを出力先に保存するためのインターフェースです。
type OutputWriter interface {
	Write(ctx context.Context, path string, r io.Reader, contentType string) error
}

// Doer は HTTP リクエストを実行するトランスポートです。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Local はローカルファイルシステムへの書き込みと、ローカル/HTTP(S) からの読み込みを行います。
type Local struct {
	doer Doer
}

// NewLocal は Local を生成します。doer が nil の場合、HTTP(S) からの読み込みはできません。
func NewLocal(doer Doer) *Local {
	return &Local{doer: doer}
}

func isRemote(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Open はパスまたは URL を開きます。
func (l *Local) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if strings.HasPrefix(strings.ToLower(path), "gs://") {
		return nil, fmt.Errorf("GCS からの読み込みはサポートされていません: %s", path)
	}
	if !isRemote(path) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("ファイル '%s' のオープンに失敗しました: %w", path, err)
		}
		return f, nil
	}

	if l.doer == nil {
		return nil, fmt.Errorf("HTTPクライアントが設定されていないため '%s' を読み込めません", path)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}
	resp, err := l.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("'%s' の取得に失敗しました: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("'%s' の取得に失敗しました: status %d", path, resp.StatusCode)
	}
	return resp.Body, nil
}

// Write はローカルファイルに書き込みます。親ディレクトリがなければ作成します。
func (l *Local) Write(ctx context.Context, path string, r io.Reader, contentType string) error {
	if isRemote(path) || strings.HasPrefix(strings.ToLower(path), "gs://") {
		return fmt.Errorf("リモートへの書き込みはサポートされていません: %s", path)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("出力ディレクトリの作成に失敗しました: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ファイル '%s' の作成に失敗しました: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("ファイル '%s' の書き込みに失敗しました: %w", path, err)
	}
	return f.Close()
}

// Memory はテストやプレビュー用のインメモリ OutputWriter です。
type Memory struct {
	Files        map[string][]byte
	ContentTypes map[string]string
}

// NewMemory は Memory を生成します。
func NewMemory() *Memory {
	return &Memory{Files: make(map[string][]byte), ContentTypes: make(map[string]string)}
}

func (m *Memory) Write(_ context.Context, path string, r io.Reader, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	m.Files[path] = buf.Bytes()
	m.ContentTypes[path] = contentType
	return nil
}

func (m *Memory) Open(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := m.Files[path]
	if !ok {
		return nil, fmt.Errorf("ファイル '%s' が見つかりません: %w", path, os.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
