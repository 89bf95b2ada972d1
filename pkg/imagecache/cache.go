// Package imagecache は、画像検索で得られた画像情報をキャッシュします。
// 料理名や説明などテキスト解析の結果は保存せず、画像関連のフィールドだけを扱います。
package imagecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-menu-kit/pkg/domain"
	"github.com/shouni/go-menu-kit/pkg/settings"
)

// Cache は画像検索結果のキャッシュです。
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry) error
}

// Entry は1品分の画像検索結果です。
type Entry struct {
	ImageURL    string    `json:"image_url,omitempty"`
	ImageURLs   []string  `json:"image_urls,omitempty"`
	ImageScores []float64 `json:"image_scores,omitempty"`
	ImageSource string    `json:"image_source,omitempty"`
}

// EntryFrom は料理から画像関連のフィールドだけを取り出します。
func EntryFrom(d domain.Dish) Entry {
	c := d.Clone()
	return Entry{
		ImageURL:    c.ImageURL,
		ImageURLs:   c.ImageURLs,
		ImageScores: c.ImageScores,
		ImageSource: c.ImageSource,
	}
}

// ApplyTo は d のコピーに画像関連のフィールドを上書きして返します。
// それ以外のフィールドは d のまま残ります。
func (e Entry) ApplyTo(d domain.Dish) domain.Dish {
	out := d.Clone()
	c := e.Clone()
	out.ImageURL = c.ImageURL
	out.ImageURLs = c.ImageURLs
	out.ImageScores = c.ImageScores
	out.ImageSource = c.ImageSource
	out.IsSearching = false
	return out
}

// Clone はスライスを含めたコピーを返します。
func (e Entry) Clone() Entry {
	c := e
	if e.ImageURLs != nil {
		c.ImageURLs = append([]string(nil), e.ImageURLs...)
	}
	if e.ImageScores != nil {
		c.ImageScores = append([]float64(nil), e.ImageScores...)
	}
	return c
}

// HasImage は画像URLが1つ以上含まれているかを返します。
func (e Entry) HasImage() bool {
	return domain.Dish{ImageURL: e.ImageURL, ImageURLs: e.ImageURLs}.HasImage()
}

// Key は料理を識別するキャッシュキーを返します。
// 同じ料理名でも検索語が異なれば別の画像になりうるため、両方を含めます。
// scope には検索結果を左右する設定の識別子（Scope の戻り値）を渡します。
func Key(d domain.Dish, scope string) string {
	name := strings.ToLower(strings.TrimSpace(d.OriginalName))
	term := strings.ToLower(strings.TrimSpace(d.SearchTerm))
	if term == "" {
		term = strings.ToLower(strings.TrimSpace(d.EnglishName))
	}
	key := name + "|" + term
	if scope != "" {
		key += "|" + scope
	}
	return key
}

// Scope は画像検索の結果を左右する設定から、キャッシュキー用の短い識別子を返します。
// APIキーはそのまま含めず、ハッシュ化してから使います。
func Scope(st settings.Settings) string {
	e := st.Resolve()
	raw := fmt.Sprintf("verify=%g;gen=%t;rag=%t;gen_model=%s;search=%s;engine=%s;gen_key=%s",
		e.ImageVerifyThreshold,
		e.EnableImageGeneration,
		e.EnableRAGPipeline,
		e.GenerationModel,
		e.SearchAPIKey,
		e.SearchEngineID,
		e.GenerationAPIKey,
	)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:6])
}

// Memory は go-cache によるプロセス内キャッシュです。
type Memory struct {
	c *cache.Cache
}

// NewMemory は有効期限とクリーンアップ間隔を指定して Memory を生成します。
func NewMemory(expiration, cleanup time.Duration) *Memory {
	return &Memory{c: cache.New(expiration, cleanup)}
}

func (m *Memory) Get(_ context.Context, key string) (Entry, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return Entry{}, false, nil
	}
	e, ok := v.(Entry)
	if !ok {
		m.c.Delete(key)
		return Entry{}, false, nil
	}
	return e.Clone(), true, nil
}

func (m *Memory) Set(_ context.Context, key string, entry Entry) error {
	m.c.Set(key, entry.Clone(), cache.DefaultExpiration)
	return nil
}

// Len はキャッシュ中の件数を返します。
func (m *Memory) Len() int {
	return m.c.ItemCount()
}

// Chain は複数のキャッシュを前段から順に参照します。
// 後段でヒットした場合は前段にも書き戻します。各段の障害はミスとして扱います。
type Chain struct {
	tiers []Cache
}

// NewChain は nil を除いたキャッシュを前段から順に並べた Chain を生成します。
func NewChain(tiers ...Cache) *Chain {
	ch := &Chain{}
	for _, t := range tiers {
		if t != nil {
			ch.tiers = append(ch.tiers, t)
		}
	}
	return ch
}

func (ch *Chain) Get(ctx context.Context, key string) (Entry, bool, error) {
	for i, t := range ch.tiers {
		e, ok, err := t.Get(ctx, key)
		if err != nil {
			slog.WarnContext(ctx, "Image cache tier lookup failed", "tier", i, "key", key, "error", err)
			continue
		}
		if !ok {
			continue
		}
		for j := 0; j < i; j++ {
			if err := ch.tiers[j].Set(ctx, key, e); err != nil {
				slog.WarnContext(ctx, "Image cache backfill failed", "tier", j, "key", key, "error", err)
			}
		}
		return e, true, nil
	}
	return Entry{}, false, nil
}

func (ch *Chain) Set(ctx context.Context, key string, entry Entry) error {
	var errs []error
	for _, t := range ch.tiers {
		if err := t.Set(ctx, key, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
