// Package session は、1回のメニュー解析セッションで共有される表示状態を管理します。
package session

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/shouni/go-menu-kit/pkg/domain"
	"github.com/shouni/go-menu-kit/pkg/filter"
)

var (
	// ErrStale は、リセットや新しい解析によって世代が進んだ後に届いた更新を表します。
	ErrStale = errors.New("stale session generation")
	// ErrDishNotFound は、指定した OriginalName の料理がリストに存在しないことを表します。
	ErrDishNotFound = errors.New("dish not found")
)

// Generation は解析セッションの世代番号です。Begin や Reset のたびに増加します。
type Generation uint64

// Progress は画像検索フェーズの進捗です。
type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// State は表示状態のスナップショットです。
type State struct {
	SessionID  string         `json:"session_id"`
	Generation Generation     `json:"generation"`
	Dishes     domain.Dishes  `json:"dishes"`
	Selected   *domain.Dish   `json:"selected,omitempty"`
	Loading    bool           `json:"loading"`   // テキスト解析中
	Searching  bool           `json:"searching"` // 画像検索フェーズ中
	Progress   Progress       `json:"progress"`
	Error      string         `json:"error,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Store は料理リストと選択中の料理を保持する共有状態です。
// すべての更新は世代番号を伴い、現在の世代と一致しない更新は破棄されます。
type Store struct {
	mu    sync.RWMutex
	state State
}

// NewStore は空の Store を生成します。
func NewStore() *Store {
	return &Store{}
}

// Generation は現在の世代番号を返します。
func (s *Store) Generation() Generation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Generation
}

// Begin は新しい解析セッションを開始し、その世代番号を返します。
// 以前のセッションの状態はすべて破棄されます。
func (s *Store) Begin() Generation {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen := s.state.Generation + 1
	s.state = State{
		SessionID:  uuid.NewString(),
		Generation: gen,
		Loading:    true,
	}
	slog.Debug("Session started", "generation", gen, "session_id", s.state.SessionID)
	return gen
}

// Reset は状態をクリアし、世代を進めます。実行中の非同期処理の結果はこれ以降すべて破棄されます。
func (s *Store) Reset() Generation {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen := s.state.Generation + 1
	s.state = State{Generation: gen}
	slog.Info("Session reset", "generation", gen)
	return gen
}

// Load はテキスト解析の結果で料理リストを丸ごと置き換え、先頭の料理を選択します。
func (s *Store) Load(gen Generation, dishes domain.Dishes, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(gen, "load"); err != nil {
		return err
	}

	if dups := dishes.DuplicateNames(); len(dups) > 0 {
		slog.Warn("Duplicate original_name detected; image results will update the first match only", "names", dups)
	}

	s.state.Dishes = dishes.Clone()
	s.state.Selected = nil
	if len(s.state.Dishes) > 0 {
		first := s.state.Dishes[0].Clone()
		s.state.Selected = &first
	}
	s.state.Loading = false
	s.state.Error = ""
	s.state.Metadata = metadata
	return nil
}

// Fail はテキスト解析の失敗をエラーバナーとして記録します。
func (s *Store) Fail(gen Generation, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(gen, "fail"); err != nil {
		return err
	}
	s.state.Loading = false
	s.state.Searching = false
	s.state.Error = message
	return nil
}

// StartImages は画像検索フェーズの開始を記録します。
func (s *Store) StartImages(gen Generation, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(gen, "start_images"); err != nil {
		return err
	}
	s.state.Searching = total > 0
	s.state.Progress = Progress{Total: total}
	return nil
}

// MarkSearching は料理を検索中の状態にします。
func (s *Store) MarkSearching(gen Generation, name string) error {
	return s.patch(gen, "mark_searching", name, func(d *domain.Dish) {
		d.IsSearching = true
	})
}

// FinishSearch は画像を得られなかった料理の検索中フラグだけを下ろします。既存のデータは保持します。
func (s *Store) FinishSearch(gen Generation, name string) error {
	return s.patch(gen, "finish_search", name, func(d *domain.Dish) {
		d.IsSearching = false
	})
}

// ApplyImageResult は画像検索の結果で、OriginalName が一致する最初の料理を置き換えます。
// 選択中の料理が同じ名前であれば、選択も更新後の料理に置き換えます。
func (s *Store) ApplyImageResult(gen Generation, name string, updated domain.Dish) error {
	return s.patch(gen, "apply_image", name, func(d *domain.Dish) {
		next := updated.Clone()
		// 結合キーはリクエスト時の名前で固定する
		next.OriginalName = name
		next.IsSearching = false
		*d = next
	})
}

// CompleteOne は1品分の処理完了を進捗に加算し、更新後の進捗を返します。
func (s *Store) CompleteOne(gen Generation) (Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(gen, "complete_one"); err != nil {
		return Progress{}, err
	}
	if s.state.Progress.Done < s.state.Progress.Total {
		s.state.Progress.Done++
	}
	if s.state.Progress.Done >= s.state.Progress.Total {
		s.state.Searching = false
	}
	return s.state.Progress, nil
}

// Select は OriginalName で料理を選択します。
func (s *Store) Select(name string) (domain.Dish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel := s.state.Dishes.FindByOriginalName(name)
	if sel == nil {
		return domain.Dish{}, ErrDishNotFound
	}
	s.state.Selected = sel
	return sel.Clone(), nil
}

// Snapshot は現在の状態のディープコピーを返します。
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.state
	st.Dishes = s.state.Dishes.Clone()
	if s.state.Selected != nil {
		sel := s.state.Selected.Clone()
		st.Selected = &sel
	}
	if s.state.Metadata != nil {
		st.Metadata = make(map[string]any, len(s.state.Metadata))
		for k, v := range s.state.Metadata {
			st.Metadata[k] = v
		}
	}
	return st
}

// Dishes は料理リストのコピーを返します。
func (s *Store) Dishes() domain.Dishes {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Dishes.Clone()
}

// Filtered は条件に一致する料理のコピーを返します。
func (s *Store) Filtered(f filter.Filter) domain.Dishes {
	return f.Apply(s.Dishes())
}

// patch は OriginalName が一致する最初の料理に fn を適用し、選択中の料理を同期します。
func (s *Store) patch(gen Generation, op, name string, fn func(*domain.Dish)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(gen, op); err != nil {
		return err
	}
	idx := s.state.Dishes.IndexOf(name)
	if idx < 0 {
		return ErrDishNotFound
	}
	fn(&s.state.Dishes[idx])

	if s.state.Selected != nil && s.state.Selected.OriginalName == name {
		sel := s.state.Dishes[idx].Clone()
		s.state.Selected = &sel
	}
	return nil
}

func (s *Store) checkLocked(gen Generation, op string) error {
	if gen != s.state.Generation {
		slog.Debug("Discarding stale update", "op", op, "generation", gen, "current", s.state.Generation)
		return ErrStale
	}
	return nil
}
