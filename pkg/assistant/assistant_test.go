package assistant

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shouni/go-menu-kit/pkg/domain"
	"github.com/shouni/go-menu-kit/pkg/prompts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChat struct {
	gotMessage string
	gotHistory domain.ChatHistory
	reply      string
	err        error
}

func (s *stubChat) SendChatMessage(_ context.Context, message string, _ domain.Dishes, history domain.ChatHistory) (string, error) {
	s.gotMessage = message
	s.gotHistory = history
	return s.reply, s.err
}

type stubGen struct {
	gotPrompt string
	gotModel  string
	reply     string
	err       error
}

func (s *stubGen) GenerateText(_ context.Context, prompt, model string) (string, error) {
	s.gotPrompt = prompt
	s.gotModel = model
	return s.reply, s.err
}

func TestBackend_Reply(t *testing.T) {
	sc := &stubChat{reply: "Try the Som Tam."}
	b := NewBackend(sc)

	got, err := b.Reply(context.Background(), "  what is vegan?  ", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Try the Som Tam.", got)
	assert.Equal(t, "what is vegan?", sc.gotMessage)

	_, err = b.Reply(context.Background(), " ", nil, nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestGemini_Reply(t *testing.T) {
	pb, err := prompts.NewTextPromptBuilder()
	require.NoError(t, err)

	gen := &stubGen{reply: "  Pad Thai contains peanuts.  "}
	g, err := NewGemini(gen, pb, GeminiConfig{Model: "gemini-2.5-flash-lite", HistoryLimit: 2})
	require.NoError(t, err)

	history := domain.ChatHistory{}
	for i := 0; i < 5; i++ {
		history = history.Append(domain.RoleUser, fmt.Sprintf("question-%d", i))
	}
	dishes := domain.Dishes{{OriginalName: "ผัดไทย", EnglishName: "Pad Thai"}}

	got, err := g.Reply(context.Background(), "Any nuts?", dishes, history)
	require.NoError(t, err)
	assert.Equal(t, "Pad Thai contains peanuts.", got)
	assert.Equal(t, "gemini-2.5-flash-lite", gen.gotModel)
	assert.Contains(t, gen.gotPrompt, "Pad Thai (ผัดไทย)")
	assert.Contains(t, gen.gotPrompt, "question-4")
	assert.NotContains(t, gen.gotPrompt, "question-2", "直近の会話のみを含めるべきです")

	t.Run("空の質問は LLM を呼ばないこと", func(t *testing.T) {
		gen.gotPrompt = ""
		_, err := g.Reply(context.Background(), "", dishes, nil)
		assert.ErrorIs(t, err, ErrEmptyMessage)
		assert.Empty(t, gen.gotPrompt)
	})

	t.Run("LLM のエラーと空応答はエラーになること", func(t *testing.T) {
		boom := errors.New("quota exceeded")
		g2, _ := NewGemini(&stubGen{err: boom}, pb, GeminiConfig{})
		_, err := g2.Reply(context.Background(), "hi", dishes, nil)
		assert.ErrorIs(t, err, boom)

		g3, _ := NewGemini(&stubGen{reply: "   "}, pb, GeminiConfig{})
		_, err = g3.Reply(context.Background(), "hi", dishes, nil)
		assert.Error(t, err)
	})

	_, err = NewGemini(nil, pb, GeminiConfig{})
	assert.Error(t, err)
}
