package prompts

import (
	_ "embed"

	"github.com/shouni/go-menu-kit/pkg/domain"
)

const (
	ModeChat      = "chat"
	ModeRecommend = "recommend"
)

// DefaultLanguage は Language が未指定の場合の返答言語です。
const DefaultLanguage = "English"

// TemplateData はチャットプロンプトのテンプレートに渡すデータ構造です。
type TemplateData struct {
	Message  string
	Language string
	Dishes   domain.Dishes
	History  domain.ChatHistory
}

var (
	//go:embed chat.md
	ChatPrompt string
	//go:embed recommend.md
	RecommendPrompt string
)

// allTemplates はモードとテンプレート文字列を紐づけるマップです。
var allTemplates = map[string]string{
	ModeChat:      ChatPrompt,
	ModeRecommend: RecommendPrompt,
}
