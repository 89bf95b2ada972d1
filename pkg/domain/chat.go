package domain

// ChatRole はチャットメッセージの発言者です。
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage はアシスタントとの会話の1発言を保持します。
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// ChatHistory は時系列順の会話履歴です。
type ChatHistory []ChatMessage

// Append は発言を追加した新しい履歴を返します。元の履歴は変更しません。
func (h ChatHistory) Append(role ChatRole, content string) ChatHistory {
	out := make(ChatHistory, len(h), len(h)+1)
	copy(out, h)
	return append(out, ChatMessage{Role: role, Content: content})
}
