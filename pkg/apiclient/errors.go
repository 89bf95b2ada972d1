package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind は AnalysisError の種別です。
type ErrorKind int

const (
	// KindValidation はリクエスト送信前のクライアント側検証エラーです。
	KindValidation ErrorKind = iota + 1
	// KindNetwork は通信失敗・タイムアウト・非2xxなどリクエスト単位の失敗です。
	KindNetwork
	// KindBackendRejected はバックエンドが success=false を返した場合です。
	KindBackendRejected
	// KindDecode はレスポンスボディを解釈できなかった場合です。
	KindDecode
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindBackendRejected:
		return "backend_rejected"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// AnalysisError はバックエンド呼び出しの失敗を種別付きで表します。
type AnalysisError struct {
	Kind       ErrorKind
	Op         string // 呼び出した API の名前
	Message    string
	StatusCode int // HTTP ステータス。通信前の失敗では 0
	Code       string
	Err        error
}

func (e *AnalysisError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Op)
	sb.WriteString(": ")
	sb.WriteString(e.Kind.String())
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// IsKind は err が指定種別の AnalysisError かどうかを返します。
func IsKind(err error, kind ErrorKind) bool {
	var ae *AnalysisError
	return errors.As(err, &ae) && ae.Kind == kind
}

// UserMessage はエラーバナーに表示する文言を返します。
func UserMessage(err error) string {
	var ae *AnalysisError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func validationError(op, format string, args ...any) *AnalysisError {
	return &AnalysisError{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// errorBody はバックエンドが返しうるエラー形式を網羅します。
type errorBody struct {
	Error     string          `json:"error"`
	ErrorCode string          `json:"error_code"`
	Message   string          `json:"message"`
	Detail    json.RawMessage `json:"detail"`
}

// extractMessage はレスポンスボディからエラーメッセージを取り出します。
// error → detail (文字列 または [{msg}] のリスト) → message の順に探します。
func extractMessage(body []byte) (msg, code string) {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return "", ""
	}
	if eb.Error != "" {
		return eb.Error, eb.ErrorCode
	}
	if d := detailMessage(eb.Detail); d != "" {
		return d, eb.ErrorCode
	}
	return eb.Message, eb.ErrorCode
}

func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
