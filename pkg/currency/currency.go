// Package currency は、メニュー価格の簡易的な通貨換算を提供します。
// レートは USD 基準の固定値で、表示の目安として使います。
package currency

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shouni/go-menu-kit/pkg/domain"
)

// 1 USD あたりのレート
var rates = map[string]float64{
	"USD": 1,
	"EUR": 0.92,
	"GBP": 0.79,
	"JPY": 151.5,
	"CNY": 7.23,
	"THB": 36.5,
	"KRW": 1350,
	"VND": 25400,
	"SGD": 1.35,
	"MYR": 4.75,
	"IDR": 16100,
	"HKD": 7.82,
	"TWD": 32.5,
	"AUD": 1.52,
	"CAD": 1.37,
}

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CNY": "¥",
	"THB": "฿",
	"KRW": "₩",
	"VND": "₫",
	"SGD": "S$",
	"HKD": "HK$",
	"TWD": "NT$",
	"AUD": "A$",
	"CAD": "C$",
}

// 小数点以下を表示しない通貨
var zeroDecimal = map[string]bool{
	"JPY": true,
	"KRW": true,
	"VND": true,
	"IDR": true,
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Supported は通貨コードが換算対象かどうかを返します。
func Supported(code string) bool {
	_, ok := rates[normalize(code)]
	return ok
}

// Available は換算可能な通貨コードをソートして返します。
func Available() []string {
	codes := make([]string, 0, len(rates))
	for c := range rates {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Symbol は通貨記号を返します。記号が定義されていなければ通貨コードを返します。
func Symbol(code string) string {
	code = normalize(code)
	if s, ok := symbols[code]; ok {
		return s
	}
	return code
}

// Convert は価格表記を source から target の通貨に換算し、記号付きの文字列を返します。
// 同一通貨や未知の通貨の場合は ok=false を返します。数値として読めない価格と 0 も同様です。
func Convert(price domain.Price, source, target string) (string, bool) {
	source, target = normalize(source), normalize(target)
	if source == "" || target == "" || source == target {
		return "", false
	}
	from, ok := rates[source]
	if !ok {
		return "", false
	}
	to, ok := rates[target]
	if !ok {
		return "", false
	}
	amount, ok := price.Float()
	if !ok || amount == 0 {
		return "", false
	}

	converted := amount / from * to
	return Symbol(target) + Format(converted, target), true
}

// Format は通貨に応じた桁数で金額を整形します。
// 小数点以下を持たない通貨は四捨五入して3桁区切りにし、それ以外は小数点以下2桁で表示します。
func Format(amount float64, code string) string {
	if zeroDecimal[normalize(code)] {
		return groupThousands(int64(math.Round(amount)))
	}
	return strconv.FormatFloat(amount, 'f', 2, 64)
}

func groupThousands(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	sb.WriteString(s[:lead])
	for i := lead; i < len(s); i += 3 {
		sb.WriteByte(',')
		sb.WriteString(s[i : i+3])
	}
	return sb.String()
}
