package currency

import (
	"testing"

	"github.com/shouni/go-menu-kit/pkg/domain"

	"github.com/stretchr/testify/assert"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name   string
		price  domain.Price
		src    string
		dst    string
		want   string
		wantOK bool
	}{
		{"同一通貨は換算しない", "100", "USD", "USD", "", false},
		{"大文字小文字を区別せず同一通貨と判定", "100", "jpy", "JPY", "", false},
		{"未知の通貨（換算元）", "100", "XXX", "USD", "", false},
		{"未知の通貨（換算先）", "100", "USD", "XXX", "", false},
		{"数値を含まない価格", "時価", "JPY", "USD", "", false},
		{"空の価格", "", "JPY", "USD", "", false},
		{"0 は価格なしとして扱う", "0", "JPY", "USD", "", false},
		{"価格帯は先頭から読める数値で換算", "$10.00-12.00", "USD", "JPY", "¥1,515", true},
		{"空の通貨", "100", "", "USD", "", false},
		{"小数2桁の通貨", "1515", "JPY", "USD", "$10.00", true},
		{"記号付きの価格", "¥1,515", "JPY", "EUR", "€9.20", true},
		{"JPY は整数かつ3桁区切り", "100", "USD", "JPY", "¥15,150", true},
		{"KRW は整数", "1", "USD", "KRW", "₩1,350", true},
		{"VND は整数", "10", "USD", "VND", "₫254,000", true},
		{"IDR は記号がなくコード表示", "1", "USD", "IDR", "IDR16,100", true},
		{"MYR は記号がなくコード表示", "1", "USD", "MYR", "MYR4.75", true},
		{"THB から USD", "฿120", "THB", "USD", "$3.29", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Convert(tt.price, tt.src, tt.dst)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "999", Format(999.4, "JPY"))
	assert.Equal(t, "1,000", Format(999.5, "JPY"))
	assert.Equal(t, "1,234,567", Format(1234567, "KRW"))
	assert.Equal(t, "1234.50", Format(1234.5, "USD"), "小数2桁の通貨は3桁区切りにしない")
}

func TestSymbolAndAvailable(t *testing.T) {
	assert.Equal(t, "HK$", Symbol("hkd"))
	assert.Equal(t, "IDR", Symbol("IDR"))

	codes := Available()
	assert.Len(t, codes, 15)
	assert.Equal(t, "AUD", codes[0])
	assert.True(t, Supported("thb"))
	assert.False(t, Supported("BTC"))
}
