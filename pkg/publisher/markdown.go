package publisher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/shouni/go-menu-kit/pkg/currency"
	"github.com/shouni/go-menu-kit/pkg/domain"
)

const noImageNotice = "> No image available"

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`_`, `\_`,
	"`", "\\`",
	`[`, `\[`,
	`]`, `\]`,
	`#`, `\#`,
	`<`, `\<`,
	`>`, `\>`,
	`{`, `\{`,
	`}`, `\}`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(strings.TrimSpace(s))
}

// DishAnchor は料理の見出しに付与するアンカーIDを返します。
// 多言語の料理名を CSS/URL 安全な ID に変換するためハッシュ化します。
func DishAnchor(d domain.Dish) string {
	h := sha256.Sum256([]byte(d.OriginalName))
	return "dish-" + hex.EncodeToString(h[:])[:10]
}

// BuildMarkdown は料理リストからギャラリーの Markdown を生成します。
func BuildMarkdown(dishes domain.Dishes, opts Options) string {
	var sb strings.Builder

	title := opts.Title
	if title == "" {
		title = DefaultTitle
	}
	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(title))
	fmt.Fprintf(&sb, "_%d dishes_\n\n", len(dishes))

	for i, d := range dishes {
		writeDish(&sb, i, d, opts)
	}
	return sb.String()
}

func writeDish(sb *strings.Builder, i int, d domain.Dish, opts Options) {
	name := d.EnglishName
	if name == "" {
		name = d.OriginalName
	}
	fmt.Fprintf(sb, "## %d. %s {#%s}\n\n", i+1, escapeMarkdown(name), DishAnchor(d))
	if d.EnglishName != "" && d.OriginalName != d.EnglishName {
		fmt.Fprintf(sb, "*%s*\n\n", escapeMarkdown(d.OriginalName))
	}

	if img := d.PrimaryImage(); img != "" {
		if opts.ImageURL != nil {
			img = opts.ImageURL(img)
		}
		fmt.Fprintf(sb, "![%s](<%s>)\n\n", escapeMarkdown(name), img)
	} else {
		sb.WriteString(noImageNotice + "\n\n")
	}

	if line := priceLine(d, opts); line != "" {
		fmt.Fprintf(sb, "- **Price:** %s\n", line)
	}
	writeList(sb, "Flavor", d.FlavorTags)
	writeList(sb, "Dietary", d.DietaryTags)
	writeList(sb, "Ingredients", d.Ingredients)
	if d.ImageSource != "" {
		fmt.Fprintf(sb, "- **Image:** %s\n", escapeMarkdown(d.ImageSource))
	}

	if desc := strings.TrimSpace(d.Description); desc != "" {
		fmt.Fprintf(sb, "\n%s\n", escapeMarkdown(desc))
	}
	sb.WriteString("\n---\n\n")
}

// priceLine は価格表記と、表示通貨への換算結果を返します。
func priceLine(d domain.Dish, opts Options) string {
	if d.Price.IsZero() {
		return ""
	}
	line := escapeMarkdown(string(d.Price))
	src := d.Currency
	if src == "" {
		src = opts.SourceCurrency
	}
	if d.Currency != "" {
		line += " " + escapeMarkdown(d.Currency)
	}
	if converted, ok := currency.Convert(d.Price, src, opts.DisplayCurrency); ok {
		line += fmt.Sprintf(" (≈ %s)", escapeMarkdown(converted))
	}
	return line
}

func writeList(sb *strings.Builder, label string, values []string) {
	clean := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			clean = append(clean, escapeMarkdown(v))
		}
	}
	if len(clean) == 0 {
		return
	}
	fmt.Fprintf(sb, "- **%s:** %s\n", label, strings.Join(clean, ", "))
}
