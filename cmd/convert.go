package cmd

import (
	"fmt"
	"strings"

	"github.com/shouni/go-menu-kit/pkg/currency"
	"github.com/shouni/go-menu-kit/pkg/domain"

	"github.com/spf13/cobra"
)

var convertFrom string

// convertCmd は、価格を表示用の通貨に換算します。
var convertCmd = &cobra.Command{
	Use:   "convert <price>",
	Short: "価格を指定の通貨に換算します。",
	Long: `固定レートで価格を換算し、記号付きで表示します。レートは目安です。
例: menulens convert 120 --from THB --currency JPY`,
	Args: cobra.ExactArgs(1),
	RunE: convertCommand,
}

func init() {
	convertCmd.Flags().StringVar(&convertFrom, "from", "", "元の通貨コードです。")
}

func convertCommand(cmd *cobra.Command, args []string) error {
	from := convertFrom
	if from == "" {
		from = opts.SourceCurrency
	}
	to := opts.DisplayCurrency
	if to == "" {
		to = "USD"
	}

	converted, ok := currency.Convert(domain.Price(args[0]), from, to)
	if !ok {
		return fmt.Errorf("%s %s を %s に換算できません (対応通貨: %s)", args[0], from, to, strings.Join(currency.Available(), ", "))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s ≈ %s\n", args[0], strings.ToUpper(from), converted)
	return nil
}
