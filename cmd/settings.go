package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shouni/go-menu-kit/pkg/settings"

	"github.com/spf13/cobra"
)

// settingsCmd は、バックエンドに送る実行時設定 (モデルや API キーの上書き) を管理します。
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "実行時設定を表示・変更します。",
	Long: `解析・画像検索・チャットのリクエストに付与する設定を管理します。
設定は MENULENS_SETTINGS_FILE (既定: ~/.menulens/settings.json) に保存されます。`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "現在の設定を表示します (APIキーは伏せ字)。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := settingsStore()
		st, err := store.Load()
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(st.Masked(), "", "  ")
		if err != nil {
			return fmt.Errorf("設定のエンコードに失敗しました: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s\n", store.Path(), data)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "設定を1項目変更します。値を省略すると未設定に戻します。",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := settingsStore()
		st, err := store.Load()
		if err != nil {
			return err
		}
		value := ""
		if len(args) == 2 {
			value = args[1]
		}
		if err := st.Set(args[0], value); err != nil {
			return err
		}
		if err := store.Save(st); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s を更新しました\n", args[0])
		return nil
	},
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "保存済みの設定をすべて削除します。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := settingsStore().Clear(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "設定をリセットしました")
		return nil
	},
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "設定可能なキーの一覧を表示します。",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(settings.Keys(), "\n"))
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd, settingsResetCmd, settingsKeysCmd)
}

func settingsStore() *settings.Store {
	return settings.NewStore(loadConfig().SettingsFile)
}
