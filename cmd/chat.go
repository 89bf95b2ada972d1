package cmd

import (
	"fmt"
	"strings"

	"github.com/shouni/go-menu-kit/internal/config"
	"github.com/shouni/go-menu-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// chatCmd は、解析済みのメニューについてアシスタントに質問します。
var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "解析済みのメニューについて質問します。",
	Long: `dishes.json の料理リストを前提に、アシスタントへ質問して返答を表示します。
会話履歴は --chat-log に保存され、続けて質問すると文脈が引き継がれます。
--direct を指定すると、バックエンドを介さず Gemini (GEMINI_API_KEY または llm_api_key) で返答を生成します。
--mode recommend では、質問に合うおすすめの料理を選んで答えます。`,
	RunE: chatCommand,
}

func init() {
	chatCmd.Flags().StringVarP(&opts.Message, "message", "m", "", "質問内容です。")
	chatCmd.Flags().StringVarP(&opts.DishesFile, "dishes-file", "f", config.DefaultDishesFile, "前提とする解析結果 JSON のパスです。")
	chatCmd.Flags().StringVar(&opts.ChatLog, "chat-log", config.DefaultChatLogFile, "会話履歴の保存先です。")
	chatCmd.Flags().BoolVar(&opts.Direct, "direct", false, "Gemini で直接返答を生成します。")
	chatCmd.Flags().StringVar(&opts.ChatMode, "mode", "chat", "返答の種類です（chat / recommend）。recommend は --direct と併用します。")
}

func chatCommand(cmd *cobra.Command, args []string) error {
	if opts.Message == "" {
		opts.Message = strings.Join(args, " ")
	}
	if strings.TrimSpace(opts.Message) == "" {
		return fmt.Errorf("質問（--message または引数）を指定してください")
	}

	reply, err := pipeline.ExecuteChat(cmd.Context(), loadConfig())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), reply)
	return nil
}
