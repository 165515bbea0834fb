package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/clearcheck/verify-cli/internal/chat"
	anthropicpkg "github.com/clearcheck/verify-cli/pkg/anthropic"
)

var chatHistoryID string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask follow-up questions about a stored report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		item, err := st.GetHistory(ctx, chatHistoryID)
		if err != nil {
			return eris.Wrapf(err, "load history item %s", chatHistoryID)
		}
		if item == nil {
			return eris.Errorf("history item not found: %s", chatHistoryID)
		}

		session := chat.New(cfg, anthropicpkg.NewClient(cfg.Anthropic.Key), item.Report)
		if session == nil {
			return eris.Errorf("history item %s has no stored report", chatHistoryID)
		}
		return chatREPL(ctx, session)
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatHistoryID, "id", "", "history item id (required)")
	_ = chatCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(chatCmd)
}
