package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/clearcheck/verify-cli/internal/compare"
	"github.com/clearcheck/verify-cli/internal/model"
	anthropicpkg "github.com/clearcheck/verify-cli/pkg/anthropic"
)

var compareIDs []string

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Synthesize a comparison brief across past reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if len(compareIDs) < 2 {
			return eris.New("select at least two history items with --id")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		var items []model.HistoryItem
		for _, id := range compareIDs {
			item, err := st.GetHistory(ctx, id)
			if err != nil {
				return eris.Wrapf(err, "load history item %s", id)
			}
			if item == nil {
				return eris.Errorf("history item not found: %s", id)
			}
			items = append(items, *item)
		}

		flow := compare.New(cfg, anthropicpkg.NewClient(cfg.Anthropic.Key))
		_, err = flow.Compare(ctx, items, func(chunk string) {
			fmt.Print(chunk)
		})
		fmt.Println()
		return err
	},
}

func init() {
	compareCmd.Flags().StringArrayVar(&compareIDs, "id", nil, "history item id (repeat, at least twice)")
	rootCmd.AddCommand(compareCmd)
}
