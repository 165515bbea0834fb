package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past verification runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		items, err := st.ListHistory(ctx)
		if err != nil {
			return eris.Wrap(err, "list history")
		}
		for _, item := range items {
			fmt.Printf("%s  %s  %s\n", item.ID, item.CreatedAt.Format("2006-01-02 15:04"), item.Input)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		item, err := st.GetHistory(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "get history item %s", args[0])
		}
		if item == nil {
			return eris.Errorf("history item not found: %s", args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(item)
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all stored runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.ClearHistory(ctx); err != nil {
			return eris.Wrap(err, "clear history")
		}
		fmt.Println("history cleared")
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
