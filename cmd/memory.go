package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect the misinformation memory",
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List flagged domains",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		recs, err := st.ListRecords(ctx)
		if err != nil {
			return eris.Wrap(err, "list records")
		}
		for _, rec := range recs {
			fmt.Printf("%-40s trust=%3d  flagged %s\n", rec.Domain, rec.TrustScore, rec.FlaggedAt.Format("2006-01-02"))
		}
		return nil
	},
}

var memoryLookupCmd = &cobra.Command{
	Use:   "lookup <domain>",
	Short: "Look up one domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		rec, err := st.GetRecord(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "lookup %s", args[0])
		}
		if rec == nil {
			fmt.Printf("%s is not flagged\n", args[0])
			return nil
		}
		fmt.Printf("%s  trust=%d  url=%s  flagged=%s\n", rec.Domain, rec.TrustScore, rec.URL, rec.FlaggedAt.Format("2006-01-02 15:04"))
		return nil
	},
}

func init() {
	memoryCmd.AddCommand(memoryListCmd, memoryLookupCmd)
	rootCmd.AddCommand(memoryCmd)
}
