package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func NewHistoryCommand() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:     "history <camera>",
		GroupID: gBasic,
		Short:   "Show recent capture cycles of a camera",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext()
			defer cancel()

			records, err := newClient().GetHistory(ctx, args[0], limit)
			if err != nil {
				return err
			}

			if asJSON {
				b, err := json.MarshalIndent(records, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(b))
				return nil
			}

			if len(records) == 0 {
				cmd.Println("No capture cycles recorded yet.")
				return nil
			}
			for _, rec := range records {
				cmd.Println(bold("#%d", rec.ID))
				printRecord(cmd, rec)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVarP(&limit, "limit", "n", 20, "Number of cycles to show, newest first")
	f.BoolVar(&asJSON, "json", false, "Print history as JSON")

	return cmd
}
