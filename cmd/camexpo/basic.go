package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/charlie0129/camexpo/pkg/history"
	"github.com/charlie0129/camexpo/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

func NewCaptureCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "capture <camera>",
		Short:   "Capture a photo and adjust exposure right now",
		GroupID: gBasic,
		Long: `Ask the daemon to run one capture cycle for a camera immediately, without
waiting for the next scheduled one. The scheduled cadence is not affected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext()
			defer cancel()

			rec, err := newClient().Capture(ctx, args[0])
			if err != nil {
				return err
			}

			printRecord(cmd, rec)
			if rec.Outcome != history.OutcomeOK {
				return fmt.Errorf("capture of %s did not complete: %s", args[0], rec.Outcome)
			}
			return nil
		},
	}
}
