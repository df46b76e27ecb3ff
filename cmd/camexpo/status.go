package main

import (
	"encoding/json"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/charlie0129/camexpo/pkg/exposure"
	"github.com/charlie0129/camexpo/pkg/history"
	"github.com/charlie0129/camexpo/pkg/loop"
)

func NewStatusCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "status [camera]",
		GroupID: gBasic,
		Short:   "Get the current status of cameras",
		Long:    `Get the exposure state and the last capture cycle of all cameras, or of a single camera.`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext()
			defer cancel()

			c := newClient()
			var statuses []loop.Status
			if len(args) == 1 {
				st, err := c.GetCamera(ctx, args[0])
				if err != nil {
					return err
				}
				statuses = append(statuses, *st)
			} else {
				var err error
				statuses, err = c.GetCameras(ctx)
				if err != nil {
					return err
				}
			}

			if asJSON {
				b, err := json.MarshalIndent(statuses, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(b))
				return nil
			}

			for i, st := range statuses {
				if i > 0 {
					cmd.Println()
				}
				printStatus(cmd, st)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")

	return cmd
}

func printStatus(cmd *cobra.Command, st loop.Status) {
	cmd.Println(bold("%s", st.String()))
	cmd.Printf("  Exposure: %s\n", stateText(st.State))
	cmd.Printf("  Interval: %s\n", bold("%s", time.Duration(st.IntervalSeconds*float64(time.Second))))
	if !st.LastCycleStart.IsZero() {
		cmd.Printf("  Last cycle started: %s\n", bold("%s", st.LastCycleStart.Format(time.DateTime)))
	}
	if st.MissedCycles {
		cmd.Printf("  %s\n", color.New(color.Bold, color.FgYellow).Sprint("Cycles are running late, the camera may be slow or unreachable."))
	}
	if st.LastCycle != nil {
		cmd.Println("  Last cycle:")
		printRecord(cmd, st.LastCycle)
	}
}

func printRecord(cmd *cobra.Command, rec *history.Record) {
	cmd.Printf("    Taken at: %s\n", bold("%s", rec.TakenAt.Format(time.DateTime)))
	cmd.Printf("    Outcome: %s\n", outcomeText(rec.Outcome))
	if rec.Brightness != nil {
		cmd.Printf("    Brightness: %s\n", brightnessText(*rec.Brightness))
	}
	if rec.Changed() {
		cmd.Printf("    Exposure: %s -> %s\n", stateText(rec.Before), stateText(rec.After))
	}
	if rec.File != "" {
		cmd.Printf("    File: %s\n", rec.File)
	}
	if rec.Error != "" {
		cmd.Printf("    Error: %s\n", color.New(color.FgRed).Sprint(rec.Error))
	}
}

func stateText(s exposure.State) string {
	if s.Tier == exposure.TierManual {
		return bold("%s (gain %d)", s.Tier, s.Gain)
	}
	return bold("%s", s.Tier)
}

func outcomeText(o history.Outcome) string {
	if o == history.OutcomeOK {
		return color.New(color.Bold, color.FgGreen).Sprint(o)
	}
	return color.New(color.Bold, color.FgRed).Sprint(o)
}

func brightnessText(b float64) string {
	switch {
	case b <= exposure.DarkMedian:
		return color.New(color.Bold, color.FgBlue).Sprintf("%.1f (too dark)", b)
	case b >= exposure.BrightMedian:
		return color.New(color.Bold, color.FgYellow).Sprintf("%.1f (too bright)", b)
	default:
		return bold("%.1f", b)
	}
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
