package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show full session detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := ctx.client()
			if err != nil {
				return err
			}
			snap, err := cli.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Session %s\n", snap.ID)
			fmt.Fprintf(out, "  Stage:          %s\n", renderStage(snap.Stage))
			fmt.Fprintf(out, "  Video handle:   %s\n", snap.VideoHandle)
			fmt.Fprintf(out, "  Duration:       %.1fs\n", snap.DurationSeconds)
			fmt.Fprintf(out, "  Frames:         %s (%d extracted)\n", renderPercent(snap.ExtractionProgress), len(snap.Frames))
			fmt.Fprintf(out, "  Transcription:  %s\n", snap.TranscriptionStage)
			if waiting := renderWaiting(snap); waiting != "" {
				fmt.Fprintf(out, "  Waiting:        %s\n", waiting)
			}
			if snap.SegmentationProgress > 0 {
				fmt.Fprintf(out, "  Segmentation:   %s (%d segments)\n", renderPercent(snap.SegmentationProgress), len(snap.Segments))
			}
			if snap.AudioSourceHandle != "" {
				fmt.Fprintf(out, "  Audio handle:   %s\n", snap.AudioSourceHandle)
			}

			if len(snap.Costs) > 0 {
				fmt.Fprintln(out, "  Costs:")
				for source, amount := range snap.Costs {
					fmt.Fprintf(out, "    %-18s $%.4f\n", source, amount)
				}
				fmt.Fprintf(out, "    %-18s $%.4f\n", "total", snap.TotalCost)
			}

			if len(snap.Errors) > 0 {
				fmt.Fprintln(out, "  Errors:")
				for _, record := range snap.Errors {
					fmt.Fprintf(out, "    [%s] %s: %s\n",
						record.Timestamp.Local().Format("15:04:05"), record.Section, record.Message)
				}
			}
			return nil
		},
	}
}
