package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipflow/internal/api"
)

func newTranscriptCommand(ctx *commandContext) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "transcript <session-id>",
		Short: "Print the segmented transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := ctx.client()
			if err != nil {
				return err
			}
			result, pending, err := cli.Transcription(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if pending != nil {
				if pending.Status == api.TranscriptionWaiting {
					fmt.Fprintf(out, "Transcription is waiting on the audio source")
					if pending.EstimatedWaitSeconds > 0 {
						fmt.Fprintf(out, " (about %.0fs)", pending.EstimatedWaitSeconds)
					}
					fmt.Fprintln(out)
				} else {
					fmt.Fprintln(out, "Transcription is still processing")
				}
				return nil
			}

			if full {
				fmt.Fprintln(out, result.FullTranscript)
				return nil
			}
			for _, segment := range result.Segments {
				fmt.Fprintf(out, "[%7.2f - %7.2f] %s\n", segment.StartTime, segment.EndTime, segment.Text)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Print the unsegmented transcript")
	return cmd
}
