package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newExportSRTCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export-srt <session-id>",
		Short: "Export the transcript as a SubRip subtitle file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := ctx.client()
			if err != nil {
				return err
			}
			content, pending, err := cli.SRT(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if pending != nil {
				return fmt.Errorf("transcript is not ready yet")
			}

			if output == "" {
				output = shortID(args[0]) + ".srt"
			}
			if err := os.WriteFile(output, []byte(content), 0o644); err != nil {
				return fmt.Errorf("write subtitle file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (defaults to <id>.srt)")
	return cmd
}
