package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List sessions and their progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := ctx.client()
			if err != nil {
				return err
			}
			snaps, err := cli.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(snaps) == 0 {
				fmt.Fprintln(out, "No sessions")
				return nil
			}

			rows := make([][]string, 0, len(snaps))
			for _, snap := range snaps {
				rows = append(rows, []string{
					shortID(snap.ID),
					renderStage(snap.Stage),
					renderPercent(snap.ExtractionProgress),
					string(snap.TranscriptionStage),
					renderCost(snap.TotalCost),
					snap.CreatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Stage", "Frames", "Transcription", "Cost", "Created"},
				rows,
			))
			return nil
		},
	}
}
