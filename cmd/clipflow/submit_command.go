package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"clipflow/internal/media/ffprobe"
	"clipflow/internal/services/framegen"
)

// newSubmitCommand submits a video for processing. A local file is probed
// and uploaded first; anything else is treated as an already-uploaded handle
// and requires --duration.
func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var duration float64

	cmd := &cobra.Command{
		Use:   "submit <file-or-handle>",
		Short: "Upload a video and start processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			cli, err := ctx.client()
			if err != nil {
				return err
			}

			handle := source
			if info, statErr := os.Stat(source); statErr == nil && !info.IsDir() {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				probe, err := ffprobe.Inspect(cmd.Context(), cfg.Ingest.FFprobeBinary, source)
				if err != nil {
					return fmt.Errorf("probe video: %w", err)
				}
				if duration <= 0 {
					duration = probe.DurationSeconds()
				}

				frames, err := framegen.New(cfg.FrameGen.BaseURL, cfg.FrameGen.APIKey,
					time.Duration(cfg.FrameGen.RequestTimeout)*time.Second)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Uploading %s...\n", source)
				handle, err = frames.Upload(cmd.Context(), source)
				if err != nil {
					return fmt.Errorf("upload video: %w", err)
				}
			}

			if duration <= 0 {
				return fmt.Errorf("duration is required when submitting a remote handle (use --duration)")
			}

			snap, err := cli.Submit(cmd.Context(), handle, duration)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %s started (%.1fs of video)\n", snap.ID, snap.DurationSeconds)
			return nil
		},
	}

	cmd.Flags().Float64Var(&duration, "duration", 0, "Video duration in seconds (required for remote handles)")
	return cmd
}
