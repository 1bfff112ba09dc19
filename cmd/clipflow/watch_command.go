package main

import (
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"clipflow/internal/api"
	"clipflow/internal/session"
)

// newWatchCommand follows a session's event stream until it reaches a
// terminal stage.
func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <session-id>",
		Short: "Follow live session updates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bind, err := ctx.bind()
			if err != nil {
				return err
			}
			url := "ws://" + bind + "/api/sessions/" + args[0] + "/events"
			conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), url, nil)
			if err != nil {
				return fmt.Errorf("connect to event stream: %w", err)
			}
			defer conn.Close()

			go func() {
				<-cmd.Context().Done()
				conn.Close()
			}()

			out := cmd.OutOrStdout()
			for {
				var event api.Event
				if err := conn.ReadJSON(&event); err != nil {
					if cmd.Context().Err() != nil {
						return nil
					}
					return fmt.Errorf("event stream closed: %w", err)
				}
				snap := event.Session
				line := fmt.Sprintf("%s frames=%s transcription=%s",
					renderStage(snap.Stage), renderPercent(snap.ExtractionProgress), snap.TranscriptionStage)
				if waiting := renderWaiting(snap); waiting != "" {
					line += " waiting: " + waiting
				}
				fmt.Fprintln(out, line)

				if snap.Stage == session.StageCompleted || snap.Stage == session.StageFailed {
					return nil
				}
			}
		},
	}
}
