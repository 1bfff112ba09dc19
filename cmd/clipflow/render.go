package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"clipflow/internal/session"
)

func renderTable(headers []string, rows [][]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range header {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}

func colorEnabled() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// renderStage colorizes the lifecycle stage when stdout is a terminal.
func renderStage(stage session.Stage) string {
	if !colorEnabled() {
		return string(stage)
	}
	switch stage {
	case session.StageCompleted:
		return text.FgGreen.Sprint(string(stage))
	case session.StageFailed:
		return text.FgRed.Sprint(string(stage))
	case session.StageProcessing:
		return text.FgCyan.Sprint(string(stage))
	default:
		return string(stage)
	}
}

func renderPercent(value float64) string {
	return fmt.Sprintf("%.0f%%", value)
}

func renderCost(total float64) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("$%.4f", total)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func renderWaiting(snap session.Snapshot) string {
	if snap.WaitingMessage == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(snap.WaitingMessage)
	if snap.EstimatedWaitSeconds > 0 {
		fmt.Fprintf(&b, " (about %.0fs)", snap.EstimatedWaitSeconds)
	}
	return b.String()
}
