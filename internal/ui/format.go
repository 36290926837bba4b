package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/five82/lookout/internal/api"
	"github.com/five82/lookout/internal/eventlog"
	"github.com/five82/lookout/internal/state"
)

// humanizeDuration formats d compactly for countdowns and ages.
func humanizeDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		h := int(d.Hours())
		if m := int(d.Minutes()) % 60; m > 0 {
			return fmt.Sprintf("%dh %dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

// truncateMiddle keeps both ends of s, favoring the end where file names
// live.
func truncateMiddle(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 5 {
		return string(r[:max])
	}
	endLen := (max - 3) * 2 / 3
	startLen := max - 3 - endLen
	return string(r[:startLen]) + "..." + string(r[len(r)-endLen:])
}

// connectionLabel describes the connection state with its retry countdown.
func connectionLabel(c state.Connection, now time.Time) string {
	switch c.State {
	case state.Reconnecting:
		label := fmt.Sprintf("reconnecting %d/%d", c.ReconnectAttempt, c.MaxAttempts)
		if !c.RetryAt.IsZero() {
			label += " in " + humanizeDuration(c.RetryAt.Sub(now))
		}
		return label
	case state.ClosedTerminal:
		return "offline (press c to reconnect)"
	default:
		return c.State.String()
	}
}

// formatProgress renders a file's progress column.
func formatProgress(f api.File) string {
	var parts []string
	if f.ProgressPct != nil {
		parts = append(parts, fmt.Sprintf("%.0f%%", *f.ProgressPct))
	}
	if f.ProgressStage != "" {
		parts = append(parts, f.ProgressStage)
	}
	if f.Substep != "" {
		step := f.Substep
		if f.SubstepProgress > 0 {
			step = fmt.Sprintf("%s %.0f%%", step, f.SubstepProgress)
		}
		parts = append(parts, step)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " · ")
}

// fileNote picks the most relevant secondary detail for a file row.
func fileNote(f api.File) string {
	switch {
	case f.ErrorMessage != "":
		return f.ErrorMessage
	case f.AnalyticsError != "":
		return "analytics: " + f.AnalyticsError
	case f.ThumbnailError != "":
		return "thumbnail: " + f.ThumbnailError
	case f.AnalyticsTitle != "":
		return f.AnalyticsTitle
	case f.SubstepDetail != "":
		return f.SubstepDetail
	default:
		return ""
	}
}

// sessionProgress summarizes a session as "done/total".
func sessionProgress(s api.Session, files []api.File) string {
	done := 0
	for _, f := range files {
		if f.State.Terminal() {
			done++
		}
	}
	total := max(s.FileCount, len(files))
	return fmt.Sprintf("%d/%d", done, total)
}

// formatEvent renders one event log entry for the events pane.
func formatEvent(e eventlog.Entry, width int) string {
	line := fmt.Sprintf("%s #%d %s", e.At.Format("15:04:05"), e.Seq, e.Type)
	if e.ID != "" {
		line += " " + e.ID
	}
	if len(e.Data) > 0 {
		line += " " + string(e.Data)
	}
	return truncate(line, width)
}

// workerSummary renders the worker line for the header.
func workerSummary(w *api.WorkerStatus) string {
	if w == nil {
		return ""
	}
	summary := fmt.Sprintf("workers %d/%d busy", w.Busy(), len(w.Workers))
	var paused []string
	if w.Paused.Processing {
		paused = append(paused, "processing")
	}
	if w.Paused.Analytics {
		paused = append(paused, "analytics")
	}
	if len(paused) > 0 {
		summary += " · paused " + strings.Join(paused, ", ")
	}
	return summary
}
