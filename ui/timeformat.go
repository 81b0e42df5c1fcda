package ui

import (
	"fmt"
	"time"

	"topgrade-gui/config"
)

// formatRelativeTime formats t relative to now.
// Examples: "just now", "2m ago", "3h ago", "5d ago", "2mo ago", "1y ago"
func formatRelativeTime(t, now time.Time) string {
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	case diff < 365*24*time.Hour:
		return fmt.Sprintf("%dmo ago", int(diff.Hours()/(24*30)))
	default:
		return fmt.Sprintf("%dy ago", int(diff.Hours()/(24*365)))
	}
}

// FormatDuration formats an elapsed time as "42s", "3m05s" or "1h02m".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// FormatLastRun describes the most recent run for the welcome screen, handling nil
// (never ran).
func FormatLastRun(run *config.RunRecord, messages Messages) string {
	return formatLastRun(run, messages, time.Now())
}

func formatLastRun(run *config.RunRecord, messages Messages, now time.Time) string {
	if run == nil {
		return messages.LastRun + ": " + messages.Never
	}
	outcome := IconSuccess + " " + messages.Done
	switch {
	case run.Error != "":
		outcome = IconError + " " + run.Error
	case run.ExitCode != 0:
		outcome = fmt.Sprintf("%s %s (exit %d)", IconError, messages.Failed, run.ExitCode)
	}
	return fmt.Sprintf("%s: %s, %s, %s", messages.LastRun, formatRelativeTime(run.FinishedAt, now),
		outcome, FormatDuration(run.Duration()))
}
