package agetrack

import (
	"fmt"
	"time"
)

// FormatAge renders an elapsed duration the way the dashboard columns expect:
// precision degrades as the value grows so rows in coarse tiers stay stable
// between refreshes.
func FormatAge(d time.Duration) string {
	secs := int64(d.Seconds())
	if secs < 0 {
		return "0s"
	}
	mins := secs / 60
	switch {
	case mins < 2:
		return fmt.Sprintf("%ds", secs)
	case mins < 10:
		return fmt.Sprintf("%dm%02ds", mins, secs%60)
	case mins < 60:
		return fmt.Sprintf("%dm", mins)
	}
	hours := secs / 3600
	switch {
	case hours < 10:
		return fmt.Sprintf("%dh%dm", hours, mins%60)
	case hours < 24:
		return fmt.Sprintf("%dh", hours)
	}
	days := secs / 86400
	if days < 10 {
		return fmt.Sprintf("%dd%dh", days, hours%24)
	}
	return fmt.Sprintf("%dd", days)
}

// FormatCountdown renders a remaining duration; once the deadline has passed
// it collapses to "now".
func FormatCountdown(d time.Duration) string {
	secs := int64(d.Seconds())
	if secs < 0 {
		return "now"
	}
	days := secs / 86400
	hours := secs / 3600
	mins := secs / 60
	switch {
	case days > 0:
		return fmt.Sprintf("in %dd%dh", days, hours%24)
	case hours > 0:
		return fmt.Sprintf("in %dh%dm", hours, mins%60)
	case mins > 0:
		return fmt.Sprintf("in %dm%02ds", mins, secs%60)
	default:
		return fmt.Sprintf("in %ds", secs)
	}
}

// Format picks the renderer for the given mode, measuring from now.
func Format(mode Mode, timestamp, now time.Time) string {
	if mode == ModeCountdown {
		return FormatCountdown(timestamp.Sub(now))
	}
	return FormatAge(now.Sub(timestamp))
}
