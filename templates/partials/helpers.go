package partials

import (
	"context"
	"fmt"
	"time"

	"milestone_dashboard/services/i18n"
)

// Helper function to format file size
func formatFileSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatRelativeTime describes t relative to now in the request locale.
func formatRelativeTime(ctx context.Context, now, t time.Time) string {
	duration := now.Sub(t)

	switch {
	case duration < time.Minute:
		return i18n.T(ctx, "time.just_now")
	case duration < time.Hour:
		return i18n.T(ctx, "time.minutes_ago", map[string]interface{}{"count": int(duration.Minutes())})
	case duration < 24*time.Hour:
		return i18n.T(ctx, "time.hours_ago", map[string]interface{}{"count": int(duration.Hours())})
	case duration < 7*24*time.Hour:
		return i18n.T(ctx, "time.days_ago", map[string]interface{}{"count": int(duration.Hours() / 24)})
	default:
		return t.Format("2006-01-02")
	}
}

// formatDueDate keeps backend dates as sent unless they are full
// timestamps, which are cut to the day.
func formatDueDate(s string) string {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format("2006-01-02")
	}
	return s
}
