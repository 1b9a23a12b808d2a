package main

import (
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"fetchd/internal/queue"
)

var nameCaser = cases.Title(language.English, cases.NoLower)

// displayName prefers the stored requester name, title-cased, and falls back
// to the numeric id.
func displayName(name string, requesterID int64) string {
	if name == "" {
		return fmt.Sprintf("#%d", requesterID)
	}
	return nameCaser.String(name)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatProgress(item *queue.Item) string {
	switch item.Status {
	case queue.StatusDownloading:
		return fmt.Sprintf("%.1f%%", item.Progress)
	case queue.StatusCompleted:
		return "100%"
	default:
		return "-"
	}
}

func formatTime(value *time.Time) string {
	if value == nil {
		return "-"
	}
	return value.Local().Format("2006-01-02 15:04:05")
}

func truncateURL(url string) string {
	const limit = 60
	if len(url) <= limit {
		return url
	}
	return url[:limit-3] + "..."
}
