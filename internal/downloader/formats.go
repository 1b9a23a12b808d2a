package downloader

import (
	"strings"
)

// Format is one downloadable rendition reported by yt-dlp for a source URL.
type Format struct {
	ID         string
	Extension  string
	Resolution string
	Note       string
}

// parseFormats reads the table yt-dlp prints for --list-formats. Header,
// separator, and storyboard rows are skipped.
func parseFormats(output string) []Format {
	var formats []Format
	inTable := false

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "[") {
			continue
		}

		fields := strings.Fields(trimmed)
		if len(fields) >= 3 && fields[0] == "ID" {
			inTable = true
			continue
		}
		if !inTable {
			continue
		}
		if strings.HasPrefix(trimmed, "---") {
			continue
		}
		if len(fields) < 3 {
			continue
		}
		if fields[1] == "mhtml" {
			// Storyboard thumbnails, not a downloadable rendition.
			continue
		}

		format := Format{
			ID:         fields[0],
			Extension:  fields[1],
			Resolution: fields[2],
		}
		if len(fields) > 3 {
			format.Note = strings.Join(fields[3:], " ")
		}
		formats = append(formats, format)
	}

	return formats
}
