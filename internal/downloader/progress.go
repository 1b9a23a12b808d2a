package downloader

import (
	"regexp"
	"strconv"
	"strings"
)

// yt-dlp emits one progress line per update when run with --newline, e.g.
// "[download]  42.3% of 10.00MiB at 1.20MiB/s ETA 00:05".
var progressPattern = regexp.MustCompile(`^\[download\]\s+(\d{1,3}(?:\.\d+)?)%`)

// parseProgress extracts the completion percentage from a yt-dlp output
// line. The second return value reports whether the line carried progress.
func parseProgress(line string) (float64, bool) {
	match := progressPattern.FindStringSubmatch(strings.TrimSpace(line))
	if match == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	if value > 100 {
		value = 100
	}
	return value, true
}
