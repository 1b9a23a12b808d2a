// Package downloader wraps the yt-dlp command line tool: it builds the
// argument list for each job kind, streams progress from the tool's output,
// and parses format listings for quality selection.
package downloader
