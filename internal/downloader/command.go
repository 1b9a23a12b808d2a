package downloader

import (
	"fmt"
	"path/filepath"
	"strconv"

	"fetchd/internal/queue"
)

// outputTemplate names downloaded files by title and extension inside the
// per-item directory.
const outputTemplate = "%(title).200s.%(ext)s"

// commandArgs builds the yt-dlp argument list for an item. The returned
// slice excludes the binary itself. A non-empty ffmpegPath pins the ffmpeg
// yt-dlp uses for merging and extraction.
func commandArgs(item *queue.Item, destDir, ffmpegPath string) ([]string, error) {
	args := []string{
		"--newline",
		"--no-playlist",
		"--no-warnings",
		"-o", filepath.Join(destDir, outputTemplate),
	}
	if ffmpegPath != "" {
		args = append(args, "--ffmpeg-location", ffmpegPath)
	}

	switch params := item.Params.(type) {
	case queue.VideoParams:
		args = append(args,
			"-f", "best[height<=1080]/best",
			"--merge-output-format", "mp4",
		)
	case queue.AudioParams:
		args = append(args,
			"-x",
			"--audio-format", "mp3",
			"--audio-quality", "0",
		)
	case queue.ImagesParams:
		args = append(args,
			"--skip-download",
			"--write-thumbnail",
			"--write-all-thumbnails",
		)
	case queue.StoryParams:
		args = append(args,
			"-f", "best",
		)
	case queue.PlaylistParams:
		index := params.Index
		if index < 1 {
			return nil, fmt.Errorf("playlist index must be positive, got %d", index)
		}
		// Override the single-video default for playlist selections.
		args = replaceFlag(args, "--no-playlist", "--yes-playlist")
		args = append(args,
			"--playlist-items", strconv.Itoa(index),
			"-f", "best[height<=1080]/best",
			"--merge-output-format", "mp4",
		)
	case queue.CutParams:
		if params.Start == "" || params.End == "" {
			return nil, fmt.Errorf("cut requires both start and end markers")
		}
		args = append(args,
			"--download-sections", fmt.Sprintf("*%s-%s", params.Start, params.End),
			"-f", "best[height<=1080]/best",
			"--merge-output-format", "mp4",
		)
	case queue.QualityParams:
		if params.FormatID == "" {
			return nil, fmt.Errorf("quality download requires a format id")
		}
		args = append(args, "-f", params.FormatID)
	default:
		return nil, fmt.Errorf("unsupported params type %T", item.Params)
	}

	args = append(args, item.SourceURL)
	return args, nil
}

func replaceFlag(args []string, old, replacement string) []string {
	for i, arg := range args {
		if arg == old {
			args[i] = replacement
			return args
		}
	}
	return append(args, replacement)
}
