package downloader

import (
	"strings"
	"testing"

	"fetchd/internal/queue"
)

func TestCommandArgs(t *testing.T) {
	tests := []struct {
		name    string
		params  queue.Params
		want    []string
		exclude []string
		wantErr bool
	}{
		{
			name:   "video caps resolution and merges to mp4",
			params: queue.VideoParams{},
			want:   []string{"-f", "best[height<=1080]/best", "--merge-output-format", "mp4", "--no-playlist"},
		},
		{
			name:   "audio extracts mp3",
			params: queue.AudioParams{},
			want:   []string{"-x", "--audio-format", "mp3"},
		},
		{
			name:   "images skip media download",
			params: queue.ImagesParams{},
			want:   []string{"--skip-download", "--write-all-thumbnails"},
		},
		{
			name:    "playlist selects one entry",
			params:  queue.PlaylistParams{Index: 3},
			want:    []string{"--yes-playlist", "--playlist-items", "3"},
			exclude: []string{"--no-playlist"},
		},
		{
			name:    "playlist rejects zero index",
			params:  queue.PlaylistParams{Index: 0},
			wantErr: true,
		},
		{
			name:   "cut uses section syntax",
			params: queue.CutParams{Start: "00:00:10", End: "00:01:00"},
			want:   []string{"--download-sections", "*00:00:10-00:01:00"},
		},
		{
			name:    "cut rejects missing markers",
			params:  queue.CutParams{Start: "00:00:10"},
			wantErr: true,
		},
		{
			name:   "quality passes the format id",
			params: queue.QualityParams{FormatID: "137+140"},
			want:   []string{"-f", "137+140"},
		},
		{
			name:    "quality rejects empty format id",
			params:  queue.QualityParams{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := &queue.Item{
				ID:        "test-item",
				SourceURL: "https://example.com/watch",
				Kind:      tt.params.Kind(),
				Params:    tt.params,
			}
			args, err := commandArgs(item, "/tmp/downloads/test-item", "")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("commandArgs: %v", err)
			}

			joined := " " + strings.Join(args, " ") + " "
			for _, fragment := range tt.want {
				if !strings.Contains(joined, " "+fragment+" ") {
					t.Fatalf("args missing %q: %v", fragment, args)
				}
			}
			for _, fragment := range tt.exclude {
				if strings.Contains(joined, " "+fragment+" ") {
					t.Fatalf("args should not contain %q: %v", fragment, args)
				}
			}
			if args[len(args)-1] != item.SourceURL {
				t.Fatalf("url must be the final argument, got %v", args)
			}
		})
	}
}

func TestCommandArgsFFmpegLocation(t *testing.T) {
	item := &queue.Item{
		ID:        "test-item",
		SourceURL: "https://example.com/watch",
		Kind:      queue.KindVideo,
		Params:    queue.VideoParams{},
	}

	args, err := commandArgs(item, "/tmp/downloads/test-item", "/opt/ffmpeg/bin")
	if err != nil {
		t.Fatalf("commandArgs: %v", err)
	}
	joined := " " + strings.Join(args, " ") + " "
	if !strings.Contains(joined, " --ffmpeg-location /opt/ffmpeg/bin ") {
		t.Fatalf("expected ffmpeg location forwarded, got %v", args)
	}

	args, err = commandArgs(item, "/tmp/downloads/test-item", "")
	if err != nil {
		t.Fatalf("commandArgs: %v", err)
	}
	for _, arg := range args {
		if arg == "--ffmpeg-location" {
			t.Fatalf("unconfigured ffmpeg must not be forwarded: %v", args)
		}
	}
}

func TestParseProgress(t *testing.T) {
	tests := []struct {
		line string
		want float64
		ok   bool
	}{
		{"[download]  42.3% of 10.00MiB at 1.20MiB/s ETA 00:05", 42.3, true},
		{"[download] 100% of 10.00MiB in 00:08", 100, true},
		{"[download]   0.0% of ~5.00MiB at Unknown speed", 0, true},
		{"[download] Destination: video.mp4", 0, false},
		{"[info] Extracting URL", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseProgress(tt.line)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("parseProgress(%q) = %v, %v; want %v, %v", tt.line, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseFormats(t *testing.T) {
	output := `[youtube] Extracting URL: https://example.com/watch
[info] Available formats for abc123:
ID      EXT   RESOLUTION FPS CH |   FILESIZE   TBR PROTO | VCODEC          VBR ACODEC      ABR ASR MORE INFO
------------------------------------------------------------------------------------------------------------
sb0     mhtml 48x27        1    |                  mhtml | images                                  storyboard
140     m4a   audio only      2 |    3.10MiB  129k https | audio only          mp4a.40.2  129k 44k medium
137     mp4   1920x1080   30   |   50.00MiB 2500k https | avc1.640028   2500k video only          1080p
`

	formats := parseFormats(output)
	if len(formats) != 2 {
		t.Fatalf("expected 2 formats, got %d: %+v", len(formats), formats)
	}
	if formats[0].ID != "140" || formats[0].Extension != "m4a" {
		t.Fatalf("unexpected first format: %+v", formats[0])
	}
	if formats[1].ID != "137" || formats[1].Resolution != "1920x1080" {
		t.Fatalf("unexpected second format: %+v", formats[1])
	}
	if !strings.Contains(formats[1].Note, "1080p") {
		t.Fatalf("expected note captured, got %q", formats[1].Note)
	}
}
