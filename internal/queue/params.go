package queue

import (
	"encoding/json"
	"fmt"
)

// Params carries the executor inputs specific to a job kind. The queue never
// interprets them; they ride along with the item and are handed to the job
// executor verbatim. The set of implementations is closed and keyed by
// JobKind so each variant carries only the fields relevant to its kind.
type Params interface {
	Kind() JobKind
}

// VideoParams requests a plain best-quality video download.
type VideoParams struct{}

// AudioParams requests an audio-only extraction.
type AudioParams struct{}

// ImagesParams requests image downloads from the source.
type ImagesParams struct{}

// StoryParams requests a story download.
type StoryParams struct{}

// PlaylistParams selects one entry out of a multi-video source.
type PlaylistParams struct {
	Index int `json:"index"`
}

// CutParams carries the start/end markers for a video cut, in a form
// yt-dlp's section syntax accepts (e.g. "00:01:30").
type CutParams struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// QualityParams selects a specific format id for a generic-quality download.
type QualityParams struct {
	FormatID string `json:"format_id"`
}

func (VideoParams) Kind() JobKind    { return KindVideo }
func (AudioParams) Kind() JobKind    { return KindAudio }
func (ImagesParams) Kind() JobKind   { return KindImages }
func (StoryParams) Kind() JobKind    { return KindStory }
func (PlaylistParams) Kind() JobKind { return KindPlaylist }
func (CutParams) Kind() JobKind      { return KindVideoCut }
func (QualityParams) Kind() JobKind  { return KindGenericQuality }

// DefaultParams returns the zero-value variant for a kind.
func DefaultParams(kind JobKind) (Params, error) {
	switch kind {
	case KindVideo:
		return VideoParams{}, nil
	case KindAudio:
		return AudioParams{}, nil
	case KindImages:
		return ImagesParams{}, nil
	case KindStory:
		return StoryParams{}, nil
	case KindPlaylist:
		return PlaylistParams{}, nil
	case KindVideoCut:
		return CutParams{}, nil
	case KindGenericQuality:
		return QualityParams{}, nil
	default:
		return nil, fmt.Errorf("unknown job kind %q", kind)
	}
}

func encodeParams(p Params) (string, error) {
	if p == nil {
		return "", nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	return string(raw), nil
}

func decodeParams(kind JobKind, raw string) (Params, error) {
	if raw == "" {
		return DefaultParams(kind)
	}
	switch kind {
	case KindVideo:
		return VideoParams{}, nil
	case KindAudio:
		return AudioParams{}, nil
	case KindImages:
		return ImagesParams{}, nil
	case KindStory:
		return StoryParams{}, nil
	case KindPlaylist:
		var p PlaylistParams
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("unmarshal playlist params: %w", err)
		}
		return p, nil
	case KindVideoCut:
		var p CutParams
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("unmarshal cut params: %w", err)
		}
		return p, nil
	case KindGenericQuality:
		var p QualityParams
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("unmarshal quality params: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown job kind %q", kind)
	}
}
