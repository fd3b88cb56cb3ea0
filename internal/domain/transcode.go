package domain

import (
	"fmt"
	"regexp"
	"sort"
)

// Rendition is one fixed-resolution tier of an ABR ladder.
type Rendition struct {
	Name         string `json:"name" yaml:"name"`
	Height       int    `json:"height" yaml:"height"`
	VideoBitrate string `json:"video_bitrate" yaml:"video_bitrate"`
	MaxRate      string `json:"max_rate" yaml:"max_rate"`
	BufSize      string `json:"buf_size" yaml:"buf_size"`
}

// DefaultLadder is ordered from highest to lowest resolution.
var DefaultLadder = []Rendition{
	{Name: "1080", Height: 1080, VideoBitrate: "5000k", MaxRate: "5350k", BufSize: "7500k"},
	{Name: "720", Height: 720, VideoBitrate: "3000k", MaxRate: "3210k", BufSize: "4500k"},
	{Name: "480", Height: 480, VideoBitrate: "1500k", MaxRate: "1605k", BufSize: "2250k"},
}

// TranscodeOptions overrides the pipeline defaults. Zero values mean "use the default".
type TranscodeOptions struct {
	Preset         string      `json:"preset,omitempty"`
	CRF            *int        `json:"crf,omitempty"`
	SegmentSeconds int         `json:"segment_seconds,omitempty"`
	PlaylistFlags  string      `json:"playlist_flags,omitempty"`
	PlaylistType   string      `json:"playlist_type,omitempty"`
	AudioBitrate   string      `json:"audio_bitrate,omitempty"` // set to re-encode audio as AAC; otherwise copied
	Ladder         []Rendition `json:"ladder,omitempty"`
	UseNVENC       *bool       `json:"use_nvenc,omitempty"`
	NVDevice       string      `json:"nv_device,omitempty"`
}

var renditionNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateLadder rejects renditions whose names are not plain path and
// stream-map tokens, repeat another name, or have no height. Names become
// directory names and var_stream_map entries, so separators, dots, spaces
// and commas are refused.
func ValidateLadder(ladder []Rendition) error {
	seen := make(map[string]struct{}, len(ladder))
	for _, r := range ladder {
		if !renditionNamePattern.MatchString(r.Name) {
			return fmt.Errorf("%w: invalid rendition name %q", ErrInvalidRequest, r.Name)
		}
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("%w: duplicate rendition name %q", ErrInvalidRequest, r.Name)
		}
		seen[r.Name] = struct{}{}
		if r.Height <= 0 {
			return fmt.Errorf("%w: rendition %q has invalid height %d", ErrInvalidRequest, r.Name, r.Height)
		}
	}
	return nil
}

// SelectLadder filters base down to the renditions that do not upscale a source
// of the given height. A sourceHeight <= 0 means the height is unknown, in which
// case only the two lowest tiers are used. If nothing survives the filter the
// two lowest tiers of base are returned. The result is ordered highest first.
func SelectLadder(base []Rendition, sourceHeight int) []Rendition {
	sorted := make([]Rendition, len(base))
	copy(sorted, base)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Height > sorted[j].Height })

	if sourceHeight <= 0 {
		return lowest(sorted, 2)
	}

	out := make([]Rendition, 0, len(sorted))
	for _, r := range sorted {
		if r.Height <= sourceHeight {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return lowest(sorted, 2)
	}
	return out
}

func lowest(sorted []Rendition, n int) []Rendition {
	if len(sorted) <= n {
		return sorted
	}
	return sorted[len(sorted)-n:]
}
