package domain

import "strings"

// Target is what the transcode stage produces for a requested codec.
type Target struct {
	Codec     string
	Extension string
	Encoder   string
	Preset    string
	Quality   int
}

type codecEntry struct {
	extension string
	encoder   string
}

var codecTable = map[string]codecEntry{
	"x264":    {extension: "mp4", encoder: "x264"},
	"x265":    {extension: "mp4", encoder: "x265"},
	"VP9":     {extension: "mkv", encoder: "VP9"},
	"VP8":     {extension: "mkv", encoder: "VP8"},
	"mpeg4":   {extension: "mp4", encoder: "mpeg4"},
	"SVT-AV1": {extension: "mkv", encoder: "svt_av1"},
	"theora":  {extension: "mkv", encoder: "theora"},
}

var fallbackCodec = codecEntry{extension: "mp4", encoder: "x264"}

var x264Presets = map[string]bool{
	"ultrafast": true,
	"superfast": true,
	"veryfast":  true,
	"faster":    true,
	"fast":      true,
	"medium":    true,
	"slow":      true,
	"slower":    true,
	"veryslow":  true,
	"placebo":   true,
}

// ResolveCodec maps a requested codec name to its container extension and
// HandBrake encoder. Unknown names resolve to x264 in an mp4 container.
func ResolveCodec(codec string) (extension, encoder string) {
	entry, ok := codecTable[codec]
	if !ok {
		entry = fallbackCodec
	}
	return entry.extension, entry.encoder
}

// NormalizePreset returns preset if it is a known x264/x265 preset, otherwise
// DefaultPreset.
func NormalizePreset(preset string) string {
	p := strings.ToLower(strings.TrimSpace(preset))
	if x264Presets[p] {
		return p
	}
	return DefaultPreset
}

// UsesX26xControls reports whether the encoder accepts profile, level and
// preset tuning.
func UsesX26xControls(encoder string) bool {
	return encoder == "x264" || encoder == "x265"
}

// TargetFor resolves the transcode target of a job.
func TargetFor(j *Job) Target {
	ext, enc := ResolveCodec(j.Codec)
	return Target{
		Codec:     j.Codec,
		Extension: ext,
		Encoder:   enc,
		Preset:    NormalizePreset(j.Preset),
		Quality:   ClampQuality(j.Quality),
	}
}
