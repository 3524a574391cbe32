// Package progress extracts completion percentages and status messages from
// single lines of external tool output.
//
// Every parser is a pure function of one line. A line that does not match a
// tool's grammar, or matches it but carries a malformed number, yields
// ok == false and must leave the job's last known progress untouched.
package progress

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Update is one observation parsed from a tool output line.
type Update struct {
	Percent    float64
	HasPercent bool
	Message    string
}

// Parser is the shape shared by the per-tool parsing rules.
type Parser func(line string) (Update, bool)

const (
	fetchTag        = "[download]"
	filterMarker    = "time="
	transcodeMarker = "Encoding:"
)

// ParseFetch handles yt-dlp progress lines such as
// "[download]  45.3% of 10.00MiB at 1.20MiB/s ETA 00:05".
func ParseFetch(line string) (Update, bool) {
	if !strings.Contains(line, fetchTag) || !strings.Contains(line, "%") {
		return Update{}, false
	}
	head, _, _ := strings.Cut(line, "%")
	fields := strings.Fields(head)
	if len(fields) == 0 {
		return Update{}, false
	}
	pct, ok := parsePercent(fields[len(fields)-1])
	if !ok {
		return Update{}, false
	}
	return Update{
		Percent:    pct,
		HasPercent: true,
		Message:    fmt.Sprintf("Downloading... %.1f%%", pct),
	}, true
}

// ParseFilter handles ffmpeg status lines. ffmpeg reports elapsed media time,
// not a fraction, so the update is a liveness signal without a percentage.
func ParseFilter(line string) (Update, bool) {
	idx := strings.Index(line, filterMarker)
	if idx < 0 {
		return Update{}, false
	}
	msg := "Upscaling to 1080p..."
	rest := strings.TrimSpace(line[idx+len(filterMarker):])
	if fields := strings.Fields(rest); len(fields) > 0 && fields[0] != "N/A" {
		msg = fmt.Sprintf("Upscaling to 1080p... (elapsed %s)", fields[0])
	}
	return Update{Message: msg}, true
}

// ParseTranscode handles HandBrakeCLI lines such as
// "Encoding: task 1 of 1, 45.67 % (30.12 fps, avg 31.00 fps, ETA 00h01m02s)".
// The percentage is the last number of the last comma separated field before
// the percent sign.
func ParseTranscode(line string) (Update, bool) {
	idx := strings.Index(line, transcodeMarker)
	if idx < 0 || !strings.Contains(line[idx:], "%") {
		return Update{}, false
	}
	head, _, _ := strings.Cut(line[idx+len(transcodeMarker):], "%")
	parts := strings.Split(head, ",")
	fields := strings.Fields(parts[len(parts)-1])
	if len(fields) == 0 {
		return Update{}, false
	}
	pct, ok := parsePercent(fields[len(fields)-1])
	if !ok {
		return Update{}, false
	}
	return Update{
		Percent:    pct,
		HasPercent: true,
		Message:    fmt.Sprintf("Transcoding... %.1f%%", pct),
	}, true
}

func parsePercent(token string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(token, "%"), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return max(0, min(100, v)), true
}
