package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

// VideoInfo is the probed shape of a downloaded recording.
type VideoInfo struct {
	DurationSeconds float64
	Resolution      string
}

// Prober inspects a local video file.
type Prober interface {
	Probe(ctx context.Context, path string) (*VideoInfo, error)
}

// FFProbe probes videos by shelling out to ffprobe.
type FFProbe struct {
	// Binary overrides the executable name; empty means "ffprobe" on PATH.
	Binary string
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe implements Prober.
func (p *FFProbe) Probe(ctx context.Context, path string) (*VideoInfo, error) {
	binary := p.Binary
	if binary == "" {
		binary = "ffprobe"
	}
	cmd := exec.CommandContext(ctx, binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbeOutput(out)
}

func parseProbeOutput(out []byte) (*VideoInfo, error) {
	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := &VideoInfo{}
	if parsed.Format.Duration != "" {
		d, err := strconv.ParseFloat(parsed.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("parse duration %q: %w", parsed.Format.Duration, err)
		}
		info.DurationSeconds = d
	}
	for _, s := range parsed.Streams {
		if s.CodecType == "video" && s.Width > 0 {
			info.Resolution = fmt.Sprintf("%dx%d", s.Width, s.Height)
			break
		}
	}
	return info, nil
}
