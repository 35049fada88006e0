package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/maksimsarychau/mcp-zebrunner/internal/analysis"
)

// Extractor samples frames from a downloaded recording with ffmpeg and
// derives a coarse visual signal (OCR text, anomaly tags) per frame.
type Extractor struct {
	// Binary overrides the ffmpeg executable; empty means "ffmpeg" on PATH.
	Binary string
	OCR    OCREngine
	Logger *slog.Logger
}

var _ analysis.FrameExtractor = (*Extractor)(nil)

// NewExtractor returns an Extractor using ffmpeg from PATH and the given
// OCR engine (nil disables OCR regardless of the request flag).
func NewExtractor(ocr OCREngine, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{OCR: ocr, Logger: logger}
}

// ExtractFrames samples the recording per the request's mode and analyzes
// each extracted frame.
func (e *Extractor) ExtractFrames(ctx context.Context, req analysis.FrameRequest) ([]analysis.FrameAnalysis, error) {
	timestamps := PlanTimestamps(req)
	if len(timestamps) == 0 {
		return nil, nil
	}

	framesDir := filepath.Join(filepath.Dir(req.VideoPath), "frames")
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create frames dir: %w", err)
	}

	frames := make([]analysis.FrameAnalysis, 0, len(timestamps))
	for i, ts := range timestamps {
		framePath := filepath.Join(framesDir, fmt.Sprintf("frame-%04d.png", i+1))
		if err := e.extractOne(ctx, req.VideoPath, ts, framePath); err != nil {
			return nil, err
		}

		frame := analysis.FrameAnalysis{
			Timestamp: ts,
			Sequence:  i + 1,
			FilePath:  framePath,
		}
		if req.IncludeOCR && e.OCR != nil {
			text, err := e.OCR.ExtractText(ctx, framePath)
			if err != nil {
				e.Logger.Warn("OCR failed", "frame", framePath, "error", err)
			} else {
				frame.OCRText = text
			}
		}
		AnnotateFrame(&frame)
		frames = append(frames, frame)
	}
	return frames, nil
}

func (e *Extractor) extractOne(ctx context.Context, videoPath string, ts float64, outPath string) error {
	binary := e.Binary
	if binary == "" {
		binary = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, binary,
		"-ss", fmt.Sprintf("%.3f", ts),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		"-y", outPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg frame at %.1fs: %w: %s", ts, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// CleanupFrames removes every extracted frame file.
func (e *Extractor) CleanupFrames(frames []analysis.FrameAnalysis) error {
	var firstErr error
	for _, f := range frames {
		if f.FilePath == "" {
			continue
		}
		if err := os.Remove(f.FilePath); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PlanTimestamps computes the sampling points for a request. Failure-focused
// mode samples the failure window densely; full-test mode samples the whole
// recording at the configured interval; smart mode samples the whole run
// sparsely plus the failure window densely.
func PlanTimestamps(req analysis.FrameRequest) []float64 {
	duration := req.DurationSeconds
	if duration <= 0 {
		return nil
	}
	interval := req.FrameInterval
	if interval <= 0 {
		interval = 2
	}

	switch req.Mode {
	case analysis.ModeFullTest:
		return sampleRange(0, duration, interval, duration)
	case analysis.ModeSmart:
		sparse := sampleRange(0, duration, sparseInterval(duration, interval), duration)
		return mergeTimestamps(sparse, failureWindow(req, interval))
	default: // failure focused
		window := failureWindow(req, interval)
		if len(window) == 0 {
			// No failure estimate: fall back to the tail of the recording.
			start := duration - float64(failureWindowOrDefault(req))
			if start < 0 {
				start = 0
			}
			return sampleRange(start, duration, interval, duration)
		}
		return window
	}
}

func failureWindowOrDefault(req analysis.FrameRequest) int {
	if req.FailureWindowSeconds > 0 {
		return req.FailureWindowSeconds
	}
	return 10
}

// failureWindow samples [failure-window, failure+window] clamped to the
// recording, or nil when the failure moment is unknown.
func failureWindow(req analysis.FrameRequest, interval float64) []float64 {
	if req.FailureTimestamp == nil {
		return nil
	}
	window := float64(failureWindowOrDefault(req))
	start := *req.FailureTimestamp - window
	end := *req.FailureTimestamp + window
	if start < 0 {
		start = 0
	}
	return sampleRange(start, end, interval, req.DurationSeconds)
}

// sparseInterval widens the sampling step for long recordings so smart mode
// stays cheap.
func sparseInterval(duration, interval float64) float64 {
	sparse := duration / 10
	if sparse < interval {
		return interval
	}
	return sparse
}

func sampleRange(start, end, step, duration float64) []float64 {
	if end > duration {
		end = duration
	}
	var out []float64
	for ts := start; ts <= end; ts += step {
		out = append(out, ts)
	}
	return out
}

// mergeTimestamps unions two ascending timestamp lists, dropping
// near-duplicates (within a quarter second).
func mergeTimestamps(a, b []float64) []float64 {
	all := append(append([]float64{}, a...), b...)
	if len(all) == 0 {
		return nil
	}
	sortFloats(all)
	out := all[:1]
	for _, ts := range all[1:] {
		if ts-out[len(out)-1] > 0.25 {
			out = append(out, ts)
		}
	}
	return out
}

func sortFloats(v []float64) {
	for i := 1; i < len(v); i++ {
		for j := i; j > 0 && v[j] < v[j-1]; j-- {
			v[j], v[j-1] = v[j-1], v[j]
		}
	}
}

// anomalyMarkers maps OCR text markers to the anomaly tags the prediction
// engine understands.
var anomalyMarkers = []struct {
	markers []string
	tag     string
	state   string
}{
	{[]string{"has stopped", "isn't responding", "not responding", "force close"}, "crash screen", "crashed"},
	{[]string{"error", "exception", "failure", "failed"}, "error dialog", "error"},
	{[]string{"404", "500", "502", "503"}, "error dialog", "error"},
}

// AnnotateFrame derives the visual-state description, app-state label and
// anomaly tags from whatever text was recognized on the frame.
func AnnotateFrame(frame *analysis.FrameAnalysis) {
	text := strings.ToLower(frame.OCRText)
	if text == "" {
		if frame.VisualState == "" {
			frame.VisualState = fmt.Sprintf("frame at %.1fs", frame.Timestamp)
		}
		return
	}

	frame.AppState = "running"
	for _, m := range anomalyMarkers {
		for _, marker := range m.markers {
			if strings.Contains(text, marker) {
				frame.Anomalies = appendUnique(frame.Anomalies, m.tag)
				frame.AppState = m.state
				break
			}
		}
	}

	if len(frame.Anomalies) > 0 {
		frame.VisualState = fmt.Sprintf("screen showing %s at %.1fs", strings.Join(frame.Anomalies, ", "), frame.Timestamp)
	} else if frame.VisualState == "" {
		frame.VisualState = fmt.Sprintf("frame at %.1fs", frame.Timestamp)
	}
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
