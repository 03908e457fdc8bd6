package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ProbeResult represents the parsed output from an ffprobe inspection.
type ProbeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Duration  string `json:"duration"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// Probe executes ffprobe against the provided path and decodes the JSON output.
func Probe(ctx context.Context, binary, path string) (ProbeResult, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return ProbeResult{}, errors.New("ffprobe: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner",
		"-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe: %w: %s", err, strings.TrimSpace(string(output)))
	}

	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// DurationSeconds returns the container duration in seconds, or 0 when
// ffprobe did not report one.
func (r ProbeResult) DurationSeconds() float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(r.Format.Duration), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// HasVideoStream reports whether the container carries at least one video stream.
func (r ProbeResult) HasVideoStream() bool {
	for _, s := range r.Streams {
		if strings.EqualFold(s.CodecType, "video") {
			return true
		}
	}
	return false
}

// Encode re-encodes src into a browser-friendly h264/aac mp4 at dst.
// extraArgs are appended before the output path so operators can override
// quality settings.
func Encode(ctx context.Context, binary, src, dst string, extraArgs []string) error {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	args := []string{"-y", "-v", "error", "-i", src,
		"-c:v", "libx264", "-preset", "fast", "-crf", "23",
		"-c:a", "aac", "-movflags", "+faststart",
	}
	args = append(args, extraArgs...)
	args = append(args, dst)

	cmd := exec.CommandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg encode: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// ExtractPoster grabs a single frame at the given offset as a JPEG.
func ExtractPoster(ctx context.Context, binary, src, dst string, atSeconds float64) error {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if atSeconds < 0 {
		atSeconds = 0
	}
	offset := strconv.FormatFloat(atSeconds, 'f', 2, 64)

	cmd := exec.CommandContext(ctx, binary, "-y", "-v", "error",
		"-ss", offset, "-i", src, "-frames:v", "1", "-q:v", "3", dst)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg poster: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
