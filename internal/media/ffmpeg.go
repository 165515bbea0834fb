package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/clearcheck/verify-cli/internal/model"
)

// FFmpeg extracts frames using the ffmpeg and ffprobe CLI tools.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpeg creates an FFmpeg extractor. Empty paths default to the binaries
// on PATH.
func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// ExtractFrames writes the video to a temp file, probes its duration, and
// grabs frameCount evenly spaced JPEG frames.
func (f *FFmpeg) ExtractFrames(ctx context.Context, video model.MediaBlob, frameCount int) ([]model.MediaBlob, error) {
	if frameCount <= 0 {
		frameCount = DefaultFrameCount
	}

	dir, err := os.MkdirTemp("", "verify-frames-")
	if err != nil {
		return nil, eris.Wrap(err, "media: temp dir")
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "source")
	if err := os.WriteFile(src, video.Data, 0o600); err != nil {
		return nil, eris.Wrap(err, "media: write source")
	}

	duration, err := f.probeDuration(ctx, src)
	if err != nil {
		return nil, err
	}

	var frames []model.MediaBlob
	for i, ts := range FrameTimestamps(duration, frameCount) {
		out := filepath.Join(dir, fmt.Sprintf("frame-%03d.jpg", i))
		cmd := exec.CommandContext(ctx, f.ffmpegPath,
			"-ss", strconv.FormatFloat(ts, 'f', 3, 64),
			"-i", src,
			"-frames:v", "1",
			"-q:v", "3",
			"-y", out,
		)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return nil, eris.Wrapf(err, "media: ffmpeg frame %d: %s", i, stderr.String())
		}
		data, err := os.ReadFile(out)
		if err != nil {
			return nil, eris.Wrapf(err, "media: read frame %d", i)
		}
		frames = append(frames, model.MediaBlob{Data: data, MimeType: "image/jpeg"})
	}

	return frames, nil
}

// probeDuration returns the clip duration in seconds. Live or otherwise
// unbounded sources report "N/A" and are rejected.
func (f *FFmpeg) probeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, eris.Wrapf(err, "media: ffprobe: %s", stderr.String())
	}

	raw := strings.TrimSpace(stdout.String())
	if raw == "" || raw == "N/A" {
		return 0, eris.New("media: source duration is unbounded")
	}
	duration, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "media: parse duration %q", raw)
	}
	if duration <= 0 {
		return 0, eris.New("media: source has no playable duration")
	}
	return duration, nil
}
