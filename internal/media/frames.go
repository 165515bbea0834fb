// Package media extracts still frames from video submissions so the visual
// analysis agent can inspect them as images.
package media

import (
	"context"

	"github.com/clearcheck/verify-cli/internal/model"
)

// DefaultFrameCount is the number of evenly spaced frames extracted from a
// video when the caller does not specify one.
const DefaultFrameCount = 5

// FrameExtractor pulls ordered still frames out of a video blob. It fails
// if the source duration is unbounded or the media cannot be loaded.
type FrameExtractor interface {
	ExtractFrames(ctx context.Context, video model.MediaBlob, frameCount int) ([]model.MediaBlob, error)
}

// FrameTimestamps returns frameCount evenly spaced offsets (in seconds)
// across a clip of the given duration. The first frame lands half an
// interval in so the very first and last instants are avoided; both tend to
// be black or title frames.
func FrameTimestamps(durationSecs float64, frameCount int) []float64 {
	if frameCount <= 0 || durationSecs <= 0 {
		return nil
	}
	interval := durationSecs / float64(frameCount)
	out := make([]float64, frameCount)
	for i := range out {
		out[i] = interval/2 + float64(i)*interval
	}
	return out
}
