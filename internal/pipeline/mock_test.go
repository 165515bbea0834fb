package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/require"

	"github.com/clearcheck/verify-cli/internal/config"
	"github.com/clearcheck/verify-cli/internal/model"
	"github.com/clearcheck/verify-cli/internal/store"
	"github.com/clearcheck/verify-cli/pkg/anthropic"
)

// scriptedClient replays canned responses in call order. Stages run
// strictly sequentially, so ordering is deterministic.
type scriptedClient struct {
	responses []scriptedResponse
	calls     int
	requests  []anthropic.MessageRequest
}

type scriptedResponse struct {
	text      string
	err       error
	chunks    []string
	streamErr error
}

func (c *scriptedClient) next() scriptedResponse {
	if c.calls >= len(c.responses) {
		return scriptedResponse{err: eris.New("scripted client exhausted")}
	}
	r := c.responses[c.calls]
	c.calls++
	return r
}

func (c *scriptedClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	c.requests = append(c.requests, req)
	r := c.next()
	if r.err != nil {
		return nil, r.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: r.text}},
	}, nil
}

func (c *scriptedClient) StreamMessage(_ context.Context, req anthropic.MessageRequest) (anthropic.MessageStream, error) {
	c.requests = append(c.requests, req)
	r := c.next()
	if r.err != nil {
		return nil, r.err
	}
	return &fakeStream{chunks: r.chunks, failWith: r.streamErr}, nil
}

// fakeStream yields its chunks in order, then optionally fails.
type fakeStream struct {
	chunks   []string
	idx      int
	failWith error
	closed   bool
}

func (s *fakeStream) Next() bool {
	if s.idx >= len(s.chunks) {
		return false
	}
	s.idx++
	return true
}

func (s *fakeStream) Text() string { return s.chunks[s.idx-1] }

func (s *fakeStream) Err() error {
	if s.idx >= len(s.chunks) {
		return s.failWith
	}
	return nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

// fakeFrames returns a fixed number of frames without touching ffmpeg.
type fakeFrames struct {
	frames int
	err    error
}

func (f *fakeFrames) ExtractFrames(_ context.Context, _ model.MediaBlob, frameCount int) ([]model.MediaBlob, error) {
	if f.err != nil {
		return nil, f.err
	}
	n := f.frames
	if n == 0 {
		n = frameCount
	}
	out := make([]model.MediaBlob, n)
	for i := range out {
		out[i] = model.MediaBlob{Data: []byte{0xff, 0xd8}, MimeType: "image/jpeg"}
	}
	return out, nil
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"), "test")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testConfig() *config.Config {
	return &config.Config{
		Anthropic: config.AnthropicConfig{
			AnalysisModel:  "claude-haiku-4-5-20251001",
			SynthesisModel: "claude-sonnet-4-5-20250929",
			MaxTokens:      1024,
		},
		Pipeline: config.PipelineConfig{
			StageCooldownMillis: 1,
			TrustScoreThreshold: 40,
			FetchTimeoutSecs:    1,
		},
		Media: config.MediaConfig{FrameCount: 5},
	}
}
