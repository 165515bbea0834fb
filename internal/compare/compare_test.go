package compare

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearcheck/verify-cli/internal/config"
	"github.com/clearcheck/verify-cli/internal/model"
	"github.com/clearcheck/verify-cli/pkg/anthropic"
)

type fakeClient struct {
	chunks    []string
	startErr  error
	streamErr error
	lastReq   anthropic.MessageRequest
	started   bool
}

func (c *fakeClient) CreateMessage(context.Context, anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	return nil, eris.New("not used")
}

func (c *fakeClient) StreamMessage(_ context.Context, req anthropic.MessageRequest) (anthropic.MessageStream, error) {
	c.lastReq = req
	c.started = true
	if c.startErr != nil {
		return nil, c.startErr
	}
	return &fakeStream{chunks: c.chunks, failWith: c.streamErr}, nil
}

type fakeStream struct {
	chunks   []string
	idx      int
	failWith error
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

func (s *fakeStream) Close() error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Anthropic: config.AnthropicConfig{
			SynthesisModel: "claude-sonnet-4-5-20250929",
			MaxTokens:      2048,
		},
	}
}

func item(id, input, report string) model.HistoryItem {
	return model.HistoryItem{
		ID:        id,
		Input:     input,
		Report:    report,
		CreatedAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCompareFewerThanTwoItemsIsNoOp(t *testing.T) {
	client := &fakeClient{chunks: []string{"should not stream"}}
	flow := New(testConfig(), client)

	var chunks int
	brief, err := flow.Compare(context.Background(), []model.HistoryItem{item("a", "x", "r")}, func(string) { chunks++ })
	require.NoError(t, err)
	assert.Empty(t, brief)
	assert.Zero(t, chunks)
	assert.False(t, client.started, "no stream may be started for a single item")

	brief, err = flow.Compare(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, brief)
	assert.False(t, client.started)
}

func TestCompareStreamsBrief(t *testing.T) {
	client := &fakeClient{chunks: []string{"Both stories ", "share a narrative."}}
	flow := New(testConfig(), client)

	items := []model.HistoryItem{
		item("a", "https://one.example/story", "Report one."),
		item("b", "https://two.example/story", "Report two."),
	}

	var streamed string
	brief, err := flow.Compare(context.Background(), items, func(chunk string) { streamed += chunk })
	require.NoError(t, err)
	assert.Equal(t, "Both stories share a narrative.", brief)
	assert.Equal(t, brief, streamed)

	// Every selected report is laid out in the prompt, in selection order.
	require.Len(t, client.lastReq.Messages, 1)
	prompt := client.lastReq.Messages[0].Content
	first := strings.Index(prompt, "https://one.example/story")
	second := strings.Index(prompt, "https://two.example/story")
	assert.Greater(t, first, -1)
	assert.Greater(t, second, first)
	assert.Contains(t, prompt, "Report one.")
	assert.Contains(t, prompt, "Report two.")
}

func TestCompareFailurePrefix(t *testing.T) {
	flow := New(testConfig(), &fakeClient{startErr: eris.New("model overloaded")})

	items := []model.HistoryItem{item("a", "x", "r1"), item("b", "y", "r2")}
	_, err := flow.Compare(context.Background(), items, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "comparison failed")
}

func TestCompareMidStreamFailureKeepsPartial(t *testing.T) {
	client := &fakeClient{chunks: []string{"Partial "}, streamErr: eris.New("reset")}
	flow := New(testConfig(), client)

	items := []model.HistoryItem{item("a", "x", "r1"), item("b", "y", "r2")}
	brief, err := flow.Compare(context.Background(), items, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "comparison failed")
	assert.Equal(t, "Partial ", brief)
}
