package chat

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearcheck/verify-cli/internal/config"
	"github.com/clearcheck/verify-cli/internal/model"
	"github.com/clearcheck/verify-cli/pkg/anthropic"
)

type fakeClient struct {
	chunks    []string
	streamErr error
	requests  []anthropic.MessageRequest

	// onStream, when set, runs while the stream is being consumed so tests
	// can observe mid-send state.
	onStream func()
}

func (c *fakeClient) CreateMessage(context.Context, anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	return nil, eris.New("not used")
}

func (c *fakeClient) StreamMessage(_ context.Context, req anthropic.MessageRequest) (anthropic.MessageStream, error) {
	c.requests = append(c.requests, req)
	return &fakeStream{chunks: c.chunks, failWith: c.streamErr, onNext: c.onStream}, nil
}

type fakeStream struct {
	chunks   []string
	idx      int
	failWith error
	onNext   func()
}

func (s *fakeStream) Next() bool {
	if s.onNext != nil {
		s.onNext()
	}
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

func TestNewRequiresReport(t *testing.T) {
	assert.Nil(t, New(testConfig(), &fakeClient{}, ""))
	assert.NotNil(t, New(testConfig(), &fakeClient{}, "a report"))
}

func TestSendAppendsUserAndModelEntries(t *testing.T) {
	client := &fakeClient{chunks: []string{"The source ", "is unreliable."}}
	s := New(testConfig(), client, "Verification report text.")

	var streamed string
	err := s.Send(context.Background(), "How reliable is the source?", func(chunk string) { streamed += chunk })
	require.NoError(t, err)

	transcript := s.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, model.ChatMessage{Role: model.ChatRoleUser, Content: "How reliable is the source?"}, transcript[0])
	assert.Equal(t, model.ChatMessage{Role: model.ChatRoleModel, Content: "The source is unreliable."}, transcript[1])
	assert.Equal(t, "The source is unreliable.", streamed)

	// The grounding report rides in the system prompt, not the transcript.
	require.Len(t, client.requests, 1)
	require.Len(t, client.requests[0].System, 1)
	assert.Contains(t, client.requests[0].System[0].Text, "Verification report text.")
	assert.NotNil(t, client.requests[0].System[0].CacheControl, "grounding prompt is cache-marked")
	require.Len(t, client.requests[0].Messages, 1)
	assert.Equal(t, "user", client.requests[0].Messages[0].Role)
}

func TestSendCarriesPriorTurns(t *testing.T) {
	client := &fakeClient{chunks: []string{"answer one"}}
	s := New(testConfig(), client, "report")

	require.NoError(t, s.Send(context.Background(), "first?", nil))

	client.chunks = []string{"answer two"}
	require.NoError(t, s.Send(context.Background(), "second?", nil))

	require.Len(t, client.requests, 2)
	msgs := client.requests[1].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "first?", msgs[0].Content)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.Equal(t, "answer one", msgs[1].Content)
	assert.Equal(t, "user", msgs[2].Role)
	assert.Equal(t, "second?", msgs[2].Content)

	assert.Len(t, s.Transcript(), 4)
}

func TestSendRejectsConcurrentSend(t *testing.T) {
	s := New(testConfig(), &fakeClient{chunks: []string{"x"}}, "report")

	var nested error
	client := &fakeClient{chunks: []string{"outer"}}
	client.onStream = func() {
		if nested == nil {
			nested = s.Send(context.Background(), "nested", nil)
		}
	}
	s.model = client

	require.NoError(t, s.Send(context.Background(), "outer?", nil))
	require.Error(t, nested)
	assert.Contains(t, nested.Error(), "already in progress")
}

func TestSendKeepsPartialReplyOnStreamFailure(t *testing.T) {
	client := &fakeClient{chunks: []string{"partial "}, streamErr: eris.New("reset")}
	s := New(testConfig(), client, "report")

	err := s.Send(context.Background(), "q?", nil)
	require.Error(t, err)

	transcript := s.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, "partial ", transcript[1].Content)

	// The session is usable again after the failed send.
	client.chunks = []string{"retry works"}
	client.streamErr = nil
	require.NoError(t, s.Send(context.Background(), "again?", nil))
}
