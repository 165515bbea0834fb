package anthropic

import (
	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
)

// sdkMessageStream adapts the SDK's SSE event stream to a plain sequence of
// text chunks. Non-text events (message lifecycle, tool blocks) are skipped.
type sdkMessageStream struct {
	stream *ssestream.Stream[sdk.MessageStreamEventUnion]
	text   string
}

func (s *sdkMessageStream) Next() bool {
	for s.stream.Next() {
		event := s.stream.Current()
		switch eventVariant := event.AsAny().(type) {
		case sdk.ContentBlockDeltaEvent:
			if deltaVariant, ok := eventVariant.Delta.AsAny().(sdk.TextDelta); ok {
				s.text = deltaVariant.Text
				return true
			}
		}
	}
	return false
}

func (s *sdkMessageStream) Text() string {
	return s.text
}

func (s *sdkMessageStream) Err() error {
	return s.stream.Err()
}

func (s *sdkMessageStream) Close() error {
	return s.stream.Close()
}
