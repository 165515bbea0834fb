package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstText(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "tool_use"},
		{Type: "text", Text: "hello"},
	}}
	assert.Equal(t, "hello", resp.FirstText())

	empty := &MessageResponse{}
	assert.Equal(t, "", empty.FirstText())
}

func TestTokenUsageAdd(t *testing.T) {
	u := TokenUsage{InputTokens: 10, OutputTokens: 5}
	u.Add(TokenUsage{InputTokens: 3, OutputTokens: 7, CacheReadInputTokens: 2})
	assert.Equal(t, int64(13), u.InputTokens)
	assert.Equal(t, int64(12), u.OutputTokens)
	assert.Equal(t, int64(2), u.CacheReadInputTokens)
}

func TestToSDKMessages(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{Role: "user", Content: "look at this", Images: []Image{
			{Data: []byte{0xff, 0xd8}, MimeType: "image/jpeg"},
		}},
		{Role: "assistant", Content: "I see it"},
	})
	require.Len(t, msgs, 2)

	// Image block precedes the text block.
	require.Len(t, msgs[0].Content, 2)
	assert.NotNil(t, msgs[0].Content[0].OfImage)
	require.NotNil(t, msgs[0].Content[1].OfText)
	assert.Equal(t, "look at this", msgs[0].Content[1].OfText.Text)

	assert.Equal(t, "assistant", string(msgs[1].Role))
}

func TestToSDKMessagesImageOnly(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{Role: "user", Images: []Image{{Data: []byte{1}, MimeType: "image/png"}}},
	})
	require.Len(t, msgs, 1)
	// No empty text block is appended alongside an image-only message.
	require.Len(t, msgs[0].Content, 1)
	assert.NotNil(t, msgs[0].Content[0].OfImage)
}
