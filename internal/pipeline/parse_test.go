package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPayloadFencedBlock(t *testing.T) {
	p := ExtractPayload("Here you go:\n```json\n{\"a\": 1}\n```\nHope that helps!")
	// The fence starts mid-text, so tier 1 does not trigger; the brace span does.
	assert.Equal(t, PayloadStructured, p.Mode)
	assert.JSONEq(t, `{"a": 1}`, p.JSON)

	p = ExtractPayload("```json\n{\"a\": 1}\n```")
	assert.Equal(t, PayloadStructured, p.Mode)
	assert.JSONEq(t, `{"a": 1}`, p.JSON)

	p = ExtractPayload("```\n{\"b\": true}\n```")
	assert.Equal(t, PayloadStructured, p.Mode)
	assert.JSONEq(t, `{"b": true}`, p.JSON)
}

func TestExtractPayloadBraceSpan(t *testing.T) {
	p := ExtractPayload(`Sure! The result is {"score": 42, "nested": {"x": 1}} as requested.`)
	assert.Equal(t, PayloadStructured, p.Mode)
	assert.JSONEq(t, `{"score": 42, "nested": {"x": 1}}`, p.JSON)
}

func TestExtractPayloadFenceWithProseFallsToSpan(t *testing.T) {
	p := ExtractPayload("```json\nNote: {\"ok\": true}\n```")
	assert.Equal(t, PayloadStructured, p.Mode)
	assert.JSONEq(t, `{"ok": true}`, p.JSON)
}

func TestExtractPayloadRawFallback(t *testing.T) {
	p := ExtractPayload("  I cannot answer in JSON today.  ")
	assert.Equal(t, PayloadRawFallback, p.Mode)
	assert.Equal(t, "I cannot answer in JSON today.", p.Raw)
	assert.Empty(t, p.JSON)

	// Braces that do not bound valid JSON are not promoted to structure.
	p = ExtractPayload("set {x} to {y")
	assert.Equal(t, PayloadRawFallback, p.Mode)
}

func TestPayloadDecode(t *testing.T) {
	var out struct {
		Score int `json:"score"`
	}

	p := ExtractPayload(`{"score": 7}`)
	ok, err := p.Decode(&out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, out.Score)

	out.Score = -1
	p = ExtractPayload("no structure here")
	ok, err = p.Decode(&out)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, -1, out.Score, "raw fallback must not touch the target")
}
