package pipeline

import (
	"encoding/json"
	"strings"
)

// PayloadMode tags how a model response was turned into a payload.
type PayloadMode string

const (
	// PayloadStructured means a JSON object was recovered.
	PayloadStructured PayloadMode = "structured"
	// PayloadRawFallback means no JSON could be recovered and the raw text
	// is all there is. Degraded mode; callers must handle it.
	PayloadRawFallback PayloadMode = "raw_fallback"
)

// Payload is the result of extracting structure from free-form model output.
type Payload struct {
	Mode PayloadMode
	JSON string // valid JSON object text when Mode == PayloadStructured
	Raw  string // the original response text, always set
}

// ExtractPayload recovers a JSON object from model output that may wrap it
// in prose or markdown. Three tiers, in order: a fenced code block, the
// first-to-last brace span, and finally the raw text as-is. The tolerance
// is a defense against non-conforming model output, not a parser guarantee.
func ExtractPayload(text string) Payload {
	raw := strings.TrimSpace(text)

	// Tier 1: fenced code block.
	if fenced, ok := unfence(raw); ok {
		if json.Valid([]byte(fenced)) {
			return Payload{Mode: PayloadStructured, JSON: fenced, Raw: raw}
		}
		// A fence that doesn't parse may still contain a brace span.
		if span, ok := braceSpan(fenced); ok {
			return Payload{Mode: PayloadStructured, JSON: span, Raw: raw}
		}
	}

	// Tier 2: first { to last }.
	if span, ok := braceSpan(raw); ok {
		return Payload{Mode: PayloadStructured, JSON: span, Raw: raw}
	}

	// Tier 3: raw fallback.
	return Payload{Mode: PayloadRawFallback, Raw: raw}
}

// Decode unmarshals a structured payload into v. Returns false without
// touching v for raw-fallback payloads.
func (p Payload) Decode(v any) (bool, error) {
	if p.Mode != PayloadStructured {
		return false, nil
	}
	if err := json.Unmarshal([]byte(p.JSON), v); err != nil {
		return false, err
	}
	return true, nil
}

func unfence(text string) (string, bool) {
	inner := text
	switch {
	case strings.HasPrefix(inner, "```json"):
		inner = strings.TrimPrefix(inner, "```json")
	case strings.HasPrefix(inner, "```"):
		inner = strings.TrimPrefix(inner, "```")
	default:
		return "", false
	}
	if idx := strings.LastIndex(inner, "```"); idx >= 0 {
		inner = inner[:idx]
	}
	return strings.TrimSpace(inner), true
}

func braceSpan(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	span := strings.TrimSpace(text[start : end+1])
	if !json.Valid([]byte(span)) {
		return "", false
	}
	return span, true
}
