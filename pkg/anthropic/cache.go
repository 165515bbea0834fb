package anthropic

// CachedSystemBlocks wraps a large system prompt with a cache breakpoint so
// repeated requests in one session hit the server-side prompt cache instead
// of re-ingesting the grounding text on every turn.
func CachedSystemBlocks(text string) []SystemBlock {
	return []SystemBlock{
		{
			Text:         text,
			CacheControl: &CacheControl{TTL: "5m"},
		},
	}
}
