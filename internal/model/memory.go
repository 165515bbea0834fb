package model

import "time"

// MisinformationRecord marks a domain that previously produced a low trust
// score. The domain is the key: a later write for the same domain replaces
// the earlier one.
type MisinformationRecord struct {
	Domain     string    `json:"domain"`
	URL        string    `json:"url"`
	TrustScore int       `json:"trust_score"`
	FlaggedAt  time.Time `json:"flagged_at"`
}
