package parser

import "strings"

// SourceMeta carries the per-source context a parser needs: the source
// identity stamped on every record, the placeholder reason used when a
// payload row has none, and the confidence score the source is trusted at.
type SourceMeta struct {
	Name          string
	DefaultReason string
	Confidence    int
}

// reasonOrDefault substitutes the source placeholder for empty or dash-only
// reason cells. Downstream consumers key on non-empty reason strings, so the
// placeholder is deliberate, not a missing-data bug.
func reasonOrDefault(reason string, meta SourceMeta) string {
	trimmed := strings.TrimSpace(reason)
	if trimmed == "" || trimmed == "-" {
		return meta.DefaultReason
	}
	return trimmed
}
