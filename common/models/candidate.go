package models

import "time"

// CandidateRecord is a single pre-validation record produced by a source
// parser. It lives only for the duration of one collection run; validation,
// normalization and dedup happen before it is persisted.
type CandidateRecord struct {
	// IPAddress is the raw token as extracted from the payload. It may still
	// be malformed at this point.
	IPAddress string `json:"ip_address"`

	// Source is the collection source identity (REGTECH, SECUDIUM, MANUAL or
	// a public feed name).
	Source string `json:"source"`

	Reason  string `json:"reason"`
	Country string `json:"country"`

	// DetectionDate and RemovalDate are nil when the payload carried no
	// parseable date.
	DetectionDate *time.Time `json:"detection_date,omitempty"`
	RemovalDate   *time.Time `json:"removal_date,omitempty"`

	// Confidence is a 0-100 trust score assigned by the source.
	Confidence int `json:"confidence"`

	// RawMetadata keeps unmapped payload columns for the archive trail.
	RawMetadata map[string]string `json:"raw_metadata,omitempty"`
}
