package models

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// BlacklistEntry is a persisted blacklist row. Identity is the pair
// (IPAddress, Source); the same IP reported by two sources is two rows.
type BlacklistEntry struct {
	ID              int64       `json:"id"`
	IPAddress       string      `json:"ip_address"`
	Source          string      `json:"source"`
	Reason          string      `json:"reason"`
	Country         pgtype.Text `json:"country"`
	ConfidenceLevel int         `json:"confidence_level"`
	DetectionDate   pgtype.Date `json:"detection_date"`
	RemovalDate     pgtype.Date `json:"removal_date"`
	IsActive        bool        `json:"is_active"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}
