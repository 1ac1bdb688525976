package models

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// WhitelistEntry is a persisted whitelist row. Whitelisted IPs are excluded
// from every active-blacklist read regardless of which sources report them.
type WhitelistEntry struct {
	ID        int64       `json:"id"`
	IPAddress string      `json:"ip_address"`
	Source    string      `json:"source"`
	Reason    pgtype.Text `json:"reason"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
