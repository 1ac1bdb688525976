package collector

import (
	"context"

	"github.com/seclab-kr/blacklist-collector/common/credentials"
	"github.com/seclab-kr/blacklist-collector/common/db"
	"github.com/seclab-kr/blacklist-collector/common/geoip"
	"github.com/seclab-kr/blacklist-collector/common/messaging"
	"github.com/seclab-kr/blacklist-collector/common/models"
	"github.com/seclab-kr/blacklist-collector/common/storage"
)

// Collector defines the interface for blacklist source collectors
type Collector interface {
	// Setup prepares the collector for a run: fresh HTTP client, cookie jar, session state
	Setup(ctx context.Context) error

	// Teardown cleans up resources used by the collector
	Teardown(ctx context.Context) error

	// Source returns the canonical source label stamped on collected records
	Source() string

	// Config returns the per-source collection configuration
	Config() Config

	// Fetch authenticates against the source and returns candidate records for the window
	Fetch(ctx context.Context, window DateRange) ([]models.CandidateRecord, error)
}

// Deps carries the shared dependencies handed to every collector
type Deps struct {
	DB          *db.DB
	Broker      *messaging.NatsBroker
	Credentials credentials.Store
	Archiver    *storage.Archiver
	GeoIP       *geoip.Resolver
}

// Creator builds a collector from its dependencies and per-source configuration
type Creator func(deps Deps, cfg Config) (Collector, error)
