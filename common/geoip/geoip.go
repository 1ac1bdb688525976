package geoip

import (
	"net"

	"github.com/oschwald/geoip2-golang"
	"github.com/rs/zerolog/log"

	"github.com/seclab-kr/blacklist-collector/common/models"
)

// Resolver answers country lookups against a local GeoLite2 database. The
// portals usually carry a country column, so the resolver only fills gaps;
// entries keep whatever country the source reported.
type Resolver struct {
	reader *geoip2.Reader
}

// NewResolver opens the database at the given path. An empty path returns a
// disabled resolver rather than an error so deployments without a GeoLite2
// file keep working.
func NewResolver(databasePath string) (*Resolver, error) {
	if databasePath == "" {
		log.Info().Msg("GeoIP database path not set, country enrichment disabled")
		return &Resolver{}, nil
	}

	reader, err := geoip2.Open(databasePath)
	if err != nil {
		return nil, err
	}

	log.Info().Str("path", databasePath).Msg("GeoIP database loaded")
	return &Resolver{reader: reader}, nil
}

// Close releases the database handle
func (r *Resolver) Close() error {
	if r.reader == nil {
		return nil
	}
	return r.reader.Close()
}

// Enabled reports whether lookups will return anything
func (r *Resolver) Enabled() bool {
	return r != nil && r.reader != nil
}

// CountryCode returns the ISO country code for an address, or "" when the
// resolver is disabled or the address is unknown.
func (r *Resolver) CountryCode(ipAddress string) string {
	if r.reader == nil {
		return ""
	}

	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return ""
	}

	record, err := r.reader.Country(ip)
	if err != nil {
		return ""
	}
	return record.Country.IsoCode
}

// FillCountries sets the country of every record that arrived without one.
// Returns how many records were enriched.
func (r *Resolver) FillCountries(records []models.CandidateRecord) int {
	if r.reader == nil {
		return 0
	}

	filled := 0
	for i := range records {
		if records[i].Country != "" {
			continue
		}
		if code := r.CountryCode(records[i].IPAddress); code != "" {
			records[i].Country = code
			filled++
		}
	}
	return filled
}
