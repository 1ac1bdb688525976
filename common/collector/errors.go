package collector

import (
	"errors"

	"github.com/seclab-kr/blacklist-collector/common"
)

// Failure categories attached to run results and collection logs.
const (
	CategoryConfiguration  = "configuration"
	CategoryAuthentication = "authentication"
	CategoryFetch          = "fetch"
	CategoryParse          = "parse"
	CategoryPersistence    = "persistence"
	CategoryInternal       = "internal"
)

// Common error constants
var (
	// ErrSourceDisabled is returned when a run is requested for a source that is disabled in configuration
	ErrSourceDisabled = errors.New("source is disabled")

	// ErrAuthenticationFailed is returned when every login endpoint has been exhausted
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrAllEndpointsFailed is returned when every fetch endpoint for a source has failed
	ErrAllEndpointsFailed = errors.New("all fetch endpoints failed")

	// ErrPersistenceUnavailable is returned when the database rejects an entire batch
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
)

// Category classifies a run error into one of the failure categories.
// Unknown errors land in CategoryInternal rather than guessing.
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSourceDisabled), errors.Is(err, common.ErrInvalidConfig):
		return CategoryConfiguration
	case errors.Is(err, ErrAuthenticationFailed):
		return CategoryAuthentication
	case errors.Is(err, ErrAllEndpointsFailed):
		return CategoryFetch
	case errors.Is(err, ErrPersistenceUnavailable):
		return CategoryPersistence
	default:
		return CategoryInternal
	}
}
