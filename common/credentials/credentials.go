package credentials

import (
	"fmt"
	"os"
	"strings"

	"github.com/seclab-kr/blacklist-collector/common"
)

// Credentials is a portal login pair. Password stays out of String() and
// log output; callers log the username only.
type Credentials struct {
	Username string
	Password string
}

// Store resolves portal credentials for a source at run time. Collectors
// look credentials up at the start of every run rather than at construction
// so a rotated secret takes effect without a restart.
type Store interface {
	Lookup(source string) (Credentials, error)
}

// idSuffixes and pwSuffixes are the environment variable suffixes accepted
// per source, checked in order. The portals' operators hand out .env files
// with inconsistent naming, so both the short and the long forms work.
var (
	idSuffixes = []string{"_ID", "_USERNAME", "_USER"}
	pwSuffixes = []string{"_PW", "_PASSWORD", "_PASS"}
)

// EnvStore reads credentials from SOURCE-prefixed environment variables,
// e.g. REGTECH_ID / REGTECH_PW.
type EnvStore struct{}

func NewEnvStore() *EnvStore {
	return &EnvStore{}
}

func (s *EnvStore) Lookup(source string) (Credentials, error) {
	prefix := strings.ToUpper(source)

	username, ok := firstEnv(prefix, idSuffixes)
	if !ok {
		return Credentials{}, fmt.Errorf("%w: missing %s_ID", common.ErrInvalidConfig, prefix)
	}
	password, ok := firstEnv(prefix, pwSuffixes)
	if !ok {
		return Credentials{}, fmt.Errorf("%w: missing %s_PW", common.ErrInvalidConfig, prefix)
	}

	return Credentials{Username: username, Password: password}, nil
}

func firstEnv(prefix string, suffixes []string) (string, bool) {
	for _, suffix := range suffixes {
		if value, ok := os.LookupEnv(prefix + suffix); ok && value != "" {
			return value, true
		}
	}
	return "", false
}

// StaticStore serves a fixed credential map, used in tests and for sources
// whose credentials arrive through the config file rather than the
// environment.
type StaticStore struct {
	bySource map[string]Credentials
}

func NewStaticStore(creds map[string]Credentials) *StaticStore {
	copied := make(map[string]Credentials, len(creds))
	for source, c := range creds {
		copied[strings.ToUpper(source)] = c
	}
	return &StaticStore{bySource: copied}
}

func (s *StaticStore) Lookup(source string) (Credentials, error) {
	c, ok := s.bySource[strings.ToUpper(source)]
	if !ok {
		return Credentials{}, fmt.Errorf("%w: no credentials for %s", common.ErrInvalidConfig, source)
	}
	return c, nil
}
