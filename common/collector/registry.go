package collector

import (
	"fmt"
	"maps"
	"sync"

	"github.com/seclab-kr/blacklist-collector/common/config"
)

var (
	registry     = make(map[string]Creator)
	registryLock sync.RWMutex
)

// Register registers a collector creator function for a source name.
// Collectors call this from their package init.
func Register(name string, creator Creator) {
	registryLock.Lock()
	defer registryLock.Unlock()
	registry[name] = creator
}

// Registry returns the collector registry
func Registry() map[string]Creator {
	registryLock.RLock()
	defer registryLock.RUnlock()

	// Create a copy to avoid race conditions
	registryCopy := make(map[string]Creator, len(registry))
	maps.Copy(registryCopy, registry)

	return registryCopy
}

// Build instantiates every registered collector from the service
// configuration. Disabled sources are still built so the status surface
// can report them; the runner skips their runs.
func Build(cfg config.Config, deps Deps) (map[string]Collector, error) {
	collectors := make(map[string]Collector)
	for name, creator := range Registry() {
		sourceCfg := FromServiceConfig(cfg, name)
		if err := sourceCfg.Validate(); err != nil {
			return nil, fmt.Errorf("failed to configure collector %s: %w", name, err)
		}

		c, err := creator(deps, sourceCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create collector %s: %w", name, err)
		}
		collectors[name] = c
	}
	return collectors, nil
}
