package secudium

import (
	"github.com/seclab-kr/blacklist-collector/common"
	"github.com/seclab-kr/blacklist-collector/common/collector"
)

// init registers the SECUDIUM collector with the collector registry
func init() {
	collector.Register(common.SourceSecudium, CreateSecudiumCollector)
}

// CreateSecudiumCollector creates a SECUDIUM collector
func CreateSecudiumCollector(deps collector.Deps, cfg collector.Config) (collector.Collector, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return NewCollector(cfg, deps), nil
}
