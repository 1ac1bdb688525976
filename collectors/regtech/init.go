package regtech

import (
	"github.com/seclab-kr/blacklist-collector/common"
	"github.com/seclab-kr/blacklist-collector/common/collector"
)

// init registers the REGTECH collector with the collector registry
func init() {
	collector.Register(common.SourceRegtech, CreateRegtechCollector)
}

// CreateRegtechCollector creates a REGTECH collector
func CreateRegtechCollector(deps collector.Deps, cfg collector.Config) (collector.Collector, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return NewCollector(cfg, deps), nil
}
