package publicfeed

import (
	"github.com/seclab-kr/blacklist-collector/common"
	"github.com/seclab-kr/blacklist-collector/common/collector"
)

// init registers the public feed collector with the collector registry
func init() {
	collector.Register(common.SourcePublicFeed, CreatePublicFeedCollector)
}

// CreatePublicFeedCollector creates a collector over the built-in catalog
func CreatePublicFeedCollector(deps collector.Deps, cfg collector.Config) (collector.Collector, error) {
	return NewCollector(cfg, deps, DefaultFeeds()), nil
}
