package publicfeed

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/seclab-kr/blacklist-collector/common/collector"
	"github.com/seclab-kr/blacklist-collector/common/models"
	"github.com/seclab-kr/blacklist-collector/common/parser"
	"github.com/seclab-kr/blacklist-collector/common/work"
)

// feedWorkers is the fan-out width for feed downloads
const feedWorkers = 4

// Collector pulls public plaintext blocklists in parallel. Unlike the
// portal collectors it needs no login and no date window; every feed is a
// full snapshot.
type Collector struct {
	collector.BaseCollector
	feeds []Feed
}

// NewCollector creates a public feed collector over the given catalog
func NewCollector(cfg collector.Config, deps collector.Deps, feeds []Feed) *Collector {
	return &Collector{
		BaseCollector: collector.NewBaseCollector(cfg, deps),
		feeds:         feeds,
	}
}

// Fetch downloads every feed concurrently and merges the results in
// catalog order, so the tie-break between feeds listing the same address
// stays deterministic no matter which download finishes first. A single
// feed failing only drops that feed; the run fails when none deliver.
func (c *Collector) Fetch(ctx context.Context, window collector.DateRange) ([]models.CandidateRecord, error) {
	if len(c.feeds) == 0 {
		return nil, fmt.Errorf("no feeds configured")
	}

	pool, err := work.NewWorkerPool[[]models.CandidateRecord](feedWorkers, len(c.feeds))
	if err != nil {
		return nil, err
	}
	pool.Start(ctx, "publicfeed")
	defer pool.Stop()

	for _, feed := range c.feeds {
		task := work.MustNewTask(
			func(ctx context.Context) ([]models.CandidateRecord, error) {
				return c.fetchFeed(ctx, feed)
			},
			work.WithID[[]models.CandidateRecord](feed.Name),
			work.WithTimeout[[]models.CandidateRecord](c.Cfg.Timeout),
		)
		if err := pool.AddTask(ctx, task); err != nil {
			return nil, err
		}
	}

	byFeed := make(map[string][]models.CandidateRecord, len(c.feeds))
	var lastErr error
	for done := 0; done < len(c.feeds); done++ {
		select {
		case res := <-pool.Results():
			if res.Error != nil {
				lastErr = res.Error
				log.Warn().Err(res.Error).Str("feed", res.TaskID).Dur("took", res.Duration).Msg("Feed fetch failed")
				continue
			}
			byFeed[res.TaskID] = res.Result
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if len(byFeed) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("%w: %v", collector.ErrAllEndpointsFailed, lastErr)
		}
		return nil, collector.ErrAllEndpointsFailed
	}

	var records []models.CandidateRecord
	for _, feed := range c.feeds {
		records = append(records, byFeed[feed.Name]...)
	}

	log.Info().
		Str("source", c.Cfg.Source).
		Int("feeds", len(byFeed)).
		Int("records", len(records)).
		Msg("Public feeds merged")
	return records, nil
}

// fetchFeed downloads and parses one feed, tagging every record with the
// feed it came from
func (c *Collector) fetchFeed(ctx context.Context, feed Feed) ([]models.CandidateRecord, error) {
	payload, err := c.Get(ctx, feed.URL)
	if err != nil {
		return nil, err
	}

	if c.Deps.Archiver.Enabled() {
		c.Deps.Archiver.ArchivePayload(ctx, c.Cfg.Source, collector.RunIDFromContext(ctx), feed.Name+".txt", payload, "text/plain")
	}

	meta := parser.SourceMeta{
		Name:          c.Cfg.Source,
		DefaultReason: feed.Reason,
		Confidence:    feed.Confidence,
	}
	records := parser.ParseTextFeed(payload, meta)
	for i := range records {
		if records[i].RawMetadata == nil {
			records[i].RawMetadata = make(map[string]string, 2)
		}
		records[i].RawMetadata["feed"] = feed.Name
		records[i].RawMetadata["category"] = feed.Category
	}
	return records, nil
}
