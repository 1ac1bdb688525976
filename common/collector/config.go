package collector

import (
	"fmt"
	"math"
	"time"

	"github.com/seclab-kr/blacklist-collector/common"
	"github.com/seclab-kr/blacklist-collector/common/config"
)

// Config represents the per-source collection configuration
type Config struct {
	Source       string
	Enabled      bool
	BaseURL      string
	DaysInterval int
	MaxRetries   int
	Timeout      time.Duration
	ExcelTimeout time.Duration
	BatchSize    int
	UserAgent    string
}

// DefaultConfig returns the default configuration for a source
func DefaultConfig(source string) Config {
	return Config{
		Source:       source,
		Enabled:      true,
		DaysInterval: 7,
		MaxRetries:   3,
		Timeout:      time.Second * 30,
		ExcelTimeout: time.Second * 120,
		BatchSize:    100,
		UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	}
}

// FromServiceConfig derives a per-source configuration from the service-level settings
func FromServiceConfig(cfg config.Config, source string) Config {
	out := DefaultConfig(source)
	out.DaysInterval = int(cfg.Collection.DaysInterval)
	out.MaxRetries = int(cfg.Collection.MaxRetries)
	out.Timeout = cfg.Collection.Timeout()
	out.ExcelTimeout = cfg.Collection.ExcelTimeout()
	out.BatchSize = int(cfg.Collection.BatchSize)

	switch source {
	case common.SourceRegtech:
		out.Enabled = cfg.Collection.RegtechEnabled
		out.BaseURL = cfg.Collection.RegtechBaseURL
	case common.SourceSecudium:
		out.Enabled = cfg.Collection.SecudiumEnabled
		out.BaseURL = cfg.Collection.SecudiumBaseURL
	case common.SourcePublicFeed:
		out.Enabled = cfg.Collection.PublicFeedEnabled
	}
	return out
}

// Validate checks that the configuration can drive a run
func (c Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("%w: source name is empty", common.ErrInvalidConfig)
	}
	if c.DaysInterval <= 0 {
		return fmt.Errorf("%w: days interval must be positive", common.ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", common.ErrInvalidConfig)
	}
	return nil
}

const dateLayout = "2006-01-02"

// DateRange is the inclusive window a collection run asks a source for.
type DateRange struct {
	From time.Time
	To   time.Time
}

// NewDateRange returns a window ending now and starting days earlier
func NewDateRange(days int) DateRange {
	now := time.Now()
	return DateRange{From: now.AddDate(0, 0, -days), To: now}
}

// Days returns the width of the window in whole days. Rounding absorbs the
// hour a DST transition adds or removes inside long windows.
func (r DateRange) Days() int {
	return int(math.Round(r.To.Sub(r.From).Hours() / 24))
}

// Resize returns a window with the same end but the given width in days
func (r DateRange) Resize(days int) DateRange {
	return DateRange{From: r.To.AddDate(0, 0, -days), To: r.To}
}

// Strings returns the window endpoints formatted the way the portals expect dates
func (r DateRange) Strings() (string, string) {
	return r.From.Format(dateLayout), r.To.Format(dateLayout)
}

// String formats the window for logging
func (r DateRange) String() string {
	from, to := r.Strings()
	return from + ".." + to
}
