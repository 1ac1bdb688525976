package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"

	"github.com/seclab-kr/blacklist-collector/common"
	"github.com/seclab-kr/blacklist-collector/common/models"
)

// BaseCollector provides a base implementation of the Collector interface.
// Concrete collectors embed it and override Fetch.
type BaseCollector struct {
	Cfg    Config
	Deps   Deps
	Client *http.Client
}

// NewBaseCollector creates a base collector with the given configuration
func NewBaseCollector(cfg Config, deps Deps) BaseCollector {
	return BaseCollector{Cfg: cfg, Deps: deps}
}

// Setup builds a fresh HTTP client with a per-run cookie jar. Sessions are
// never reused across runs; every run re-authenticates from scratch.
func (c *BaseCollector) Setup(ctx context.Context) error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	c.Client = &http.Client{
		Jar:     jar,
		Timeout: c.Cfg.Timeout,
	}
	log.Debug().Str("source", c.Cfg.Source).Msg("Collector session prepared")
	return nil
}

// Teardown discards the per-run HTTP client and its cookie jar
func (c *BaseCollector) Teardown(ctx context.Context) error {
	c.Client = nil
	return nil
}

// Source returns the canonical source label
func (c *BaseCollector) Source() string {
	return c.Cfg.Source
}

// Config returns the per-source configuration
func (c *BaseCollector) Config() Config {
	return c.Cfg
}

// Fetch must be provided by the concrete collector
func (c *BaseCollector) Fetch(ctx context.Context, window DateRange) ([]models.CandidateRecord, error) {
	log.Error().Str("source", c.Cfg.Source).Msg("Fetch method not implemented")
	return nil, common.ErrNotImplemented
}

// GenerateRunID generates a time-ordered run identifier
func (c *BaseCollector) GenerateRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewRequest builds a request carrying the collector's user agent
func (c *BaseCollector) NewRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.Cfg.UserAgent)
	req.Header.Set("Accept", "*/*")
	return req, nil
}

// Get fetches a URL on the collector's session and returns the raw body,
// byte for byte. Responses over the size cap are truncated rather than read
// to exhaustion.
func (c *BaseCollector) Get(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
}

// GetHTML fetches a URL on the collector's session and converts legacy
// encodings to UTF-8. The portals still serve EUC-KR on board pages, so
// text payloads go through here and binary downloads through Get.
func (c *BaseCollector) GetHTML(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	reader, err := charset.NewReader(io.LimitReader(resp.Body, maxPayloadBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(reader)
}

func (c *BaseCollector) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &HTTPStatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

// maxPayloadBytes caps a single download. The largest observed Excel export
// is a few megabytes; anything near the cap is a portal error loop.
const maxPayloadBytes = 64 << 20

// HTTPStatusError reports a non-200 response from a source endpoint
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}
