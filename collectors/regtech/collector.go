package regtech

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/seclab-kr/blacklist-collector/common/collector"
	"github.com/seclab-kr/blacklist-collector/common/models"
	"github.com/seclab-kr/blacklist-collector/common/parser"
)

const (
	defaultBaseURL = "https://regtech.fsec.or.kr"

	loginPagePath   = "/login/loginForm"
	excelExportPath = "/fcti/securityAdvisory/advisoryListExcelDownload"
	boardSearchPath = "/fcti/securityAdvisory/advisoryList"

	// defaultReason mirrors the placeholder the portal renders on advisory
	// rows that carry no incident description yet.
	defaultReason = "추후 보완예정"

	confidence = 85

	// maxWindowDays is the widest export window the portal accepts
	maxWindowDays = 90

	// boardPages is how many board result pages the HTML fallback walks
	boardPages = 3
)

// Collector pulls blacklisted addresses out of the REGTECH portal
type Collector struct {
	collector.BaseCollector
	session *collector.Session
}

// NewCollector creates a REGTECH collector
func NewCollector(cfg collector.Config, deps collector.Deps) *Collector {
	return &Collector{BaseCollector: collector.NewBaseCollector(cfg, deps)}
}

// Setup prepares a fresh anonymous session for the run
func (c *Collector) Setup(ctx context.Context) error {
	if err := c.BaseCollector.Setup(ctx); err != nil {
		return err
	}
	c.session = collector.NewSession(c.Client, c.Cfg.UserAgent)
	return nil
}

// Teardown discards the session together with the per-run client
func (c *Collector) Teardown(ctx context.Context) error {
	c.session = nil
	return c.BaseCollector.Teardown(ctx)
}

// loginConfig describes the portal's login flow. The endpoint list covers
// the paths the portal has used across redesigns; the front cookie and the
// post-login landing paths are the success signals.
func (c *Collector) loginConfig() collector.LoginConfig {
	return collector.LoginConfig{
		PageURL: c.Cfg.BaseURL + loginPagePath,
		Endpoints: []string{
			c.Cfg.BaseURL + "/login/loginProcess",
			c.Cfg.BaseURL + "/login/loginProc",
			c.Cfg.BaseURL + "/member/loginProcess",
		},
		SessionCookies: []string{"regtech-front"},
		SuccessPaths:   []string{"/main", "/index"},
	}
}

// Fetch authenticates and pulls the advisory list for the window. The bulk
// Excel export is preferred, widest window first; walking the board pages
// is the last resort when every export attempt fails.
func (c *Collector) Fetch(ctx context.Context, window collector.DateRange) ([]models.CandidateRecord, error) {
	creds, err := c.Deps.Credentials.Lookup(c.Cfg.Source)
	if err != nil {
		return nil, err
	}
	if err := c.session.Login(ctx, c.loginConfig(), creds); err != nil {
		return nil, err
	}

	var strategies []collector.FetchStrategy[[]models.CandidateRecord]
	for _, w := range c.exportWindows(window) {
		strategies = append(strategies, collector.TryStrategy(
			fmt.Sprintf("excel-export-%dd", w.Days()),
			func(ctx context.Context) ([]models.CandidateRecord, error) {
				return c.fetchExcel(ctx, w)
			},
		))
	}
	strategies = append(strategies, collector.TryStrategy(
		"board-search",
		func(ctx context.Context) ([]models.CandidateRecord, error) {
			return c.fetchBoard(ctx, window)
		},
	))

	return collector.FirstSuccess(ctx, c.Cfg.Source, strategies)
}

// exportWindows orders the export attempts widest first. The export is the
// cheapest way to backfill, so every run asks for the portal's maximum
// before falling back to narrower windows.
func (c *Collector) exportWindows(window collector.DateRange) []collector.DateRange {
	candidates := []collector.DateRange{
		window.Resize(maxWindowDays),
		window.Resize(30),
		window,
	}
	windows := make([]collector.DateRange, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, w := range candidates {
		if key := w.String(); !seen[key] {
			seen[key] = true
			windows = append(windows, w)
		}
	}
	return windows
}

// fetchExcel downloads and parses the advisory list export for one window
func (c *Collector) fetchExcel(ctx context.Context, window collector.DateRange) ([]models.CandidateRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Cfg.ExcelTimeout)
	defer cancel()

	from, to := window.Strings()
	query := url.Values{}
	query.Set("startDate", from)
	query.Set("endDate", to)

	payload, err := c.Get(ctx, c.Cfg.BaseURL+excelExportPath+"?"+query.Encode())
	if err != nil {
		return nil, err
	}
	if !parser.LooksLikeWorkbook(payload) {
		return nil, fmt.Errorf("export for %s is not a workbook (%d bytes)", window, len(payload))
	}

	if c.Deps.Archiver.Enabled() {
		name := fmt.Sprintf("advisory-%s.xlsx", window)
		c.Deps.Archiver.ArchivePayload(ctx, c.Cfg.Source, collector.RunIDFromContext(ctx), name, payload,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	}

	return parser.ParseExcel(payload, c.meta()), nil
}

// fetchBoard walks the advisory board result pages. An empty first page
// fails the strategy; later pages are best effort because the portal
// truncates pagination under load.
func (c *Collector) fetchBoard(ctx context.Context, window collector.DateRange) ([]models.CandidateRecord, error) {
	from, to := window.Strings()

	var records []models.CandidateRecord
	for page := 1; page <= boardPages; page++ {
		query := url.Values{}
		query.Set("searchStartDate", from)
		query.Set("searchEndDate", to)
		query.Set("pageIndex", strconv.Itoa(page))

		payload, err := c.GetHTML(ctx, c.Cfg.BaseURL+boardSearchPath+"?"+query.Encode())
		if err != nil {
			if page == 1 {
				return nil, err
			}
			log.Warn().Err(err).Str("source", c.Cfg.Source).Int("page", page).Msg("Board page fetch failed, stopping pagination")
			break
		}

		if c.Deps.Archiver.Enabled() {
			name := fmt.Sprintf("advisory-board-p%d", page)
			c.Deps.Archiver.ArchiveHTMLSnapshot(ctx, c.Cfg.Source, collector.RunIDFromContext(ctx), name, payload)
		}

		pageRecords := parser.ParseHTMLTable(payload, c.meta())
		if len(pageRecords) == 0 {
			if page == 1 {
				return nil, fmt.Errorf("no advisory rows on board page 1 for %s", window)
			}
			break
		}
		records = append(records, pageRecords...)
	}
	return records, nil
}

func (c *Collector) meta() parser.SourceMeta {
	return parser.SourceMeta{
		Name:          c.Cfg.Source,
		DefaultReason: defaultReason,
		Confidence:    confidence,
	}
}
