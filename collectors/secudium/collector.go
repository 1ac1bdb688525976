package secudium

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/seclab-kr/blacklist-collector/common/collector"
	"github.com/seclab-kr/blacklist-collector/common/credentials"
	"github.com/seclab-kr/blacklist-collector/common/models"
	"github.com/seclab-kr/blacklist-collector/common/parser"
)

const (
	defaultBaseURL = "https://secudium.igloo.co.kr"

	loginPagePath    = "/login"
	ipFeedPath       = "/api/threat/blacklist"
	boardListPath    = "/api/board/threat/posts"
	fileDownloadPath = "/api/board/fileDownload"

	// defaultReason labels rows whose workbook carries no per-row category
	defaultReason = "보안위협IP"

	confidence = 90

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Collector pulls blacklisted addresses out of the SECUDIUM portal
type Collector struct {
	collector.BaseCollector
	session *collector.Session

	// browserLogin is indirect so tests can stand in for the real browser
	browserLogin func(ctx context.Context, client *http.Client, opts collector.BrowserOptions, pageURL string, fields map[string]string, submit string) error
}

// NewCollector creates a SECUDIUM collector
func NewCollector(cfg collector.Config, deps collector.Deps) *Collector {
	return &Collector{
		BaseCollector: collector.NewBaseCollector(cfg, deps),
		browserLogin:  collector.BrowserLogin,
	}
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

// loginConfig describes the portal's login flow. The portal answers login
// POSTs with JSON, so the success flag in the body is the primary signal
// next to the session cookie.
func (c *Collector) loginConfig() collector.LoginConfig {
	return collector.LoginConfig{
		PageURL: c.Cfg.BaseURL + loginPagePath,
		Endpoints: []string{
			c.Cfg.BaseURL + "/login/loginProcess",
			c.Cfg.BaseURL + "/api/login",
		},
		ExtraFields:    map[string]string{"loginType": "normal"},
		SessionCookies: []string{"SECUDIUM_SESSION"},
		SuccessKey:     "result",
	}
}

// Fetch authenticates and pulls the blacklist for the window. The JSON feed
// is the cheap path; the threat board attachment covers feed outages, and a
// browser-driven re-login is the last resort for sessions that pass every
// login signal yet cannot download anything.
func (c *Collector) Fetch(ctx context.Context, window collector.DateRange) ([]models.CandidateRecord, error) {
	creds, err := c.Deps.Credentials.Lookup(c.Cfg.Source)
	if err != nil {
		return nil, err
	}
	if err := c.session.Login(ctx, c.loginConfig(), creds); err != nil {
		return nil, err
	}

	strategies := []collector.FetchStrategy[[]models.CandidateRecord]{
		collector.TryStrategy("json-feed", func(ctx context.Context) ([]models.CandidateRecord, error) {
			return c.fetchJSONFeed(ctx, window)
		}),
		collector.TryStrategy("board-excel", func(ctx context.Context) ([]models.CandidateRecord, error) {
			return c.fetchBoardExcel(ctx, window)
		}),
		collector.TryStrategy("browser-rescue", func(ctx context.Context) ([]models.CandidateRecord, error) {
			return c.browserRescue(ctx, window, creds)
		}),
	}
	return collector.FirstSuccess(ctx, c.Cfg.Source, strategies)
}

// fetchJSONFeed pulls the blacklist feed endpoint for the window. A payload
// that is not JSON at all fails the strategy; valid JSON with no rows is a
// legitimate empty window.
func (c *Collector) fetchJSONFeed(ctx context.Context, window collector.DateRange) ([]models.CandidateRecord, error) {
	from, to := window.Strings()
	query := url.Values{}
	query.Set("startDate", from)
	query.Set("endDate", to)

	payload, err := c.Get(ctx, c.Cfg.BaseURL+ipFeedPath+"?"+query.Encode())
	if err != nil {
		return nil, err
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("feed response for %s is not JSON (%d bytes)", window, len(payload))
	}

	if c.Deps.Archiver.Enabled() {
		name := fmt.Sprintf("blacklist-%s.json", window)
		c.Deps.Archiver.ArchivePayload(ctx, c.Cfg.Source, collector.RunIDFromContext(ctx), name, payload, "application/json")
	}

	return parser.ParseJSONFeed(payload, c.meta()), nil
}

// boardEntry is one row of the threat board listing. ArticleNo is a
// json.Number because the portal flips between numeric and quoted ids.
type boardEntry struct {
	ArticleNo  json.Number `json:"articleNo"`
	Title      string      `json:"title"`
	AtchFileID string      `json:"atchFileId"`
	RegDt      string      `json:"regDt"`
}

type boardListing struct {
	List []boardEntry `json:"list"`
}

// fetchBoardExcel finds the newest board post carrying an attachment inside
// the window and parses the attached workbook
func (c *Collector) fetchBoardExcel(ctx context.Context, window collector.DateRange) ([]models.CandidateRecord, error) {
	from, to := window.Strings()
	query := url.Values{}
	query.Set("startDate", from)
	query.Set("endDate", to)
	query.Set("pageSize", "30")

	payload, err := c.Get(ctx, c.Cfg.BaseURL+boardListPath+"?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var posts boardListing
	if err := json.Unmarshal(payload, &posts); err != nil {
		return nil, fmt.Errorf("board listing: %w", err)
	}

	for _, entry := range posts.List {
		if entry.AtchFileID == "" {
			continue
		}
		log.Debug().
			Str("source", c.Cfg.Source).
			Str("article", entry.ArticleNo.String()).
			Str("title", entry.Title).
			Str("posted", entry.RegDt).
			Msg("Downloading board attachment")
		return c.downloadAttachment(ctx, entry)
	}
	return nil, fmt.Errorf("no board post with an attachment between %s and %s", from, to)
}

// downloadAttachment pulls one attached workbook and parses it
func (c *Collector) downloadAttachment(ctx context.Context, entry boardEntry) ([]models.CandidateRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Cfg.ExcelTimeout)
	defer cancel()

	query := url.Values{}
	query.Set("atchFileId", entry.AtchFileID)

	payload, err := c.Get(ctx, c.Cfg.BaseURL+fileDownloadPath+"?"+query.Encode())
	if err != nil {
		return nil, err
	}
	if !parser.LooksLikeWorkbook(payload) {
		return nil, fmt.Errorf("attachment %s is not a workbook (%d bytes)", entry.AtchFileID, len(payload))
	}

	if c.Deps.Archiver.Enabled() {
		name := fmt.Sprintf("board-%s.xlsx", entry.AtchFileID)
		c.Deps.Archiver.ArchivePayload(ctx, c.Cfg.Source, collector.RunIDFromContext(ctx), name, payload, xlsxContentType)
	}

	return parser.ParseExcel(payload, c.meta()), nil
}

// browserRescue drives a real browser through the login form and retries
// the board download on the refreshed cookies. The portal intermittently
// hands out sessions that answer the login check yet reject every download
// until a browser walks the form.
func (c *Collector) browserRescue(ctx context.Context, window collector.DateRange, creds credentials.Credentials) ([]models.CandidateRecord, error) {
	fields := map[string]string{
		"#userId": creds.Username,
		"#userPw": creds.Password,
	}
	err := c.browserLogin(ctx, c.Client, collector.DefaultBrowserOptions(), c.Cfg.BaseURL+loginPagePath, fields, "#loginBtn")
	if err != nil {
		return nil, fmt.Errorf("browser login: %w", err)
	}
	return c.fetchBoardExcel(ctx, window)
}

func (c *Collector) meta() parser.SourceMeta {
	return parser.SourceMeta{
		Name:          c.Cfg.Source,
		DefaultReason: defaultReason,
		Confidence:    confidence,
	}
}
