package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"

	"github.com/seclab-kr/blacklist-collector/common/credentials"
)

// SessionState tracks where a login attempt sits
type SessionState int

const (
	StateAnonymous SessionState = iota
	StateAuthenticating
	StateAuthenticated
	StateFailed
)

// String returns the state name for logging
func (s SessionState) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Field name aliases the portals have used for credentials across redesigns.
// Every alias is sent on each attempt; the portals ignore fields they do not
// know.
var (
	usernameFields = []string{"username", "id", "user_id", "loginID", "memberId"}
	passwordFields = []string{"password", "pwd", "user_pw", "loginPW", "memberPw"}
)

// csrfPatterns match tokens embedded outside hidden form inputs
var csrfPatterns = []*regexp.Regexp{
	regexp.MustCompile(`name="_csrf"\s+(?:content|value)="([^"]+)"`),
	regexp.MustCompile(`csrf[Tt]oken\s*[:=]\s*['"]([^'"]+)['"]`),
}

// failureMarkers are fragments of the portals' login rejection pages,
// logged so the operator sees the portal's own error text.
var failureMarkers = []string{
	"로그인 실패",
	"비밀번호가 일치하지",
	"아이디 또는 비밀번호",
	"로그인이 필요",
	"login failed",
	"invalid password",
}

// LoginConfig describes how to authenticate against one portal
type LoginConfig struct {
	// PageURL is the login form page, fetched for hidden inputs and a CSRF token
	PageURL string
	// Endpoints are the login POST targets, tried in order until one succeeds
	Endpoints []string
	// ExtraFields are source-specific form fields sent on every attempt
	ExtraFields map[string]string
	// SessionCookies are cookie names whose presence proves an authenticated session
	SessionCookies []string
	// SuccessPaths are redirect targets that prove login succeeded
	SuccessPaths []string
	// SuccessKey is the JSON response key carrying the success flag, if the
	// portal answers login POSTs with JSON
	SuccessKey string
}

// Session drives the login state machine over a per-run HTTP client.
// The cookie jar lives on the client, so an authenticated session is
// discarded together with the client at teardown.
type Session struct {
	client    *http.Client
	userAgent string
	state     SessionState
}

// NewSession wraps an HTTP client in an anonymous session
func NewSession(client *http.Client, userAgent string) *Session {
	return &Session{client: client, userAgent: userAgent, state: StateAnonymous}
}

// State returns the current session state
func (s *Session) State() SessionState {
	return s.state
}

// Client returns the underlying HTTP client carrying the session cookies
func (s *Session) Client() *http.Client {
	return s.client
}

// Login walks the ordered login endpoints until one authenticates. The form
// is seeded with the login page's hidden inputs and CSRF token when the page
// is reachable, then the credential aliases. Exhausting every endpoint is
// terminal for the run; the next scheduled run starts over from anonymous.
func (s *Session) Login(ctx context.Context, cfg LoginConfig, creds credentials.Credentials) error {
	s.state = StateAuthenticating

	form := url.Values{}
	if cfg.PageURL != "" {
		hidden, token, err := s.fetchLoginPage(ctx, cfg.PageURL)
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.PageURL).Msg("Login page fetch failed, continuing without hidden fields")
		} else {
			for k, v := range hidden {
				form.Set(k, v)
			}
			if token != "" {
				form.Set("_csrf", token)
			}
		}
	}
	for k, v := range cfg.ExtraFields {
		form.Set(k, v)
	}
	for _, f := range usernameFields {
		form.Set(f, creds.Username)
	}
	for _, f := range passwordFields {
		form.Set(f, creds.Password)
	}

	var lastErr error
	for _, endpoint := range cfg.Endpoints {
		ok, err := s.attempt(ctx, endpoint, form, cfg)
		if err != nil {
			lastErr = err
			log.Warn().Err(err).Str("endpoint", endpoint).Msg("Login endpoint unreachable")
			continue
		}
		if ok {
			s.state = StateAuthenticated
			log.Info().Str("endpoint", endpoint).Msg("Login succeeded")
			return nil
		}
	}

	s.state = StateFailed
	if lastErr != nil {
		return fmt.Errorf("%w: %v", ErrAuthenticationFailed, lastErr)
	}
	return ErrAuthenticationFailed
}

// fetchLoginPage collects the hidden form inputs and any CSRF token from the
// login page
func (s *Session) fetchLoginPage(ctx context.Context, pageURL string) (map[string]string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err := decodeBody(resp)
	if err != nil {
		return nil, "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, "", err
	}

	hidden := make(map[string]string)
	doc.Find(`input[type="hidden"]`).Each(func(_ int, sel *goquery.Selection) {
		name, ok := sel.Attr("name")
		if !ok || name == "" {
			return
		}
		value, _ := sel.Attr("value")
		hidden[name] = value
	})

	token := ""
	for _, pattern := range csrfPatterns {
		if m := pattern.FindSubmatch(body); m != nil {
			token = string(m[1])
			break
		}
	}
	return hidden, token, nil
}

// attempt submits the login form to one endpoint and decides whether it
// authenticated. Success signals, in priority order: the final URL after
// redirects lands on a known post-login path, a named session cookie is in
// the jar, or a JSON body carries the success flag.
func (s *Session) attempt(ctx context.Context, endpoint string, form url.Values, cfg LoginConfig) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	body, err := decodeBody(resp)
	if err != nil {
		return false, err
	}

	finalPath := ""
	if resp.Request != nil && resp.Request.URL != nil {
		finalPath = resp.Request.URL.Path
	}
	for _, p := range cfg.SuccessPaths {
		if p != "" && strings.Contains(finalPath, p) {
			return true, nil
		}
	}

	if s.hasSessionCookie(endpoint, cfg.SessionCookies) {
		return true, nil
	}

	if cfg.SuccessKey != "" && jsonSuccess(body, cfg.SuccessKey) {
		return true, nil
	}

	if marker := findFailureMarker(body); marker != "" {
		log.Warn().Str("endpoint", endpoint).Str("marker", marker).Msg("Login endpoint rejected credentials")
	} else {
		log.Warn().Str("endpoint", endpoint).Int("status", resp.StatusCode).Msg("Login endpoint gave no success signal")
	}
	return false, nil
}

// hasSessionCookie reports whether the jar holds any of the named cookies
// for the endpoint's host
func (s *Session) hasSessionCookie(endpoint string, names []string) bool {
	if s.client.Jar == nil || len(names) == 0 {
		return false
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return false
	}
	for _, c := range s.client.Jar.Cookies(u) {
		for _, name := range names {
			if c.Name == name && c.Value != "" {
				return true
			}
		}
	}
	return false
}

// jsonSuccess interprets the portal's login response body. The portals
// disagree on the flag shape: booleans, "Y", "success", numeric 1.
func jsonSuccess(body []byte, key string) bool {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return false
	}
	switch v := payload[key].(type) {
	case bool:
		return v
	case string:
		lowered := strings.ToLower(v)
		return lowered == "success" || lowered == "true" || lowered == "y" || lowered == "ok"
	case float64:
		return v == 1
	}
	return false
}

// findFailureMarker returns the first known rejection fragment in the body
func findFailureMarker(body []byte) string {
	text := string(body)
	for _, marker := range failureMarkers {
		if strings.Contains(text, marker) {
			return marker
		}
	}
	return ""
}

// decodeBody reads a response body converting legacy encodings to UTF-8.
// The Korean portals still serve EUC-KR on some pages; charset.NewReader
// sniffs the Content-Type header and the page's meta tags.
func decodeBody(resp *http.Response) ([]byte, error) {
	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(reader)
}
