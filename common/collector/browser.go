package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/rs/zerolog/log"
)

// BrowserOptions controls the headless browser fallback
type BrowserOptions struct {
	Headless      bool
	Timeout       time.Duration
	WaitAfterLoad time.Duration
}

// DefaultBrowserOptions returns the options used against the portals
func DefaultBrowserOptions() BrowserOptions {
	return BrowserOptions{
		Headless:      true,
		Timeout:       time.Second * 60,
		WaitAfterLoad: time.Second * 2,
	}
}

// BrowserLogin drives a real browser through a portal login form and copies
// the resulting session cookies into the client's jar. It is the fallback
// for portals whose login flow moved behind JavaScript that the direct POST
// endpoints no longer accept. Fields map CSS selectors to the values typed
// into them; submit is the selector of the button that sends the form.
func BrowserLogin(ctx context.Context, client *http.Client, opts BrowserOptions, pageURL string, fields map[string]string, submit string) error {
	if client == nil || client.Jar == nil {
		return fmt.Errorf("browser login needs a client with a cookie jar")
	}

	pageTarget, err := url.Parse(pageURL)
	if err != nil {
		return err
	}

	log.Info().Str("url", pageURL).Msg("Falling back to browser login")

	return rod.Try(func() {
		launchURL := launcher.New().Headless(opts.Headless).MustLaunch()
		browser := rod.New().ControlURL(launchURL).MustConnect()
		defer func() { _ = rod.Try(func() { browser.MustClose() }) }()

		page := browser.MustPage(pageURL).Context(ctx).Timeout(opts.Timeout)
		page.MustWaitLoad()

		// Give the portal's scripts time to render the form
		if opts.WaitAfterLoad > 0 {
			time.Sleep(opts.WaitAfterLoad)
		}

		for selector, value := range fields {
			page.MustElement(selector).MustInput(value)
		}
		page.MustElement(submit).MustClick()
		page.MustWaitLoad()

		cookies := browser.MustGetCookies()
		jarCookies := make([]*http.Cookie, 0, len(cookies))
		for _, c := range cookies {
			jarCookies = append(jarCookies, &http.Cookie{
				Name:   c.Name,
				Value:  c.Value,
				Path:   c.Path,
				Domain: c.Domain,
			})
		}
		client.Jar.SetCookies(pageTarget, jarCookies)
		log.Info().Str("url", pageURL).Int("cookies", len(jarCookies)).Msg("Browser session cookies harvested")
	})
}
