// Package browser acquires listing pages through a managed remote browser
// speaking CDP over a credentialed websocket. The provider terminates the
// session and rotates its exit IP, so every attempt gets a fresh context.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/dvf-map/scrape/internal/config"
	"github.com/dvf-map/scrape/internal/engine"
	"github.com/dvf-map/scrape/pkg/models"
)

// consentSelector is one candidate cookie-banner accept button. Banners vary
// by CMP vendor, so candidates are tried in order until one clicks.
type consentSelector struct {
	sel string
	by  chromedp.QueryOption
}

var consentSelectors = []consentSelector{
	{`#didomi-notice-agree-button`, chromedp.ByQuery},
	{`button[data-testid="accept-cookies"]`, chromedp.ByQuery},
	{`button.axeptio_btn_acceptAll`, chromedp.ByQuery},
	{`//button[contains(., "Accepter")]`, chromedp.BySearch},
	{`//button[contains(., "Tout accepter")]`, chromedp.BySearch},
	{`button[class*="accept"]`, chromedp.ByQuery},
}

// nextDataMarker anchors the readiness check: leboncoin pages embed their
// state in a script tag with this id, and a rendered page without it carries
// nothing worth extracting.
const nextDataMarker = `id="__NEXT_DATA__"`

// Acquirer fetches pages through the remote browser endpoint.
type Acquirer struct {
	wsURL             string
	navigationTimeout time.Duration
	selectorTimeout   time.Duration
	markerTimeout     time.Duration
	settleDelay       time.Duration
	attemptPause      time.Duration
	maxAttempts       int
}

// New creates a browser Acquirer from the application config.
func New(cfg *config.Config) *Acquirer {
	return &Acquirer{
		wsURL:             cfg.BrowserWSURL,
		navigationTimeout: cfg.NavigationTimeout,
		selectorTimeout:   cfg.SelectorTimeout,
		markerTimeout:     cfg.MarkerTimeout,
		settleDelay:       cfg.SettleDelay,
		attemptPause:      cfg.AttemptPause,
		maxAttempts:       cfg.MaxAttempts,
	}
}

// Name returns the strategy name.
func (a *Acquirer) Name() string {
	return "remote-browser"
}

// Acquire navigates to the listing page and returns its rendered HTML along
// with a full-page screenshot and per-attempt counters. Each attempt runs in
// a fresh remote session; a page that renders without the embedded state
// marker counts as a failed attempt since the provider sometimes serves a
// challenge page instead of the listing.
func (a *Acquirer) Acquire(ctx context.Context, req engine.Request) (*models.Page, error) {
	var lastErr error
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		pg, err := a.attempt(ctx, req)
		if err == nil {
			pg.Elapsed = time.Since(pg.FetchedAt)
			return pg, nil
		}
		lastErr = err

		var pe *engine.PipelineError
		if errors.As(err, &pe) && !pe.Retry {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, engine.NewPipelineError(engine.ErrCodeNavigationTimeout, "acquisition cancelled", ctx.Err())
		}

		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", a.maxAttempts).
			Str("url", req.URL).
			Msg("Browser acquisition attempt failed")

		if attempt < a.maxAttempts {
			select {
			case <-time.After(a.attemptPause):
			case <-ctx.Done():
				return nil, engine.NewPipelineError(engine.ErrCodeNavigationTimeout, "acquisition cancelled", ctx.Err())
			}
		}
	}

	return nil, engine.NewPipelineError(engine.ErrCodeExhaustedRetries,
		fmt.Sprintf("all %d browser attempts failed", a.maxAttempts), lastErr)
}

// attempt runs one full acquisition in a dedicated remote session.
func (a *Acquirer) attempt(ctx context.Context, req engine.Request) (*models.Page, error) {
	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(ctx, a.wsURL, chromedp.NoModifyURL)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	started := time.Now()
	pg := &models.Page{URL: req.URL, FetchedAt: started}

	// Every sub-resource the page loads counts as one traversed node; the
	// navigation itself is the single issued request.
	var nodes int64
	chromedp.ListenTarget(taskCtx, func(ev interface{}) {
		if _, ok := ev.(*network.EventRequestWillBeSent); ok {
			atomic.AddInt64(&nodes, 1)
		}
	})

	if err := chromedp.Run(taskCtx, network.Enable()); err != nil {
		return nil, engine.NewPipelineError(engine.ErrCodeTransport, "failed to open remote browser session", err).WithRetry()
	}

	if err := a.navigate(taskCtx, req.URL); err != nil {
		code := engine.ErrCodeTransport
		if errors.Is(err, context.DeadlineExceeded) {
			code = engine.ErrCodeNavigationTimeout
		}
		return nil, engine.NewPipelineError(code, "navigation failed", err).WithRetry()
	}

	a.acceptCookies(taskCtx)

	// The embedded state script shows up slightly after DOMContentLoaded.
	// Its absence here is soft: the marker recheck on the final HTML decides.
	markerCtx, cancelMarker := context.WithTimeout(taskCtx, a.markerTimeout)
	if err := chromedp.Run(markerCtx, chromedp.WaitReady(`script#__NEXT_DATA__`, chromedp.ByQuery)); err != nil {
		pg.SoftErrors++
		log.Debug().Err(err).Msg("Embedded state script not ready before timeout")
	}
	cancelMarker()

	if err := chromedp.Run(taskCtx, chromedp.Sleep(a.settleDelay)); err != nil {
		return nil, engine.NewPipelineError(engine.ErrCodeTransport, "session lost while settling", err).WithRetry()
	}

	a.screenshot(taskCtx, req, pg)

	var html string
	if err := chromedp.Run(taskCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, engine.NewPipelineError(engine.ErrCodeTransport, "failed to read rendered page", err).WithRetry()
	}

	pg.HTML = html
	pg.Size = len(html)
	pg.Requests = 1
	pg.NodeCount = atomic.LoadInt64(&nodes)

	if !strings.Contains(html, nextDataMarker) {
		return nil, engine.NewPipelineError(engine.ErrCodeNoListingData,
			"rendered page carries no embedded listing state", nil).WithRetry()
	}

	log.Debug().
		Str("url", req.URL).
		Int("requests", pg.Requests).
		Int64("nodes", pg.NodeCount).
		Int("size", pg.Size).
		Dur("elapsed", time.Since(started)).
		Msg("Page acquired via remote browser")

	return pg, nil
}

// navigate drives the page to DOMContentLoaded only. Listing pages keep
// streaming ads and trackers long after the content is usable, so waiting
// for the full load event would burn the navigation budget for nothing.
func (a *Acquirer) navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, a.navigationTimeout)
	defer cancel()

	domReady := make(chan struct{}, 1)
	chromedp.ListenTarget(navCtx, func(ev interface{}) {
		if _, ok := ev.(*page.EventDomContentEventFired); ok {
			select {
			case domReady <- struct{}{}:
			default:
			}
		}
	})

	err := chromedp.Run(navCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, errText, _, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errText != "" {
			return fmt.Errorf("navigation rejected: %s", errText)
		}
		return nil
	}))
	if err != nil {
		return err
	}

	select {
	case <-domReady:
		return nil
	case <-navCtx.Done():
		return navCtx.Err()
	}
}

// acceptCookies tries each known consent-banner selector with a short budget
// and stops at the first successful click. An absent banner is the normal
// case on repeat visits and is only logged.
func (a *Acquirer) acceptCookies(ctx context.Context) {
	for _, cs := range consentSelectors {
		selCtx, cancel := context.WithTimeout(ctx, a.selectorTimeout)
		err := chromedp.Run(selCtx, chromedp.Click(cs.sel, cs.by))
		cancel()
		if err == nil {
			log.Debug().Str("selector", cs.sel).Msg("Cookie banner accepted")
			return
		}
	}
	log.Debug().Msg("No cookie banner found")
}

// screenshot captures the full page. Failure is recorded as a soft error,
// the scrape itself does not depend on the capture.
func (a *Acquirer) screenshot(ctx context.Context, req engine.Request, pg *models.Page) {
	if req.ScreenshotName == "" {
		return
	}
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		pg.SoftErrors++
		log.Warn().Err(err).Msg("Full-page screenshot failed")
		return
	}
	path := filepath.Join(req.OutputDir, req.ScreenshotName)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		pg.SoftErrors++
		log.Warn().Err(err).Str("path", path).Msg("Failed to write screenshot")
		return
	}
	pg.ScreenshotPath = path
}
