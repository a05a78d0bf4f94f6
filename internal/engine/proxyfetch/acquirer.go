// Package proxyfetch acquires listing pages over plain HTTP, either through
// a scraping-proxy API that handles anti-bot measures upstream, or directly
// through a forward proxy for sites that do not fight automation.
package proxyfetch

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dvf-map/scrape/internal/config"
	"github.com/dvf-map/scrape/internal/engine"
	"github.com/dvf-map/scrape/internal/proxy"
	"github.com/dvf-map/scrape/internal/retry"
	"github.com/dvf-map/scrape/pkg/models"
)

// apiResponse mirrors the envelope the scraping-proxy service returns; only
// the rendered content is consumed.
type apiResponse struct {
	Result struct {
		Content string `json:"content"`
	} `json:"result"`
}

// APIAcquirer fetches pages through the scraping-proxy service. The service
// renders the page, solves challenges, and returns the final HTML.
type APIAcquirer struct {
	client   *http.Client
	apiURL   string
	apiKey   string
	country  string
	pool     string
	retryCfg retry.Config
}

// NewAPI creates an APIAcquirer from the application config.
func NewAPI(cfg *config.Config) *APIAcquirer {
	rc := retry.DefaultConfig()
	rc.MaxAttempts = cfg.MaxAttempts
	return &APIAcquirer{
		client:   &http.Client{Timeout: cfg.ProxyFetchTimeout},
		apiURL:   cfg.ScrapingAPIURL,
		apiKey:   cfg.ScrapingAPIKey,
		country:  cfg.ScrapingCountry,
		pool:     cfg.ScrapingPool,
		retryCfg: rc,
	}
}

// Name returns the strategy name.
func (a *APIAcquirer) Name() string {
	return "scraping-proxy"
}

// Acquire requests the rendered page from the service with bounded retry.
// Screenshot fields of the request are ignored, the service has no viewport.
func (a *APIAcquirer) Acquire(ctx context.Context, req engine.Request) (*models.Page, error) {
	endpoint, err := a.buildURL(req.URL)
	if err != nil {
		return nil, engine.NewPipelineError(engine.ErrCodeMalformedInput, "invalid target URL", err)
	}

	started := time.Now()
	pg := &models.Page{URL: req.URL, FetchedAt: started}

	attempts := 0
	err = retry.WithRetry(ctx, a.retryCfg, func() error {
		attempts++
		return a.fetchOnce(ctx, endpoint, pg)
	})
	pg.Requests = attempts
	if err != nil {
		return nil, engine.NewPipelineError(engine.ErrCodeExhaustedRetries, "scraping-proxy fetch failed", err)
	}

	pg.Elapsed = time.Since(started)
	log.Debug().
		Str("url", req.URL).
		Int("attempts", attempts).
		Int("size", pg.Size).
		Dur("elapsed", pg.Elapsed).
		Msg("Page acquired via scraping proxy")
	return pg, nil
}

func (a *APIAcquirer) buildURL(target string) (string, error) {
	if _, err := url.ParseRequestURI(target); err != nil {
		return "", err
	}
	u, err := url.Parse(a.apiURL)
	if err != nil {
		return "", fmt.Errorf("invalid service URL: %w", err)
	}
	q := u.Query()
	q.Set("key", a.apiKey)
	q.Set("url", target)
	q.Set("asp", "true")
	q.Set("country", a.country)
	q.Set("proxy_pool", a.pool)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (a *APIAcquirer) fetchOnce(ctx context.Context, endpoint string, pg *models.Page) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return retry.Permanent(err)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return retry.NewHTTPError(resp.StatusCode, resp.Status, "scraping-proxy request failed")
	}

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode service response: %w", err)
	}
	if envelope.Result.Content == "" {
		return fmt.Errorf("service returned empty content")
	}

	pg.HTML = envelope.Result.Content
	pg.Size = len(envelope.Result.Content)
	return nil
}

// DirectAcquirer fetches pages with a plain GET through the forward-proxy
// pool. Used for sites whose markup is served without client-side rendering.
type DirectAcquirer struct {
	client    *http.Client
	pool      *proxy.Pool
	userAgent string
	retryCfg  retry.Config
}

// NewDirect creates a DirectAcquirer routing through the proxy pool.
func NewDirect(cfg *config.Config, pool *proxy.Pool) *DirectAcquirer {
	rc := retry.DefaultConfig()
	rc.MaxAttempts = cfg.MaxAttempts
	return &DirectAcquirer{
		client: &http.Client{
			Timeout: cfg.ProxyFetchTimeout,
			Transport: &http.Transport{
				Proxy: pool.ProxyFunc(),
				// Residential exits re-sign TLS; verification happens upstream.
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		pool:      pool,
		userAgent: cfg.UserAgent,
		retryCfg:  rc,
	}
}

// Name returns the strategy name.
func (d *DirectAcquirer) Name() string {
	return "direct-proxy"
}

// Acquire performs a proxied GET of the page with bounded retry.
func (d *DirectAcquirer) Acquire(ctx context.Context, req engine.Request) (*models.Page, error) {
	if _, err := url.ParseRequestURI(req.URL); err != nil {
		return nil, engine.NewPipelineError(engine.ErrCodeMalformedInput, "invalid target URL", err)
	}

	started := time.Now()
	pg := &models.Page{URL: req.URL, FetchedAt: started}

	attempts := 0
	err := retry.WithRetry(ctx, d.retryCfg, func() error {
		attempts++
		return d.fetchOnce(ctx, req.URL, pg)
	})
	pg.Requests = attempts
	if err != nil {
		return nil, engine.NewPipelineError(engine.ErrCodeExhaustedRetries, "direct fetch failed", err)
	}

	pg.Elapsed = time.Since(started)
	log.Debug().
		Str("url", req.URL).
		Int("attempts", attempts).
		Int("size", pg.Size).
		Dur("elapsed", pg.Elapsed).
		Msg("Page acquired via direct proxied fetch")
	return pg, nil
}

func (d *DirectAcquirer) fetchOnce(ctx context.Context, target string, pg *models.Page) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return retry.Permanent(err)
	}
	httpReq.Header.Set("User-Agent", d.userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml")
	httpReq.Header.Set("Accept-Language", "fr-FR,fr;q=0.9")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		if last := d.pool.Last(); last != "" {
			d.pool.MarkFailed(last)
		}
		return err
	}
	defer resp.Body.Close()

	if last := d.pool.Last(); last != "" {
		d.pool.MarkHealthy(last)
	}

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return retry.NewHTTPError(resp.StatusCode, resp.Status, "page fetch failed")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read page body: %w", err)
	}

	pg.HTML = string(body)
	pg.Size = len(body)
	return nil
}
