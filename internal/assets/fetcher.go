// internal/assets/fetcher.go
package assets

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dvf-map/scrape/internal/proxy"
	"github.com/dvf-map/scrape/internal/retry"
)

// Fetcher downloads single binary assets (listing images) through the
// residential forward proxy. Failures are returned, never raised past the
// caller, so a broken image does not abort the surrounding scrape.
type Fetcher struct {
	client    *http.Client
	pool      *proxy.Pool
	userAgent string
	referer   string

	// RetryCfg bounds the transient-error retry; tests shorten the backoff.
	RetryCfg retry.Config
}

// New creates a Fetcher routing through the given proxy pool.
//
// TLS verification is disabled: the residential proxy terminates TLS with
// its own certificate for image CDNs.
func New(pool *proxy.Pool, timeout time.Duration, userAgent, referer string) *Fetcher {
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               pool.ProxyFunc(),
			TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Fetcher{
		client:    client,
		pool:      pool,
		userAgent: userAgent,
		referer:   referer,
		RetryCfg:  retry.DefaultConfig(),
	}
}

// Fetch downloads one asset. Transport-class errors are retried with
// exponential backoff; a malformed URL fails immediately.
func (f *Fetcher) Fetch(ctx context.Context, assetURL string) ([]byte, error) {
	if _, err := url.ParseRequestURI(assetURL); err != nil {
		return nil, retry.Permanent(fmt.Errorf("invalid asset URL: %w", err))
	}

	var body []byte
	err := retry.WithRetry(ctx, f.RetryCfg, func() error {
		data, err := f.fetchOnce(ctx, assetURL)
		if err != nil {
			return err
		}
		body = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, assetURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Connection", "keep-alive")
	if f.referer != "" {
		req.Header.Set("Referer", f.referer)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if p := f.pool.Last(); p != "" {
			f.pool.MarkFailed(p)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if p := f.pool.Last(); p != "" {
		f.pool.MarkHealthy(p)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, retry.NewHTTPError(resp.StatusCode, resp.Status, assetURL)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	log.Debug().
		Str("url", assetURL).
		Int("bytes", len(data)).
		Msg("Asset downloaded")

	return data, nil
}
