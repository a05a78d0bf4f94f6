// Package session orchestrates a full scrape: page acquisition, field
// extraction, image downloads, persistence, and the session metrics that
// feed the performance recorder.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dvf-map/scrape/internal/engine"
	"github.com/dvf-map/scrape/internal/extract"
	"github.com/dvf-map/scrape/internal/perf"
	"github.com/dvf-map/scrape/internal/ratelimit"
	"github.com/dvf-map/scrape/internal/store"
	"github.com/dvf-map/scrape/pkg/models"
)

// AssetFetcher downloads one binary asset.
type AssetFetcher interface {
	Fetch(ctx context.Context, assetURL string) ([]byte, error)
}

// Persister stores extracted listings. Implemented by the PostgreSQL store.
type Persister interface {
	Insert(ctx context.Context, l *models.Listing) error
	Update(ctx context.Context, id, userID int64, l *models.Listing) error
}

// Target selects update mode: refresh the saved listing owned by UserID
// instead of inserting a new row.
type Target struct {
	ID     int64
	UserID int64
}

const (
	screenshotName = "screenshot.png"
	dataFileName   = "data.json"
	dirTimestamp   = "20060102_150405"
)

// Orchestrator runs scrape sessions. Store and recorder are optional; a nil
// store skips persistence, a nil recorder skips metrics collection.
type Orchestrator struct {
	acquirer   engine.Acquirer
	extractor  extract.Extractor
	assets     AssetFetcher
	limiter    ratelimit.RateLimiter
	store      Persister
	recorder   *perf.Recorder
	outputDir  string
	proxyCount int

	// OnImage is invoked after each image attempt with (done, total).
	// Used by the CLI for progress display.
	OnImage func(done, total int)
}

// New assembles an Orchestrator from its collaborators.
func New(acquirer engine.Acquirer, extractor extract.Extractor, assets AssetFetcher,
	limiter ratelimit.RateLimiter, persister Persister, recorder *perf.Recorder,
	outputDir string, proxyCount int) *Orchestrator {
	return &Orchestrator{
		acquirer:   acquirer,
		extractor:  extractor,
		assets:     assets,
		limiter:    limiter,
		store:      persister,
		recorder:   recorder,
		outputDir:  outputDir,
		proxyCount: proxyCount,
	}
}

// Run scrapes one listing URL end to end. target selects update mode. The
// returned metrics are always populated, including on failure. Persistence
// problems do not fail the scrape: the extracted listing is still returned
// and the local artifacts remain on disk.
func (o *Orchestrator) Run(ctx context.Context, listingURL string, target *Target) (*models.Listing, *models.SessionMetrics, error) {
	metrics := &models.SessionMetrics{StartedAt: time.Now(), ProxyCount: o.proxyCount}
	defer func() {
		if o.recorder != nil {
			o.recorder.Log(*metrics)
		}
	}()

	dir := filepath.Join(o.outputDir, metrics.StartedAt.Format(dirTimestamp))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		metrics.Finalize()
		return nil, metrics, fmt.Errorf("failed to create session directory: %w", err)
	}

	log.Info().Str("url", listingURL).Str("strategy", o.acquirer.Name()).Str("dir", dir).Msg("Scrape session started")

	pg, err := o.acquirer.Acquire(ctx, engine.Request{
		URL:            listingURL,
		OutputDir:      dir,
		ScreenshotName: screenshotName,
	})
	if err != nil {
		metrics.Errors++
		metrics.Finalize()
		log.Error().Err(err).Str("url", listingURL).Msg("Page acquisition failed")
		return nil, metrics, err
	}

	metrics.Requests += pg.Requests
	metrics.Errors += pg.SoftErrors
	metrics.ResponseBytes = pg.Size
	metrics.NodeCount = pg.NodeCount
	metrics.ScreenshotTaken = pg.ScreenshotPath != ""

	listing, err := o.extractor.Extract(pg)
	if err != nil {
		metrics.Errors++
		metrics.Finalize()
		log.Error().Err(err).Str("url", listingURL).Msg("Field extraction failed")
		return nil, metrics, err
	}
	listing.ScreenshotPath = pg.ScreenshotPath

	o.fetchThumbnail(ctx, listing, dir, metrics)
	downloaded := o.fetchImages(ctx, listing, dir, metrics)
	metrics.DataPoints = listing.FieldCount() + downloaded

	if err := o.writeData(listing, dir); err != nil {
		metrics.Errors++
		log.Warn().Err(err).Msg("Failed to write session data file")
	}

	o.persist(ctx, listing, target)

	metrics.Finalize()
	log.Info().
		Int("data_points", metrics.DataPoints).
		Float64("success_rate", metrics.SuccessRate).
		Dur("elapsed", metrics.Elapsed).
		Msg("Scrape session finished")

	return listing, metrics, nil
}

// fetchThumbnail downloads the first listing image once more as the lead
// thumbnail shown on saved-property cards. It counts as a regular request but
// never contributes a data point; a failure only bumps the error counter.
func (o *Orchestrator) fetchThumbnail(ctx context.Context, listing *models.Listing, dir string, metrics *models.SessionMetrics) {
	if len(listing.ImageURLs) == 0 {
		return
	}
	thumbURL := listing.ImageURLs[0]

	if o.limiter != nil {
		if err := o.limiter.Wait(ctx, thumbURL); err != nil {
			metrics.Errors++
			return
		}
	}

	metrics.Requests++
	data, err := o.assets.Fetch(ctx, thumbURL)
	if err != nil {
		metrics.Errors++
		log.Warn().Err(err).Str("url", thumbURL).Msg("Thumbnail download failed")
		return
	}

	p := filepath.Join(dir, "thumbnail"+imageExt(thumbURL))
	if err := os.WriteFile(p, data, 0o644); err != nil {
		metrics.Errors++
		log.Warn().Err(err).Str("path", p).Msg("Failed to write thumbnail")
		return
	}
	listing.ThumbnailPath = p
}

// fetchImages downloads every listing image, pacing requests per host. The
// paths slice stays parallel to the URLs: a failed download leaves an empty
// entry at its position. Returns the number of successful downloads.
func (o *Orchestrator) fetchImages(ctx context.Context, listing *models.Listing, dir string, metrics *models.SessionMetrics) int {
	listing.ImagePaths = make([]string, len(listing.ImageURLs))
	downloaded := 0

	for i, imageURL := range listing.ImageURLs {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx, imageURL); err != nil {
				metrics.Errors++
				continue
			}
		}

		metrics.Requests++
		data, err := o.assets.Fetch(ctx, imageURL)
		if err != nil {
			metrics.Errors++
			log.Warn().Err(err).Str("url", imageURL).Msg("Image download failed")
			o.notifyImage(i+1, len(listing.ImageURLs))
			continue
		}

		name := fmt.Sprintf("image_%02d%s", i+1, imageExt(imageURL))
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, data, 0o644); err != nil {
			metrics.Errors++
			log.Warn().Err(err).Str("path", p).Msg("Failed to write image")
			o.notifyImage(i+1, len(listing.ImageURLs))
			continue
		}

		listing.ImagePaths[i] = p
		downloaded++
		o.notifyImage(i+1, len(listing.ImageURLs))
	}

	if len(listing.ImageURLs) > 0 {
		log.Debug().Int("downloaded", downloaded).Int("total", len(listing.ImageURLs)).Msg("Image downloads complete")
	}
	return downloaded
}

func (o *Orchestrator) notifyImage(done, total int) {
	if o.OnImage != nil {
		o.OnImage(done, total)
	}
}

// writeData dumps the extracted listing next to its images.
func (o *Orchestrator) writeData(listing *models.Listing, dir string) error {
	data, err := json.MarshalIndent(listing, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, dataFileName), data, 0o644)
}

// persist stores the listing when a store is configured. A missing update
// target is logged as a warning, everything else as an error; neither fails
// the session.
func (o *Orchestrator) persist(ctx context.Context, listing *models.Listing, target *Target) {
	if o.store == nil {
		return
	}

	var err error
	if target != nil {
		err = o.store.Update(ctx, target.ID, target.UserID, listing)
	} else {
		err = o.store.Insert(ctx, listing)
	}
	if err == nil {
		return
	}

	if errors.Is(err, store.ErrTargetMissing) {
		log.Warn().Int64("id", target.ID).Int64("user_id", target.UserID).Msg("No saved listing to update")
		return
	}
	log.Error().Err(err).Msg("Failed to persist listing")
}

// imageExt picks a file extension from the asset URL, defaulting to .jpg.
func imageExt(assetURL string) string {
	u, err := url.Parse(assetURL)
	if err != nil {
		return ".jpg"
	}
	switch ext := path.Ext(u.Path); ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		return ext
	default:
		return ".jpg"
	}
}
