package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/dvf-map/scrape/internal/engine"
	"github.com/dvf-map/scrape/internal/perf"
	"github.com/dvf-map/scrape/internal/store"
	"github.com/dvf-map/scrape/pkg/models"
)

type stubAcquirer struct {
	page *models.Page
	err  error
	req  engine.Request
}

func (s *stubAcquirer) Acquire(_ context.Context, req engine.Request) (*models.Page, error) {
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	pg := *s.page
	pg.URL = req.URL
	if req.ScreenshotName != "" && s.page.ScreenshotPath == "screenshot" {
		pg.ScreenshotPath = filepath.Join(req.OutputDir, req.ScreenshotName)
	}
	return &pg, nil
}

func (s *stubAcquirer) Name() string { return "stub" }

type stubExtractor struct {
	listing *models.Listing
	err     error
}

func (s *stubExtractor) Extract(pg *models.Page) (*models.Listing, error) {
	if s.err != nil {
		return nil, s.err
	}
	l := *s.listing
	l.URL = pg.URL
	return &l, nil
}

func (s *stubExtractor) Name() string { return "stub" }

type stubFetcher struct {
	failFor   map[string]bool
	failFirst func() bool
	fetched   []string
}

func (s *stubFetcher) Fetch(_ context.Context, assetURL string) ([]byte, error) {
	s.fetched = append(s.fetched, assetURL)
	if s.failFirst != nil && s.failFirst() {
		return nil, errors.New("download failed")
	}
	if s.failFor[assetURL] {
		return nil, errors.New("download failed")
	}
	return []byte("image-bytes"), nil
}

type stubStore struct {
	inserted  []*models.Listing
	updated   []*models.Listing
	updateID  int64
	updateUID int64
	updateErr error
}

func (s *stubStore) Insert(_ context.Context, l *models.Listing) error {
	s.inserted = append(s.inserted, l)
	return nil
}

func (s *stubStore) Update(_ context.Context, id, userID int64, l *models.Listing) error {
	s.updateID, s.updateUID = id, userID
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = append(s.updated, l)
	return nil
}

func strPtr(s string) *string   { return &s }
func fltPtr(f float64) *float64 { return &f }

func testListing() *models.Listing {
	return &models.Listing{
		Title:        strPtr("Maison 4 pièces"),
		Price:        fltPtr(2500.0),
		PropertyType: strPtr("Maison"),
		Rooms:        strPtr("3"),
		ImageURLs:    []string{"https://img.example.com/1.jpg"},
	}
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	acq := &stubAcquirer{page: &models.Page{
		Requests:       1,
		Size:           120000,
		NodeCount:      30,
		ScreenshotPath: "screenshot",
	}}
	fetcher := &stubFetcher{}
	persister := &stubStore{}
	rec := perf.NewRecorder()

	o := New(acq, &stubExtractor{listing: testListing()}, fetcher, nil, persister, rec, dir, 1)

	listing, metrics, err := o.Run(context.Background(), "https://www.leboncoin.fr/ad/123", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if listing.URL != "https://www.leboncoin.fr/ad/123" {
		t.Errorf("unexpected listing URL: %q", listing.URL)
	}
	if len(listing.ImagePaths) != 1 || listing.ImagePaths[0] == "" {
		t.Fatalf("expected one stored image path, got %v", listing.ImagePaths)
	}
	if _, err := os.Stat(listing.ImagePaths[0]); err != nil {
		t.Errorf("image file not written: %v", err)
	}
	if listing.ScreenshotPath == "" {
		t.Error("expected screenshot path to be carried onto the listing")
	}

	if listing.ThumbnailPath == "" {
		t.Error("expected lead thumbnail to be fetched")
	} else if _, err := os.Stat(listing.ThumbnailPath); err != nil {
		t.Errorf("thumbnail file not written: %v", err)
	}

	// 1 navigation, 1 lead thumbnail, 1 image; sub-requests land in node count
	if metrics.Requests != 3 {
		t.Errorf("expected 3 requests, got %d", metrics.Requests)
	}
	if metrics.NodeCount != 30 {
		t.Errorf("expected 30 traversed nodes, got %d", metrics.NodeCount)
	}
	if metrics.Errors != 0 {
		t.Errorf("expected 0 errors, got %d", metrics.Errors)
	}
	// 4 populated fields plus 1 downloaded image
	if metrics.DataPoints != 5 {
		t.Errorf("expected 5 data points, got %d", metrics.DataPoints)
	}
	if metrics.SuccessRate != 100 {
		t.Errorf("expected 100%% success rate, got %f", metrics.SuccessRate)
	}
	if !metrics.ScreenshotTaken {
		t.Error("expected screenshot flag set")
	}

	if len(persister.inserted) != 1 {
		t.Fatalf("expected one insert, got %d", len(persister.inserted))
	}
	if rec.Len() != 1 {
		t.Errorf("expected one recorded session, got %d", rec.Len())
	}

	dataFile := filepath.Join(acq.req.OutputDir, "data.json")
	if _, err := os.Stat(dataFile); err != nil {
		t.Errorf("data file not written: %v", err)
	}
}

func TestRunAcquisitionFailure(t *testing.T) {
	acq := &stubAcquirer{err: engine.NewPipelineError(engine.ErrCodeExhaustedRetries, "all attempts failed", nil)}
	rec := perf.NewRecorder()
	o := New(acq, &stubExtractor{}, &stubFetcher{}, nil, nil, rec, t.TempDir(), 1)

	listing, metrics, err := o.Run(context.Background(), "https://www.leboncoin.fr/ad/123", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if listing != nil {
		t.Error("expected nil listing on acquisition failure")
	}
	if metrics.Requests != 0 {
		t.Errorf("expected 0 requests, got %d", metrics.Requests)
	}
	if metrics.Errors != 1 {
		t.Errorf("expected 1 error, got %d", metrics.Errors)
	}
	if metrics.SuccessRate != 0 {
		t.Errorf("expected 0%% success rate, got %f", metrics.SuccessRate)
	}
	if rec.Len() != 1 {
		t.Errorf("failed sessions must still be recorded, got %d samples", rec.Len())
	}
}

func TestRunImageFailureLeavesPlaceholder(t *testing.T) {
	listing := testListing()
	listing.ImageURLs = []string{
		"https://img.example.com/1.jpg",
		"https://img.example.com/2.jpg",
		"https://img.example.com/3.jpg",
	}
	fetcher := &stubFetcher{failFor: map[string]bool{"https://img.example.com/2.jpg": true}}

	o := New(&stubAcquirer{page: &models.Page{Requests: 1}}, &stubExtractor{listing: listing},
		fetcher, nil, nil, nil, t.TempDir(), 1)

	got, metrics, err := o.Run(context.Background(), "https://www.leboncoin.fr/ad/123", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got.ImagePaths) != 3 {
		t.Fatalf("paths must stay parallel to URLs, got %d entries", len(got.ImagePaths))
	}
	if got.ImagePaths[0] == "" || got.ImagePaths[2] == "" {
		t.Error("expected successful downloads at positions 0 and 2")
	}
	if got.ImagePaths[1] != "" {
		t.Errorf("expected empty placeholder at position 1, got %q", got.ImagePaths[1])
	}

	// 1 navigation + 1 thumbnail + 3 image attempts, one of which failed
	if metrics.Requests != 5 {
		t.Errorf("expected 5 requests, got %d", metrics.Requests)
	}
	if metrics.Errors != 1 {
		t.Errorf("expected 1 error, got %d", metrics.Errors)
	}
	// 4 fields + 2 downloaded images
	if metrics.DataPoints != 6 {
		t.Errorf("expected 6 data points, got %d", metrics.DataPoints)
	}
}

func TestRunThumbnailFailureIsAbsorbed(t *testing.T) {
	listing := testListing()
	fetcher := &stubFetcher{}
	o := New(&stubAcquirer{page: &models.Page{Requests: 1}}, &stubExtractor{listing: listing},
		fetcher, nil, nil, nil, t.TempDir(), 1)

	// Fail the first fetch only: the thumbnail misses, the gallery download
	// of the same URL succeeds.
	failed := false
	fetcher.failFirst = func() bool {
		if !failed {
			failed = true
			return true
		}
		return false
	}

	got, metrics, err := o.Run(context.Background(), "https://www.leboncoin.fr/ad/123", nil)
	if err != nil {
		t.Fatalf("a missed thumbnail must not fail the scrape: %v", err)
	}
	if got.ThumbnailPath != "" {
		t.Errorf("expected no thumbnail path, got %q", got.ThumbnailPath)
	}
	if metrics.Errors != 1 {
		t.Errorf("expected 1 error, got %d", metrics.Errors)
	}
	// 4 fields + 1 gallery image; the thumbnail never counts as a data point
	if metrics.DataPoints != 5 {
		t.Errorf("expected 5 data points, got %d", metrics.DataPoints)
	}
}

func TestRunSoftErrorCountsAgainstIssuedRequests(t *testing.T) {
	listing := testListing()
	listing.ImageURLs = nil
	acq := &stubAcquirer{page: &models.Page{Requests: 1, NodeCount: 30, SoftErrors: 1}}

	o := New(acq, &stubExtractor{listing: listing}, &stubFetcher{}, nil, nil, nil, t.TempDir(), 1)

	_, metrics, err := o.Run(context.Background(), "https://www.leboncoin.fr/ad/123", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The navigation is the only issued request; the 30 sub-resource loads
	// are crawl breadth, not part of the success-rate denominator.
	if metrics.Requests != 1 {
		t.Errorf("expected 1 request, got %d", metrics.Requests)
	}
	if metrics.NodeCount != 30 {
		t.Errorf("expected 30 traversed nodes, got %d", metrics.NodeCount)
	}
	if metrics.Errors != 1 {
		t.Errorf("expected 1 error, got %d", metrics.Errors)
	}
	if metrics.SuccessRate != 0 {
		t.Errorf("expected 0%% success rate, got %f", metrics.SuccessRate)
	}
}

func TestRunUpdateMode(t *testing.T) {
	persister := &stubStore{}
	o := New(&stubAcquirer{page: &models.Page{Requests: 5}}, &stubExtractor{listing: testListing()},
		&stubFetcher{}, nil, persister, nil, t.TempDir(), 1)

	_, _, err := o.Run(context.Background(), "https://www.leboncoin.fr/ad/123", &Target{ID: 42, UserID: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(persister.updated) != 1 {
		t.Fatalf("expected one update, got %d", len(persister.updated))
	}
	if persister.updateID != 42 || persister.updateUID != 7 {
		t.Errorf("expected update scoped to id=42 user=7, got id=%d user=%d", persister.updateID, persister.updateUID)
	}
	if len(persister.inserted) != 0 {
		t.Error("update mode must not insert")
	}
}

func TestRunMissingUpdateTargetIsNotFatal(t *testing.T) {
	persister := &stubStore{updateErr: store.ErrTargetMissing}
	o := New(&stubAcquirer{page: &models.Page{Requests: 5}}, &stubExtractor{listing: testListing()},
		&stubFetcher{}, nil, persister, nil, t.TempDir(), 1)

	listing, _, err := o.Run(context.Background(), "https://www.leboncoin.fr/ad/123", &Target{ID: 99, UserID: 7})
	if err != nil {
		t.Fatalf("missing target must not fail the scrape: %v", err)
	}
	if listing == nil {
		t.Fatal("expected extracted listing despite persistence miss")
	}
}

func TestRunExtractionFailure(t *testing.T) {
	o := New(&stubAcquirer{page: &models.Page{Requests: 2}},
		&stubExtractor{err: engine.NewPipelineError(engine.ErrCodeNoListingData, "nothing found", nil)},
		&stubFetcher{}, nil, nil, nil, t.TempDir(), 1)

	_, metrics, err := o.Run(context.Background(), "https://www.leboncoin.fr/ad/123", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if metrics.Requests != 2 {
		t.Errorf("page requests must be kept, got %d", metrics.Requests)
	}
	if metrics.Errors != 1 {
		t.Errorf("expected 1 error, got %d", metrics.Errors)
	}
}

func TestRunImageProgressHook(t *testing.T) {
	listing := testListing()
	listing.ImageURLs = []string{"https://img.example.com/1.jpg", "https://img.example.com/2.jpg"}

	o := New(&stubAcquirer{page: &models.Page{}}, &stubExtractor{listing: listing},
		&stubFetcher{}, nil, nil, nil, t.TempDir(), 1)

	var calls []string
	o.OnImage = func(done, total int) {
		calls = append(calls, fmt.Sprintf("%d/%d", done, total))
	}

	if _, _, err := o.Run(context.Background(), "https://www.leboncoin.fr/ad/123", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 2 || calls[0] != "1/2" || calls[1] != "2/2" {
		t.Errorf("unexpected progress calls: %v", calls)
	}
}
