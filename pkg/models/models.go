package models

import "time"

// Page is the raw result of acquiring a listing page, before extraction.
type Page struct {
	URL            string    `json:"url"`
	HTML           string    `json:"-"`
	Size           int       `json:"size_bytes"`
	ScreenshotPath string    `json:"screenshot_path,omitempty"`
	Requests       int       `json:"requests"`
	NodeCount      int64     `json:"node_count"`
	SoftErrors     int       `json:"soft_errors"`
	FetchedAt      time.Time `json:"fetched_at"`
	Elapsed        time.Duration
}

// Listing is the structured record extracted from a classified-ad page.
//
// Optional fields are pointers: a nil entry means the source page did not
// expose that attribute, which is distinct from an empty or zero value.
// JSON tags mirror the persisted column names, hence the French.
type Listing struct {
	URL           string   `json:"url"`
	ID            *string  `json:"id,omitempty"`
	Address       *string  `json:"adresse"`
	Title         *string  `json:"title"`
	Price         *float64 `json:"prix"`
	PropertyType  *string  `json:"type_habitat"`
	LivingSurface *string  `json:"surface_habitable"`
	LandSurface   *string  `json:"surface_terrain"`
	Rooms         *string  `json:"nbr_pieces"`
	EnergyRate    *string  `json:"dpe"`
	GES           *string  `json:"ges"`
	Description   *string  `json:"description"`
	Reference     *string  `json:"reference,omitempty"`

	ImageURLs []string `json:"image_urls"`

	// ImagePaths is kept parallel to ImageURLs: a failed download leaves an
	// empty entry at its position, the slice is never shortened.
	ImagePaths []string `json:"image_paths"`

	ScreenshotPath string `json:"screenshot_path,omitempty"`
	ThumbnailPath  string `json:"thumbnail_path,omitempty"`
}

// FieldCount returns the number of populated optional attributes. Used as
// part of the data-point metric for a scrape session.
func (l *Listing) FieldCount() int {
	n := 0
	for _, p := range []*string{
		l.ID, l.Address, l.Title, l.PropertyType, l.LivingSurface,
		l.LandSurface, l.Rooms, l.EnergyRate, l.GES, l.Description, l.Reference,
	} {
		if p != nil {
			n++
		}
	}
	if l.Price != nil {
		n++
	}
	return n
}

// StoredPaths returns only the image paths that were actually materialized
// on disk, dropping the placeholder entries of failed downloads.
func (l *Listing) StoredPaths() []string {
	out := make([]string, 0, len(l.ImagePaths))
	for _, p := range l.ImagePaths {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SessionMetrics collects the counters of one scrape invocation. It is
// finalized exactly once, on success or terminal failure, and handed to the
// performance recorder; it is never persisted with the listing itself.
type SessionMetrics struct {
	StartedAt       time.Time     `json:"started_at"`
	Elapsed         time.Duration `json:"elapsed"`
	Requests        int           `json:"request_count"`
	Errors          int           `json:"error_count"`
	DataPoints      int           `json:"data_points"`
	SuccessRate     float64       `json:"success_rate"`
	ResponseBytes   int           `json:"response_size"`
	ScreenshotTaken bool          `json:"screenshot_success"`
	ProxyCount      int           `json:"proxy_count"`
	NodeCount       int64         `json:"node_count"`
}

// Finalize computes the derived fields. A session that never issued a
// request reports a 0% success rate rather than dividing by zero.
func (m *SessionMetrics) Finalize() {
	m.Elapsed = time.Since(m.StartedAt)
	if m.Requests > 0 {
		m.SuccessRate = float64(m.Requests-m.Errors) / float64(m.Requests) * 100
	} else {
		m.SuccessRate = 0
	}
}

// Source identifies which listing site and fetch mechanism a pipeline targets.
type Source string

const (
	// SourceLeboncoin scrapes leboncoin.fr through the managed remote browser.
	SourceLeboncoin Source = "leboncoin"
	// SourceLeboncoinProxy scrapes leboncoin.fr through the scraping-proxy service.
	SourceLeboncoinProxy Source = "leboncoin-proxy"
	// SourceSeloger scrapes seloger.com with direct fetches and DOM heuristics.
	SourceSeloger Source = "seloger"
)
