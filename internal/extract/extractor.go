package extract

import "github.com/dvf-map/scrape/pkg/models"

// Extractor turns a raw acquired page into a structured listing record.
type Extractor interface {
	// Extract returns the listing parsed out of the page. Individual missing
	// attributes never fail the extraction; a *PipelineError with code
	// NO_LISTING_DATA is returned only when the page holds no usable listing
	// anchor at all.
	Extract(page *models.Page) (*models.Listing, error)

	// Name returns the name of the extraction strategy.
	Name() string
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	v := s
	return &v
}
