package engine

import (
	"context"

	"github.com/dvf-map/scrape/pkg/models"
)

// Request describes one page acquisition.
type Request struct {
	// URL of the listing page to acquire.
	URL string

	// OutputDir is the invocation directory; acquirers that capture a
	// screenshot write it there.
	OutputDir string

	// ScreenshotName is the file name for the full-page screenshot, when
	// the acquirer supports one.
	ScreenshotName string
}

// Acquirer is the interface all page-acquisition strategies implement.
type Acquirer interface {
	// Acquire obtains the raw page for the request. It retries internally
	// up to its attempt budget and returns a *PipelineError on exhaustion;
	// it never panics past its boundary.
	Acquire(ctx context.Context, req Request) (*models.Page, error)

	// Name returns the name of the acquisition strategy.
	Name() string
}
