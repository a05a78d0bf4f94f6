// internal/extract/nextdata.go
package extract

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dvf-map/scrape/internal/engine"
	"github.com/dvf-map/scrape/pkg/models"
)

// The server-rendered page state leboncoin embeds in every ad page.
const (
	nextDataMarker = `<script id="__NEXT_DATA__" type="application/json">`
	scriptEnd      = `</script>`
)

// Well-known attribute keys of the embedded ad payload.
const (
	attrRealEstateType = "real_estate_type"
	attrSquare         = "square"
	attrLandSurface    = "land_plot_surface"
	attrRooms          = "rooms"
	attrEnergyRate     = "energy_rate"
	attrGES            = "ges"
)

type nextData struct {
	Props struct {
		PageProps struct {
			Ad *adPayload `json:"ad"`
		} `json:"pageProps"`
	} `json:"props"`
}

type adPayload struct {
	Subject    string      `json:"subject"`
	Body       string      `json:"body"`
	PriceCents float64     `json:"price_cents"`
	Location   adLocation  `json:"location"`
	Attributes []attribute `json:"attributes"`
	Images     adImages    `json:"images"`
}

type adLocation struct {
	CityLabel string `json:"city_label"`
}

type adImages struct {
	URLs []string `json:"urls"`
}

type attribute struct {
	Key        string `json:"key"`
	ValueLabel string `json:"value_label"`
}

// NextDataExtractor reads the listing record out of the embedded JSON
// payload of a leboncoin ad page.
//
// NumericSurfaces selects the historical difference between the two
// leboncoin pipelines: the browser-backed one stores surfaces as integers,
// the proxy-backed one keeps the raw display labels.
type NextDataExtractor struct {
	NumericSurfaces bool
}

// NewNextDataExtractor creates the structured extraction strategy.
func NewNextDataExtractor(numericSurfaces bool) *NextDataExtractor {
	return &NextDataExtractor{NumericSurfaces: numericSurfaces}
}

// Name returns the name of this extraction strategy.
func (e *NextDataExtractor) Name() string {
	return "NextDataExtractor"
}

// Extract locates the embedded payload and maps the well-known fields.
func (e *NextDataExtractor) Extract(page *models.Page) (*models.Listing, error) {
	raw, ok := locatePayload(page.HTML)
	if !ok {
		return nil, engine.NewPipelineError(engine.ErrCodeNoListingData,
			"embedded payload marker not found", nil)
	}

	var data nextData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, engine.NewPipelineError(engine.ErrCodeNoListingData,
			"embedded payload is not valid JSON", err)
	}

	ad := data.Props.PageProps.Ad
	if ad == nil {
		return nil, engine.NewPipelineError(engine.ErrCodeNoListingData,
			"embedded payload carries no ad object", nil)
	}

	listing := &models.Listing{
		URL:         page.URL,
		Address:     strPtr(ad.Location.CityLabel),
		Title:       strPtr(ad.Subject),
		Description: strPtr(ad.Body),
		ImageURLs:   ad.Images.URLs,
	}

	// Price arrives in cents; zero means unknown rather than free.
	if ad.PriceCents != 0 {
		price := ad.PriceCents / 100
		listing.Price = &price
	}

	listing.PropertyType = attributeLabel(ad.Attributes, attrRealEstateType)
	listing.Rooms = attributeLabel(ad.Attributes, attrRooms)
	listing.EnergyRate = attributeLabel(ad.Attributes, attrEnergyRate)
	listing.GES = attributeLabel(ad.Attributes, attrGES)
	listing.LivingSurface = e.surface(ad.Attributes, attrSquare)
	listing.LandSurface = e.surface(ad.Attributes, attrLandSurface)

	log.Debug().
		Str("extractor", e.Name()).
		Int("fields", listing.FieldCount()).
		Int("images", len(listing.ImageURLs)).
		Msg("Listing extracted from embedded payload")

	return listing, nil
}

// surface maps a surface attribute either to its raw label or to a
// normalized integer string, depending on the pipeline variant.
func (e *NextDataExtractor) surface(attrs []attribute, key string) *string {
	label := attributeLabel(attrs, key)
	if label == nil || !e.NumericSurfaces {
		return label
	}
	n := ExtractNumber(*label)
	if n == nil {
		return nil
	}
	return strPtr(strconv.Itoa(*n))
}

// attributeLabel scans the attribute list for the first entry with the given
// key and returns its display label. Absence yields nil.
func attributeLabel(attrs []attribute, key string) *string {
	for _, a := range attrs {
		if a.Key == key {
			return strPtr(a.ValueLabel)
		}
	}
	return nil
}

// locatePayload finds the embedded JSON by literal marker search, falling
// back to evaluating inline scripts for pages that assign the state from JS
// instead of rendering the dedicated script tag.
func locatePayload(html string) (string, bool) {
	start := strings.Index(html, nextDataMarker)
	if start >= 0 {
		start += len(nextDataMarker)
		end := strings.Index(html[start:], scriptEnd)
		if end >= 0 {
			return html[start : start+end], true
		}
	}
	return evalInlineState(html)
}
