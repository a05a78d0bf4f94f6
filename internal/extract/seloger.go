// internal/extract/seloger.go
package extract

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dvf-map/scrape/internal/engine"
	urlutil "github.com/dvf-map/scrape/internal/utils/url"
	"github.com/dvf-map/scrape/pkg/models"
)

var (
	mainFeaturesRe = regexp.MustCompile(`\d+ pièces.*\d+ m²`)
	addressRe      = regexp.MustCompile(`.*, \w+ \d+.*\(\d+\)`)
	forSaleRe      = regexp.MustCompile(`(?i).*à vendre`)
	forSaleStripRe = regexp.MustCompile(`(?i)à vendre`)
	titleRe        = regexp.MustCompile(`À VENDRE.*`)
	identifierRe   = regexp.MustCompile(`Identifiant:`)
	referenceRe    = regexp.MustCompile(`Référence annonce:`)
)

// SeLoger rating selectors: a structural one first, a literal label as
// fallback when the page variant lacks the data-testid markup.
const (
	ratingScaleSelector = `div.css-r92wp3 div[data-testid='cdp-preview-scale-highlighted']`
	hardFactsSelector   = `span.css-1b9ytm[data-testid='cdp-hardfacts']`
	dpeLabel            = "Diagnostic de performance énergétique (DPE)"
	gesLabel            = "Indice d'émission de gaz à effet de serre (GES)"
)

// SelogerExtractor parses a seloger.com ad page with DOM heuristics: no
// embedded payload is available, so every field comes from an independent,
// absence-tolerant pattern rule.
type SelogerExtractor struct {
	// DebugDumpDir, when set, receives a debug.html copy of every parsed
	// page. Off by default.
	DebugDumpDir string

	converter *md.Converter
}

// NewSelogerExtractor creates the heuristic DOM extraction strategy.
func NewSelogerExtractor() *SelogerExtractor {
	return &SelogerExtractor{
		converter: md.NewConverter("", true, nil),
	}
}

// Name returns the name of this extraction strategy.
func (e *SelogerExtractor) Name() string {
	return "SelogerExtractor"
}

// Extract applies the heuristic rules over the parsed document.
func (e *SelogerExtractor) Extract(page *models.Page) (*models.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, engine.NewPipelineError(engine.ErrCodeNoListingData,
			"page HTML not parseable", err)
	}

	if e.DebugDumpDir != "" {
		dump := filepath.Join(e.DebugDumpDir, "debug.html")
		if werr := os.WriteFile(dump, []byte(page.HTML), 0644); werr != nil {
			log.Warn().Err(werr).Msg("Failed to write HTML debug dump")
		} else {
			log.Debug().Str("path", dump).Msg("HTML debug dump written")
		}
	}

	mainFeatures := splitFeatures(findDeepestMatch(doc, "div", mainFeaturesRe))
	characteristics := characteristicItems(doc)
	imageURLs := collectImageURLs(doc, page.URL)
	dpe, ges := ratingScales(doc)

	listing := &models.Listing{
		URL:       page.URL,
		ImageURLs: imageURLs,
	}

	listing.PropertyType = propertyType(doc)
	listing.ID = listingID(doc)
	listing.Address = textOfMatch(doc, "div", addressRe)
	listing.EnergyRate = dpe
	listing.GES = ges
	listing.Reference = strippedMatch(doc, referenceRe, "Référence annonce:")

	titleSel := doc.Find("h2").First()
	if titleSel.Length() == 0 {
		titleSel = findDeepestMatch(doc, "div", titleRe)
	}
	if titleSel.Length() > 0 {
		listing.Title = strPtr(strings.TrimSpace(titleSel.Text()))
		listing.Description = e.description(titleSel)
	}

	if priceText := doc.Find("span.css-otf0vo").First(); priceText.Length() > 0 {
		if n := ExtractNumber(priceText.Text()); n != nil {
			price := float64(*n)
			listing.Price = &price
		}
	}

	listing.LivingSurface = firstFeature(mainFeatures, func(f string) bool {
		return strings.Contains(f, "m²") && !strings.Contains(f, "terrain")
	})
	listing.Rooms = firstFeature(mainFeatures, func(f string) bool {
		return strings.Contains(f, "pièces")
	})
	listing.LandSurface = firstFeature(characteristics, func(c string) bool {
		return strings.Contains(c, "m² de terrain")
	})

	if listing.FieldCount() == 0 && len(listing.ImageURLs) == 0 {
		return nil, engine.NewPipelineError(engine.ErrCodeNoListingData,
			"no listing container recognized", nil)
	}

	// The source page exposes no stable identifier on some variants
	if listing.ID == nil {
		listing.ID = strPtr(uuid.NewString())
	}

	log.Debug().
		Str("extractor", e.Name()).
		Int("fields", listing.FieldCount()).
		Int("images", len(listing.ImageURLs)).
		Msg("Listing extracted with DOM heuristics")

	return listing, nil
}

// description converts the title's enclosing block to plain markdown text;
// seloger renders the ad body as sibling markup of the headline.
func (e *SelogerExtractor) description(titleSel *goquery.Selection) *string {
	parent := titleSel.Parent()
	if parent.Length() == 0 {
		return nil
	}
	text := e.converter.Convert(parent)
	return strPtr(strings.TrimSpace(text))
}

func propertyType(doc *goquery.Document) *string {
	sel := doc.Find(hardFactsSelector).First()
	if sel.Length() == 0 {
		sel = findDeepestMatch(doc, "span,div,h2", forSaleRe)
	}
	if sel.Length() == 0 {
		return nil
	}
	text := forSaleStripRe.ReplaceAllString(strings.TrimSpace(sel.Text()), "")
	return strPtr(strings.TrimSpace(text))
}

func listingID(doc *goquery.Document) *string {
	return strippedMatch(doc, identifierRe, "Identifiant:")
}

// ratingScales returns the DPE and GES rating elements' text, preferring the
// structural selector and falling back to the adjacent literal labels.
func ratingScales(doc *goquery.Document) (dpe, ges *string) {
	scales := doc.Find(ratingScaleSelector)
	if scales.Length() > 0 {
		dpe = strPtr(strings.TrimSpace(scales.Eq(0).Text()))
	}
	if scales.Length() > 1 {
		ges = strPtr(strings.TrimSpace(scales.Eq(1).Text()))
	}

	if dpe == nil {
		dpe = labelledValue(doc, dpeLabel)
	}
	if ges == nil {
		ges = labelledValue(doc, gesLabel)
	}
	return dpe, ges
}

// labelledValue finds a div carrying exactly the given label text and
// returns the text of the div that follows it.
func labelledValue(doc *goquery.Document, label string) *string {
	var out *string
	doc.Find("div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Text()) != label {
			return true
		}
		next := s.Next()
		if next.Length() > 0 {
			out = strPtr(strings.TrimSpace(next.Text()))
		}
		return false
	})
	return out
}

// characteristicItems reads the list following the "Caractéristiques" block.
func characteristicItems(doc *goquery.Document) []string {
	anchor := findDeepestMatch(doc, "div", regexp.MustCompile(`^Caractéristiques$`))
	if anchor.Length() == 0 {
		return nil
	}

	ul := anchor.NextAllFiltered("ul").First()
	if ul.Length() == 0 {
		ul = anchor.Parent().Find("ul").First()
	}
	if ul.Length() == 0 {
		return nil
	}

	var items []string
	ul.Find("li").Each(func(_ int, li *goquery.Selection) {
		items = append(items, strings.TrimSpace(li.Text()))
	})
	return items
}

func collectImageURLs(doc *goquery.Document, pageURL string) []string {
	var urls []string
	doc.Find("div img").Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok && src != "" {
			urls = append(urls, urlutil.ResolveURL(pageURL, src))
		}
	})
	return urls
}

// findDeepestMatch returns the innermost element among selector whose text
// matches re. Matching on the deepest node avoids selecting the whole page
// container, whose text also contains every descendant's.
func findDeepestMatch(doc *goquery.Document, selector string, re *regexp.Regexp) *goquery.Selection {
	matched := doc.Find(selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return re.MatchString(strings.TrimSpace(s.Text()))
	})
	if matched.Length() == 0 {
		return matched
	}
	return matched.Last()
}

func textOfMatch(doc *goquery.Document, selector string, re *regexp.Regexp) *string {
	sel := findDeepestMatch(doc, selector, re)
	if sel.Length() == 0 {
		return nil
	}
	return strPtr(strings.TrimSpace(sel.Text()))
}

// strippedMatch finds a div matching re and returns its text with the given
// literal prefix removed.
func strippedMatch(doc *goquery.Document, re *regexp.Regexp, prefix string) *string {
	sel := findDeepestMatch(doc, "div", re)
	if sel.Length() == 0 {
		return nil
	}
	text := strings.TrimSpace(strings.Replace(sel.Text(), prefix, "", 1))
	return strPtr(text)
}

func splitFeatures(sel *goquery.Selection) []string {
	if sel.Length() == 0 {
		return nil
	}
	parts := strings.Split(sel.Text(), "•")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func firstFeature(features []string, match func(string) bool) *string {
	for _, f := range features {
		if match(f) {
			return strPtr(f)
		}
	}
	return nil
}
