package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dvf-map/scrape/internal/engine"
	"github.com/dvf-map/scrape/pkg/models"
)

const selogerHTML = `<html><body>
<div id="content">
	<span class="css-1b9ytm" data-testid="cdp-hardfacts">Maison à vendre</span>
	<h2>Maison 6 pièces à Saint-Julien</h2>
	<div>12 Rue des Oliviers, Marseille 12 (13012)</div>
	<span class="css-otf0vo">350 000 €</span>
	<div class="features">6 pièces • 120 m² • Garage</div>
	<div class="block">
		<div>Caractéristiques</div>
		<ul>
			<li>450 m² de terrain</li>
			<li>Piscine</li>
		</ul>
	</div>
	<div class="css-r92wp3">
		<div data-testid="cdp-preview-scale-highlighted">D</div>
		<div data-testid="cdp-preview-scale-highlighted">B</div>
	</div>
	<div class="gallery">
		<img src="http://img.seloger.com/1.jpg"/>
		<img src="http://img.seloger.com/2.jpg"/>
		<img/>
	</div>
	<div>Identifiant: 243477581</div>
	<div>Référence annonce: REF-42</div>
</div>
</body></html>`

func TestSeloger_FullListing(t *testing.T) {
	page := &models.Page{URL: "https://www.seloger.com/annonces/achat/243477581.htm", HTML: selogerHTML}
	listing, err := NewSelogerExtractor().Extract(page)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if listing.PropertyType == nil || *listing.PropertyType != "Maison" {
		t.Errorf("PropertyType: got %v, want Maison", listing.PropertyType)
	}
	if listing.Title == nil || *listing.Title != "Maison 6 pièces à Saint-Julien" {
		t.Errorf("Title: got %v", listing.Title)
	}
	if listing.Price == nil || *listing.Price != 350000.0 {
		t.Errorf("Price: got %v, want 350000.0", listing.Price)
	}
	if listing.LivingSurface == nil || *listing.LivingSurface != "120 m²" {
		t.Errorf("LivingSurface: got %v, want 120 m²", listing.LivingSurface)
	}
	if listing.Rooms == nil || *listing.Rooms != "6 pièces" {
		t.Errorf("Rooms: got %v, want 6 pièces", listing.Rooms)
	}
	if listing.LandSurface == nil || *listing.LandSurface != "450 m² de terrain" {
		t.Errorf("LandSurface: got %v", listing.LandSurface)
	}
	if listing.EnergyRate == nil || *listing.EnergyRate != "D" {
		t.Errorf("DPE: got %v, want D", listing.EnergyRate)
	}
	if listing.GES == nil || *listing.GES != "B" {
		t.Errorf("GES: got %v, want B", listing.GES)
	}
	if len(listing.ImageURLs) != 2 {
		t.Errorf("ImageURLs: got %d, want 2 (empty src skipped)", len(listing.ImageURLs))
	}
	if listing.ID == nil || *listing.ID != "243477581" {
		t.Errorf("ID: got %v, want 243477581", listing.ID)
	}
	if listing.Reference == nil || *listing.Reference != "REF-42" {
		t.Errorf("Reference: got %v, want REF-42", listing.Reference)
	}
	if listing.Address == nil || *listing.Address != "12 Rue des Oliviers, Marseille 12 (13012)" {
		t.Errorf("Address: got %v", listing.Address)
	}
}

func TestSeloger_RatingLabelFallback(t *testing.T) {
	html := `<html><body>
	<div>3 pièces • 45 m²</div>
	<div>Diagnostic de performance énergétique (DPE)</div><div>E</div>
	<div>Indice d'émission de gaz à effet de serre (GES)</div><div>C</div>
	</body></html>`

	listing, err := NewSelogerExtractor().Extract(&models.Page{URL: "u", HTML: html})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if listing.EnergyRate == nil || *listing.EnergyRate != "E" {
		t.Errorf("DPE fallback: got %v, want E", listing.EnergyRate)
	}
	if listing.GES == nil || *listing.GES != "C" {
		t.Errorf("GES fallback: got %v, want C", listing.GES)
	}
}

func TestSeloger_TypeRegexFallback(t *testing.T) {
	html := `<html><body>
	<div>2 pièces • 30 m²</div>
	<h2>Joli studio</h2>
	<div class="facts">Appartement à vendre</div>
	</body></html>`

	listing, err := NewSelogerExtractor().Extract(&models.Page{URL: "u", HTML: html})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if listing.PropertyType == nil || *listing.PropertyType != "Appartement" {
		t.Errorf("PropertyType fallback: got %v, want Appartement", listing.PropertyType)
	}
}

func TestSeloger_MissingFieldsTolerated(t *testing.T) {
	html := `<html><body><div class="gallery"><img src="http://x/1.jpg"/></div></body></html>`

	listing, err := NewSelogerExtractor().Extract(&models.Page{URL: "u", HTML: html})
	if err != nil {
		t.Fatalf("Images alone should be a usable anchor: %v", err)
	}
	if listing.Price != nil || listing.Title != nil || listing.Rooms != nil {
		t.Error("Absent fields must stay nil")
	}
	// ID is synthesized when the page exposes none
	if listing.ID == nil || *listing.ID == "" {
		t.Error("Expected synthesized listing ID")
	}
}

func TestSeloger_EmptyPageRejected(t *testing.T) {
	_, err := NewSelogerExtractor().Extract(&models.Page{URL: "u", HTML: "<html><body><p>rien</p></body></html>"})
	if engine.CodeOf(err) != engine.ErrCodeNoListingData {
		t.Errorf("Expected NO_LISTING_DATA, got %v", err)
	}
}

func TestSeloger_DebugDumpGated(t *testing.T) {
	dir := t.TempDir()

	e := NewSelogerExtractor()
	_, _ = e.Extract(&models.Page{URL: "u", HTML: selogerHTML})
	if _, err := os.Stat(filepath.Join(dir, "debug.html")); !os.IsNotExist(err) {
		t.Error("Dump written without the flag")
	}

	e.DebugDumpDir = dir
	_, _ = e.Extract(&models.Page{URL: "u", HTML: selogerHTML})
	if _, err := os.Stat(filepath.Join(dir, "debug.html")); err != nil {
		t.Errorf("Dump expected with flag set: %v", err)
	}
}
