package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/dvf-map/scrape/pkg/models"
)

// SaveCSV writes the listing as a single-row CSV with the persisted column
// names as headers. Absent attributes become empty cells.
func SaveCSV(listing *models.Listing, filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	headers := []string{
		"url", "adresse", "title", "prix", "type_habitat", "surface_habitable",
		"surface_terrain", "nbr_pieces", "dpe", "ges", "description", "image_paths",
	}
	if err := writer.Write(headers); err != nil {
		return err
	}

	row := []string{
		listing.URL,
		deref(listing.Address),
		deref(listing.Title),
		derefPrice(listing.Price),
		deref(listing.PropertyType),
		deref(listing.LivingSurface),
		deref(listing.LandSurface),
		deref(listing.Rooms),
		deref(listing.EnergyRate),
		deref(listing.GES),
		deref(listing.Description),
		strings.Join(listing.StoredPaths(), ";"),
	}
	return writer.Write(row)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func derefPrice(p *float64) string {
	if p == nil {
		return ""
	}
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", *p), "0"), ".")
}
