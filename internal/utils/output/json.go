// Package output exports extracted listings as JSON, CSV, or Markdown files.
package output

import (
	"encoding/json"
	"os"

	"github.com/dvf-map/scrape/pkg/models"
)

// SaveJSON writes the listing to filepath as indented JSON.
func SaveJSON(listing *models.Listing, filepath string) error {
	content, err := json.MarshalIndent(listing, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, content, 0644)
}
