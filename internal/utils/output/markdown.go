package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/dvf-map/scrape/pkg/models"
)

// SaveMarkdown writes a human-readable summary of the listing.
func SaveMarkdown(listing *models.Listing, filepath string) error {
	var sb strings.Builder

	title := deref(listing.Title)
	if title == "" {
		title = listing.URL
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)

	if listing.Price != nil {
		fmt.Fprintf(&sb, "**Prix :** %s €\n\n", derefPrice(listing.Price))
	}
	if addr := deref(listing.Address); addr != "" {
		fmt.Fprintf(&sb, "**Adresse :** %s\n\n", addr)
	}

	facts := []struct{ label, value string }{
		{"Type de bien", deref(listing.PropertyType)},
		{"Surface habitable", deref(listing.LivingSurface)},
		{"Surface du terrain", deref(listing.LandSurface)},
		{"Nombre de pièces", deref(listing.Rooms)},
		{"DPE", deref(listing.EnergyRate)},
		{"GES", deref(listing.GES)},
	}
	wroteFact := false
	for _, f := range facts {
		if f.value == "" {
			continue
		}
		fmt.Fprintf(&sb, "- %s : %s\n", f.label, f.value)
		wroteFact = true
	}
	if wroteFact {
		sb.WriteString("\n")
	}

	if desc := deref(listing.Description); desc != "" {
		fmt.Fprintf(&sb, "## Description\n\n%s\n\n", desc)
	}

	if paths := listing.StoredPaths(); len(paths) > 0 {
		sb.WriteString("## Photos\n\n")
		for i, p := range paths {
			fmt.Fprintf(&sb, "![Photo %d](%s)\n", i+1, p)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "Source : <%s>\n", listing.URL)

	return os.WriteFile(filepath, []byte(sb.String()), 0644)
}
