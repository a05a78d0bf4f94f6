package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/dvf-map/scrape/internal/session"
	"github.com/dvf-map/scrape/internal/utils/output"
	urlutil "github.com/dvf-map/scrape/internal/utils/url"
	"github.com/dvf-map/scrape/pkg/models"
)

var (
	scrapeID     int64
	scrapeUserID int64
	scrapeExport string
	scrapeCharts string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <url>",
	Short: "Scrape one listing page and store its data locally",
	Example: `  # Scrape a leboncoin listing through the remote browser
  dvf-scrape scrape https://www.leboncoin.fr/ad/ventes_immobilieres/123456

  # Refresh a saved listing (row 42 of user 7)
  dvf-scrape scrape --id 42 --user-id 7 https://www.leboncoin.fr/ad/ventes_immobilieres/123456

  # Scrape a seloger listing with DOM extraction
  dvf-scrape --source seloger scrape https://www.seloger.com/annonces/achat/maison/75.htm`,
	Args: cobra.ExactArgs(1),
	RunE: runScrape,
}

func init() {
	scrapeCmd.Flags().Int64Var(&scrapeID, "id", 0, "Saved listing id to update instead of inserting")
	scrapeCmd.Flags().Int64Var(&scrapeUserID, "user-id", 0, "Owner of the saved listing (required with --id)")
	scrapeCmd.Flags().StringVar(&scrapeExport, "export", "", "Export the listing to a file (.json, .csv, or .md)")
	scrapeCmd.Flags().StringVar(&scrapeCharts, "charts", "", "Write performance charts to the given HTML file")
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	application := GetApp()
	if application == nil {
		return fmt.Errorf("application not initialized")
	}

	if err := urlutil.ValidateURL(args[0]); err != nil {
		return err
	}

	var target *session.Target
	if scrapeID != 0 {
		if scrapeUserID == 0 {
			return fmt.Errorf("--id requires --user-id")
		}
		target = &session.Target{ID: scrapeID, UserID: scrapeUserID}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var bar *progressbar.ProgressBar
	application.Orchestrator.OnImage = func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Downloading images"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		bar.Set(done)
	}

	listing, metrics, err := application.Orchestrator.Run(ctx, args[0], target)
	if err != nil {
		return err
	}

	if scrapeExport != "" {
		if err := exportListing(listing, scrapeExport); err != nil {
			return err
		}
	}

	if scrapeCharts != "" {
		msg, err := application.Recorder.Render(scrapeCharts)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, msg)
	}

	out, err := json.MarshalIndent(listing, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	fmt.Fprintf(os.Stderr, "%d data points, %.0f%% success rate, %s elapsed\n",
		metrics.DataPoints, metrics.SuccessRate, metrics.Elapsed.Round(100*time.Millisecond))
	return nil
}

// exportListing writes the listing in the format implied by the file extension.
func exportListing(listing *models.Listing, path string) error {
	switch filepath.Ext(path) {
	case ".json":
		return output.SaveJSON(listing, path)
	case ".csv":
		return output.SaveCSV(listing, path)
	case ".md":
		return output.SaveMarkdown(listing, path)
	default:
		return fmt.Errorf("unsupported export format %q (use .json, .csv, or .md)", filepath.Ext(path))
	}
}
