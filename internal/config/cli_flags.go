package config

import "github.com/spf13/cobra"

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().Bool("json", false, "Log in JSON format")
	cmd.PersistentFlags().String("source", "", "Listing source: leboncoin, leboncoin-proxy, or seloger")
	cmd.PersistentFlags().String("output-dir", "", "Directory for scraped data (default scraped_data)")
	cmd.PersistentFlags().String("user-agent", "", "Custom user agent string")
	cmd.PersistentFlags().Bool("debug-dump-html", false, "Dump acquired HTML next to the scraped data (debugging aid)")
}
