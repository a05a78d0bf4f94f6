package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dvf-map/scrape/internal/auth"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage stored credentials (scraping API key, JWT secret)",
}

var keySetCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Store a credential in the OS keyring",
	Example: `  # Store the scraping-proxy API key
  dvf-scrape key set scrapfly-api-key scp-live-abc123`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := auth.SaveCredential(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Credential %q stored\n", args[0])
		return nil
	},
}

var keyShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a stored credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := auth.LoadCredential(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, value)
		return nil
	},
}

var keyDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a stored credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := auth.DeleteCredential(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Credential %q removed\n", args[0])
		return nil
	},
}

func init() {
	keyCmd.AddCommand(keySetCmd, keyShowCmd, keyDeleteCmd)
	rootCmd.AddCommand(keyCmd)
}

func init() {
	// Credential lookup also feeds config when env vars are absent.
	cobra.OnInitialize(func() {
		if os.Getenv("SCRAPFLY_API_KEY") == "" {
			if v, err := auth.LoadCredential("scrapfly-api-key"); err == nil {
				os.Setenv("SCRAPFLY_API_KEY", v)
			}
		}
	})
}
