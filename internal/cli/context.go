// Package cli provides the command-line interface for the scrape application.
package cli

import (
	"github.com/dvf-map/scrape/internal/app"
	"github.com/spf13/cobra"
)

// SetApp stores the Application for commands to access
func SetApp(cmd *cobra.Command, a *app.Application) {
	if cmd == nil {
		return
	}
	globalApp = a
}

// GetApp retrieves the Application
func GetApp() *app.Application {
	return globalApp
}

var globalApp *app.Application
