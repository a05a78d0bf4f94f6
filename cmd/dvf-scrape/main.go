package main

import (
	"github.com/dvf-map/scrape/internal/cli"
)

func main() {
	// Signal handling lives in the commands: scrape and serve install their
	// own contexts so an interrupt shuts the session down cleanly.
	cli.Execute()
}
