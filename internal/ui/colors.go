// Package ui styles the CLI help output. Sequences are suppressed under the
// NO_COLOR convention so piped or logged output stays clean.
package ui

import "os"

const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	cyan   = "\033[36m"
	green  = "\033[32m"
	yellow = "\033[33m"
	white  = "\033[97m"
)

func style(codes, s string) string {
	if os.Getenv("NO_COLOR") != "" {
		return s
	}
	return codes + s + reset
}

// Title renders the command-name banner.
func Title(s string) string { return style(bold+cyan, s) }

// Heading renders a help section heading.
func Heading(s string) string { return style(bold+white, s) }

// Command renders a command path or usage line.
func Command(s string) string { return style(cyan, s) }

// Placeholder renders an argument placeholder such as "<command>".
func Placeholder(s string) string { return style(yellow, s) }

// Muted renders secondary text: comments, short descriptions, footers.
func Muted(s string) string { return style(dim, s) }

// Example renders a runnable example line with a shell prompt.
func Example(s string) string { return style(green, "$ "+s) }
