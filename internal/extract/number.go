package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Digit groups optionally separated by single spaces, so French thousand
// grouping ("350 000") reads as one number.
var numberRe = regexp.MustCompile(`\d+(?: \d{3})*`)

// ExtractNumber pulls the first integer out of a composite label such as
// "45 m²" or "350 000 €". Non-breaking-space separators are tolerated.
// Returns nil when the text carries no digits.
func ExtractNumber(value string) *int {
	cleaned := strings.ReplaceAll(value, " ", " ")
	match := numberRe.FindString(cleaned)
	if match == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(match, " ", ""))
	if err != nil {
		return nil
	}
	return &n
}
