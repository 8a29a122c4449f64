package utils

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Capitalize title-cases a name. Providers frequently deliver account
// names in shout case ("PLAID CHECKING").
func Capitalize(s string) string {
	return cases.Title(language.English).String(strings.ToLower(s))
}
