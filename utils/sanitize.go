package utils

import "github.com/microcosm-cc/bluemonday"

// Activity descriptions are plain text; strip all markup outright.
var sanitizer = bluemonday.StrictPolicy()

// Sanitize cleans user-supplied text to prevent stored XSS.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
