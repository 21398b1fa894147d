// Package asin holds the one shared "does this string identify a product"
// predicate. The targeting builder, the snapshot store, and the resolver all
// classify targets with it, so the rules live in exactly one place.
package asin

import "regexp"

var (
	// Standard ASIN: 10 chars starting with B0 (Kindle and most products).
	asinRe = regexp.MustCompile(`^[Bb]0[A-Za-z0-9]{8}$`)
	// Print books are identified by their 10-digit ISBN.
	isbnRe = regexp.MustCompile(`^\d{10}$`)
)

// Is reports whether term looks like an ASIN or a 10-digit ISBN.
// Leading/trailing whitespace is not tolerated; callers trim first.
func Is(term string) bool {
	return asinRe.MatchString(term) || isbnRe.MatchString(term)
}
