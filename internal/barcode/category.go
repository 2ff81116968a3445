package barcode

import (
	"strings"
	"unicode"
)

// Uncategorized is used when a source reports no category.
const Uncategorized = "Uncategorized"

// categoryKeywords is checked in order; the first keyword contained in the
// main category wins.
var categoryKeywords = []struct {
	keyword  string
	category string
}{
	{"beverages", "Beverages"},
	{"drinks", "Beverages"},
	{"sodas", "Beverages"},
	{"water", "Beverages"},
	{"juices", "Beverages"},
	{"snacks", "Snacks"},
	{"chips", "Snacks"},
	{"cookies", "Snacks"},
	{"candy", "Snacks"},
	{"chocolate", "Snacks"},
	{"dairy", "Dairy"},
	{"milk", "Dairy"},
	{"cheese", "Dairy"},
	{"yogurt", "Dairy"},
	{"canned", "Canned Goods"},
	{"preserved", "Canned Goods"},
	{"cereals", "Breakfast"},
	{"breakfast", "Breakfast"},
	{"bread", "Bakery"},
	{"pastries", "Bakery"},
	{"frozen", "Frozen"},
	{"ice cream", "Frozen"},
	{"meat", "Meat & Seafood"},
	{"seafood", "Meat & Seafood"},
	{"fish", "Meat & Seafood"},
	{"produce", "Fresh Produce"},
	{"fruits", "Fresh Produce"},
	{"vegetables", "Fresh Produce"},
	{"condiments", "Condiments"},
	{"sauces", "Condiments"},
	{"cleaning", "Cleaning"},
	{"detergent", "Cleaning"},
	{"soap", "Cleaning"},
	{"household", "Household"},
	{"paper", "Household"},
	{"tissue", "Household"},
	{"personal care", "Personal Care"},
	{"beauty", "Personal Care"},
	{"hygiene", "Personal Care"},
	{"health", "Health"},
	{"medicine", "Health"},
	{"vitamins", "Health"},
}

// NormalizeCategory maps a comma separated category list reported by a
// product database to one of the pantry categories.
func NormalizeCategory(raw string) string {
	main, _, _ := strings.Cut(raw, ",")
	main = strings.TrimSpace(main)
	if main == "" {
		return Uncategorized
	}

	lower := strings.ToLower(main)
	for _, kw := range categoryKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.category
		}
	}

	return titleCase(main)
}

func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	prevLetter := false
	for _, r := range s {
		if prevLetter {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(unicode.ToUpper(r))
		}
		prevLetter = unicode.IsLetter(r)
	}

	return b.String()
}
