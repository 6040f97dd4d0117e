package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// letters NFD decomposition does not reduce to ASCII.
var special = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "ø", "o", "đ", "d", "ł", "l", "ı", "i", "&", " and ",
)

// Generate creates a URL-friendly slug from a product name.
//
//	"Wireless Headphones (Black)" -> "wireless-headphones-black"
//	"Crème Brûlée Candle"         -> "creme-brulee-candle"
func Generate(name string) string {
	s := special.Replace(strings.ToLower(strings.TrimSpace(name)))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}

	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// WithSuffix appends a short disambiguator taken from id, used when two
// products share a name.
func WithSuffix(slug, id string) string {
	suffix := strings.ReplaceAll(id, "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	if suffix == "" {
		return slug
	}
	if slug == "" {
		return suffix
	}
	return slug + "-" + strings.ToLower(suffix)
}
