package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"sublet-scraper/models"
)

const (
	priceBucketSize  = 50
	maxKeyTitleRunes = 60
	exactKeyHexLen   = 16
)

var (
	bedroomPhraseRegexp = regexp.MustCompile(`\b(?:1|one)\s*(?:br|bd|bdr|bdrm|bed|beds|bedroom|bedrooms)\b`)
	studioPluralRegexp  = regexp.MustCompile(`\bstudios\b`)

	stopTokens = map[string]bool{
		"sublet": true, "sublets": true, "subletting": true, "available": true, "avail": true,
		"for": true, "rent": true, "the": true, "a": true, "an": true, "in": true, "near": true,
		"nyc": true, "apartment": true, "apt": true, "summer": true, "short": true, "term": true,
		"and": true, "with": true, "w": true,
	}
)

// NormalizeTitle reduces a title to the tokens that identify the apartment:
// lower-cased, punctuation stripped, bedroom phrasing unified and stop
// tokens removed.
//
//	"Sunny 1BR Midtown"          -> "sunny 1br midtown"
//	"Sunny one bedroom, midtown" -> "sunny 1br midtown"
func NormalizeTitle(title string) string {
	s := strings.TrimSpace(padded(title))
	s = bedroomPhraseRegexp.ReplaceAllString(s, "1br")
	s = studioPluralRegexp.ReplaceAllString(s, "studio")

	tokens := strings.Fields(s)
	kept := tokens[:0]
	for _, t := range tokens {
		if !stopTokens[t] {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, " ")
}

// PriceBucket rounds a monthly price to the nearest $50. Unknown prices share
// the "na" bucket.
func PriceBucket(price *int) string {
	if price == nil {
		return "na"
	}
	bucket := (*price + priceBucketSize/2) / priceBucketSize * priceBucketSize
	return fmt.Sprintf("%d", bucket)
}

// Fingerprint derives the dedup identity of a listing. It is pure: the same
// listing always yields the same fingerprint.
func Fingerprint(l *models.Listing) models.Fingerprint {
	title := NormalizeTitle(l.Title)

	keyTitle := title
	if utf8.RuneCountInString(keyTitle) > maxKeyTitleRunes {
		keyTitle = string([]rune(keyTitle)[:maxKeyTitleRunes])
	}
	parts := []string{string(l.Source), keyTitle, PriceBucket(l.PriceUSD), fmt.Sprintf("%d", l.Tier)}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))

	signature := title
	if addr := strings.TrimSpace(padded(l.Address)); addr != "" {
		signature = strings.TrimSpace(signature + " " + addr)
	}

	fp := models.Fingerprint{
		ExactKey:       hex.EncodeToString(sum[:])[:exactKeyHexLen],
		FuzzySignature: signature,
		Tier:           l.Tier,
	}
	if l.PriceUSD != nil {
		fp.Price = *l.PriceUSD
	}
	return fp
}

// TokenSortRatio scores how alike two signatures are on a 0-100 scale,
// ignoring token order. Empty input scores 0.
func TokenSortRatio(a, b string) float64 {
	sa, sb := sortTokens(a), sortTokens(b)
	if sa == "" || sb == "" {
		return 0
	}
	if sa == sb {
		return 100
	}
	longest := utf8.RuneCountInString(sa)
	if n := utf8.RuneCountInString(sb); n > longest {
		longest = n
	}
	dist := levenshtein.ComputeDistance(sa, sb)
	return 100 * (1 - float64(dist)/float64(longest))
}

func sortTokens(s string) string {
	tokens := strings.Fields(strings.ToLower(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
