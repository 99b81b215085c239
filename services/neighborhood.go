package services

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	"sublet-scraper/config"
	"sublet-scraper/models"
)

// Location is a resolved neighborhood. Unknown places get LowestTier.
type Location struct {
	Neighborhood string
	Borough      models.Borough
	Tier         models.Tier
}

type locationCandidate struct {
	needle    string
	canonical string
}

var (
	candidatesOnce sync.Once
	candidates     []locationCandidate

	parentheticalRegexp = regexp.MustCompile(`\(([^)]+)\)\s*$`)

	boroughNeedles = []struct {
		needle  string
		borough models.Borough
	}{
		{" manhattan ", models.BoroughManhattan},
		{" nyc ", models.BoroughManhattan},
		{" brooklyn ", models.BoroughBrooklyn},
		{" bk ", models.BoroughBrooklyn},
		{" queens ", models.BoroughQueens},
		{" bronx ", models.BoroughBronx},
		{" staten island ", models.BoroughStatenIsland},
	}
)

// loadCandidates merges canonical names and aliases, longest first, so that
// "clinton hill" wins over "clinton" and "east village" over "village".
func loadCandidates() {
	for name := range config.Neighborhoods {
		candidates = append(candidates, locationCandidate{needle: padded(name), canonical: name})
	}
	for alias, name := range config.NeighborhoodAliases {
		candidates = append(candidates, locationCandidate{needle: padded(alias), canonical: name})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if len(candidates[i].needle) != len(candidates[j].needle) {
			return len(candidates[i].needle) > len(candidates[j].needle)
		}
		return candidates[i].needle < candidates[j].needle
	})
}

// MatchNeighborhood finds the first known neighborhood mentioned in text.
// Matching is on whole words only.
func MatchNeighborhood(text string) Location {
	candidatesOnce.Do(loadCandidates)

	haystack := padded(text)
	if strings.TrimSpace(haystack) == "" {
		return unknownLocation(models.BoroughUnknown)
	}

	for _, c := range candidates {
		if strings.Contains(haystack, c.needle) {
			info := config.Neighborhoods[c.canonical]
			return Location{Neighborhood: c.canonical, Borough: info.Borough, Tier: info.Tier}
		}
	}

	for _, b := range boroughNeedles {
		if strings.Contains(haystack, b.needle) {
			return unknownLocation(b.borough)
		}
	}
	return unknownLocation(models.BoroughUnknown)
}

// ExtractParenthetical returns a Craigslist-style trailing "(Midtown East)".
func ExtractParenthetical(text string) string {
	if m := parentheticalRegexp.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func unknownLocation(b models.Borough) Location {
	return Location{Borough: b, Tier: models.LowestTier}
}

// padded lower-cases s, turns every non-alphanumeric rune into a space,
// collapses runs of spaces and surrounds the result with single spaces.
func padded(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(' ')
	prevSpace := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteByte(' ')
			prevSpace = true
		}
	}
	if !prevSpace {
		b.WriteByte(' ')
	}
	return b.String()
}
