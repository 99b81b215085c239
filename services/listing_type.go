package services

import (
	"regexp"
	"strings"

	"sublet-scraper/models"
)

var (
	oneBedroomRegexp = regexp.MustCompile(`\b(?:1|one)\s*-?\s*(?:br|bd|bed|bedroom|bdrm)s?\b`)

	hotelIndicators = []string{"hotel", "extended stay", "extended-stay", "apart-hotel", "aparthotel"}
	roomIndicators  = []string{
		"room for rent", "room available", "shared apartment", "private room",
		"room in", "roommate", "spare room", "furnished room", "one room", "bedroom in a",
	}
	searchIndicators = []string{
		"iso", "in search of", "looking for", "seeking", "i need",
		"i'm looking", "im looking", "anyone know",
	}
)

// DetectListingType classifies free text into a ListingType.
func DetectListingType(text string) models.ListingType {
	lower := strings.ToLower(text)

	if strings.Contains(lower, "studio") || strings.Contains(lower, "bachelor") {
		return models.TypeStudio
	}
	if containsWords(padded(lower), roomIndicators...) {
		return models.TypeRoom
	}
	if oneBedroomRegexp.MatchString(lower) {
		return models.TypeOneBedroom
	}
	if containsAny(lower, hotelIndicators...) {
		return models.TypeHotel
	}
	return models.TypeOther
}

// DetectFurnished reports whether text says the unit is furnished. The second
// result is false when the text says nothing either way.
func DetectFurnished(text string) (furnished bool, known bool) {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "unfurnished") || strings.Contains(lower, "un-furnished") {
		return false, true
	}
	if strings.Contains(lower, "furnished") {
		return true, true
	}
	return false, false
}

// ParseFlag reads loose boolean values such as "yes", "true" or "Y".
func ParseFlag(raw string) (value bool, known bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "y", "1":
		return true, true
	case "false", "no", "n", "0":
		return false, true
	}
	return false, false
}

// IsSearchRequest reports whether a post is someone looking for housing
// rather than offering it. Only the opening of the post is inspected.
func IsSearchRequest(text string) bool {
	opening := strings.ToLower(text)
	if len(opening) > 100 {
		opening = opening[:100]
	}
	return containsWords(padded(opening), searchIndicators...)
}

// containsWords reports whether any phrase occurs in haystack on word
// boundaries. haystack must already be padded.
func containsWords(haystack string, phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(haystack, padded(p)) {
			return true
		}
	}
	return false
}
