package models

import "strings"

// Source identifies where a listing was found.
type Source string

const (
	SourceFacebook        Source = "Facebook"
	SourceCraigslist      Source = "Craigslist"
	SourceClassifieds     Source = "Classifieds"
	SourceLeaseBreak      Source = "LeaseBreak"
	SourceSpareRoom       Source = "SpareRoom"
	SourceListingsProject Source = "Listings Project"
	SourceFurnishedFinder Source = "Furnished Finder"
	SourceRoomi           Source = "Roomi"
)

// ListingType is the kind of unit on offer.
type ListingType string

const (
	TypeStudio     ListingType = "Studio"
	TypeOneBedroom ListingType = "1BR"
	TypeRoom       ListingType = "Room in Shared"
	TypeHotel      ListingType = "Hotel/Extended Stay"
	TypeOther      ListingType = "Other"
)

// ParseListingType maps loose type labels (including the ones the extraction
// prompt asks for) to a ListingType. Unrecognised labels become TypeOther.
func ParseListingType(s string) ListingType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "studio", "alcove studio":
		return TypeStudio
	case "1br", "1 br", "1bd", "one-bedroom", "one bedroom", "1 bedroom", "1-bedroom":
		return TypeOneBedroom
	case "room", "room_in_shared", "room in shared", "private room", "shared":
		return TypeRoom
	case "hotel", "hotel_extended_stay", "hotel/extended stay", "extended stay":
		return TypeHotel
	default:
		return TypeOther
	}
}

// Borough is the NYC borough a neighborhood belongs to.
type Borough string

const (
	BoroughManhattan    Borough = "Manhattan"
	BoroughBrooklyn     Borough = "Brooklyn"
	BoroughQueens       Borough = "Queens"
	BoroughBronx        Borough = "Bronx"
	BoroughStatenIsland Borough = "Staten Island"
	BoroughUnknown      Borough = "Unknown"
)

// Tier is a neighborhood desirability bucket; 1 is best.
type Tier int

const (
	Tier1 Tier = iota + 1
	Tier2
	Tier3
	Tier4
	Tier5
)

// LowestTier is used whenever a neighborhood cannot be placed.
const LowestTier = Tier5
