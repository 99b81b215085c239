package config

import "sublet-scraper/models"

// Weights are the percentage weights of the five score categories.
// They must sum to 100; Validate enforces this before any source runs.
type Weights struct {
	Location int
	Price    int
	Type     int
	Timing   int
	Bonus    int
}

// Sum returns the total of all category weights.
func (w Weights) Sum() int {
	return w.Location + w.Price + w.Type + w.Timing + w.Bonus
}

// Fraction returns the weight for a category as a 0-1 multiplier.
func (w Weights) Fraction(category string) float64 {
	switch category {
	case "location":
		return float64(w.Location) / 100
	case "price":
		return float64(w.Price) / 100
	case "type":
		return float64(w.Type) / 100
	case "timing":
		return float64(w.Timing) / 100
	case "bonus":
		return float64(w.Bonus) / 100
	}
	return 0
}

// Categories lists score categories in display order.
var Categories = []string{"location", "price", "type", "timing", "bonus"}

// Neighborhoods maps each canonical neighborhood to its tier and borough.
var Neighborhoods = map[string]struct {
	Tier    models.Tier
	Borough models.Borough
}{
	// Tier 1: Midtown East / near Grand Central
	"Midtown East": {models.Tier1, models.BoroughManhattan},
	"Murray Hill":  {models.Tier1, models.BoroughManhattan},
	"Turtle Bay":   {models.Tier1, models.BoroughManhattan},
	"Kips Bay":     {models.Tier1, models.BoroughManhattan},
	"Tudor City":   {models.Tier1, models.BoroughManhattan},
	"Sutton Place": {models.Tier1, models.BoroughManhattan},

	// Tier 2: LES / East Village
	"Lower East Side": {models.Tier2, models.BoroughManhattan},
	"East Village":    {models.Tier2, models.BoroughManhattan},
	"Nolita":          {models.Tier2, models.BoroughManhattan},
	"Alphabet City":   {models.Tier2, models.BoroughManhattan},
	"Two Bridges":     {models.Tier2, models.BoroughManhattan},

	// Tier 3: other Midtown / Downtown
	"Midtown":            {models.Tier3, models.BoroughManhattan},
	"Midtown West":       {models.Tier3, models.BoroughManhattan},
	"Hell's Kitchen":     {models.Tier3, models.BoroughManhattan},
	"Chelsea":            {models.Tier3, models.BoroughManhattan},
	"Flatiron":           {models.Tier3, models.BoroughManhattan},
	"Gramercy":           {models.Tier3, models.BoroughManhattan},
	"Union Square":       {models.Tier3, models.BoroughManhattan},
	"NoMad":              {models.Tier3, models.BoroughManhattan},
	"Hudson Yards":       {models.Tier3, models.BoroughManhattan},
	"West Village":       {models.Tier3, models.BoroughManhattan},
	"Greenwich Village":  {models.Tier3, models.BoroughManhattan},
	"SoHo":               {models.Tier3, models.BoroughManhattan},
	"NoHo":               {models.Tier3, models.BoroughManhattan},
	"Tribeca":            {models.Tier3, models.BoroughManhattan},
	"Financial District": {models.Tier3, models.BoroughManhattan},
	"Battery Park City":  {models.Tier3, models.BoroughManhattan},
	"Chinatown":          {models.Tier3, models.BoroughManhattan},
	"Little Italy":       {models.Tier3, models.BoroughManhattan},

	// Tier 4: UES / UWS
	"Upper East Side": {models.Tier4, models.BoroughManhattan},
	"Yorkville":       {models.Tier4, models.BoroughManhattan},
	"Lenox Hill":      {models.Tier4, models.BoroughManhattan},
	"Carnegie Hill":   {models.Tier4, models.BoroughManhattan},
	"Upper West Side": {models.Tier4, models.BoroughManhattan},

	// Tier 5: Brooklyn / Queens commuter areas
	"Williamsburg":      {models.Tier5, models.BoroughBrooklyn},
	"DUMBO":             {models.Tier5, models.BoroughBrooklyn},
	"Brooklyn Heights":  {models.Tier5, models.BoroughBrooklyn},
	"Downtown Brooklyn": {models.Tier5, models.BoroughBrooklyn},
	"Fort Greene":       {models.Tier5, models.BoroughBrooklyn},
	"Clinton Hill":      {models.Tier5, models.BoroughBrooklyn},
	"Park Slope":        {models.Tier5, models.BoroughBrooklyn},
	"Cobble Hill":       {models.Tier5, models.BoroughBrooklyn},
	"Boerum Hill":       {models.Tier5, models.BoroughBrooklyn},
	"Carroll Gardens":   {models.Tier5, models.BoroughBrooklyn},
	"Prospect Heights":  {models.Tier5, models.BoroughBrooklyn},
	"Greenpoint":        {models.Tier5, models.BoroughBrooklyn},
	"Bushwick":          {models.Tier5, models.BoroughBrooklyn},
	"Bed-Stuy":          {models.Tier5, models.BoroughBrooklyn},
	"Long Island City":  {models.Tier5, models.BoroughQueens},
	"Astoria":           {models.Tier5, models.BoroughQueens},
	"Sunnyside":         {models.Tier5, models.BoroughQueens},
}

// NeighborhoodAliases maps lower-cased shorthand and landmarks to canonical names.
var NeighborhoodAliases = map[string]string{
	"grand central":    "Midtown East",
	"midtown e":        "Midtown East",
	"murray hill":      "Murray Hill",
	"les":              "Lower East Side",
	"lower east":       "Lower East Side",
	"ev":               "East Village",
	"e village":        "East Village",
	"hells kitchen":    "Hell's Kitchen",
	"hell's kitchen":   "Hell's Kitchen",
	"clinton":          "Hell's Kitchen",
	"fidi":             "Financial District",
	"wall street":      "Financial District",
	"ues":              "Upper East Side",
	"upper east":       "Upper East Side",
	"uws":              "Upper West Side",
	"upper west":       "Upper West Side",
	"lic":              "Long Island City",
	"bedstuy":          "Bed-Stuy",
	"bed stuy":         "Bed-Stuy",
	"gramercy park":    "Gramercy",
	"union sq":         "Union Square",
	"times square":     "Midtown West",
	"theater district": "Midtown West",
	"west village":     "West Village",
	"village":          "Greenwich Village",
	"battery park":     "Battery Park City",
	"dumbo":            "DUMBO",
	"nomad":            "NoMad",

	"bedford-stuyvesant": "Bed-Stuy",
}

// TierScores is the fixed location score of each tier.
var TierScores = map[models.Tier]float64{
	models.Tier1: 10.0,
	models.Tier2: 8.0,
	models.Tier3: 6.5,
	models.Tier4: 5.0,
	models.Tier5: 3.5,
}

// TypeScores is the fixed score of each listing type.
var TypeScores = map[models.ListingType]float64{
	models.TypeStudio:     10.0,
	models.TypeOneBedroom: 9.0,
	models.TypeHotel:      7.0,
	models.TypeRoom:       4.5,
	models.TypeOther:      3.0,
}

// TrustedSources are curated sources that earn a bonus.
var TrustedSources = map[models.Source]bool{
	models.SourceLeaseBreak:      true,
	models.SourceListingsProject: true,
	models.SourceFurnishedFinder: true,
}
