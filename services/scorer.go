package services

import (
	"math"
	"time"

	"sublet-scraper/config"
	"sublet-scraper/models"
)

const (
	minScore = 1.0
	maxScore = 10.0

	// neutralScore stands in for sub-scores whose inputs are unknown.
	neutralScore = 5.0

	bonusFurnished = 3.0
	bonusPhotos    = 2.0
	bonusTrusted   = 2.0
	bonusContact   = 1.5
	bonusAddress   = 1.5
)

// Scorer computes composite listing scores. It holds only immutable
// configuration, so one Scorer can be shared freely.
type Scorer struct {
	weights     config.Weights
	targetStart time.Time
	targetEnd   time.Time
}

// NewScorer creates a Scorer. Weights are assumed to have passed
// config validation.
func NewScorer(weights config.Weights, targetStart, targetEnd time.Time) *Scorer {
	return &Scorer{weights: weights, targetStart: dayOf(targetStart), targetEnd: dayOf(targetEnd)}
}

// Score rates a listing from 1.0 to 10.0. Every listing gets a score.
func (s *Scorer) Score(l *models.Listing) models.Score {
	sub := map[string]float64{
		"location": LocationScore(l.Tier),
		"price":    PriceScore(l.PriceUSD),
		"type":     TypeScore(l.Type),
		"timing":   TimingScore(l.AvailableFrom, l.AvailableTo, s.targetStart, s.targetEnd),
		"bonus":    BonusScore(l),
	}

	breakdown := make(map[string]float64, len(sub))
	total := 0.0
	for _, category := range config.Categories {
		contribution := sub[category] * s.weights.Fraction(category)
		breakdown[category] = round(contribution, 2)
		total += contribution
	}

	return models.Score{
		Total:     round(clamp(total, minScore, maxScore), 1),
		Breakdown: breakdown,
		SubScores: sub,
	}
}

// LocationScore maps a tier to its fixed score. Unknown tiers score as the
// lowest tier.
func LocationScore(t models.Tier) float64 {
	if v, ok := config.TierScores[t]; ok {
		return v
	}
	return config.TierScores[models.LowestTier]
}

// PriceScore rates monthly rent on piecewise-linear bands. Lower is never
// worse. Unknown prices get the neutral score.
//
//	<= $1000      10
//	$1000-$1500   10 -> 9
//	$1500-$1850    8 -> 7
//	$1850-$2000    7 -> 5
//	> $2000        5 falling $1 per $50, floor 1
func PriceScore(price *int) float64 {
	if price == nil {
		return neutralScore
	}
	p := float64(*price)
	var v float64
	switch {
	case p <= 1000:
		v = 10
	case p <= 1500:
		v = 10 - (p-1000)/500
	case p <= 1850:
		v = 8 - (p-1500)/350
	case p <= 2000:
		v = 7 - 2*(p-1850)/150
	default:
		v = 5 - (p-2000)/50
	}
	return clamp(v, minScore, maxScore)
}

// TypeScore is the fixed score for a listing type.
func TypeScore(t models.ListingType) float64 {
	if v, ok := config.TypeScores[t]; ok {
		return v
	}
	return config.TypeScores[models.TypeOther]
}

// TimingScore rates how much of the target window [start, end] the
// availability range covers: full coverage 10, none 1, linear in between.
// An open end is treated as reaching the window bound; fully unknown dates
// get the neutral score.
func TimingScore(from, to *time.Time, start, end time.Time) float64 {
	if from == nil && to == nil {
		return neutralScore
	}
	start, end = dayOf(start), dayOf(end)
	windowDays := daysInclusive(start, end)
	if windowDays <= 0 {
		return neutralScore
	}

	availFrom, availTo := start, end
	if from != nil {
		availFrom = dayOf(*from)
	}
	if to != nil {
		availTo = dayOf(*to)
	}

	overlapStart := maxTime(availFrom, start)
	overlapEnd := minTime(availTo, end)
	overlap := daysInclusive(overlapStart, overlapEnd)
	if overlap <= 0 {
		return minScore
	}
	return clamp(1+9*float64(overlap)/float64(windowDays), minScore, maxScore)
}

// BonusScore adds fixed increments for desirable extras, capped at 10.
func BonusScore(l *models.Listing) float64 {
	v := 0.0
	if l.Furnished {
		v += bonusFurnished
	}
	if l.HasPhotos {
		v += bonusPhotos
	}
	if config.TrustedSources[l.Source] {
		v += bonusTrusted
	}
	if l.ContactInfoPresent() {
		v += bonusContact
	}
	if l.Address != "" {
		v += bonusAddress
	}
	return math.Min(v, maxScore)
}

func daysInclusive(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours()/24) + 1
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
