package services

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	minSanePrice = 100
	maxSanePrice = 15000
)

var (
	// kPriceRegexp captures shorthand like "1.8k"
	kPriceRegexp = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*k\b`)
	// numberRegexp captures the first plain number
	numberRegexp = regexp.MustCompile(`\d+(?:\.\d+)?`)
	// textPriceRegexps find price-looking fragments inside longer text, best first
	textPriceRegexps = []*regexp.Regexp{
		regexp.MustCompile(`\$[\d,]+(?:\.\d+)?\s*[kK]?\s*(?:/\s*(?:mo|month|week|wk|night|nite))?`),
		regexp.MustCompile(`[\d,]+(?:\.\d+)?\s*[kK]?\s*/\s*(?:mo|month|week|wk|night|nite)`),
		regexp.MustCompile(`[\d,]+(?:\.\d+)?\s*(?:per|a)\s*(?:month|week|night)`),
	}
)

// ParsePrice converts a raw price string into monthly rent in whole USD.
// It returns nil whenever the value cannot be read or falls outside a sane
// range; it never fails.
//
//	"$1,800/mo" -> 1800    "1.8k" -> 1800
//	"$450/week" -> 1948    "$65/night" -> 1950
func ParsePrice(raw string) *int {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return nil
	}
	text = strings.NewReplacer(",", "", "$", "", "usd", "").Replace(text)

	var amount float64
	if m := kPriceRegexp.FindStringSubmatch(text); len(m) == 2 {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil
		}
		amount = v * 1000
	} else {
		m := numberRegexp.FindString(text)
		if m == "" {
			return nil
		}
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return nil
		}
		amount = v
	}

	monthly := toMonthly(amount, text)
	if monthly < minSanePrice || monthly > maxSanePrice {
		return nil
	}
	return &monthly
}

// toMonthly converts an amount to a monthly figure using unit hints in text.
func toMonthly(amount float64, text string) int {
	switch {
	case containsAny(text, "/night", "per night", "/nite", "nightly", "a night"):
		return int(amount * 30)
	case containsAny(text, "/week", "per week", "/wk", "weekly", "a week"):
		return int(amount * 4.33)
	case containsAny(text, "/year", "per year", "/yr", "annually"):
		return int(amount / 12)
	case containsAny(text, "/mo", "per month", "a month", "monthly"):
		return int(amount)
	}

	monthly := int(amount)
	// bare small numbers are almost always nightly or weekly rates
	if monthly < 200 {
		return monthly * 30
	}
	if monthly < 600 {
		return int(float64(monthly) * 4.33)
	}
	return monthly
}

// ExtractPriceFromText finds and parses the first price-looking fragment in
// free text.
func ExtractPriceFromText(text string) *int {
	for _, re := range textPriceRegexps {
		for _, m := range re.FindAllString(text, 3) {
			if p := ParsePrice(m); p != nil {
				return p
			}
		}
	}
	return nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
