package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var monthNames = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

var (
	ordinalRegexp  = regexp.MustCompile(`(\d+)(?:st|nd|rd|th)\b`)
	isoDateRegexp  = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})`)
	usDateRegexp   = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?`)
	nameDayRegexp  = regexp.MustCompile(`^([a-z]+)\.?\s+(\d{1,2})\b`)
	dayNameRegexp  = regexp.MustCompile(`^(\d{1,2})\s+(?:of\s+)?([a-z]+)`)
	dayRangeRegexp = regexp.MustCompile(
		`([a-z]+\.?\s+\d{1,2}|\d{1,2}/\d{1,2}(?:/\d{2,4})?|\d{4}-\d{1,2}-\d{1,2})` +
			`\s*(?:-|–|to|through|thru|until|til)\s*` +
			`([a-z]+\.?\s+\d{1,2}|\d{1,2}/\d{1,2}(?:/\d{2,4})?|\d{4}-\d{1,2}-\d{1,2})`)
	monthRangeRegexp = regexp.MustCompile(`([a-z]+)\s*(?:-|–|to|through|thru|until|til)\s*([a-z]+)`)
)

// ParseDate reads a single date. Dates without a year get defaultYear.
// It returns nil rather than an error for anything it cannot read.
func ParseDate(raw string, defaultYear int) *time.Time {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" || text == "null" || text == "none" {
		return nil
	}
	text = ordinalRegexp.ReplaceAllString(text, "$1")

	if m := isoDateRegexp.FindStringSubmatch(text); m != nil {
		return makeDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}

	if m := usDateRegexp.FindStringSubmatch(text); m != nil {
		year := defaultYear
		if m[3] != "" {
			year = atoi(m[3])
			if year < 100 {
				year += 2000
			}
		}
		return makeDate(year, atoi(m[1]), atoi(m[2]))
	}

	if m := nameDayRegexp.FindStringSubmatch(text); m != nil {
		if month, ok := monthNames[m[1]]; ok {
			return makeDate(defaultYear, int(month), atoi(m[2]))
		}
	}

	if m := dayNameRegexp.FindStringSubmatch(text); m != nil {
		if month, ok := monthNames[m[2]]; ok {
			return makeDate(defaultYear, int(month), atoi(m[1]))
		}
	}

	if t, err := dateparse.ParseIn(raw, time.UTC); err == nil {
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return &d
	}
	return nil
}

// ExtractDateRange looks for an availability range in free text, e.g.
// "July 1 - August 31", "available 7/1 through 8/31" or "July-Sept".
// Month-only ranges cover the first day of the first month through the last
// day of the second.
func ExtractDateRange(text string, defaultYear int) (from, to *time.Time) {
	clean := strings.ToLower(strings.TrimSpace(text))
	if clean == "" {
		return nil, nil
	}
	clean = ordinalRegexp.ReplaceAllString(clean, "$1")

	for _, m := range dayRangeRegexp.FindAllStringSubmatch(clean, -1) {
		start := ParseDate(m[1], defaultYear)
		end := ParseDate(m[2], defaultYear)
		if start != nil || end != nil {
			if start != nil && end != nil && end.Before(*start) {
				next := end.AddDate(1, 0, 0)
				end = &next
			}
			return start, end
		}
	}

	for _, m := range monthRangeRegexp.FindAllStringSubmatch(clean, -1) {
		startMonth, ok1 := monthNames[m[1]]
		endMonth, ok2 := monthNames[m[2]]
		if !ok1 || !ok2 {
			continue
		}
		endYear := defaultYear
		if endMonth < startMonth {
			endYear++
		}
		start := time.Date(defaultYear, startMonth, 1, 0, 0, 0, 0, time.UTC)
		// day 0 of the following month is the last day of endMonth
		end := time.Date(endYear, endMonth+1, 0, 0, 0, 0, 0, time.UTC)
		return &start, &end
	}

	return nil, nil
}

func makeDate(year, month, day int) *time.Time {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// reject overflow such as Feb 30 rolling into March
	if d.Day() != day {
		return nil
	}
	return &d
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
