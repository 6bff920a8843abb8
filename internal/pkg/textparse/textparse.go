// Package textparse parses the price and date formats printed by Danish travel sites.
package textparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var priceRe = regexp.MustCompile(`\d[\d\s.,\x{00a0}]*`)

// ParsePrice extracts the first amount from text like "1.299,-", "kr. 2.495", "3 495 DKK"
// or "1.299,50". Dots and spaces are thousands separators; a comma followed by one or two
// digits at the end is the decimal mark. Returns false when no digits are found.
func ParsePrice(s string) (float64, bool) {
	m := priceRe.FindString(s)
	if m == "" {
		return 0, false
	}
	m = strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == ',':
			return r
		default:
			return -1
		}
	}, m)

	intPart, frac := m, ""
	if i := strings.LastIndexByte(m, ','); i >= 0 {
		intPart, frac = m[:i], m[i+1:]
		if len(frac) == 0 || len(frac) > 2 {
			// "1,299" style thousands or a trailing ",-"
			intPart, frac = m[:i]+frac, ""
		}
	}
	intPart = strings.ReplaceAll(intPart, ",", "")
	if intPart == "" {
		return 0, false
	}
	num := intPart
	if frac != "" {
		num += "." + frac
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var dayFirstLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02-01-2006 15:04",
	"2-1-2006 15:04",
	"02-01-2006",
	"2-1-2006",
	"02/01/2006 15:04",
	"2/1/2006 15:04",
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
	"2.1.2006",
	"02-01-06",
	"02/01/06",
}

// ParseDayFirst parses numeric dates the way Danish feeds print them (day before month).
// ISO dates are accepted too. The result is truncated to the calendar day in UTC.
func ParseDayFirst(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), true
		}
	}
	return time.Time{}, false
}

// Day drops the clock part of t.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var danishMonths = map[string]time.Month{
	"januar": time.January, "jan": time.January,
	"februar": time.February, "feb": time.February,
	"marts": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"maj": time.May,
	"juni": time.June, "jun": time.June,
	"juli": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"oktober": time.October, "okt": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var (
	danishDateRe = regexp.MustCompile(`(?i)(\d{1,2})\.?\s+([a-zæøå]+)\.?(?:\s+(\d{4}))?`)
	stayRe       = regexp.MustCompile(`(?i)fra\s+(.+?)\s+til\s+(.+?)(?:$|<|\n)`)
)

// ParseDanishDate parses "12. marts 2026", "12 mar" and similar. When the text carries
// no year, defaultYear is used.
func ParseDanishDate(s string, defaultYear int) (time.Time, bool) {
	m := danishDateRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(m[1])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}
	month, ok := danishMonths[strings.ToLower(m[2])]
	if !ok {
		return time.Time{}, false
	}
	year := defaultYear
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		// 31. februar and friends
		return time.Time{}, false
	}
	return t, true
}

// ParseStay reads "Hotelophold fra 13. marts til 15. marts 2026" and returns the check-in
// date and the number of nights. A check-out before check-in rolls into the next year.
func ParseStay(s string, defaultYear int) (checkIn time.Time, nights int, ok bool) {
	m := stayRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, 0, false
	}
	// the year usually appears only after "til"
	year := defaultYear
	if out, ok := ParseDanishDate(m[2], defaultYear); ok {
		year = out.Year()
	}
	in, okIn := ParseDanishDate(m[1], year)
	out, okOut := ParseDanishDate(m[2], year)
	if !okIn || !okOut {
		return time.Time{}, 0, false
	}
	if out.Before(in) {
		if danishDateHasYear(m[2]) && !danishDateHasYear(m[1]) {
			in = in.AddDate(-1, 0, 0)
		} else {
			out = out.AddDate(1, 0, 0)
		}
	}
	return in, int(out.Sub(in).Hours() / 24), true
}

func danishDateHasYear(s string) bool {
	m := danishDateRe.FindStringSubmatch(s)
	return m != nil && m[3] != ""
}

var intRe = regexp.MustCompile(`\d+`)

// FirstInt returns the first run of digits in s, e.g. 3 for "3 nætter". Zero when none.
func FirstInt(s string) int {
	n, err := strconv.Atoi(intRe.FindString(s))
	if err != nil {
		return 0
	}
	return n
}
