package pipeline

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// ErrMissingDate is returned for records without any date text
var ErrMissingDate = errors.New("missing event date")

// Local is the zone naive source times are interpreted in
var Local = mustLoadLocation("Europe/Stockholm")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("failed to load location %s: %v", name, err))
	}
	return loc
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2 January 2006 15:04",
	"2 January 2006",
	"January 2, 2006 15:04",
	"January 2, 2006",
}

var swedishMonths = map[string]time.Month{
	"januari": time.January, "jan": time.January,
	"februari": time.February, "feb": time.February,
	"mars": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"maj": time.May,
	"juni": time.June, "jun": time.June,
	"juli": time.July, "jul": time.July,
	"augusti": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"oktober": time.October, "okt": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// "lör 7 juni 2025 kl 19.00", "7 juni 2025", "7 jun. 2025 19:30"
var swedishDate = regexp.MustCompile(`^(?:\p{L}+\.?,?\s+)?(\d{1,2})\s+(\p{L}+)\.?\s+(\d{4})(?:,?\s*(?:kl\.?)?\s*(\d{1,2})[:.](\d{2}))?$`)

// ParseEventDate parses the date formats seen across sources and returns UTC.
// Zone-less values are read as Local time.
func ParseEventDate(text string) (time.Time, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, ErrMissingDate
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05Z0700"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	if t, ok := parseEpoch(s); ok {
		return t, nil
	}

	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, Local); err == nil {
			return t.UTC(), nil
		}
	}

	if m := swedishDate.FindStringSubmatch(strings.ToLower(s)); m != nil {
		month, ok := swedishMonths[m[2]]
		if ok {
			day, _ := strconv.Atoi(m[1])
			year, _ := strconv.Atoi(m[3])
			hour, minute := 0, 0
			if m[4] != "" {
				hour, _ = strconv.Atoi(m[4])
				minute, _ = strconv.Atoi(m[5])
			}
			if day >= 1 && day <= 31 && hour < 24 && minute < 60 {
				t := time.Date(year, month, day, hour, minute, 0, 0, Local)
				if t.Day() == day {
					return t.UTC(), nil
				}
			}
		}
	}

	return time.Time{}, fmt.Errorf("unsupported date format: %q", s)
}

// parseEpoch accepts epoch seconds (10 digits) or milliseconds (13 digits)
func parseEpoch(s string) (time.Time, bool) {
	if len(s) != 10 && len(s) != 13 {
		return time.Time{}, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return time.Time{}, false
	}
	if len(s) == 13 {
		return time.UnixMilli(n).UTC(), true
	}
	return time.Unix(n, 0).UTC(), true
}
