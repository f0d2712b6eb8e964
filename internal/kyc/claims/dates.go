package claims

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"onekyc/internal/kyc/models"
)

// documentDateLayouts is tried in order; day-first wins over month-first for
// ambiguous numeric dates.
var documentDateLayouts = []string{
	"2006-01-02",
	"2/1/2006",
	"2-1-2006",
	"1/2/2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

var looseDate = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})`)

// ParseClaimDate accepts only YYYY-MM-DD.
func ParseClaimDate(s string) (time.Time, bool) {
	t, err := time.Parse(models.ClaimDateLayout, strings.TrimSpace(s))
	return t, err == nil
}

// ParseDocumentDate reads a date as printed on a document.
func ParseDocumentDate(s string) (time.Time, bool) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range documentDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return scanLooseDate(s)
}

// scanLooseDate finds the first D/M/Y or D-M-Y group in free text.
func scanLooseDate(s string) (time.Time, bool) {
	m := looseDate.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		year = pivotYear(year)
	} else if len(m[3]) == 3 {
		return time.Time{}, false
	}
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31/02 into March; reject it
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

// pivotYear maps two-digit years: below 50 is 20xx, otherwise 19xx.
func pivotYear(yy int) int {
	if yy < 50 {
		return 2000 + yy
	}
	return 1900 + yy
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
