package convert

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	yearOnly   = regexp.MustCompile(`^\d{1,4}$`)
	dayMonthYr = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{1,4})$`)
)

// DateParts is a parsed date cell. Month is zero-based ("2" is March) and
// is empty, as is Day, when only a year was given.
type DateParts struct {
	Year  string
	Month string
	Day   string
	Date  time.Time
}

// ParseDate accepts "YYYY" or "DD-MM-YYYY". A bare year resolves to
// January 1 of that year. Calendar-invalid dates are rejected.
func ParseDate(text string) (DateParts, bool) {
	if yearOnly.MatchString(text) {
		year, _ := strconv.Atoi(text)
		return DateParts{
			Year: fmt.Sprintf("%04d", year),
			Date: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		}, true
	}

	m := dayMonthYr.FindStringSubmatch(text)
	if m == nil {
		return DateParts{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 {
		return DateParts{}, false
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow, e.g. 31-02 becomes early March.
	if date.Day() != day || date.Month() != time.Month(month) {
		return DateParts{}, false
	}
	return DateParts{
		Year:  fmt.Sprintf("%04d", year),
		Month: strconv.Itoa(month - 1),
		Day:   strconv.Itoa(day),
		Date:  date,
	}, true
}
