// Package fieldcodec converts between the composite values shown on the intake
// form (split phone number, split postal code, birth date pickers) and the
// canonical strings stored in a member record.
package fieldcodec

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DateLayout is the canonical birth date format (YYYY-MM-DD).
	DateLayout = "2006-01-02"

	separator = "-"

	birthYearSpan = 120

	// Bounds of free-text numbers; anything larger is treated as unparsable.
	maxNumberLength   = 32
	maxNumberExponent = 20
)

var (
	nonDigit    = regexp.MustCompile(`\D`)
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	phoneGroups  = []int{3, 4, 4}
	postalGroups = []int{3, 4}
)

// ToDigits strips every non-digit character. It never rejects input.
func ToDigits(value string) string {
	return nonDigit.ReplaceAllString(value, "")
}

// SplitPhoneNumber splits a canonical DDD-DDDD-DDDD phone number into its three
// display segments.
func SplitPhoneNumber(value string) [3]string {
	var parts [3]string
	copy(parts[:], splitGroups(value, phoneGroups))
	return parts
}

// MergePhoneNumber builds the canonical phone number from three display segments.
// All-empty segments collapse to "".
func MergePhoneNumber(first, second, third string) string {
	return mergeGroups([]string{first, second, third}, phoneGroups)
}

// SplitPostalCode splits a canonical DDD-DDDD postal code into its two display segments.
func SplitPostalCode(value string) [2]string {
	var parts [2]string
	copy(parts[:], splitGroups(value, postalGroups))
	return parts
}

// MergePostalCode builds the canonical postal code from two display segments.
// All-empty segments collapse to "".
func MergePostalCode(first, second string) string {
	return mergeGroups([]string{first, second}, postalGroups)
}

func splitGroups(value string, sizes []int) []string {
	digits := ToDigits(value)
	parts := make([]string, len(sizes))
	offset := 0
	for i, size := range sizes {
		if offset >= len(digits) {
			break
		}
		end := min(offset+size, len(digits))
		parts[i] = digits[offset:end]
		offset = end
	}
	return parts
}

func mergeGroups(segments []string, sizes []int) string {
	parts := make([]string, len(sizes))
	empty := true
	for i, size := range sizes {
		digits := ToDigits(segments[i])
		if len(digits) > size {
			digits = digits[:size]
		}
		if digits != "" {
			empty = false
		}
		parts[i] = digits
	}
	if empty {
		return ""
	}
	return strings.Join(parts, separator)
}

// IsDate reports whether value matches YYYY-MM-DD exactly and denotes a real calendar date.
func IsDate(value string) bool {
	_, ok := parseDate(value)
	return ok
}

func parseDate(value string) (time.Time, bool) {
	if !datePattern.MatchString(value) {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CalculateAge returns the age in whole years at now for a canonical birth date.
// The second return value is false when the birth date is malformed, not a real
// date, or lies in the future.
func CalculateAge(birthDate string, now time.Time) (int, bool) {
	birth, ok := parseDate(birthDate)
	if !ok {
		return 0, false
	}

	age := now.Year() - birth.Year()
	// Feb 29 rolls over to Mar 1 in non-leap years.
	birthday := time.Date(now.Year(), birth.Month(), birth.Day(), 0, 0, 0, 0, now.Location())
	if now.Before(birthday) {
		age--
	}
	if age < 0 {
		return 0, false
	}
	return age, true
}

// BirthDateParts holds the picker selection for a birth date. Empty strings mean
// "not selected".
type BirthDateParts struct {
	Year  string `json:"year"`
	Month string `json:"month"`
	Day   string `json:"day"`
}

// MergeBirthDate combines picker parts into a canonical birth date. A day past the
// end of the selected month is dropped from the returned parts. Until all three
// parts are selected the canonical value is "".
func MergeBirthDate(parts BirthDateParts) (string, BirthDateParts) {
	if parts.Day != "" {
		maxDay := 31
		if parts.Year != "" && parts.Month != "" {
			maxDay = DaysInMonth(atoi(parts.Year), atoi(parts.Month))
		}
		if day := atoi(parts.Day); day < 1 || day > maxDay {
			parts.Day = ""
		}
	}

	if parts.Year == "" || parts.Month == "" || parts.Day == "" {
		return "", parts
	}

	canonical := fmt.Sprintf("%s-%s-%s", parts.Year, parts.Month, parts.Day)
	if !IsDate(canonical) {
		return "", parts
	}
	return canonical, parts
}

// SplitBirthDate returns the picker parts for a canonical birth date, or empty
// parts when the value is not a valid date.
func SplitBirthDate(value string) BirthDateParts {
	if !IsDate(value) {
		return BirthDateParts{}
	}
	fields := strings.Split(value, separator)
	return BirthDateParts{Year: fields[0], Month: fields[1], Day: fields[2]}
}

// DaysInMonth returns the number of days of month in year.
func DaysInMonth(year, month int) int {
	if month < 1 || month > 12 {
		return 31
	}
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// BirthYearOptions lists selectable birth years, newest first.
func BirthYearOptions(now time.Time) []string {
	years := make([]string, 0, birthYearSpan)
	for i := 0; i < birthYearSpan; i++ {
		years = append(years, strconv.Itoa(now.Year()-i))
	}
	return years
}

// MonthOptions lists "01" through "12".
func MonthOptions() []string {
	return twoDigitRange(12)
}

// DayOptions lists selectable days. Without a year and month every day up to 31 is offered.
func DayOptions(year, month string) []string {
	if year == "" || month == "" {
		return twoDigitRange(31)
	}
	return twoDigitRange(DaysInMonth(atoi(year), atoi(month)))
}

func twoDigitRange(n int) []string {
	values := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		values = append(values, fmt.Sprintf("%02d", i))
	}
	return values
}

// ParseOptionalNumber converts free text into a number. Blank, unparsable or
// out-of-range text is absent.
func ParseOptionalNumber(text string) *decimal.Decimal {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || len(trimmed) > maxNumberLength {
		return nil
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil
	}
	if exp := d.Exponent(); exp > maxNumberExponent || exp < -maxNumberExponent {
		return nil
	}
	return &d
}

func atoi(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}
