package core

// convert.go provides the field-level conversions of the person feed.
//
// These functions handle the quirks of the source data:
//   - Numeric fields that may carry currency symbols or thousands separators
//   - Birth dates packed as DDMMYYYY digits with the leading zero dropped
//   - Salaries that need cent rounding, bucketing and display formatting
//
// Everything here is pure: no clock, no I/O. The reference date for ages is
// always passed in by the caller.

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// naMarkers are field values read as null, matching common export tools.
var naMarkers = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"n/a":  true,
	"NULL": true,
	"null": true,
	"NaN":  true,
	"nan":  true,
	"None": true,
	"<NA>": true,
	"#N/A": true,
}

// BirthDateLayout is the DD/MM/YYYY rendering of birth dates.
const BirthDateLayout = "02/01/2006"

// birthDateWidth is the zero-padded width of a packed birth date.
const birthDateWidth = 8

// DaysPerYear is the average year length used for ages.
const DaysPerYear = 365.25

// Salary bucket upper bounds (inclusive).
const (
	BucketALimit = 50000.0
	BucketBLimit = 100000.0
)

// currencyPrinter renders numbers with English grouping ("75,000.00").
var currencyPrinter = message.NewPrinter(language.English)

// IsNA reports whether a raw field should be treated as absent.
func IsNA(s string) bool {
	return naMarkers[strings.TrimSpace(s)]
}

// ToNumber parses a numeric field.
// Handles currency symbols, thousands separators, and accounting format (parentheses for negative).
func ToNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// ParseValue type-normalizes a raw field according to its column type.
// Absent fields are null but keep their source marker; numeric columns fall
// back to Text when unparseable.
func ParseValue(raw string, ft FieldType) Value {
	if IsNA(raw) {
		return Value{Kind: KindNull, Raw: raw}
	}
	if ft == FieldNumeric {
		if n, ok := ToNumber(raw); ok {
			return Number(n, raw)
		}
	}
	return Text(raw)
}

// BirthDateDigits returns the zero-padded 8-digit form of a packed birth date.
// It checks shape only; ParseBirthDate also checks the calendar.
func BirthDateDigits(v Value) (string, error) {
	var s string
	switch v.Kind {
	case KindNumber:
		if v.Num < 0 || v.Num != math.Trunc(v.Num) || v.Num >= 1e8 {
			return "", fmt.Errorf("%w: %q is not an 8-digit date", ErrDateFormat, v.Raw)
		}
		s = strconv.FormatInt(int64(v.Num), 10)
	case KindText:
		s = strings.TrimSpace(v.Raw)
		if s == "" || strings.TrimLeft(s, "0123456789") != "" {
			return "", fmt.Errorf("%w: %q is not numeric", ErrDateFormat, v.Raw)
		}
	default:
		return "", fmt.Errorf("%w: value is null", ErrDateFormat)
	}

	if len(s) > birthDateWidth {
		return "", fmt.Errorf("%w: %q has more than %d digits", ErrDateFormat, v.Raw, birthDateWidth)
	}
	return strings.Repeat("0", birthDateWidth-len(s)) + s, nil
}

// ParseBirthDate reconstructs a calendar date from the packed DDMMYYYY field.
//
// The value is left-padded with zeros to 8 digits, then sliced as
// day [0:2), month [2:4), year [4:8). The result must be a real date:
// day 31 in a 30-day month, Feb 30, month 13 or year 0000 are rejected.
func ParseBirthDate(v Value) (time.Time, error) {
	s, err := BirthDateDigits(v)
	if err != nil {
		return time.Time{}, err
	}

	day, month, year := s[0:2], s[2:4], s[4:8]
	if year == "0000" {
		return time.Time{}, fmt.Errorf("%w: year 0000 in %q", ErrDateFormat, s)
	}

	t, err := time.Parse(BirthDateLayout, day+"/"+month+"/"+year)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s/%s/%s is not a calendar date", ErrDateFormat, day, month, year)
	}
	return t, nil
}

// FormatBirthDate renders a date as DD/MM/YYYY.
func FormatBirthDate(t time.Time) string {
	return t.Format(BirthDateLayout)
}

// daysBetween returns the whole days from a to b, both taken at UTC midnight.
// Uses Unix seconds so years far from the present do not overflow time.Duration.
func daysBetween(a, b time.Time) int64 {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return (b.Unix() - a.Unix()) / 86400
}

// RoundAge rounds a fractional age half-to-even, so 2.5 -> 2 and 3.5 -> 4.
func RoundAge(years float64) int {
	return int(math.RoundToEven(years))
}

// AgeAt returns the age in years on the reference date.
// Birth dates after the reference yield negative ages.
func AgeAt(birth, reference time.Time) int {
	return RoundAge(float64(daysBetween(birth, reference)) / DaysPerYear)
}

// RoundCents rounds to 2 decimal places, half-to-even on the cent digit.
func RoundCents(x float64) float64 {
	return math.RoundToEven(x*100) / 100
}

// SalaryBucket bins a rounded salary into A (0,50000], B (50000,100000] or C (100000,inf).
// Returns false for salaries at or below zero, which fall in no bucket.
func SalaryBucket(salary float64) (string, bool) {
	switch {
	case salary <= 0 || math.IsNaN(salary):
		return "", false
	case salary <= BucketALimit:
		return "A", true
	case salary <= BucketBLimit:
		return "B", true
	default:
		return "C", true
	}
}

// FormatCurrency renders a salary as "$75,000.00".
// The amount is rounded to cents before formatting.
func FormatCurrency(x float64) string {
	x = RoundCents(x)
	if x < 0 {
		return "-$" + currencyPrinter.Sprintf("%.2f", -x)
	}
	return "$" + currencyPrinter.Sprintf("%.2f", x)
}

// ComposeName trims both parts and joins them with a single space.
func ComposeName(first, last string) string {
	return strings.TrimSpace(first) + " " + strings.TrimSpace(last)
}
