// pkg/normalize/normalize.go
package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sheetops/sheet-ingress/pkg/model"
)

// Normalizer takes one raw cell value and the source row index and returns a
// field outcome. Normalizers are deterministic, side-effect free, and never
// panic or return errors; failures become rejected or warned outcomes.
type Normalizer func(raw string, rowIndex int) model.FieldOutcome

// timeNow is stubbed in tests that exercise date defaulting.
var timeNow = time.Now

var (
	nonAlnumPattern = regexp.MustCompile(`[^a-zA-Z0-9]`)
	nonDigitPattern = regexp.MustCompile(`\D`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	currencyPattern = regexp.MustCompile(`[$€£,\s]`)
)

// Identifier normalizes a primary identifier for the given prefix ("C" or
// "ORD"). Empty input is accepted as nil: the identifier is generated later
// by the sink. Anything else is stripped to alphanumerics, uppercased, and
// given the prefix when missing; the result must match ^PREFIX\d+$.
func Identifier(field, prefix string) Normalizer {
	valid := regexp.MustCompile(`^` + prefix + `\d+$`)
	return func(raw string, rowIndex int) model.FieldOutcome {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return model.Accepted(nil)
		}
		cleaned := strings.ToUpper(nonAlnumPattern.ReplaceAllString(trimmed, ""))
		if !strings.HasPrefix(cleaned, prefix) {
			cleaned = prefix + cleaned
		}
		if !valid.MatchString(cleaned) {
			return model.Rejected(raw, fmt.Sprintf("%s %q does not normalize to %s-prefixed numeric identifier", field, raw, prefix))
		}
		return model.Accepted(cleaned)
	}
}

// RequiredText normalizes a required free-text field (full name, product
// name): trim and collapse internal whitespace runs. Empty input is fatal.
func RequiredText(field string) Normalizer {
	return func(raw string, rowIndex int) model.FieldOutcome {
		cleaned := CollapseWhitespace(raw)
		if cleaned == "" {
			return model.Rejected(raw, fmt.Sprintf("%s is required but missing", field))
		}
		return model.Accepted(cleaned)
	}
}

// Email trims and lowercases, then requires a plausible address shape.
func Email(field string) Normalizer {
	return func(raw string, rowIndex int) model.FieldOutcome {
		cleaned := strings.ToLower(strings.TrimSpace(raw))
		if cleaned == "" {
			return model.Rejected(raw, fmt.Sprintf("%s is required but missing", field))
		}
		if !emailPattern.MatchString(cleaned) {
			return model.Rejected(raw, fmt.Sprintf("%s %q is not a valid email address", field, raw))
		}
		return model.Accepted(cleaned)
	}
}

// Phone strips everything but digits, drops a leading country-code 1 from an
// 11-digit number, and requires exactly 10 digits. Never fatal: an invalid
// digit count nulls the field with a warning.
func Phone(field string) Normalizer {
	return func(raw string, rowIndex int) model.FieldOutcome {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return model.Accepted(nil)
		}
		digits := nonDigitPattern.ReplaceAllString(trimmed, "")
		if len(digits) == 11 && digits[0] == '1' {
			digits = digits[1:]
		}
		if len(digits) != 10 {
			return model.Warned(nil, fmt.Sprintf("%s %q does not contain a 10-digit number, cleared", field, raw))
		}
		return model.Accepted(digits)
	}
}

// OptionalText normalizes an optional free-text field (city): trim and
// collapse whitespace, null when empty.
func OptionalText(field string) Normalizer {
	return func(raw string, rowIndex int) model.FieldOutcome {
		cleaned := CollapseWhitespace(raw)
		if cleaned == "" {
			return model.Accepted(nil)
		}
		return model.Accepted(cleaned)
	}
}

// State normalizes a US state to its two-letter code: a two-letter value is
// uppercased, a full state name is looked up, anything else nulls the field
// with a warning.
func State(field string) Normalizer {
	return func(raw string, rowIndex int) model.FieldOutcome {
		cleaned := CollapseWhitespace(raw)
		if cleaned == "" {
			return model.Accepted(nil)
		}
		if len(cleaned) == 2 && isLetters(cleaned) {
			code := strings.ToUpper(cleaned)
			if _, ok := stateNames[code]; ok {
				return model.Accepted(code)
			}
			return model.Warned(nil, fmt.Sprintf("%s %q is not a US state code, cleared", field, raw))
		}
		if code, ok := stateCodes[strings.ToLower(cleaned)]; ok {
			return model.Accepted(code)
		}
		return model.Warned(nil, fmt.Sprintf("%s %q is not a recognized US state, cleared", field, raw))
	}
}

// Date normalizes a date to YYYY-MM-DD. Accepted layouts: ISO YYYY-MM-DD,
// MM/DD/YYYY, YYYY/MM/DD, and dashed DD-MM-YYYY / MM-DD-YYYY with the
// tie-break "first segment > 12 means it is the day"; the ambiguous case
// where neither segment exceeds 12 is read month-first, matching the
// source system. Never fatal: missing, unparseable, and future-dated input
// all default to today's date with a warning.
func Date(field string) Normalizer {
	return func(raw string, rowIndex int) model.FieldOutcome {
		today := timeNow().Format("2006-01-02")
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return model.Warned(today, fmt.Sprintf("%s is missing, defaulted to today", field))
		}
		parsed, ok := parseDate(trimmed)
		if !ok {
			return model.Warned(today, fmt.Sprintf("%s %q is not a recognized date, defaulted to today", field, raw))
		}
		if parsed > today {
			return model.Warned(today, fmt.Sprintf("%s %q is in the future, defaulted to today", field, raw))
		}
		return model.Accepted(parsed)
	}
}

// Status maps a status value onto a fixed set of canonical title-case
// variants. Empty input takes the default silently; an unrecognized value
// takes the default with a warning.
func Status(field, defaultValue string, allowed []string) Normalizer {
	canonical := make(map[string]string, len(allowed))
	for _, v := range allowed {
		canonical[strings.ToLower(v)] = v
	}
	return func(raw string, rowIndex int) model.FieldOutcome {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return model.Accepted(defaultValue)
		}
		if v, ok := canonical[strings.ToLower(trimmed)]; ok {
			return model.Accepted(v)
		}
		return model.Warned(defaultValue, fmt.Sprintf("%s %q is not one of %s, defaulted to %s",
			field, raw, strings.Join(allowed, "/"), defaultValue))
	}
}

// Quantity parses a required positive integer.
func Quantity(field string) Normalizer {
	return func(raw string, rowIndex int) model.FieldOutcome {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return model.Rejected(raw, fmt.Sprintf("%s is required but missing", field))
		}
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return model.Rejected(raw, fmt.Sprintf("%s %q is not an integer", field, raw))
		}
		if n <= 0 {
			return model.Rejected(raw, fmt.Sprintf("%s %d must be positive", field, n))
		}
		return model.Accepted(n)
	}
}

// UnitPrice strips currency symbols, commas and whitespace, parses a
// non-negative decimal, and rounds to two places.
func UnitPrice(field string) Normalizer {
	return func(raw string, rowIndex int) model.FieldOutcome {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return model.Rejected(raw, fmt.Sprintf("%s is required but missing", field))
		}
		cleaned := currencyPattern.ReplaceAllString(trimmed, "")
		v, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return model.Rejected(raw, fmt.Sprintf("%s %q is not a number", field, raw))
		}
		if v < 0 {
			return model.Rejected(raw, fmt.Sprintf("%s %q must not be negative", field, raw))
		}
		return model.Accepted(math.Round(v*100) / 100)
	}
}

// Reference normalizes a required foreign-key identifier with the same
// cleanup as Identifier, then checks it against the known-identifier set
// supplied by the caller. An unknown reference is fatal; the database
// constraint remains the last line of defense.
func Reference(field, prefix string, known func(string) bool) Normalizer {
	valid := regexp.MustCompile(`^` + prefix + `\d+$`)
	return func(raw string, rowIndex int) model.FieldOutcome {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return model.Rejected(raw, fmt.Sprintf("%s is required but missing", field))
		}
		cleaned := strings.ToUpper(nonAlnumPattern.ReplaceAllString(trimmed, ""))
		if !strings.HasPrefix(cleaned, prefix) {
			cleaned = prefix + cleaned
		}
		if !valid.MatchString(cleaned) {
			return model.Rejected(raw, fmt.Sprintf("%s %q does not normalize to %s-prefixed numeric identifier", field, raw, prefix))
		}
		if known != nil && !known(cleaned) {
			return model.Rejected(cleaned, fmt.Sprintf("%s %s does not reference a known record", field, cleaned))
		}
		return model.Accepted(cleaned)
	}
}

// CollapseWhitespace trims a string and collapses internal whitespace runs
// to single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isLetters(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// parseDate tries the fixed set of accepted layouts and returns the date in
// YYYY-MM-DD form.
func parseDate(s string) (string, bool) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("2006-01-02"), true
	}

	if parts := strings.Split(s, "/"); len(parts) == 3 {
		if len(parts[0]) == 4 {
			return assembleDate(parts[0], parts[1], parts[2])
		}
		return assembleDate(parts[2], parts[0], parts[1])
	}

	if parts := strings.Split(s, "-"); len(parts) == 3 && len(parts[2]) == 4 {
		first, err1 := strconv.Atoi(parts[0])
		_, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return "", false
		}
		if first > 12 {
			// First segment cannot be a month, so it is the day.
			return assembleDate(parts[2], parts[1], parts[0])
		}
		return assembleDate(parts[2], parts[0], parts[1])
	}

	return "", false
}

// assembleDate validates year/month/day strings by round-tripping them
// through time.Date, which catches overflow like month 13 or February 30.
func assembleDate(year, month, day string) (string, bool) {
	y, err1 := strconv.Atoi(year)
	m, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return "", false
	}
	if y < 1000 || m < 1 || m > 12 || d < 1 || d > 31 {
		return "", false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return "", false
	}
	return t.Format("2006-01-02"), true
}
