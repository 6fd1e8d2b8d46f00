// silver/transforms.go

// Package silver standardizes the bronze captures: consistent column names,
// derived financial years and numeric estimates, resolved entity codes, and
// per-column type discipline. Every silver table is a full rebuild of its
// bronze source; the tier keeps no incremental state.
package silver

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	fieldPrefixPattern = regexp.MustCompile(`^[pc]_`)
	headerSanitizer    = regexp.MustCompile(`[^a-z0-9]+`)
	numberPattern      = regexp.MustCompile(`(\d+\.?\d*)`)
)

// StandardiseHeader normalizes a column name: trim, lowercase, strip the
// leading p_/c_ field-prefix token, collapse non-alphanumeric runs to "_".
// Idempotent, so headers already standardized by bronze pass through.
func StandardiseHeader(s string) string {
	c := strings.ToLower(strings.TrimSpace(s))
	c = fieldPrefixPattern.ReplaceAllString(c, "")
	c = headerSanitizer.ReplaceAllString(c, "_")
	return strings.Trim(c, "_")
}

// FinancialYear formats the April-start fiscal year containing t as
// "YYYY/YY": May 2024 is "2024/25", February 2024 is "2023/24".
func FinancialYear(t time.Time) string {
	start := t.Year()
	if t.Month() < time.April {
		start--
	}
	return strconv.Itoa(start) + "/" + twoDigit((start+1)%100)
}

func twoDigit(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// Date layouts seen across the source sheets. Tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02/01/2006",
	"02/01/2006 15:04",
	"2006/01/02",
	"01-02-06",
}

// ParseDate parses a free-text date from a source sheet. Unparseable dates
// are not errors; rows simply carry no financial year.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Placeholder tokens the sources use for "no value" in range-text columns.
var midpointPlaceholders = map[string]bool{
	"": true, ".": true, "nan": true, "none": true, "not known": true,
}

// Midpoint reduces a free-text range to a single point estimate:
// "3 to 7" gives 5 (mean of the numbers found), "more than 5" gives 5
// (lower bound), "up to 10" gives 5 (half the cap), placeholders give no
// value.
func Midpoint(text string) (float64, bool) {
	trimmed := strings.TrimSpace(text)
	if midpointPlaceholders[strings.ToLower(trimmed)] {
		return 0, false
	}

	lower := strings.ToLower(trimmed)
	matches := numberPattern.FindAllString(lower, -1)
	if len(matches) == 0 {
		return 0, false
	}

	numbers := make([]float64, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}
	if len(numbers) == 0 {
		return 0, false
	}

	for _, keyword := range []string{"more", "over", "+", "plus"} {
		if strings.Contains(lower, keyword) {
			return numbers[0], true
		}
	}
	if strings.Contains(lower, "up to") {
		return numbers[0] / 2, true
	}

	sum := 0.0
	for _, n := range numbers {
		sum += n
	}
	return sum / float64(len(numbers)), true
}

// midpointTarget binds a semantic column marker to the suffix of its
// derived estimate column. Ordered so derivation is deterministic.
var midpointTargets = []struct {
	Marker string
	Suffix string
}{
	{"vehicles", "_midpoint"},
	{"personnel", "_midpoint"},
	{"response_time", "_midpoint"},
	{"time_at_scene", "_midpoint"},
	{"evacuations", "_count_est"},
	{"victim_age", "_est"},
	{"damage", "_sqm_est"},
}

var midpointSuffixes = []string{"_midpoint", "_est", "_count_est", "_sqm_est"}

// geographic key fragments that keep a *_code column textual.
var geoCodeMarkers = []string{"e_code", "frs", "lad", "lsoa", "msoa", "admin"}

// IsNumericColumn decides, by naming convention alone, whether a silver
// column is a measure (numeric, invalid→0) or a dimension/text column.
func IsNumericColumn(col string) bool {
	if strings.Contains(col, "_code") {
		geographic := false
		for _, marker := range geoCodeMarkers {
			if strings.Contains(col, marker) {
				geographic = true
				break
			}
		}
		if !geographic {
			return true
		}
	}
	for _, suffix := range midpointSuffixes {
		if strings.HasSuffix(col, suffix) {
			return true
		}
	}
	return col == "drill_through_id" || col == "daily_incidents"
}

// null-like tokens normalized to an absent value during text coercion.
var nullTokens = map[string]bool{
	"": true, "nan": true, "none": true, "null": true, "<nil>": true,
}

// IsNullToken reports whether a trimmed string should be treated as absent.
func IsNullToken(s string) bool {
	return nullTokens[strings.ToLower(strings.TrimSpace(s))]
}
