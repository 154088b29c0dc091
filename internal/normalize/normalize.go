// Package normalize turns the noisy free-text fields of fleet exports into
// typed identifiers: vehicle numbers, card numbers, dates and quantities.
package normalize

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// letter, digits, letters, digits: "т497ес797" on a licence plate
	plateMatcher = regexp.MustCompile(`(?i)\p{L}(\d+)\p{L}+\d+`)
	dateMatcher  = regexp.MustCompile(`\d{1,2}\.\d{1,2}\.\d{4}`)
	clockMatcher = regexp.MustCompile(`(\d{1,2}):(\d{2})(?::(\d{2}))?`)
	digitRun     = regexp.MustCompile(`\d+`)
	cardRun      = regexp.MustCompile(`\d{4}`)
)

// ErrEmpty is returned by Quantity for blank input.
var ErrEmpty = errors.New("empty value")

// VehicleID extracts the vehicle number from a grouping label.
//
// The plate pattern wins when present and yields the digits after its first
// letter. Otherwise date substrings are dropped and the last remaining digit
// run is used, ignoring runs of exactly four digits (years) and single digits.
func VehicleID(label string) (string, bool) {
	if m := plateMatcher.FindStringSubmatch(label); m != nil {
		return m[1], true
	}
	rest := dateMatcher.ReplaceAllString(label, " ")
	var last string
	for _, run := range digitRun.FindAllString(rest, -1) {
		if len(run) == 4 || len(run) <= 1 {
			continue
		}
		last = run
	}
	return last, last != ""
}

// DateLabel returns the first D.M.YYYY date in label as midnight UTC.
func DateLabel(label string) (time.Time, bool) {
	s := dateMatcher.FindString(label)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2.1.2006", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CardID returns the last run of four consecutive digits in text.
func CardID(text string) (string, bool) {
	runs := cardRun.FindAllString(text, -1)
	if len(runs) == 0 {
		return "", false
	}
	return runs[len(runs)-1], true
}

// ClockTime finds the first HH:MM[:SS] in s and returns it as an offset
// from midnight.
func ClockTime(s string) (time.Duration, bool) {
	m := clockMatcher.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	sec := 0
	if m[3] != "" {
		sec, _ = strconv.Atoi(m[3])
	}
	if h > 23 || mi > 59 || sec > 59 {
		return 0, false
	}
	return time.Duration(h)*time.Hour + time.Duration(mi)*time.Minute + time.Duration(sec)*time.Second, true
}

// Fold lower-cases s, strips combining marks and collapses whitespace.
func Fold(s string) string {
	s = strings.ToLower(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, _ = transform.String(t, s)
	return strings.Join(strings.Fields(s), " ")
}

// IsFuelProduct reports whether product mentions any of the keywords,
// ignoring case and diacritics.
func IsFuelProduct(product string, keywords []string) bool {
	p := Fold(product)
	if p == "" {
		return false
	}
	for _, k := range keywords {
		if k = Fold(k); k != "" && strings.Contains(p, k) {
			return true
		}
	}
	return false
}

// Quantity parses a decimal that may use a comma separator ("48,5"),
// thousands separators and non-breaking spaces.
func Quantity(s string) (decimal.Decimal, error) {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '"' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero, ErrEmpty
	}
	// both separators: the last one is the decimal point
	comma, dot := strings.LastIndexByte(s, ','), strings.LastIndexByte(s, '.')
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", ".")
	}
	return decimal.NewFromString(s)
}
