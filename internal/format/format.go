// =============================================================================
// NF-e to DANFE Converter - Field Formatters
// =============================================================================
//
// This package holds the pure display formatters used when building the
// DANFE placeholder map. Every formatter follows the Brazilian convention:
// "." as thousands separator and "," as decimal separator.
//
// FAILURE POLICY:
//   Formatters never return an error. When the input cannot be parsed the
//   formatter either returns the raw input unchanged (currency, dates) or a
//   fixed zero value (percentage, quantity).
//
// =============================================================================

package format

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LAYOUTS
// =============================================================================

const (
	// DateLayout renders "dd/mm/yyyy".
	DateLayout = "02/01/2006"

	// DateTimeLayout renders "dd/mm/yyyy HH:MM:SS".
	DateTimeLayout = "02/01/2006 15:04:05"

	// TimeLayout renders "HH:MM:SS".
	TimeLayout = "15:04:05"
)

// isoLayouts are the input shapes accepted after the UTC offset is removed.
// Fractional seconds are accepted implicitly by time.Parse.
var isoLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// offsetSuffix matches a trailing "+hh:mm", "-hh:mm" or "Z".
var offsetSuffix = regexp.MustCompile(`(?:[+-]\d{2}:\d{2}|Z)$`)

// =============================================================================
// NUMERIC FORMATTERS
// =============================================================================

// Currency formats a dot-decimal string as "R$ 1.234,50".
// Non-numeric input (including the empty string) is returned unchanged.
func Currency(raw string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	return Money(d)
}

// Money formats an already parsed amount as Brazilian currency.
func Money(d decimal.Decimal) string {
	return "R$ " + grouped(d, 2)
}

// Percent formats a rate with one fraction digit and a "%" suffix.
// Absent or unparsable input yields "0%".
func Percent(raw string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return "0%"
	}
	return grouped(d, 1) + "%"
}

// Quantity formats a quantity with four fraction digits.
// Absent or unparsable input yields "0,0000".
func Quantity(raw string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return "0,0000"
	}
	return grouped(d, 4)
}

// grouped renders d with the given number of fraction digits.
func grouped(d decimal.Decimal, places int32) string {
	fixed := d.StringFixed(places)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}

	intPart, fracPart := fixed, ""
	if i := strings.IndexByte(fixed, '.'); i >= 0 {
		intPart, fracPart = fixed[:i], fixed[i+1:]
	}

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if fracPart != "" {
		b.WriteByte(',')
		b.WriteString(fracPart)
	}
	return b.String()
}

// =============================================================================
// DATE / TIME FORMATTERS
// =============================================================================

// DateTime parses an ISO-8601 timestamp, ignoring any trailing UTC offset,
// and renders it with layout. The raw input is returned when parsing fails.
func DateTime(raw, layout string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	t, ok := parseISO(raw)
	if !ok {
		return raw
	}
	return t.Format(layout)
}

// Date renders raw as "dd/mm/yyyy".
func Date(raw string) string {
	return DateTime(raw, DateLayout)
}

// Time renders raw as "HH:MM:SS".
func Time(raw string) string {
	return DateTime(raw, TimeLayout)
}

func parseISO(raw string) (time.Time, bool) {
	local := offsetSuffix.ReplaceAllString(raw, "")
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// =============================================================================
// DOCUMENT FORMATTERS
// =============================================================================

// Digits keeps only the ASCII digits of s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Document formats a CNPJ (14 digits) or CPF (11 digits).
// Any other length returns the digit-stripped input.
func Document(raw string) string {
	d := Digits(raw)
	switch len(d) {
	case 14:
		return d[0:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:14]
	case 11:
		return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11]
	default:
		return d
	}
}

// PostalCode formats an 8-digit CEP as "12345-678".
func PostalCode(raw string) string {
	d := Digits(raw)
	if len(d) != 8 {
		return d
	}
	return d[:5] + "-" + d[5:]
}
