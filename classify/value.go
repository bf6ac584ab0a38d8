// Package classify implements S5: per-column type inference over the
// closed set {numeric, money, date, alpha, varchar, code, mixed, unknown}.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package classify

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// category is the per-value classification result, finer-grained than
// core.ColumnType: it distinguishes clean matches from "with violations"
// so the per-column aggregator can pick money-vs-numeric and tally
// errors per spec §4.5.
type category int

const (
	catNone category = iota
	catDate
	catMoney
	catMoneyViolation
	catNumeric
	catNumericViolation
	catAlpha
)

var (
	moneyExact       = regexp.MustCompile(`^[0-9]+\.[0-9]{2}$`)
	numericExact     = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
	alphaExact       = regexp.MustCompile(`^[a-zA-Z]+$`)
	disallowedSymbol = regexp.MustCompile(`[$,()]`)
)

// datePattern is one of the five tried, in preference order.
type datePattern struct {
	Name   string
	layout string // Go reference-time layout
	regex  *regexp.Regexp
}

var datePatterns = []datePattern{
	{"YYYYMMDD", "20060102", regexp.MustCompile(`^\d{8}$`)},
	{"YYYY-MM-DD", "2006-01-02", regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)},
	{"YYYY/MM/DD", "2006/01/02", regexp.MustCompile(`^\d{4}/\d{2}/\d{2}$`)},
	{"MM/DD/YYYY", "01/02/2006", regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)},
	{"MM-DD-YYYY", "01-02-2006", regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)},
}

// valueClassification is the full per-value verdict.
type valueClassification struct {
	cat          category
	dateFormat   string
	outOfRange   bool // year < 1900 or > current+1
}

// classifyValue runs the S5 per-value rule order: date, money,
// money-with-violations, numeric, numeric-with-violations, alpha. First
// match wins.
func classifyValue(s string, now time.Time) valueClassification {
	if fmtName, oor, ok := matchDate(s, now); ok {
		return valueClassification{cat: catDate, dateFormat: fmtName, outOfRange: oor}
	}
	if moneyExact.MatchString(s) {
		return valueClassification{cat: catMoney}
	}
	if isMoneyViolation(s) {
		return valueClassification{cat: catMoneyViolation}
	}
	if numericExact.MatchString(s) {
		return valueClassification{cat: catNumeric}
	}
	if isNumericViolation(s) {
		return valueClassification{cat: catNumericViolation}
	}
	if alphaExact.MatchString(s) {
		return valueClassification{cat: catAlpha}
	}
	return valueClassification{cat: catNone}
}

// matchDate tries every pattern in preference order and validates the
// result as a real, leap-year-aware calendar date.
func matchDate(s string, now time.Time) (format string, outOfRange bool, ok bool) {
	for _, p := range datePatterns {
		if !p.regex.MatchString(s) {
			continue
		}
		t, err := time.Parse(p.layout, s)
		if err != nil {
			continue // matched shape but not a real calendar date
		}
		// time.Parse with these layouts is already strict about
		// day-of-month range given the parsed month/year (it returns an
		// error for e.g. Feb 30); reformatting and comparing is a second
		// check that the value round-trips exactly.
		if t.Format(p.layout) != s {
			continue
		}
		year := t.Year()
		oor := year < 1900 || year > now.Year()+1
		return p.Name, oor, true
	}
	return "", false, false
}

// DetectDateLayout returns the Go reference-time layout matching s under
// the same preference order as classifyValue, for callers (the date
// profiler) that already know a value is a date and need its concrete
// layout rather than the full classification.
func DetectDateLayout(s string, now time.Time) (layout string, ok bool) {
	name, _, matched := matchDate(s, now)
	if !matched {
		return "", false
	}
	for _, p := range datePatterns {
		if p.Name == name {
			return p.layout, true
		}
	}
	return "", false
}

func isMoneyViolation(s string) bool {
	if !disallowedSymbol.MatchString(s) {
		return false
	}
	stripped := stripSymbols(s)
	return numericExact.MatchString(stripped) || moneyExact.MatchString(stripped)
}

func isNumericViolation(s string) bool {
	if !disallowedSymbol.MatchString(s) {
		return false
	}
	stripped := stripSymbols(s)
	return numericExact.MatchString(stripped)
}

func stripSymbols(s string) string {
	s = strings.NewReplacer("$", "", ",", "", "(", "", ")", "").Replace(s)
	return s
}

// StripSymbols removes the money-specific disallowed symbols ($ , ( ))
// from s, exported for profile's money/numeric parsers.
func StripSymbols(s string) string { return stripSymbols(s) }

// IsMoneyExact reports whether s matches the money pattern exactly
// (digits, a dot, exactly two fractional digits) with no currency
// symbols or grouping, exported for the money profiler's valid/invalid
// split per spec §4.6.
func IsMoneyExact(s string) bool { return moneyExact.MatchString(s) }

// parseNumeric is used by the profilers once a column's type is fixed.
func parseNumeric(s string) (float64, bool) {
	v, err := strconv.ParseFloat(stripSymbols(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseNumeric parses s (after stripping money symbols) as a float64,
// returning ok=false for NaN/Inf or malformed input so callers can treat
// the value as invalid per spec §4.6.
func ParseNumeric(s string) (float64, bool) {
	v, ok := parseNumeric(s)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// HasTwoDecimals reports whether s has exactly two fractional digits
// after stripping money symbols (the money type's canonical shape).
func HasTwoDecimals(s string) bool {
	n, ok := fractionDigitsOf(stripSymbols(s))
	return ok && n == 2
}

func fractionDigitsOf(s string) (int, bool) {
	for i, r := range s {
		if r == '.' {
			frac := s[i+1:]
			for _, c := range frac {
				if c < '0' || c > '9' {
					return 0, false
				}
			}
			return len(frac), true
		}
	}
	return 0, true
}
