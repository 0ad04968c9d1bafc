package fetch

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	dayLayout     = "02_01_2006"
	monthLayout   = "01_2006"
	csvDateLayout = "02-01-2006"
)

// DateSpec selects the dates a report covers: a single day (dd_mm_yyyy), a
// whole month (*mm_yyyy) or an inclusive day range (dd_mm_yyyy -> dd_mm_yyyy).
type DateSpec struct {
	raw        string
	start, end time.Time
	isRange    bool
}

// ParseDateSpec validates and parses a date spec string.
func ParseDateSpec(s string) (DateSpec, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "->") {
		parts := strings.SplitN(s, "->", 2)
		start, err := time.Parse(dayLayout, strings.TrimSpace(parts[0]))
		if err != nil {
			return DateSpec{}, errors.Wrapf(err, "invalid range start in %q", s)
		}
		end, err := time.Parse(dayLayout, strings.TrimSpace(parts[1]))
		if err != nil {
			return DateSpec{}, errors.Wrapf(err, "invalid range end in %q", s)
		}
		if end.Before(start) {
			return DateSpec{}, errors.Errorf("range end precedes start in %q", s)
		}
		return DateSpec{raw: s, start: start, end: end, isRange: true}, nil
	}
	if strings.HasPrefix(s, "*") {
		if _, err := time.Parse(monthLayout, s[1:]); err != nil {
			return DateSpec{}, errors.Wrapf(err, "invalid month spec %q", s)
		}
		return DateSpec{raw: s}, nil
	}
	if _, err := time.Parse(dayLayout, s); err != nil {
		return DateSpec{}, errors.Wrapf(err, "invalid date spec %q", s)
	}
	return DateSpec{raw: s}, nil
}

// Yesterday is the default report date for scheduled runs.
func Yesterday(now time.Time) DateSpec {
	return DateSpec{raw: now.AddDate(0, 0, -1).Format(dayLayout)}
}

// Raw returns the spec exactly as given; non-range specs are substituted
// directly into CSV paths (months keep their wildcard).
func (d DateSpec) Raw() string { return d.raw }

// IsRange reports whether the spec is a day range needing expansion.
func (d DateSpec) IsRange() bool { return d.isRange }

// Label is a filesystem- and subject-safe form of the spec.
func (d DateSpec) Label() string {
	s := strings.ReplaceAll(d.raw, " ", "")
	s = strings.ReplaceAll(s, "->", "-")
	return strings.ReplaceAll(s, "*", "")
}

// Days expands a range into its individual days. Non-range specs return just
// the raw spec.
func (d DateSpec) Days() []string {
	if !d.isRange {
		return []string{d.raw}
	}
	var out []string
	for cur := d.start; !cur.After(d.end); cur = cur.AddDate(0, 0, 1) {
		out = append(out, cur.Format(dayLayout))
	}
	return out
}

// MonthPrefixes lists the *mm_yyyy specs covering the range; stage CSVs are
// laid out per month and filtered to the range afterwards.
func (d DateSpec) MonthPrefixes() []string {
	if !d.isRange {
		return []string{d.raw}
	}
	var out []string
	for cur := d.start.AddDate(0, 0, 1-d.start.Day()); !cur.After(d.end); cur = cur.AddDate(0, 1, 0) {
		out = append(out, "*"+cur.Format(monthLayout))
	}
	return out
}

// Contains reports whether a CSV date cell (dd-mm-yyyy) falls inside the
// range; non-range specs accept every row the query returned.
func (d DateSpec) Contains(csvDate string) bool {
	if !d.isRange {
		return true
	}
	t, err := time.Parse(csvDateLayout, strings.TrimSpace(csvDate))
	if err != nil {
		return false
	}
	return !t.Before(d.start) && !t.After(d.end)
}
