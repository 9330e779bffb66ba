// Package dateutils provides the date parsing and formatting used by drafts, payloads and reports.
package dateutils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Common date format constants used throughout the application
const (
	DateLayoutISO       = "2006-01-02"
	DateLayoutEuropean  = "02.01.2006"
	DateLayoutDayFirst  = "02/01/2006"
	DateLayoutUS        = "01/02/2006"
	DateLayoutFull      = "2006-01-02 15:04:05"
	DateLayoutWithMonth = "2-Jan-2006"
	// TimestampLayout matches the millisecond UTC timestamps the backend stores.
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// CommonFormats is the list of formats tried, in order, when parsing dates.
// Day-first slashed dates win over US dates when both would parse.
var CommonFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	DateLayoutISO,
	DateLayoutFull,
	DateLayoutEuropean,
	DateLayoutDayFirst,
	DateLayoutUS,
	DateLayoutWithMonth,
	"02-01-2006",
	"2006/01/02",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

var spaces = regexp.MustCompile(`\s+`)

// ParseDate attempts to parse a date string using multiple common formats.
// Returns the parsed time and the detected format.
func ParseDate(dateStr string) (time.Time, string, error) {
	dateStr = CleanDateString(dateStr)
	if dateStr == "" {
		return time.Time{}, "", fmt.Errorf("unable to parse empty date")
	}

	for _, format := range CommonFormats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t, format, nil
		}
	}

	return time.Time{}, "", fmt.Errorf("unable to parse date: %s", dateStr)
}

// FormatTimestamp formats t as a UTC timestamp with millisecond precision,
// e.g. 2024-03-01T10:15:00.000Z.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ToISODate formats a time.Time value as an ISO date (YYYY-MM-DD)
func ToISODate(date time.Time) string {
	return date.Format(DateLayoutISO)
}

// CleanDateString trims and collapses whitespace.
func CleanDateString(dateStr string) string {
	return spaces.ReplaceAllString(strings.TrimSpace(dateStr), " ")
}

// StartOfDay returns midnight of date's day in date's location.
func StartOfDay(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
}

// EndOfDay returns the last nanosecond of date's day.
func EndOfDay(date time.Time) time.Time {
	return StartOfDay(date).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// StartOfMonth returns the first day of the month for a given date
func StartOfMonth(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
}

// InRange reports whether t lies within [from, to], comparing whole days.
// A zero bound is open.
func InRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(StartOfDay(from)) {
		return false
	}
	if !to.IsZero() && t.After(EndOfDay(to)) {
		return false
	}
	return true
}
