// Package extract turns free-form user text into calendar dates and
// times of day. It is pure computation: no I/O, no stored state, and the
// reference time is always passed in by the caller.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateOutcome distinguishes "no date in the text" from "a date that falls
// on a closed day", so callers can reject weekends without conflating them
// with unparseable input.
type DateOutcome int

const (
	DateNotFound DateOutcome = iota
	DateFound
	DateWeekend
)

const dateLayout = "2006-01-02"

type weekdayEntry struct {
	name string
	day  time.Weekday
	re   *regexp.Regexp
}

func wd(name string, day time.Weekday) weekdayEntry {
	return weekdayEntry{name: name, day: day, re: regexp.MustCompile(`\b` + name + `\b`)}
}

// Full names first so "tuesday" is not matched by the "tue" entry's word
// boundary check against a longer token.
var weekdayEntries = []weekdayEntry{
	wd("monday", time.Monday), wd("mon", time.Monday),
	wd("tuesday", time.Tuesday), wd("tues", time.Tuesday), wd("tue", time.Tuesday),
	wd("wednesday", time.Wednesday), wd("wed", time.Wednesday),
	wd("thursday", time.Thursday), wd("thurs", time.Thursday), wd("thu", time.Thursday),
	wd("friday", time.Friday), wd("fri", time.Friday),
	wd("saturday", time.Saturday), wd("sat", time.Saturday),
	wd("sunday", time.Sunday), wd("sun", time.Sunday),
}

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sept": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// Common typos still accepted for "tomorrow".
var tomorrowForms = []string{"tomorrow", "tomoroww", "toomorrow"}

var (
	isoDateRe  = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	slashRe    = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{4})\b`)
	dashRe     = regexp.MustCompile(`\b(\d{1,2}-\d{1,2}-\d{4})\b`)
	dotRe      = regexp.MustCompile(`\b(\d{1,2}\.\d{1,2}\.\d{4})\b`)
	monthDayRe = regexp.MustCompile(`(?:(?:on|for)\s+)?([a-z]+)\s+(\d{1,2})(?:st|nd|rd|th)?`)
	offsetRe   = regexp.MustCompile(`in\s+(\d+)\s+(day|days|week|weeks|month|months)`)
)

// Date extracts a calendar date from query relative to now. Strategies run
// in a fixed order and the first match wins:
//
//  1. ISO literal (2025-06-10)
//  2. locale literals (06/10/2025, 06-10-2025, 06.10.2025)
//  3. relative keywords (today, tomorrow, day after tomorrow)
//  4. named weekday, with or without next/this
//  5. month-day ("June 10", "on March 3rd")
//  6. relative offsets ("in 3 days", "in 2 weeks")
//
// A resolved date on a Saturday or Sunday yields DateWeekend instead of
// DateFound; the date string is empty in that case.
func Date(query string, now time.Time) (string, DateOutcome) {
	query = strings.ToLower(query)

	if m := isoDateRe.FindStringSubmatch(query); m != nil {
		if d, err := time.ParseInLocation(dateLayout, m[1], now.Location()); err == nil {
			return resolve(d)
		}
	}

	for _, lit := range []struct {
		re     *regexp.Regexp
		layout string
	}{
		{slashRe, "1/2/2006"},
		{dashRe, "1-2-2006"},
		{dotRe, "1.2.2006"},
	} {
		if m := lit.re.FindStringSubmatch(query); m != nil {
			if d, err := time.ParseInLocation(lit.layout, m[1], now.Location()); err == nil {
				return resolve(d)
			}
		}
	}

	if strings.Contains(query, "today") {
		return resolve(now)
	}
	// "day after tomorrow" contains "tomorrow"; check it first.
	if strings.Contains(query, "day after tomorrow") {
		return resolve(now.AddDate(0, 0, 2))
	}
	for _, form := range tomorrowForms {
		if strings.Contains(query, form) {
			return resolve(now.AddDate(0, 0, 1))
		}
	}

	for _, e := range weekdayEntries {
		if strings.Contains(query, "next "+e.name) || strings.Contains(query, "this "+e.name) || e.re.MatchString(query) {
			return resolve(nextWeekday(now, e.day))
		}
	}

	if m := monthDayRe.FindStringSubmatch(query); m != nil {
		if month, ok := monthNames[m[1]]; ok {
			day, _ := strconv.Atoi(m[2])
			if d, ok := monthDay(now, month, day); ok {
				return resolve(d)
			}
		}
	}

	if m := offsetRe.FindStringSubmatch(query); m != nil {
		amount, _ := strconv.Atoi(m[1])
		switch {
		case strings.HasPrefix(m[2], "day"):
			return resolve(now.AddDate(0, 0, amount))
		case strings.HasPrefix(m[2], "week"):
			return resolve(now.AddDate(0, 0, 7*amount))
		case strings.HasPrefix(m[2], "month"):
			// months approximated as 30 days
			return resolve(now.AddDate(0, 0, 30*amount))
		}
	}

	return "", DateNotFound
}

// IsWeekend reports whether a YYYY-MM-DD date falls on the two closed days.
func IsWeekend(date string) bool {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return false
	}
	return d.Weekday() == time.Saturday || d.Weekday() == time.Sunday
}

func resolve(d time.Time) (string, DateOutcome) {
	if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		return "", DateWeekend
	}
	return d.Format(dateLayout), DateFound
}

// nextWeekday returns the nearest future occurrence of day; if today is
// that weekday, it advances a full week.
func nextWeekday(now time.Time, day time.Weekday) time.Time {
	days := (int(day) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return now.AddDate(0, 0, days)
}

// monthDay resolves "June 10" to the current year, or next year if that
// date already passed.
func monthDay(now time.Time, month time.Month, day int) (time.Time, bool) {
	if day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(now.Year(), month, day, 0, 0, 0, 0, now.Location())
	if d.Month() != month {
		// day overflowed the month (e.g. February 30)
		return time.Time{}, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if d.Before(today) {
		d = time.Date(now.Year()+1, month, day, 0, 0, 0, 0, now.Location())
	}
	return d, true
}
