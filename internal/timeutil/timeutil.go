package timeutil

import (
	"fmt"
	"time"
)

const (
	nightIDLayout = "2006-01-02"
	sheetsLayout  = "2006-01-02 15:04:05"
	msPerMinute   = 60_000
)

// NightID returns the local calendar date (YYYY-MM-DD) of the given epoch ms.
func NightID(ms int64, loc *time.Location) string {
	return time.UnixMilli(ms).In(loc).Format(nightIDLayout)
}

// MsToSheets formats epoch ms as a local datetime string that Google Sheets
// parses as a real datetime rather than plain text.
func MsToSheets(ms int64, loc *time.Location) string {
	return time.UnixMilli(ms).In(loc).Format(sheetsLayout)
}

// MsToMin floor-divides milliseconds into whole minutes.
func MsToMin(ms int64) int64 {
	return ms / msPerMinute
}

// ParseNightID parses a YYYY-MM-DD night id in the given location.
func ParseNightID(nightID string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(nightIDLayout, nightID, loc)
}

// NormalizeDate parses a workbook date cell in any of the formats Sheets
// produces and returns it as YYYY-MM-DD, or "" if it cannot be parsed.
func NormalizeDate(cell string, loc *time.Location) string {
	layouts := []string{
		nightIDLayout,
		"1/2/2006",
		"01/02/2006",
		"1/2/06",
		"January 2, 2006",
		"Jan 2, 2006",
		sheetsLayout,
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, cell, loc); err == nil {
			return t.Format(nightIDLayout)
		}
	}
	return ""
}

// WeekAnchor maps a night id to the week id it belongs to: the date of the
// most recent occurrence of the reset weekday/time at or before the night.
// Nights are anchored at 20:00 local, a raid never starts before the same
// day's reset.
func WeekAnchor(nightID string, loc *time.Location, resetDay time.Weekday, resetHour, resetMinute int) (string, error) {
	day, err := ParseNightID(nightID, loc)
	if err != nil {
		return "", fmt.Errorf("invalid night id %q: %w", nightID, err)
	}
	night := day.Add(20 * time.Hour)

	offset := (int(day.Weekday()) - int(resetDay) + 7) % 7
	anchor := time.Date(day.Year(), day.Month(), day.Day(), resetHour, resetMinute, 0, 0, loc).
		AddDate(0, 0, -offset)
	if anchor.After(night) {
		anchor = anchor.AddDate(0, 0, -7)
	}
	return anchor.Format(nightIDLayout), nil
}

// WallClockToMs resolves a wall-clock "HH:MM" (or "HH:MM:SS") cell against a
// reference instant: the result is the first occurrence of that local time at
// or after refMs, probing forward in 12 h steps. Returns nil for a blank or
// unparseable cell, or when the resolved instant lands more than 24 h past
// the reference.
func WallClockToMs(cell string, refMs int64, loc *time.Location) *int64 {
	if cell == "" {
		return nil
	}
	var clock time.Time
	var err error
	for _, layout := range []string{"15:04", "15:04:05", "3:04 PM", "3:04PM"} {
		clock, err = time.Parse(layout, cell)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil
	}

	ref := time.UnixMilli(refMs).In(loc)
	t := time.Date(ref.Year(), ref.Month(), ref.Day(), clock.Hour(), clock.Minute(), clock.Second(), 0, loc)
	for t.UnixMilli() < refMs {
		t = t.Add(12 * time.Hour)
		if t.UnixMilli()-refMs > 24*3600*1000 {
			return nil
		}
	}
	if t.UnixMilli()-refMs > 24*3600*1000 {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}
