package timeutil

import (
	"testing"
	"time"
)

func pt(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatal(err)
	}
	return loc
}

func TestNightID(t *testing.T) {
	loc := pt(t)
	// 2026-07-08 03:30 UTC is still the evening of 2026-07-07 in PT.
	ms := time.Date(2026, 7, 8, 3, 30, 0, 0, time.UTC).UnixMilli()
	if got := NightID(ms, loc); got != "2026-07-07" {
		t.Errorf("NightID = %s, want 2026-07-07", got)
	}
}

func TestWeekAnchor(t *testing.T) {
	loc := pt(t)
	tests := []struct {
		nightID string
		want    string
	}{
		{"2026-07-07", "2026-07-07"}, // Tuesday night anchors to same-day reset
		{"2026-07-08", "2026-07-07"}, // Wednesday
		{"2026-07-13", "2026-07-07"}, // Monday, still previous cycle
		{"2026-07-14", "2026-07-14"}, // next Tuesday starts a new cycle
	}
	for _, tc := range tests {
		got, err := WeekAnchor(tc.nightID, loc, time.Tuesday, 8, 0)
		if err != nil {
			t.Fatalf("WeekAnchor(%s): %v", tc.nightID, err)
		}
		if got != tc.want {
			t.Errorf("WeekAnchor(%s) = %s, want %s", tc.nightID, got, tc.want)
		}
	}

	if _, err := WeekAnchor("not-a-date", loc, time.Tuesday, 8, 0); err == nil {
		t.Error("expected error for malformed night id")
	}
}

func TestNormalizeDate(t *testing.T) {
	loc := pt(t)
	tests := []struct {
		cell string
		want string
	}{
		{"2026-07-02", "2026-07-02"},
		{"7/2/2026", "2026-07-02"},
		{"July 4, 2026", "2026-07-04"},
		{"garbage", ""},
		{"", ""},
	}
	for _, tc := range tests {
		if got := NormalizeDate(tc.cell, loc); got != tc.want {
			t.Errorf("NormalizeDate(%q) = %q, want %q", tc.cell, got, tc.want)
		}
	}
}

func TestWallClockToMs(t *testing.T) {
	loc := pt(t)
	// Report starts 2026-07-07 19:00 PT.
	ref := time.Date(2026, 7, 7, 19, 0, 0, 0, loc).UnixMilli()

	// 21:30 the same evening.
	got := WallClockToMs("21:30", ref, loc)
	if got == nil {
		t.Fatal("expected a resolved instant")
	}
	want := time.Date(2026, 7, 7, 21, 30, 0, 0, loc).UnixMilli()
	if *got != want {
		t.Errorf("21:30 resolved to %d, want %d", *got, want)
	}

	// 06:00 is before the reference; it rolls forward in 12 h steps past
	// midnight.
	got = WallClockToMs("06:00", ref, loc)
	if got == nil {
		t.Fatal("expected a resolved instant")
	}
	want = time.Date(2026, 7, 8, 6, 0, 0, 0, loc).UnixMilli()
	if *got != want {
		t.Errorf("06:00 resolved to %d, want %d", *got, want)
	}

	if got := WallClockToMs("", ref, loc); got != nil {
		t.Error("blank cell must resolve to nil")
	}
	if got := WallClockToMs("not a time", ref, loc); got != nil {
		t.Error("unparseable cell must resolve to nil")
	}
}

func TestMsToMinTruncates(t *testing.T) {
	if got := MsToMin(119_999); got != 1 {
		t.Errorf("MsToMin(119999) = %d, want 1", got)
	}
}
