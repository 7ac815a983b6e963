package engine

import (
	"testing"
	"time"

	"raidbench/internal/domain"
	"raidbench/internal/timeutil"
)

func testAnchor(t *testing.T) WeekAnchorFunc {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatal(err)
	}
	return func(nightID string) (string, error) {
		return timeutil.WeekAnchor(nightID, loc, time.Tuesday, 8, 0)
	}
}

func benchNight(nightID, main string, preMin, postMin, playedMin int64) domain.BenchRow {
	return domain.BenchRow{
		NightID:       nightID,
		Main:          main,
		PlayedPreMin:  playedMin,
		BenchPreMin:   preMin,
		BenchPostMin:  postMin,
		BenchTotalMin: preMin + postMin,
	}
}

func TestRollupWeeksGroupsByResetCycle(t *testing.T) {
	anchor := testAnchor(t)
	// 2026-07-07 is a Tuesday; Wed and Thu nights share its week,
	// the following Tuesday starts a new one.
	rows := []domain.BenchRow{
		benchNight("2026-07-07", "Alice", 10, 0, 30),
		benchNight("2026-07-08", "Alice", 5, 5, 40),
		benchNight("2026-07-14", "Alice", 20, 0, 10),
	}

	weeks := RollupWeeks(rows, nil, anchor)
	if len(weeks) != 2 {
		t.Fatalf("expected 2 week rows, got %d: %+v", len(weeks), weeks)
	}
	w := weeks[0]
	if w.WeekID != "2026-07-07" || w.BenchWeekMin != 20 || w.PlayedWeekMin != 70 {
		t.Errorf("first week = %+v", w)
	}
	if w.BenchPreMin != 15 || w.BenchPostMin != 5 {
		t.Errorf("first week pre/post = %d/%d, want 15/5", w.BenchPreMin, w.BenchPostMin)
	}
	if weeks[1].WeekID != "2026-07-14" || weeks[1].BenchWeekMin != 20 {
		t.Errorf("second week = %+v", weeks[1])
	}
}

func TestRollupWeeksRosterFill(t *testing.T) {
	anchor := testAnchor(t)
	rows := []domain.BenchRow{benchNight("2026-07-07", "Alice", 10, 0, 30)}
	roster := []domain.RosterMember{
		{Main: "Alice", JoinNight: "2026-01-06", Active: true},
		{Main: "Idle", JoinNight: "2026-01-06", Active: true},
		{Main: "Gone", JoinNight: "2026-01-06", LeaveNight: "2026-03-03", Active: true},
		{Main: "Future", JoinNight: "2026-09-01", Active: true},
		{Main: "Inactive", JoinNight: "2026-01-06", Active: false},
	}

	weeks := RollupWeeks(rows, roster, anchor)
	got := make(map[string]domain.WeekRow, len(weeks))
	for _, w := range weeks {
		got[w.Main] = w
	}
	if len(weeks) != 2 {
		t.Fatalf("expected Alice + Idle, got %+v", weeks)
	}
	idle, ok := got["Idle"]
	if !ok {
		t.Fatal("active member covering the week must appear with zero minutes")
	}
	if idle.BenchWeekMin != 0 || idle.PlayedWeekMin != 0 {
		t.Errorf("idle row should be all zero: %+v", idle)
	}
	if _, ok := got["Gone"]; ok {
		t.Error("member who left before the week must not appear")
	}
	if _, ok := got["Future"]; ok {
		t.Error("member who joins after the week must not appear")
	}
	if _, ok := got["Inactive"]; ok {
		t.Error("inactive member must not be roster-filled")
	}
}

func TestRankingsAscendingWithAlphabeticalTieBreak(t *testing.T) {
	roster := []domain.RosterMember{
		{Main: "Avery", Active: true},
		{Main: "bree", Active: true},
		{Main: "Cody", Active: true},
	}
	weeks := []domain.WeekRow{
		{WeekID: "2026-07-07", Main: "Avery", BenchWeekMin: 10},
		{WeekID: "2026-07-07", Main: "bree", BenchWeekMin: 0},
		{WeekID: "2026-07-07", Main: "Cody", BenchWeekMin: 0},
		{WeekID: "2026-07-14", Main: "Avery", BenchWeekMin: 0},
	}

	ranks := Rankings(weeks, roster)
	if len(ranks) != 3 {
		t.Fatalf("expected 3 rankings, got %d", len(ranks))
	}
	// Least benched first; "bree" before "Cody" case-insensitively.
	if ranks[0].Main != "bree" || ranks[0].Rank != 1 {
		t.Errorf("rank 1 = %+v, want bree", ranks[0])
	}
	if ranks[1].Main != "Cody" || ranks[1].Rank != 2 {
		t.Errorf("rank 2 = %+v, want Cody", ranks[1])
	}
	if ranks[2].Main != "Avery" || ranks[2].BenchMin != 10 {
		t.Errorf("rank 3 = %+v, want Avery with 10", ranks[2])
	}
}

func TestRankingsDropInactiveAndHandleEmptyRoster(t *testing.T) {
	weeks := []domain.WeekRow{{WeekID: "2026-07-07", Main: "Avery", BenchWeekMin: 10}}

	ranks := Rankings(weeks, []domain.RosterMember{{Main: "Avery", Active: false}})
	if len(ranks) != 0 {
		t.Fatalf("inactive-only roster must clear rankings, got %+v", ranks)
	}
	if ranks := Rankings(weeks, nil); len(ranks) != 0 {
		t.Fatalf("empty roster must clear rankings, got %+v", ranks)
	}
}

func TestRankingsIncludeActiveMainsWithNoWeeks(t *testing.T) {
	roster := []domain.RosterMember{{Main: "Newbie", Active: true}}
	ranks := Rankings(nil, roster)
	if len(ranks) != 1 || ranks[0].BenchMin != 0 || ranks[0].Rank != 1 {
		t.Fatalf("ranks = %+v", ranks)
	}
}
