package repository

import (
	"context"
	"database/sql"
	"testing"

	"raidbench/internal/database"
	"raidbench/internal/domain"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	// A second connection would see a different empty :memory: database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db, zerolog.Nop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestFightReplaceNightDropsStaleRows(t *testing.T) {
	db := testDB(t)
	repo := NewFightRepository(db, zerolog.Nop())
	ctx := context.Background()

	first := []domain.Fight{
		{NightID: "2026-07-07", EncounterID: 3001, Difficulty: 5, StartRoundedMs: 1000, EndRoundedMs: 2000, StartMs: 980, EndMs: 2010, Name: "Vanguard", Mythic: true, ReportCode: "AAA", FightID: 1, Participants: []string{"Alice", "Bob"}},
		{NightID: "2026-07-07", EncounterID: 0, Difficulty: 0, StartRoundedMs: 2100, EndRoundedMs: 2500, StartMs: 2100, EndMs: 2500, ReportCode: "AAA", FightID: 2, Participants: []string{"Alice"}},
	}
	if err := repo.ReplaceNight(ctx, "2026-07-07", first); err != nil {
		t.Fatalf("first replace: %v", err)
	}

	// Second run for the same night carries only one fight; the trash row
	// must not survive.
	second := first[:1]
	if err := repo.ReplaceNight(ctx, "2026-07-07", second); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	got, err := repo.GetByNight(ctx, "2026-07-07")
	if err != nil {
		t.Fatalf("get by night: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 fight after replace, got %d", len(got))
	}
	f := got[0]
	if f.EncounterID != 3001 || !f.Mythic || f.Name != "Vanguard" {
		t.Errorf("unexpected fight: %+v", f)
	}
	if len(f.Participants) != 2 || f.Participants[0] != "Alice" || f.Participants[1] != "Bob" {
		t.Errorf("participants = %v, want [Alice Bob]", f.Participants)
	}
}

func TestFightReplaceNightLeavesOtherNightsAlone(t *testing.T) {
	db := testDB(t)
	repo := NewFightRepository(db, zerolog.Nop())
	ctx := context.Background()

	tue := []domain.Fight{{NightID: "2026-07-07", EncounterID: 3001, Difficulty: 5, StartRoundedMs: 1000, EndRoundedMs: 2000, StartMs: 1000, EndMs: 2000, ReportCode: "AAA", FightID: 1}}
	wed := []domain.Fight{{NightID: "2026-07-08", EncounterID: 3002, Difficulty: 5, StartRoundedMs: 9000, EndRoundedMs: 9900, StartMs: 9000, EndMs: 9900, ReportCode: "BBB", FightID: 1}}
	if err := repo.ReplaceNight(ctx, "2026-07-07", tue); err != nil {
		t.Fatal(err)
	}
	if err := repo.ReplaceNight(ctx, "2026-07-08", wed); err != nil {
		t.Fatal(err)
	}
	if err := repo.ReplaceNight(ctx, "2026-07-07", nil); err != nil {
		t.Fatal(err)
	}

	gone, err := repo.GetByNight(ctx, "2026-07-07")
	if err != nil {
		t.Fatal(err)
	}
	if len(gone) != 0 {
		t.Errorf("tuesday fights should be gone, got %d", len(gone))
	}
	kept, err := repo.GetByNight(ctx, "2026-07-08")
	if err != nil {
		t.Fatal(err)
	}
	if len(kept) != 1 || kept[0].EncounterID != 3002 {
		t.Errorf("wednesday fights were clobbered: %+v", kept)
	}
}

func TestBenchReplaceAndSummaryRoundTrip(t *testing.T) {
	db := testDB(t)
	repo := NewBenchRepository(db, zerolog.Nop())
	ctx := context.Background()

	rows := []domain.BenchRow{
		{NightID: "2026-07-07", Main: "Alice", PlayedPreMin: 60, PlayedPostMin: 0, PlayedTotalMin: 60, BenchPreMin: 0, BenchPostMin: 60, BenchTotalMin: 60, AvailPre: true, AvailPost: true, StatusSource: domain.SourceBlocks},
		{NightID: "2026-07-07", Main: "Bob", AvailPre: false, AvailPost: false, StatusSource: domain.SourceOverride},
	}
	if err := repo.ReplaceNight(ctx, "2026-07-07", rows); err != nil {
		t.Fatalf("replace night: %v", err)
	}

	got, err := repo.GetByNight(ctx, "2026-07-07")
	if err != nil {
		t.Fatalf("get by night: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].Main != "Alice" || got[0].BenchPostMin != 60 || got[0].StatusSource != domain.SourceBlocks {
		t.Errorf("unexpected row: %+v", got[0])
	}
	if got[1].Main != "Bob" || got[1].AvailPre || got[1].StatusSource != domain.SourceOverride {
		t.Errorf("unexpected row: %+v", got[1])
	}

	breakStart, breakEnd := int64(5_000_000), int64(6_200_000)
	sum := &domain.NightSummary{
		NightID:      "2026-07-07",
		ReportCodes:  []string{"AAA", "BBB"},
		NightStartMs: 0,
		NightEndMs:   10_800_000,
		MythicFights: 12,
		BreakStartMs: &breakStart,
		BreakEndMs:   &breakEnd,
		PreMin:       83,
		PostMin:      76,
		LargestGap:   20,
		Candidates:   []domain.GapCandidate{{StartMs: 5_000_000, EndMs: 6_200_000, GapMin: 20}},
	}
	if err := repo.UpsertSummary(ctx, sum); err != nil {
		t.Fatalf("upsert summary: %v", err)
	}
	// Upsert again with new data to confirm idempotent replace.
	sum.MythicFights = 13
	if err := repo.UpsertSummary(ctx, sum); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	sums, err := repo.GetSummaries(ctx)
	if err != nil {
		t.Fatalf("get summaries: %v", err)
	}
	if len(sums) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(sums))
	}
	s := sums[0]
	if s.MythicFights != 13 {
		t.Errorf("mythic fights = %d, want 13", s.MythicFights)
	}
	if s.BreakStartMs == nil || *s.BreakStartMs != breakStart {
		t.Errorf("break start not round-tripped: %+v", s.BreakStartMs)
	}
	if len(s.ReportCodes) != 2 || s.ReportCodes[0] != "AAA" {
		t.Errorf("report codes = %v", s.ReportCodes)
	}
	if len(s.Candidates) != 1 || s.Candidates[0].GapMin != 20 {
		t.Errorf("candidates = %+v", s.Candidates)
	}

	n, err := repo.NightCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("night count = %d, want 1", n)
	}
}

func TestWeekReplaceAllIsFullReplace(t *testing.T) {
	db := testDB(t)
	repo := NewWeekRepository(db, zerolog.Nop())
	ctx := context.Background()

	if err := repo.ReplaceAll(ctx, []domain.WeekRow{
		{WeekID: "2026-07-07", Main: "Alice", PlayedWeekMin: 100, BenchWeekMin: 20},
		{WeekID: "2026-07-07", Main: "Bob", PlayedWeekMin: 80, BenchWeekMin: 40},
	}); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	if err := repo.ReplaceAll(ctx, []domain.WeekRow{
		{WeekID: "2026-07-14", Main: "Alice", PlayedWeekMin: 120, BenchWeekMin: 0},
	}); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	got, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].WeekID != "2026-07-14" {
		t.Errorf("stale week rows survived: %+v", got)
	}

	if err := repo.ReplaceRankings(ctx, []domain.RankingRow{
		{Rank: 1, Main: "Alice", BenchMin: 20},
		{Rank: 2, Main: "Bob", BenchMin: 60},
	}); err != nil {
		t.Fatalf("replace rankings: %v", err)
	}
	ranks, err := repo.GetRankings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ranks) != 2 || ranks[0].Main != "Alice" || ranks[0].Rank != 1 {
		t.Errorf("rankings = %+v", ranks)
	}
}

func TestRosterSnapshotTables(t *testing.T) {
	db := testDB(t)
	repo := NewRosterRepository(db, zerolog.Nop())
	ctx := context.Background()

	if err := repo.ReplaceRoster(ctx, []domain.RosterMember{
		{Main: "Alice", JoinNight: "2026-01-06", Active: true},
		{Main: "Gone", JoinNight: "2026-01-06", LeaveNight: "2026-03-03", Active: false},
	}); err != nil {
		t.Fatalf("replace roster: %v", err)
	}
	members, err := repo.GetRoster(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 || members[0].Main != "Alice" || !members[0].Active {
		t.Errorf("roster = %+v", members)
	}
	if members[1].LeaveNight != "2026-03-03" || members[1].Active {
		t.Errorf("roster = %+v", members[1])
	}

	if err := repo.ReplaceAliases(ctx, map[string]string{"Alicealt": "Alice"}); err != nil {
		t.Fatalf("replace aliases: %v", err)
	}
	aliases, err := repo.GetAliases(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if aliases["Alicealt"] != "Alice" {
		t.Errorf("aliases = %v", aliases)
	}

	no := false
	if err := repo.ReplaceOverrides(ctx, []domain.Override{
		{NightID: "2026-07-07", Main: "Alice", Post: &no},
	}); err != nil {
		t.Fatalf("replace overrides: %v", err)
	}
	overrides, err := repo.GetOverrides(ctx)
	if err != nil {
		t.Fatal(err)
	}
	ov, ok := overrides["2026-07-07"]["Alice"]
	if !ok {
		t.Fatalf("override missing: %v", overrides)
	}
	if ov.Pre != nil {
		t.Errorf("pre should be unset, got %v", *ov.Pre)
	}
	if ov.Post == nil || *ov.Post {
		t.Errorf("post should be false, got %v", ov.Post)
	}

	// A fresh ingest replaces everything.
	if err := repo.ReplaceOverrides(ctx, nil); err != nil {
		t.Fatal(err)
	}
	overrides, err = repo.GetOverrides(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(overrides) != 0 {
		t.Errorf("overrides should be empty after replace, got %v", overrides)
	}
}

func TestRunLifecycle(t *testing.T) {
	db := testDB(t)
	repo := NewRunRepository(db, zerolog.Nop())
	ctx := context.Background()

	latest, err := repo.GetLatest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest != nil {
		t.Fatalf("expected no runs yet, got %+v", latest)
	}

	id, err := repo.Start(ctx)
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	latest, err = repo.GetLatest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.ID != id || latest.Status != domain.RunRunning || latest.FinishedAt != nil {
		t.Fatalf("unexpected running record: %+v", latest)
	}

	if err := repo.Finish(ctx, id, domain.RunOK, 3, 5, ""); err != nil {
		t.Fatalf("finish run: %v", err)
	}
	latest, err = repo.GetLatest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest.Status != domain.RunOK || latest.Nights != 3 || latest.Reports != 5 {
		t.Errorf("unexpected finished record: %+v", latest)
	}
	if latest.FinishedAt == nil {
		t.Error("finished_at not set")
	}
}
