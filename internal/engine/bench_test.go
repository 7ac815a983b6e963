package engine

import (
	"reflect"
	"testing"

	"raidbench/internal/domain"
)

func boolPtr(b bool) *bool { return &b }

func block(main, half string, start, end int64) domain.Block {
	return domain.Block{NightID: "2026-07-07", Main: main, Half: half, StartMs: start, EndMs: end}
}

const (
	preHourMs  = int64(3_600_000)
	postHourMs = int64(3_600_000)
)

func TestBenchEmptyInputsProduceNoRows(t *testing.T) {
	rows := BenchMinutesForNight("2026-07-07", nil, preHourMs, postHourMs, nil, nil, nil)
	if len(rows) != 0 {
		t.Fatalf("[] -> [], got %d rows", len(rows))
	}
}

func TestBenchBlocksImplyFullNightAvailability(t *testing.T) {
	// Played 30 min pre only: still available (and benched) post.
	blocks := []domain.Block{block("Alice", domain.HalfPre, 0, 1_800_000)}
	rows := BenchMinutesForNight("2026-07-07", blocks, preHourMs, postHourMs, nil, nil, nil)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	r := rows[0]
	if !r.AvailPre || !r.AvailPost {
		t.Errorf("any block implies availability for both halves: %+v", r)
	}
	if r.PlayedPreMin != 30 || r.PlayedPostMin != 0 {
		t.Errorf("played = %d/%d, want 30/0", r.PlayedPreMin, r.PlayedPostMin)
	}
	if r.BenchPreMin != 30 || r.BenchPostMin != 60 {
		t.Errorf("bench = %d/%d, want 30/60", r.BenchPreMin, r.BenchPostMin)
	}
	if r.StatusSource != domain.SourceBlocks {
		t.Errorf("status source = %s, want blocks", r.StatusSource)
	}
}

func TestBenchOverridePrecedence(t *testing.T) {
	// Blocks say played pre; last-tier roster says available; the override
	// {post:false} wins for post only.
	blocks := []domain.Block{block("Alice", domain.HalfPre, 0, 1_800_000)}
	overrides := map[string]domain.Override{
		"Alice": {NightID: "2026-07-07", Main: "Alice", Post: boolPtr(false)},
	}
	lastTier := map[string]struct{}{"Alice": {}}

	rows := BenchMinutesForNight("2026-07-07", blocks, preHourMs, postHourMs, overrides, lastTier, nil)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	r := rows[0]
	if !r.AvailPre {
		t.Error("avail_pre should stay true (blocks/last-tier)")
	}
	if r.AvailPost {
		t.Error("avail_post should be false, the override wins")
	}
	if r.StatusSource != domain.SourceOverride {
		t.Errorf("status source = %s, want override", r.StatusSource)
	}
	if r.BenchPostMin != 0 {
		t.Errorf("no bench charge for an unavailable half, got %d", r.BenchPostMin)
	}
}

func TestBenchNoShowWithOverrideSynthesizesRow(t *testing.T) {
	overrides := map[string]domain.Override{
		"Ghost": {NightID: "2026-07-07", Main: "Ghost", Pre: boolPtr(true), Post: boolPtr(true)},
	}
	rows := BenchMinutesForNight("2026-07-07", nil, preHourMs, postHourMs, overrides, nil, nil)
	if len(rows) != 1 {
		t.Fatalf("expected 1 synthesized row, got %d", len(rows))
	}
	r := rows[0]
	if r.BenchPreMin != 60 || r.BenchPostMin != 60 {
		t.Errorf("bench = %d/%d, want 60/60", r.BenchPreMin, r.BenchPostMin)
	}
	if r.PlayedTotalMin != 0 {
		t.Errorf("played = %d, want 0", r.PlayedTotalMin)
	}
	if r.StatusSource != domain.SourceOverride {
		t.Errorf("status source = %s, want override", r.StatusSource)
	}
}

func TestBenchLastTierOnlyInclusion(t *testing.T) {
	lastTier := map[string]struct{}{"Warmup": {}}
	rows := BenchMinutesForNight("2026-07-07", nil, preHourMs, postHourMs, nil, lastTier, nil)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	r := rows[0]
	if !r.AvailPre || !r.AvailPost {
		t.Errorf("last-tier membership implies full-night availability: %+v", r)
	}
	if r.StatusSource != domain.SourceLastFight {
		t.Errorf("status source = %s, want last_fight", r.StatusSource)
	}
	if r.BenchTotalMin != 120 {
		t.Errorf("bench total = %d, want 120", r.BenchTotalMin)
	}
}

func TestBenchAliasResolution(t *testing.T) {
	aliasMap := map[string]string{"AliceAlt": "Alice"}
	blocks := []domain.Block{
		block("AliceAlt", domain.HalfPre, 0, 1_200_000),
		block("Alice", domain.HalfPost, 5_000_000, 6_200_000),
	}
	rows := BenchMinutesForNight("2026-07-07", blocks, preHourMs, postHourMs, nil, nil, aliasMap)
	if len(rows) != 1 {
		t.Fatalf("alias and main must aggregate to one row, got %d", len(rows))
	}
	r := rows[0]
	if r.Main != "Alice" {
		t.Errorf("main = %s, want Alice", r.Main)
	}
	if r.PlayedPreMin != 20 || r.PlayedPostMin != 20 {
		t.Errorf("played = %d/%d, want 20/20", r.PlayedPreMin, r.PlayedPostMin)
	}
}

func TestBenchMinutesTruncateNotRound(t *testing.T) {
	// 119 seconds played = 1 minute, never 2.
	blocks := []domain.Block{block("Alice", domain.HalfPre, 0, 119_000)}
	rows := BenchMinutesForNight("2026-07-07", blocks, preHourMs, 0, nil, nil, nil)
	if rows[0].PlayedPreMin != 1 {
		t.Errorf("played pre = %d, want 1 (floor division)", rows[0].PlayedPreMin)
	}
	// 3600000 - 119000 = 3481000 ms = 58.02 min -> 58.
	if rows[0].BenchPreMin != 58 {
		t.Errorf("bench pre = %d, want 58", rows[0].BenchPreMin)
	}
}

func TestBenchDeterministicAndIdempotent(t *testing.T) {
	blocks := []domain.Block{
		block("Cara", domain.HalfPre, 0, 600_000),
		block("Alice", domain.HalfPre, 0, 1_800_000),
		block("Bob", domain.HalfPost, 5_000_000, 5_600_000),
	}
	first := BenchMinutesForNight("2026-07-07", blocks, preHourMs, postHourMs, nil, nil, nil)
	second := BenchMinutesForNight("2026-07-07", blocks, preHourMs, postHourMs, nil, nil, nil)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("bench computation must be idempotent")
	}
	if first[0].Main != "Alice" || first[1].Main != "Bob" || first[2].Main != "Cara" {
		t.Errorf("rows must be sorted by main: %+v", first)
	}
}

func TestLastTierBossMains(t *testing.T) {
	aliasMap := map[string]string{"BobAlt": "Bob"}
	fights := []domain.Fight{
		{EncounterID: 7, Difficulty: 4, StartMs: 1_000_000, EndMs: 1_500_000, Participants: []string{"Alice"}},
		{EncounterID: 8, Difficulty: 4, StartMs: 2_000_000, EndMs: 2_500_000, Participants: []string{"BobAlt", "Cara"}},
		{EncounterID: 0, Difficulty: 4, StartMs: 2_600_000, EndMs: 2_700_000, Participants: []string{"Dave"}},               // trash
		{EncounterID: 9, Difficulty: 4, StartMs: 4_000_000, EndMs: 4_500_000, Participants: []string{"Eve"}},                // after mythic start
		{EncounterID: 10, Difficulty: 5, Mythic: true, StartMs: 3_000_000, EndMs: 3_500_000, Participants: []string{"Fay"}}, // mythic
	}

	mains := LastTierBossMains(fights, 3_000_000, aliasMap)
	want := map[string]struct{}{"Bob": {}, "Cara": {}}
	if !reflect.DeepEqual(mains, want) {
		t.Errorf("mains = %v, want %v", mains, want)
	}
}

func TestLastTierBossMainsNoQualifyingFight(t *testing.T) {
	fights := []domain.Fight{
		{EncounterID: 10, Difficulty: 5, Mythic: true, StartMs: 3_000_000, EndMs: 3_500_000, Participants: []string{"Fay"}},
	}
	if mains := LastTierBossMains(fights, 3_000_000, nil); len(mains) != 0 {
		t.Fatalf("expected empty set, got %v", mains)
	}
}
