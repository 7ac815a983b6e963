package domain

import (
	"time"
)

// FightObservation is one fight as seen in a single Warcraft Logs report.
// The same pull logged by two overlapping reports produces two observations;
// the engine collapses them into one canonical Fight.
type FightObservation struct {
	ReportCode   string
	FightID      int
	EncounterID  int
	Difficulty   int
	Name         string
	StartMs      int64
	EndMs        int64
	Kill         bool
	Participants []string
	NightID      string
}

// Fight is a canonical, report-independent fight. Identity is
// (EncounterID, Difficulty, StartRoundedMs, EndRoundedMs).
type Fight struct {
	NightID        string
	EncounterID    int
	Difficulty     int
	StartRoundedMs int64
	EndRoundedMs   int64
	StartMs        int64
	EndMs          int64
	Name           string
	Mythic         bool
	Kill           bool
	ReportCode     string // first-seen report
	FightID        int    // fight id within the first-seen report
	Participants   []string
}

// Trash reports whether the fight is a trash pull (no encounter id).
func (f Fight) Trash() bool {
	return f.EncounterID == 0
}

// Range is an absolute [StartMs, EndMs] span in epoch ms.
type Range struct {
	StartMs int64
	EndMs   int64
}

func (r Range) DurationMs() int64 {
	return r.EndMs - r.StartMs
}

// GapCandidate is one qualifying break-gap candidate, kept for night QA.
type GapCandidate struct {
	StartMs int64   `json:"start_ms"`
	EndMs   int64   `json:"end_ms"`
	GapMin  float64 `json:"gap_min"`
}

// BreakDiagnostics records what the break detector saw, whether or not a
// break was accepted.
type BreakDiagnostics struct {
	LargestGapMin float64
	Candidates    []GapCandidate
}

// ParticipationRow is one (participant, fight) presence interval.
type ParticipationRow struct {
	Main       string
	NightID    string
	ReportCode string
	FightID    int
	StartMs    int64
	EndMs      int64
}

// Halves of a night relative to the break.
const (
	HalfPre  = "pre"
	HalfPost = "post"
)

// Block is one maximal contiguous span of presence by a main within one half
// of a night. Seq numbers blocks per (night, main, half) from 1 in start
// order.
type Block struct {
	NightID string
	Main    string
	Half    string
	Seq     int
	StartMs int64
	EndMs   int64
}

// Status sources for BenchRow provenance.
const (
	SourceNone      = "none"
	SourceBlocks    = "blocks"
	SourceLastFight = "last_fight"
	SourceOverride  = "override"
)

// BenchRow is the per-night bench result for one main. All minute fields are
// floor-divided from milliseconds.
type BenchRow struct {
	NightID        string
	Main           string
	PlayedPreMin   int64
	PlayedPostMin  int64
	PlayedTotalMin int64
	BenchPreMin    int64
	BenchPostMin   int64
	BenchTotalMin  int64
	AvailPre       bool
	AvailPost      bool
	StatusSource   string
}

// Override is an operator availability override for one (night, main).
// Nil means unset; a set value wins over every inferred signal for that half.
type Override struct {
	NightID string
	Main    string
	Pre     *bool
	Post    *bool
}

// RosterMember is one row of the team roster. JoinNight/LeaveNight are night
// ids (YYYY-MM-DD); an empty LeaveNight means still on the roster.
type RosterMember struct {
	Main       string
	JoinNight  string
	LeaveNight string
	Active     bool
}

// WeekRow is the per-week rollup for one main.
type WeekRow struct {
	WeekID        string
	Main          string
	PlayedWeekMin int64
	BenchWeekMin  int64
	BenchPreMin   int64
	BenchPostMin  int64
}

// RankingRow is one season-to-date ranking entry; rank 1 = least benched.
type RankingRow struct {
	Rank     int
	Main     string
	BenchMin int64
}

// Report is one Warcraft Logs report listed on the Reports tab.
type Report struct {
	Code                 string
	Title                string
	StartMs              int64
	EndMs                int64
	NightID              string
	BreakOverrideStartMs *int64
	BreakOverrideEndMs   *int64
}

// NightSummary is the per-night QA record written for operator audit.
type NightSummary struct {
	NightID      string
	ReportCodes  []string
	NightStartMs int64
	NightEndMs   int64
	MythicFights int
	BreakStartMs *int64
	BreakEndMs   *int64
	OverrideUsed bool
	PreMin       int64
	PostMin      int64
	LargestGap   float64
	Candidates   []GapCandidate
}

// RunRecord tracks one pipeline invocation.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
	Nights     int
	Reports    int
	Error      string
}

// Run statuses.
const (
	RunRunning = "running"
	RunOK      = "ok"
	RunFailed  = "failed"
)

// Snapshot is the read-only per-run view of the operator workbook. It is
// built once at ingest and passed by value through the pipeline so the
// engine never reads ambient state.
type Snapshot struct {
	Reports   []Report
	AliasMap  map[string]string
	Roster    []RosterMember
	Overrides map[string]map[string]Override // night id -> main -> override
}

// OverridesFor returns the override set for a night, never nil.
func (s Snapshot) OverridesFor(nightID string) map[string]Override {
	if ov, ok := s.Overrides[nightID]; ok {
		return ov
	}
	return map[string]Override{}
}
