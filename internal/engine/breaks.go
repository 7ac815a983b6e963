package engine

import (
	"sort"

	"raidbench/internal/domain"
)

// BreakConfig bounds the break search. Window bounds are minute offsets of a
// gap's midpoint from the night's first boss pull; the break band is the
// accepted gap duration in minutes.
type BreakConfig struct {
	WindowStartMin int
	WindowEndMin   int
	MinBreakMin    int
	MaxBreakMin    int
}

// DetectBreak finds the night's rest break: the single largest gap between
// adjacent boss pulls whose midpoint falls inside the search window. Trash
// pulls never define candidates. The best gap is rejected if its duration
// falls outside the break band. Diagnostics carry every qualifying candidate
// whether or not one was accepted.
func DetectBreak(fights []domain.Fight, cfg BreakConfig) (*domain.Range, domain.BreakDiagnostics) {
	diag := domain.BreakDiagnostics{}

	bosses := make([]domain.Fight, 0, len(fights))
	for _, f := range fights {
		if f.EncounterID > 0 {
			bosses = append(bosses, f)
		}
	}
	if len(bosses) < 2 {
		return nil, diag
	}
	sort.Slice(bosses, func(i, j int) bool { return bosses[i].StartMs < bosses[j].StartMs })
	night0 := bosses[0].StartMs

	var best *domain.Range
	var bestGapMin float64
	for i := 0; i+1 < len(bosses); i++ {
		a, b := bosses[i], bosses[i+1]
		gapMs := b.StartMs - a.EndMs
		if gapMs <= 0 {
			continue
		}
		gapMin := float64(gapMs) / 60000.0
		midMin := (float64(a.EndMs+b.StartMs)/2 - float64(night0)) / 60000.0
		if midMin < float64(cfg.WindowStartMin) || midMin > float64(cfg.WindowEndMin) {
			continue
		}
		cand := domain.GapCandidate{StartMs: a.EndMs, EndMs: b.StartMs, GapMin: gapMin}
		diag.Candidates = append(diag.Candidates, cand)
		if gapMin > diag.LargestGapMin {
			diag.LargestGapMin = gapMin
		}
		if gapMin > bestGapMin {
			bestGapMin = gapMin
			best = &domain.Range{StartMs: cand.StartMs, EndMs: cand.EndMs}
		}
	}

	if best == nil {
		return nil, diag
	}
	if bestGapMin < float64(cfg.MinBreakMin) || bestGapMin > float64(cfg.MaxBreakMin) {
		// The largest qualifying gap is too short or too long to be the
		// scheduled break; the night is treated as unbroken.
		return nil, diag
	}
	return best, diag
}
