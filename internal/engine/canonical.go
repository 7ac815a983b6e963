// Package engine implements the attendance computation core: fight
// canonicalization, envelope and break detection, presence blocks, bench
// minutes, and weekly rollup. Everything in this package is pure; inputs
// arrive as explicit values and no function touches storage or config.
package engine

import (
	"sort"

	"raidbench/internal/domain"
)

// roundMs rounds ms to the nearest multiple of tolerance.
func roundMs(ms, tolerance int64) int64 {
	if tolerance <= 0 {
		return ms
	}
	return (ms + tolerance/2) / tolerance * tolerance
}

type canonicalKey struct {
	encounterID    int
	difficulty     int
	startRoundedMs int64
	endRoundedMs   int64
}

// Canonicalize collapses fight observations from overlapping reports into one
// canonical fight per (encounter, difficulty, rounded start, rounded end).
// The earliest-starting observation of a key establishes the static metadata;
// every observation's participants are unioned. Malformed observations
// (non-positive timestamps, end before start) are dropped. The result is
// independent of input order and of repetition.
func Canonicalize(obs []domain.FightObservation, toleranceMs int64) []domain.Fight {
	byKey := make(map[canonicalKey]*domain.Fight)
	participants := make(map[canonicalKey]map[string]struct{})

	for _, o := range obs {
		if o.StartMs <= 0 || o.EndMs <= 0 || o.EndMs < o.StartMs {
			continue
		}
		key := canonicalKey{
			encounterID:    o.EncounterID,
			difficulty:     o.Difficulty,
			startRoundedMs: roundMs(o.StartMs, toleranceMs),
			endRoundedMs:   roundMs(o.EndMs, toleranceMs),
		}

		f, ok := byKey[key]
		if !ok {
			byKey[key] = &domain.Fight{
				NightID:        o.NightID,
				EncounterID:    o.EncounterID,
				Difficulty:     o.Difficulty,
				StartRoundedMs: key.startRoundedMs,
				EndRoundedMs:   key.endRoundedMs,
				StartMs:        o.StartMs,
				EndMs:          o.EndMs,
				Name:           o.Name,
				Mythic:         o.Difficulty == MythicDifficulty,
				Kill:           o.Kill,
				ReportCode:     o.ReportCode,
				FightID:        o.FightID,
			}
			participants[key] = make(map[string]struct{})
		} else if lessObservation(o, *f) {
			// Deterministic "first seen": the lexically smallest
			// (report, fight id) wins metadata regardless of input order.
			f.NightID = o.NightID
			f.StartMs = o.StartMs
			f.EndMs = o.EndMs
			f.Name = o.Name
			f.Kill = o.Kill
			f.ReportCode = o.ReportCode
			f.FightID = o.FightID
		}
		for _, p := range o.Participants {
			if p == "" {
				continue
			}
			participants[key][p] = struct{}{}
		}
	}

	out := make([]domain.Fight, 0, len(byKey))
	for key, f := range byKey {
		names := make([]string, 0, len(participants[key]))
		for p := range participants[key] {
			names = append(names, p)
		}
		sort.Strings(names)
		f.Participants = names
		out = append(out, *f)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.StartRoundedMs != b.StartRoundedMs {
			return a.StartRoundedMs < b.StartRoundedMs
		}
		if a.EndRoundedMs != b.EndRoundedMs {
			return a.EndRoundedMs < b.EndRoundedMs
		}
		if a.EncounterID != b.EncounterID {
			return a.EncounterID < b.EncounterID
		}
		return a.Difficulty < b.Difficulty
	})
	return out
}

func lessObservation(o domain.FightObservation, f domain.Fight) bool {
	if o.ReportCode != f.ReportCode {
		return o.ReportCode < f.ReportCode
	}
	return o.FightID < f.FightID
}
