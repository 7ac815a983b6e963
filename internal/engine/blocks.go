package engine

import (
	"sort"

	"raidbench/internal/domain"
)

// BuildParticipation emits one (participant, fight) presence row per Mythic
// boss pull. Trash never generates participation rows; trash bridging is
// handled when blocks are merged.
func BuildParticipation(fights []domain.Fight) []domain.ParticipationRow {
	var rows []domain.ParticipationRow
	for _, f := range fights {
		if !f.Mythic || f.EncounterID <= 0 {
			continue
		}
		for _, p := range f.Participants {
			if p == "" {
				continue
			}
			rows = append(rows, domain.ParticipationRow{
				Main:       p,
				NightID:    f.NightID,
				ReportCode: f.ReportCode,
				FightID:    f.FightID,
				StartMs:    f.StartMs,
				EndMs:      f.EndMs,
			})
		}
	}
	return rows
}

// BuildBlocks collapses participation rows into maximal contiguous presence
// blocks per (main, night, half). Half assignment is by interval midpoint
// against the break start. Adjacent same-half rows merge unless a non-Mythic
// boss fight sits fully inside the gap between them: the participant's status
// during that fight is attested elsewhere, so the block splits there. Trash
// between rows never splits, regardless of duration.
func BuildBlocks(rows []domain.ParticipationRow, br *domain.Range, allFights []domain.Fight) []domain.Block {
	if len(rows) == 0 {
		return nil
	}

	type groupKey struct {
		main    string
		nightID string
	}
	groups := make(map[groupKey][]domain.ParticipationRow)
	for _, r := range rows {
		k := groupKey{main: r.Main, nightID: r.NightID}
		groups[k] = append(groups[k], r)
	}

	var splitters []domain.Range
	for _, f := range allFights {
		if !f.Mythic && f.EncounterID > 0 {
			splitters = append(splitters, domain.Range{StartMs: f.StartMs, EndMs: f.EndMs})
		}
	}
	splitBetween := func(gapStart, gapEnd int64) bool {
		for _, s := range splitters {
			if gapStart <= s.StartMs && s.EndMs <= gapEnd {
				return true
			}
		}
		return false
	}

	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].nightID != keys[j].nightID {
			return keys[i].nightID < keys[j].nightID
		}
		return keys[i].main < keys[j].main
	})

	var blocks []domain.Block
	for _, k := range keys {
		rs := groups[k]
		sort.Slice(rs, func(i, j int) bool { return rs[i].StartMs < rs[j].StartMs })

		var current *domain.Block
		for _, r := range rs {
			half := domain.HalfPre
			if br != nil {
				mid := (r.StartMs + r.EndMs) / 2
				if mid >= br.StartMs {
					half = domain.HalfPost
				}
			}

			if current != nil && current.Half == half && !splitBetween(current.EndMs, r.StartMs) {
				if r.EndMs > current.EndMs {
					current.EndMs = r.EndMs
				}
				continue
			}
			if current != nil {
				blocks = append(blocks, *current)
			}
			current = &domain.Block{
				NightID: k.nightID,
				Main:    k.main,
				Half:    half,
				StartMs: r.StartMs,
				EndMs:   r.EndMs,
			}
		}
		if current != nil {
			blocks = append(blocks, *current)
		}
	}

	// Stable external identity: number blocks per (night, main, half) in
	// start order.
	type seqKey struct {
		nightID string
		main    string
		half    string
	}
	seq := make(map[seqKey]int)
	for i := range blocks {
		k := seqKey{nightID: blocks[i].NightID, main: blocks[i].Main, half: blocks[i].Half}
		seq[k]++
		blocks[i].Seq = seq[k]
	}
	return blocks
}
