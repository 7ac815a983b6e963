package engine

import (
	"sort"
	"strings"

	"raidbench/internal/domain"
)

// WeekAnchorFunc maps a night id to the week id (reset-day date) it belongs
// to.
type WeekAnchorFunc func(nightID string) (string, error)

const (
	openJoinWeek  = "0000-00-00"
	openLeaveWeek = "9999-12-31"
)

// RollupWeeks aggregates per-night bench rows into per-week totals. Every
// active roster member whose membership window covers an observed week is
// included even with zero minutes, so inactive weeks read as explicit zeros.
// Rows whose night id cannot be anchored are skipped.
func RollupWeeks(benchRows []domain.BenchRow, roster []domain.RosterMember, anchor WeekAnchorFunc) []domain.WeekRow {
	type weekKey struct {
		weekID string
		main   string
	}
	agg := make(map[weekKey]*domain.WeekRow)
	weeks := make(map[string]struct{})

	for _, r := range benchRows {
		weekID, err := anchor(r.NightID)
		if err != nil {
			continue
		}
		weeks[weekID] = struct{}{}
		k := weekKey{weekID: weekID, main: r.Main}
		w, ok := agg[k]
		if !ok {
			w = &domain.WeekRow{WeekID: weekID, Main: r.Main}
			agg[k] = w
		}
		w.PlayedWeekMin += r.PlayedPreMin + r.PlayedPostMin
		w.BenchPreMin += r.BenchPreMin
		w.BenchPostMin += r.BenchPostMin
		w.BenchWeekMin = w.BenchPreMin + w.BenchPostMin
	}

	for _, m := range roster {
		if m.Main == "" || !m.Active {
			continue
		}
		joinWeek := openJoinWeek
		if m.JoinNight != "" {
			if wk, err := anchor(m.JoinNight); err == nil {
				joinWeek = wk
			}
		}
		leaveWeek := openLeaveWeek
		if m.LeaveNight != "" {
			if wk, err := anchor(m.LeaveNight); err == nil {
				leaveWeek = wk
			}
		}
		for wk := range weeks {
			if joinWeek <= wk && wk <= leaveWeek {
				k := weekKey{weekID: wk, main: m.Main}
				if _, ok := agg[k]; !ok {
					agg[k] = &domain.WeekRow{WeekID: wk, Main: m.Main}
				}
			}
		}
	}

	out := make([]domain.WeekRow, 0, len(agg))
	for _, w := range agg {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WeekID != out[j].WeekID {
			return out[i].WeekID < out[j].WeekID
		}
		return out[i].Main < out[j].Main
	})
	return out
}

// Rankings ranks active roster members by season-to-date bench minutes,
// ascending: rank 1 is the least benched. Ties break alphabetically,
// case-insensitive. An empty active roster yields no rankings.
func Rankings(weekRows []domain.WeekRow, roster []domain.RosterMember) []domain.RankingRow {
	active := make(map[string]struct{})
	for _, m := range roster {
		if m.Main != "" && m.Active {
			active[m.Main] = struct{}{}
		}
	}
	if len(active) == 0 {
		return nil
	}

	totals := make(map[string]int64, len(active))
	for main := range active {
		totals[main] = 0
	}
	for _, w := range weekRows {
		if _, ok := active[w.Main]; ok {
			totals[w.Main] += w.BenchWeekMin
		}
	}

	out := make([]domain.RankingRow, 0, len(totals))
	for main, benchMin := range totals {
		out = append(out, domain.RankingRow{Main: main, BenchMin: benchMin})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BenchMin != out[j].BenchMin {
			return out[i].BenchMin < out[j].BenchMin
		}
		return strings.ToLower(out[i].Main) < strings.ToLower(out[j].Main)
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
