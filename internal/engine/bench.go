package engine

import (
	"sort"

	"raidbench/internal/domain"
)

// Availability inference policy:
//   - any block in either half implies availability for the whole night;
//   - presence in the last non-Mythic boss pull before Mythic implies
//     availability for the whole night;
//   - an explicit operator override wins outright, per half.
//
// Being on the roster alone does not imply availability: a rostered no-show
// is assumed to be off that night and receives no bench charge unless an
// override says otherwise.

// availabilityCase is one main's inputs and the decision being built.
type availabilityCase struct {
	playedPreMs  int64
	playedPostMs int64
	lastFight    bool
	override     *domain.Override

	availPre  bool
	availPost bool
	source    string
}

// availabilityRule is one step of the precedence chain: a predicate, the
// effect it applies, and the provenance tag it contributes. Rules run in
// slice order; later rules overwrite earlier decisions.
type availabilityRule struct {
	source  string
	matches func(c *availabilityCase) bool
	apply   func(c *availabilityCase)
}

var availabilityRules = []availabilityRule{
	{
		source:  domain.SourceBlocks,
		matches: func(c *availabilityCase) bool { return c.playedPreMs > 0 || c.playedPostMs > 0 },
		apply: func(c *availabilityCase) {
			c.availPre = true
			c.availPost = true
		},
	},
	{
		source:  domain.SourceLastFight,
		matches: func(c *availabilityCase) bool { return c.lastFight },
		apply: func(c *availabilityCase) {
			c.availPre = true
			c.availPost = true
		},
	},
	{
		source: domain.SourceOverride,
		matches: func(c *availabilityCase) bool {
			return c.override != nil && (c.override.Pre != nil || c.override.Post != nil)
		},
		apply: func(c *availabilityCase) {
			if c.override.Pre != nil {
				c.availPre = *c.override.Pre
			}
			if c.override.Post != nil {
				c.availPost = *c.override.Post
			}
		},
	},
}

func decideAvailability(c *availabilityCase) {
	c.source = domain.SourceNone
	for _, rule := range availabilityRules {
		if !rule.matches(c) {
			continue
		}
		rule.apply(c)
		switch rule.source {
		case domain.SourceLastFight:
			// last_fight is reported only when it is the sole reason the
			// main appears at all; blocks keep their tag.
			if c.source == domain.SourceNone {
				c.source = rule.source
			}
		default:
			c.source = rule.source
		}
	}
}

// BenchMinutesForNight aggregates played and bench minutes per main for one
// night. Blocks are alias-resolved before aggregation. The universe of mains
// is those with blocks, those with an override, and the last-tier roster;
// anyone else produces no row. Minutes are floor-divided from milliseconds.
func BenchMinutesForNight(
	nightID string,
	blocks []domain.Block,
	preMs, postMs int64,
	overrides map[string]domain.Override,
	lastFightMains map[string]struct{},
	aliasMap map[string]string,
) []domain.BenchRow {
	type played struct{ preMs, postMs int64 }
	agg := make(map[string]*played)
	for _, b := range blocks {
		main := ResolveMain(b.Main, aliasMap)
		p, ok := agg[main]
		if !ok {
			p = &played{}
			agg[main] = p
		}
		switch b.Half {
		case domain.HalfPost:
			p.postMs += b.EndMs - b.StartMs
		default:
			p.preMs += b.EndMs - b.StartMs
		}
	}

	universe := make(map[string]struct{}, len(agg)+len(overrides)+len(lastFightMains))
	for main := range agg {
		universe[main] = struct{}{}
	}
	for main := range overrides {
		universe[main] = struct{}{}
	}
	for main := range lastFightMains {
		universe[main] = struct{}{}
	}

	mains := make([]string, 0, len(universe))
	for main := range universe {
		mains = append(mains, main)
	}
	sort.Strings(mains)

	out := make([]domain.BenchRow, 0, len(mains))
	for _, main := range mains {
		c := availabilityCase{}
		if p, ok := agg[main]; ok {
			c.playedPreMs = p.preMs
			c.playedPostMs = p.postMs
		}
		_, c.lastFight = lastFightMains[main]
		if ov, ok := overrides[main]; ok {
			c.override = &ov
		}
		decideAvailability(&c)

		var benchPreMs, benchPostMs int64
		if c.availPre {
			benchPreMs = max64(0, preMs-c.playedPreMs)
		}
		if c.availPost {
			benchPostMs = max64(0, postMs-c.playedPostMs)
		}

		row := domain.BenchRow{
			NightID:       nightID,
			Main:          main,
			PlayedPreMin:  c.playedPreMs / 60000,
			PlayedPostMin: c.playedPostMs / 60000,
			BenchPreMin:   benchPreMs / 60000,
			BenchPostMin:  benchPostMs / 60000,
			AvailPre:      c.availPre,
			AvailPost:     c.availPost,
			StatusSource:  c.source,
		}
		row.PlayedTotalMin = row.PlayedPreMin + row.PlayedPostMin
		row.BenchTotalMin = row.BenchPreMin + row.BenchPostMin
		out = append(out, row)
	}
	return out
}

// LastTierBossMains returns the alias-resolved participants of the last
// non-Mythic boss pull starting strictly before the Mythic envelope. Empty
// when no such pull exists.
func LastTierBossMains(allFights []domain.Fight, mythicStartMs int64, aliasMap map[string]string) map[string]struct{} {
	var last *domain.Fight
	for i := range allFights {
		f := &allFights[i]
		if f.Mythic || f.EncounterID <= 0 || f.StartMs >= mythicStartMs {
			continue
		}
		if last == nil || f.StartMs > last.StartMs {
			last = f
		}
	}
	mains := make(map[string]struct{})
	if last == nil {
		return mains
	}
	for _, p := range last.Participants {
		if p == "" {
			continue
		}
		mains[ResolveMain(p, aliasMap)] = struct{}{}
	}
	return mains
}

// ResolveMain maps an alias to its canonical main; unknown names are already
// mains. Resolution is idempotent.
func ResolveMain(name string, aliasMap map[string]string) string {
	if main, ok := aliasMap[name]; ok && main != "" {
		return main
	}
	return name
}
