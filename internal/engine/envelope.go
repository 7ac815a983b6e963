package engine

import (
	"raidbench/internal/domain"
)

// MythicDifficulty is the primary activity tier; it defines the night's
// envelope.
const MythicDifficulty = 5

// ComputeEnvelope returns [min start, max end] over the Mythic fights of a
// night, or nil if the night has none. A night without an envelope is
// skipped entirely downstream.
func ComputeEnvelope(fights []domain.Fight) *domain.Range {
	var env *domain.Range
	for _, f := range fights {
		if !f.Mythic {
			continue
		}
		if env == nil {
			env = &domain.Range{StartMs: f.StartMs, EndMs: f.EndMs}
			continue
		}
		if f.StartMs < env.StartMs {
			env.StartMs = f.StartMs
		}
		if f.EndMs > env.EndMs {
			env.EndMs = f.EndMs
		}
	}
	return env
}

// SplitPrePost divides the envelope into pre- and post-break durations.
// Without a break the whole envelope is pre. A break outside the envelope
// clamps to zero on the side it misses.
func SplitPrePost(env domain.Range, br *domain.Range) (preMs, postMs int64) {
	if br == nil {
		return env.DurationMs(), 0
	}
	preMs = min64(br.StartMs, env.EndMs) - env.StartMs
	if preMs < 0 {
		preMs = 0
	}
	postMs = env.EndMs - max64(br.EndMs, env.StartMs)
	if postMs < 0 {
		postMs = 0
	}
	return preMs, postMs
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
