package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"raidbench/internal/domain"
	"raidbench/internal/timeutil"
)

func (s *Service) stamp() string {
	return time.Now().In(s.cfg.Location).Format(time.RFC3339)
}

func (s *Service) WriteNightQA(ctx context.Context, summaries []domain.NightSummary) error {
	header := []any{
		"night_id", "reports", "start", "end", "mythic_fights",
		"break_start", "break_end", "override_used", "pre_min", "post_min",
		"largest_gap_min", "candidates",
	}
	return s.replaceTab(ctx, s.cfg.NightQATab, header, nightQARows(summaries, s.cfg.Location), s.stamp())
}

func (s *Service) WriteBenchNights(ctx context.Context, rows []domain.BenchRow) error {
	header := []any{
		"night_id", "main", "played_pre_min", "played_post_min", "played_total_min",
		"bench_pre_min", "bench_post_min", "bench_total_min",
		"avail_pre", "avail_post", "status_source",
	}
	return s.replaceTab(ctx, s.cfg.BenchNightsTab, header, benchNightRows(rows), s.stamp())
}

func (s *Service) WriteBenchWeeks(ctx context.Context, rows []domain.WeekRow) error {
	header := []any{"week_id", "main", "played_week_min", "bench_week_min", "bench_pre_min", "bench_post_min"}
	return s.replaceTab(ctx, s.cfg.BenchWeeksTab, header, benchWeekRows(rows), s.stamp())
}

func (s *Service) WriteRankings(ctx context.Context, rows []domain.RankingRow) error {
	header := []any{"rank", "main", "season_bench_min"}
	return s.replaceTab(ctx, s.cfg.BenchRankingsTab, header, rankingRows(rows), s.stamp())
}

func nightQARows(summaries []domain.NightSummary, loc *time.Location) [][]any {
	rows := make([][]any, 0, len(summaries))
	for _, s := range summaries {
		breakStart, breakEnd := "", ""
		if s.BreakStartMs != nil {
			breakStart = timeutil.MsToSheets(*s.BreakStartMs, loc)
		}
		if s.BreakEndMs != nil {
			breakEnd = timeutil.MsToSheets(*s.BreakEndMs, loc)
		}
		rows = append(rows, []any{
			s.NightID,
			strings.Join(s.ReportCodes, ", "),
			timeutil.MsToSheets(s.NightStartMs, loc),
			timeutil.MsToSheets(s.NightEndMs, loc),
			s.MythicFights,
			breakStart,
			breakEnd,
			s.OverrideUsed,
			s.PreMin,
			s.PostMin,
			s.LargestGap,
			candidatesCell(s.Candidates, loc),
		})
	}
	return rows
}

func candidatesCell(candidates []domain.GapCandidate, loc *time.Location) string {
	parts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		parts = append(parts, fmt.Sprintf("%s / %s (%.1f min)",
			timeutil.MsToSheets(c.StartMs, loc), timeutil.MsToSheets(c.EndMs, loc), c.GapMin))
	}
	return strings.Join(parts, "; ")
}

func benchNightRows(rows []domain.BenchRow) [][]any {
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, []any{
			r.NightID, r.Main,
			r.PlayedPreMin, r.PlayedPostMin, r.PlayedTotalMin,
			r.BenchPreMin, r.BenchPostMin, r.BenchTotalMin,
			r.AvailPre, r.AvailPost, r.StatusSource,
		})
	}
	return out
}

func benchWeekRows(rows []domain.WeekRow) [][]any {
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, []any{r.WeekID, r.Main, r.PlayedWeekMin, r.BenchWeekMin, r.BenchPreMin, r.BenchPostMin})
	}
	return out
}

func rankingRows(rows []domain.RankingRow) [][]any {
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, []any{r.Rank, r.Main, r.BenchMin})
	}
	return out
}
