package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"raidbench/internal/domain"
	"raidbench/internal/timeutil"

	"github.com/rs/zerolog"
)

// ReportRef is one row of the Reports tab. Break override cells stay as wall
// clock strings; they resolve against the report's start instant only after
// the report is fetched.
type ReportRef struct {
	RaidDate           string
	Code               string
	BreakOverrideStart string
	BreakOverrideEnd   string
}

func (s *Service) ReadReports(ctx context.Context) ([]ReportRef, error) {
	values, err := s.readTab(ctx, s.cfg.ReportsTab)
	if err != nil {
		return nil, err
	}
	return parseReports(values, s.logger), nil
}

func (s *Service) ReadAliasMap(ctx context.Context) (map[string]string, error) {
	values, err := s.readTab(ctx, s.cfg.RosterMapTab)
	if err != nil {
		return nil, err
	}
	return parseAliasMap(values), nil
}

func (s *Service) ReadRoster(ctx context.Context) ([]domain.RosterMember, error) {
	values, err := s.readTab(ctx, s.cfg.TeamRosterTab)
	if err != nil {
		return nil, err
	}
	return parseRoster(values, s.cfg.Location), nil
}

func (s *Service) ReadOverrides(ctx context.Context, aliasMap map[string]string) ([]domain.Override, error) {
	values, err := s.readTab(ctx, s.cfg.OverridesTab)
	if err != nil {
		return nil, err
	}
	return parseOverrides(values, aliasMap, s.cfg.Location), nil
}

// parseReports keeps rows whose URL cell yields a report code and logs the
// rest. Row shape: [raid_date, report_url, break_override_start,
// break_override_end].
func parseReports(values [][]any, logger zerolog.Logger) []ReportRef {
	var refs []ReportRef
	for i, row := range values {
		url := cellString(row, 1)
		code := ExtractReportCode(url)
		if code == "" {
			if url != "" {
				logger.Warn().Int("row", i+2).Str("url", url).Msg("bad report link")
			}
			continue
		}
		refs = append(refs, ReportRef{
			RaidDate:           cellString(row, 0),
			Code:               code,
			BreakOverrideStart: cellString(row, 2),
			BreakOverrideEnd:   cellString(row, 3),
		})
	}
	return refs
}

// parseAliasMap drops blank and identity rows. Row shape: [alias, main].
func parseAliasMap(values [][]any) map[string]string {
	out := make(map[string]string)
	for _, row := range values {
		alias := cellString(row, 0)
		main := cellString(row, 1)
		if alias == "" || main == "" || alias == main {
			continue
		}
		out[alias] = main
	}
	return out
}

// parseRoster normalizes join/leave date cells to night ids. Row shape:
// [main, join_date, leave_date, active_flag].
func parseRoster(values [][]any, loc *time.Location) []domain.RosterMember {
	var out []domain.RosterMember
	for _, row := range values {
		main := cellString(row, 0)
		if main == "" {
			continue
		}
		out = append(out, domain.RosterMember{
			Main:       main,
			JoinNight:  timeutil.NormalizeDate(cellString(row, 1), loc),
			LeaveNight: timeutil.NormalizeDate(cellString(row, 2), loc),
			Active:     isTruthy(cellString(row, 3)),
		})
	}
	return out
}

// parseOverrides resolves names through the alias map and skips rows with no
// usable night, name, or value. Row shape: [night_id, name, pre_cell,
// post_cell].
func parseOverrides(values [][]any, aliasMap map[string]string, loc *time.Location) []domain.Override {
	var out []domain.Override
	for _, row := range values {
		night := timeutil.NormalizeDate(cellString(row, 0), loc)
		name := cellString(row, 1)
		if night == "" || name == "" {
			continue
		}
		if main, ok := aliasMap[name]; ok {
			name = main
		}
		pre := ParseTriState(cellString(row, 2))
		post := ParseTriState(cellString(row, 3))
		if pre == nil && post == nil {
			continue
		}
		out = append(out, domain.Override{NightID: night, Main: name, Pre: pre, Post: post})
	}
	return out
}

// ExtractReportCode pulls the report code out of a report URL, or accepts a
// bare code pasted directly into the cell.
func ExtractReportCode(cell string) string {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return ""
	}
	if idx := strings.Index(cell, "/reports/"); idx >= 0 {
		rest := cell[idx+len("/reports/"):]
		for i, c := range rest {
			if !isCodeChar(c) {
				return rest[:i]
			}
		}
		return rest
	}
	for _, c := range cell {
		if !isCodeChar(c) {
			return ""
		}
	}
	return cell
}

func isCodeChar(c rune) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// ParseTriState maps an override cell to available (true), unavailable
// (false), or unset (nil).
func ParseTriState(cell string) *bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "y", "yes", "true", "1", "t":
		b := true
		return &b
	case "n", "no", "false", "0", "f":
		b := false
		return &b
	}
	return nil
}

func isTruthy(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "true", "yes", "y", "1":
		return true
	}
	return false
}

func cellString(row []any, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[idx]))
}
