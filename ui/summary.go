package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-scripts/research/pkg/common"
)

// RunStats holds the numbers shown in the summary panel
type RunStats struct {
	Outcome common.ResearchOutcome
	Counts  map[common.Status]int
	Blocked int
	Elapsed time.Duration
}

// NewRunStats tallies records by status
func NewRunStats(out common.ResearchOutcome, records []common.WebsiteRecord, elapsed time.Duration) RunStats {
	s := RunStats{Outcome: out, Counts: make(map[common.Status]int), Elapsed: elapsed}
	for _, r := range records {
		s.Counts[r.Status]++
		if r.DetectedBot {
			s.Blocked++
		}
	}
	return s
}

// RenderSummary renders the end-of-run panel
func RenderSummary(s RunStats) string {
	stats := []struct {
		label string
		value string
	}{
		{"Niche", s.Outcome.Niche},
		{"Query", s.Outcome.Query},
		{"Status", s.Outcome.Status},
		{"Run ID", s.Outcome.RunID},
		{"Websites", fmt.Sprintf("%d", s.Outcome.WebsitesAnalyzed)},
	}
	if s.Outcome.WebsitesAnalyzed > 0 {
		stats = append(stats,
			struct{ label, value string }{"Success Rate", successRate(s)},
			struct{ label, value string }{"Breakdown", fmt.Sprintf("%d success, %d partial, %d failed",
				s.Counts[common.StatusSuccess], s.Counts[common.StatusPartial], s.Counts[common.StatusFailed])},
			struct{ label, value string }{"Bot Checks", fmt.Sprintf("%d", s.Blocked)},
		)
	}
	if s.Outcome.DataFilename != "" {
		stats = append(stats, struct{ label, value string }{"Data File", s.Outcome.DataFilename})
	}
	stats = append(stats, struct{ label, value string }{"Elapsed Time", formatElapsed(s.Elapsed)})

	var content strings.Builder
	content.WriteString(titleStyle.Render("Niche Research Summary") + "\n\n")
	for _, stat := range stats {
		fmt.Fprintf(&content, "%-14s %s\n", labelStyle.Render(stat.label+":"), valueStyle.Render(stat.value))
	}
	if s.Outcome.Message != "" {
		content.WriteString("\n")
		style := infoStyle
		if s.Outcome.Status != common.OutcomeCompleted {
			style = warningStyle
		}
		content.WriteString(style.Render(s.Outcome.Message))
	}

	return borderStyle.Render(strings.TrimRight(content.String(), "\n"))
}

func successRate(s RunStats) string {
	if s.Outcome.WebsitesAnalyzed == 0 {
		return "0.0%"
	}
	ok := s.Counts[common.StatusSuccess]
	return fmt.Sprintf("%.1f%% (%d/%d)", float64(ok)/float64(s.Outcome.WebsitesAnalyzed)*100, ok, s.Outcome.WebsitesAnalyzed)
}

func formatElapsed(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d:%02d",
		int(d.Hours()),
		int(d.Minutes())%60,
		int(d.Seconds())%60,
	)
}
