package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/go-scripts/research/pkg/common"
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("205"))

// RenderResults renders one row per visited site
func RenderResults(records []common.WebsiteRecord, width int) string {
	if len(records) == 0 {
		return infoStyle.Render("No sites visited")
	}

	urlWidth := min(40, max(20, width/3))
	titleWidth := min(30, max(15, width/4))

	rows := []string{headerStyle.Render(fmt.Sprintf(
		"%-*s %-*s %-8s %5s",
		urlWidth, "URL",
		titleWidth, "Title",
		"Status",
		"Shots",
	))}

	for _, r := range records {
		row := fmt.Sprintf(
			"%-*s %-*s %-8s %5d",
			urlWidth, truncate(r.URL, urlWidth),
			titleWidth, truncate(r.Title, titleWidth),
			r.Status,
			len(r.Screenshots),
		)
		switch {
		case r.Status == common.StatusFailed:
			row = errorStyle.Render(row)
		case r.Status == common.StatusPartial || r.DetectedBot:
			row = warningStyle.Render(row)
		}
		rows = append(rows, row)
	}

	return strings.Join(rows, "\n")
}
