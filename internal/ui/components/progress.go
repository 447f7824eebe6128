// Package components holds reusable monitor widgets.
package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/scaffold/internal/ui/theme"
)

// ProgressBar renders completed steps out of a total as a horizontal bar.
type ProgressBar struct {
	Done  int
	Total int
	Width int

	// ShowCount appends "done/total" after the bar.
	ShowCount bool
}

// NewProgressBar creates a progress bar.
func NewProgressBar(done, total, width int, showCount bool) ProgressBar {
	return ProgressBar{Done: done, Total: total, Width: width, ShowCount: showCount}
}

// Fraction returns Done/Total clamped to [0, 1]. An empty total is 0.
func (p ProgressBar) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	f := float64(p.Done) / float64(p.Total)
	return min(max(f, 0), 1)
}

// View renders the bar.
func (p ProgressBar) View() string {
	var count string
	if p.ShowCount {
		count = fmt.Sprintf(" %d/%d", p.Done, p.Total)
	}

	barWidth := max(p.Width-lipgloss.Width(count), 4)
	filled := int(float64(barWidth) * p.Fraction())

	return theme.ProgressFilled.Render(strings.Repeat(" ", filled)) +
		theme.ProgressEmpty.Render(strings.Repeat(" ", barWidth-filled)) +
		theme.Dim.Render(count)
}
