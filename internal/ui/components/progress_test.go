package components

import (
	"strings"
	"testing"

	"charm.land/lipgloss/v2"
)

func TestProgressBarFraction(t *testing.T) {
	tests := []struct {
		done, total int
		want        float64
	}{
		{0, 3, 0},
		{3, 3, 1},
		{1, 4, 0.25},
		{5, 3, 1},
		{2, 0, 0},
	}
	for _, tt := range tests {
		p := NewProgressBar(tt.done, tt.total, 20, false)
		if got := p.Fraction(); got != tt.want {
			t.Errorf("Fraction(%d/%d) = %v, want %v", tt.done, tt.total, got, tt.want)
		}
	}
}

func TestProgressBarView(t *testing.T) {
	p := NewProgressBar(1, 2, 20, true)
	view := p.View()

	if w := lipgloss.Width(view); w != 20 {
		t.Errorf("width = %d, want 20", w)
	}
	if !strings.Contains(view, "1/2") {
		t.Errorf("view %q does not show the count", view)
	}
}

func TestProgressBarMinimumWidth(t *testing.T) {
	p := NewProgressBar(0, 1, 0, false)
	if w := lipgloss.Width(p.View()); w != 4 {
		t.Errorf("width = %d, want 4", w)
	}
}
