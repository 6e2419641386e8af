package view

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	tuitheme "github.com/glabrego/deck-cli/internal/tui/theme"
)

type ColumnParams struct {
	Title  string
	Status string
	Lines  []string
	Width  int
	Height int
	Active bool
}

// RenderColumn draws one bordered column. Lines beyond the body height are
// dropped; the caller windows them first.
func RenderColumn(p ColumnParams, th tuitheme.Theme) string {
	inner := th.ColumnBodyWidth(p.Width)
	bodyHeight := th.ColumnBodyHeight(p.Height) - 2
	if bodyHeight < 0 {
		bodyHeight = 0
	}

	title := truncateRunes(p.Title, inner-visibleLen(p.Status)-1)
	gap := inner - visibleLen(title) - visibleLen(p.Status)
	if gap < 1 {
		gap = 1
	}
	lines := make([]string, 0, bodyHeight+2)
	lines = append(lines,
		th.Section.Render(title)+strings.Repeat(" ", gap)+th.Muted.Render(p.Status),
		th.Muted.Render(strings.Repeat("─", inner)),
	)
	for i, line := range p.Lines {
		if i >= bodyHeight {
			break
		}
		lines = append(lines, line)
	}
	return th.ColumnFrame(p.Active, p.Width, p.Height).Render(strings.Join(lines, "\n"))
}

func JoinColumns(columns []string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}
