package theme

import (
	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Title      lipgloss.Style
	ModePill   lipgloss.Style
	Section    lipgloss.Style
	ActiveLine lipgloss.Style
	MetaLabel  lipgloss.Style
	MetaValue  lipgloss.Style
	StateIdle  lipgloss.Style
	StateWarn  lipgloss.Style
	StateLoad  lipgloss.Style

	Author   lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Signing  lipgloss.Style
	Selected lipgloss.Style

	Column       lipgloss.Style
	ActiveColumn lipgloss.Style
}

func Default() Theme {
	cpRosewater := lipgloss.Color("#f5e0dc")
	cpMauve := lipgloss.Color("#cba6f7")
	cpRed := lipgloss.Color("#f38ba8")
	cpPeach := lipgloss.Color("#fab387")
	cpYellow := lipgloss.Color("#f9e2af")
	cpGreen := lipgloss.Color("#a6e3a1")
	cpTeal := lipgloss.Color("#94e2d5")
	cpLavender := lipgloss.Color("#b4befe")
	cpText := lipgloss.Color("#cdd6f4")
	cpSubtext0 := lipgloss.Color("#a6adc8")
	cpSubtext1 := lipgloss.Color("#bac2de")
	cpOverlay1 := lipgloss.Color("#7f849c")
	cpSurface0 := lipgloss.Color("#313244")
	cpSurface2 := lipgloss.Color("#585b70")

	return Theme{
		Title:      lipgloss.NewStyle().Bold(true).Foreground(cpMauve),
		ModePill:   lipgloss.NewStyle().Foreground(cpLavender).Background(cpSurface0).Padding(0, 1),
		Section:    lipgloss.NewStyle().Bold(true).Foreground(cpTeal),
		ActiveLine: lipgloss.NewStyle().Background(cpSurface0).Foreground(cpText),
		MetaLabel:  lipgloss.NewStyle().Foreground(cpOverlay1),
		MetaValue:  lipgloss.NewStyle().Foreground(cpSubtext1),
		StateIdle:  lipgloss.NewStyle().Foreground(cpGreen),
		StateWarn:  lipgloss.NewStyle().Foreground(cpRed),
		StateLoad:  lipgloss.NewStyle().Foreground(cpPeach),

		Author:   lipgloss.NewStyle().Bold(true).Foreground(cpLavender),
		Body:     lipgloss.NewStyle().Foreground(cpText),
		Muted:    lipgloss.NewStyle().Foreground(cpSubtext0),
		Signing:  lipgloss.NewStyle().Foreground(cpYellow),
		Selected: lipgloss.NewStyle().Bold(true).Italic(true).Foreground(cpRosewater),

		Column: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cpSurface2).
			Padding(0, 1),
		ActiveColumn: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cpMauve).
			Padding(0, 1),
	}
}

func (t Theme) RenderActiveLine(active bool, line string) string {
	if !active {
		return line
	}
	return t.ActiveLine.Render(line)
}

// ColumnFrame returns the border style for a column of the given outer
// width and height. Content must already fit in ColumnBodyHeight lines.
func (t Theme) ColumnFrame(active bool, width, height int) lipgloss.Style {
	style := t.Column
	if active {
		style = t.ActiveColumn
	}
	inner := width - style.GetHorizontalFrameSize()
	if inner < 1 {
		inner = 1
	}
	innerHeight := height - style.GetVerticalFrameSize()
	if innerHeight < 1 {
		innerHeight = 1
	}
	return style.Width(inner + style.GetHorizontalPadding()).Height(innerHeight)
}

func (t Theme) ColumnBodyHeight(height int) int {
	h := height - t.Column.GetVerticalFrameSize()
	if h < 1 {
		return 1
	}
	return h
}

func (t Theme) ColumnBodyWidth(width int) int {
	w := width - t.Column.GetHorizontalFrameSize()
	if w < 1 {
		return 1
	}
	return w
}
