package view

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/glabrego/deck-cli/internal/nostr"
	tuitheme "github.com/glabrego/deck-cli/internal/tui/theme"
)

var reANSICodes = regexp.MustCompile(`\x1b\[[0-9;]*m`)

type NoteLineParams struct {
	Note   nostr.Event
	Now    time.Time
	Active bool
	Width  int
}

// NoteLines renders a note as an author/time header and a one-line body.
func NoteLines(p NoteLineParams, th tuitheme.Theme) []string {
	author := p.Note.Pubkey
	if len(author) > 8 {
		author = author[:8]
	}
	marker := " "
	if p.Active {
		marker = ">"
	}
	when := RelativeTimeLabel(p.Now, p.Note.CreatedTime())
	if p.Note.Kind == nostr.KindRepost {
		when = "repost · " + when
	}

	left := marker + " " + author
	gap := p.Width - visibleLen(left) - visibleLen(when)
	if gap < 1 {
		gap = 1
	}
	header := marker + " " + th.Author.Render(author) + strings.Repeat(" ", gap) + th.Muted.Render(when)

	body := "  " + truncateRunes(NoteSummary(p.Note.Content), p.Width-2)
	return []string{
		th.RenderActiveLine(p.Active, header),
		th.RenderActiveLine(p.Active, th.Body.Render(body)),
	}
}

// NoteSummary collapses whitespace so multi-line notes fit one row.
func NoteSummary(content string) string {
	s := strings.Join(strings.Fields(content), " ")
	if s == "" {
		return "(empty)"
	}
	return s
}

// ListLine renders a selectable row such as a picker entry or an account.
func ListLine(label, badge string, width int, active bool, th tuitheme.Theme) string {
	marker := "  "
	if active {
		marker = "> "
	}
	available := width - len(marker) - visibleLen(badge) - 1
	label = truncateRunes(label, available)
	gap := width - len(marker) - visibleLen(label) - visibleLen(badge)
	if gap < 1 {
		gap = 1
	}
	if badge == "" {
		gap = 0
	}
	return th.RenderActiveLine(active, marker+label+strings.Repeat(" ", gap)+badge)
}

func RelativeTimeLabel(now, then time.Time) string {
	if now.IsZero() {
		now = time.Now()
	}
	if then.IsZero() {
		return "unknown"
	}
	if then.After(now) {
		return "just now"
	}
	d := now.Sub(then)
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		n := int(d / time.Minute)
		if n == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", n)
	}
	if d < 24*time.Hour {
		n := int(d / time.Hour)
		if n == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", n)
	}
	n := int(d / (24 * time.Hour))
	if n == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", n)
}

func truncateRunes(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return strings.Repeat(".", maxLen)
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}

func visibleLen(s string) int {
	return utf8.RuneCountInString(stripANSIText(s))
}

func stripANSIText(s string) string {
	return reANSICodes.ReplaceAllString(s, "")
}
