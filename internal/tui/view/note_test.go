package view

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/glabrego/deck-cli/internal/nostr"
	tuitheme "github.com/glabrego/deck-cli/internal/tui/theme"
)

func TestNoteLines(t *testing.T) {
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	note := nostr.Event{
		Pubkey:    strings.Repeat("ab", 32),
		CreatedAt: now.Add(-2 * time.Hour).Unix(),
		Kind:      nostr.KindTextNote,
		Content:   "hello\n\nworld,   this is a long note that will not fit",
	}
	lines := NoteLines(NoteLineParams{Note: note, Now: now, Active: true, Width: 30}, tuitheme.Default())
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	header := stripANSI(lines[0])
	if !strings.HasPrefix(header, "> abababab") || !strings.HasSuffix(header, "2 hours ago") {
		t.Fatalf("unexpected header %q", header)
	}
	body := stripANSI(lines[1])
	if !strings.HasPrefix(body, "  hello world,") || !strings.HasSuffix(body, "...") {
		t.Fatalf("unexpected body %q", body)
	}
	if w := visibleLen(body); w != 30 {
		t.Fatalf("expected body to fill 30 cells, got %d", w)
	}
}

func TestNoteSummary(t *testing.T) {
	if got := NoteSummary(" a\n b\t c "); got != "a b c" {
		t.Fatalf("unexpected summary %q", got)
	}
	if got := NoteSummary("   "); got != "(empty)" {
		t.Fatalf("unexpected empty summary %q", got)
	}
}

func TestListLine(t *testing.T) {
	th := tuitheme.Default()
	got := stripANSI(ListLine("universe", "[x]", 20, true, th))
	if !strings.HasPrefix(got, "> universe") || !strings.HasSuffix(got, "[x]") || visibleLen(got) != 20 {
		t.Fatalf("unexpected list line %q", got)
	}
	if got := stripANSI(ListLine("home", "", 20, false, th)); got != "  home" {
		t.Fatalf("unexpected plain list line %q", got)
	}
}

func TestRelativeTimeLabel(t *testing.T) {
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		then time.Time
		want string
	}{
		{then: now.Add(-30 * time.Second), want: "just now"},
		{then: now.Add(-1 * time.Minute), want: "1 minute ago"},
		{then: now.Add(-3 * time.Minute), want: "3 minutes ago"},
		{then: now.Add(-1 * time.Hour), want: "1 hour ago"},
		{then: now.Add(-7 * time.Hour), want: "7 hours ago"},
		{then: now.Add(-1 * 24 * time.Hour), want: "1 day ago"},
		{then: now.Add(-7 * 24 * time.Hour), want: "7 days ago"},
		{then: now.Add(time.Hour), want: "just now"},
		{then: time.Time{}, want: "unknown"},
	}
	for _, tc := range cases {
		if got := RelativeTimeLabel(now, tc.then); got != tc.want {
			t.Fatalf("RelativeTimeLabel(%s) = %q, want %q", tc.then.UTC().Format(time.RFC3339), got, tc.want)
		}
	}
}

func TestRenderColumn(t *testing.T) {
	th := tuitheme.Default()
	out := RenderColumn(ColumnParams{
		Title:  "universe",
		Status: "live",
		Lines:  []string{"one", "two", "three", "four", "five", "six"},
		Width:  24,
		Height: 7,
		Active: true,
	}, th)
	if w := lipgloss.Width(out); w != 24 {
		t.Fatalf("expected width 24, got %d", w)
	}
	if h := lipgloss.Height(out); h != 7 {
		t.Fatalf("expected height 7, got %d", h)
	}
	plain := stripANSI(out)
	if !strings.Contains(plain, "universe") || !strings.Contains(plain, "three") || strings.Contains(plain, "four") {
		t.Fatalf("unexpected column body:\n%s", plain)
	}

	joined := JoinColumns([]string{out, out})
	if w := lipgloss.Width(joined); w != 48 {
		t.Fatalf("expected joined width 48, got %d", w)
	}
}
