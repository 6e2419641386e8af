package view

import (
	"fmt"
	"strings"

	tuitheme "github.com/glabrego/deck-cli/internal/tui/theme"
)

type Mode int

const (
	ModeTimeline Mode = iota
	ModePicker
	ModeAccounts
	ModeSettings
	ModeInput
)

func (m Mode) String() string {
	switch m {
	case ModePicker:
		return "picker"
	case ModeAccounts:
		return "accounts"
	case ModeSettings:
		return "settings"
	case ModeInput:
		return "input"
	default:
		return "timeline"
	}
}

func Toolbar(mode Mode) string {
	switch mode {
	case ModePicker:
		return "j/k move | enter open feed | # hashtag | / search | esc back | x remove | q quit"
	case ModeAccounts:
		return "j/k move | enter select | i add pubkey | d remove | esc back | q quit"
	case ModeSettings:
		return "esc back | h/l columns | q quit"
	case ModeInput:
		return "enter confirm | esc cancel"
	}
	return "h/l column | H/L move | j/k scroll | enter thread | p profile | o open | a add | x remove | A accounts | s settings | y copy key | q quit"
}

// Footer summarizes the deck: columns, open feeds, relays and the active
// account.
func Footer(columns, selected, feeds int, relays []string, account string, th tuitheme.Theme) string {
	if account == "" {
		account = "none"
	}
	parts := []string{
		th.MetaLabel.Render("column") + " " + th.MetaValue.Render(fmt.Sprintf("%d/%d", selected+1, columns)),
		th.MetaLabel.Render("feeds") + " " + th.MetaValue.Render(fmt.Sprintf("%d", feeds)),
		th.MetaLabel.Render("relays") + " " + th.MetaValue.Render(fmt.Sprintf("%d", len(relays))),
		th.MetaLabel.Render("account") + " " + th.MetaValue.Render(account),
	}
	return strings.Join(parts, " • ")
}

func Message(loading bool, hasWarning bool, status, warning string, th tuitheme.Theme) string {
	state := "idle"
	if loading {
		state = "loading"
	}
	if hasWarning {
		state = "warning"
	}
	main := "Ready"
	if status != "" {
		main = status
	} else if hasWarning {
		main = warning
	}
	stateLabel := th.StateIdle.Render("state")
	switch state {
	case "warning":
		stateLabel = th.StateWarn.Render("state")
	case "loading":
		stateLabel = th.StateLoad.Render("state")
	}
	return fmt.Sprintf("%s: %s | %s", stateLabel, state, th.MetaValue.Render(main))
}

func Prompt(label, value string, th tuitheme.Theme) string {
	return th.ModePill.Render(label) + " " + value + "█"
}
