package actions

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/deck-cli/internal/relay"
)

// Connector dials relays; it is safe to call off the UI loop.
type Connector interface {
	ConnectAll(ctx context.Context, urls []string) int
}

// InfoFetcher reads relay information documents.
type InfoFetcher interface {
	Fetch(ctx context.Context, relayURL string) (relay.Info, error)
}

type TickMsg struct {
	At time.Time
}

type RelaysConnectedMsg struct {
	Connected int
	Total     int
	Duration  time.Duration
}

// RelayInfoMsg carries the documents that could be fetched, keyed by relay
// url, and the first failure if any.
type RelayInfoMsg struct {
	Infos map[string]relay.Info
	Err   error
}

type OpenURLSuccessMsg struct {
	Status string
	Opened bool
}

type OpenURLErrorMsg struct {
	Err error
}

type ClearStatusMsg struct {
	ID int
}

// TickCmd schedules the next relay poll.
func TickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg { return TickMsg{At: t} })
}

func ConnectCmd(c Connector, urls []string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		start := time.Now()

		n := c.ConnectAll(ctx, urls)
		return RelaysConnectedMsg{Connected: n, Total: len(urls), Duration: time.Since(start)}
	}
}

func RelayInfoCmd(f InfoFetcher, urls []string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		msg := RelayInfoMsg{Infos: make(map[string]relay.Info, len(urls))}
		for _, u := range urls {
			info, err := f.Fetch(ctx, u)
			if err != nil {
				if msg.Err == nil {
					msg.Err = fmt.Errorf("fetch info for %s: %w", u, err)
				}
				continue
			}
			msg.Infos[u] = info
		}
		return msg
	}
}

func OpenURLCmd(url string, openFn, copyFn func(string) error) tea.Cmd {
	return func() tea.Msg {
		if openFn != nil {
			if err := openFn(url); err == nil {
				return OpenURLSuccessMsg{Status: "Opened note in browser", Opened: true}
			}
		}
		if copyFn != nil {
			if err := copyFn(url); err == nil {
				return OpenURLSuccessMsg{Status: "Could not open browser, URL copied to clipboard", Opened: false}
			}
		}
		return OpenURLErrorMsg{Err: fmt.Errorf("could not open URL or copy to clipboard")}
	}
}

// CopyCmd copies text and reports it under label, e.g. "pubkey".
func CopyCmd(text, label string, copyFn func(string) error) tea.Cmd {
	return func() tea.Msg {
		if copyFn != nil {
			if err := copyFn(text); err == nil {
				return OpenURLSuccessMsg{Status: label + " copied to clipboard"}
			}
		}
		return OpenURLErrorMsg{Err: fmt.Errorf("could not copy %s to clipboard", label)}
	}
}

func ClearStatusCmd(id int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg { return ClearStatusMsg{ID: id} })
}
