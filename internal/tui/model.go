package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/deck-cli/internal/accounts"
	"github.com/glabrego/deck-cli/internal/app"
	"github.com/glabrego/deck-cli/internal/columns"
	"github.com/glabrego/deck-cli/internal/logs"
	"github.com/glabrego/deck-cli/internal/nostr"
	"github.com/glabrego/deck-cli/internal/relay"
	"github.com/glabrego/deck-cli/internal/route"
	"github.com/glabrego/deck-cli/internal/timeline"
	tuiactions "github.com/glabrego/deck-cli/internal/tui/actions"
	tuiplatform "github.com/glabrego/deck-cli/internal/tui/platform"
	tuistate "github.com/glabrego/deck-cli/internal/tui/state"
	tuitheme "github.com/glabrego/deck-cli/internal/tui/theme"
	tuiview "github.com/glabrego/deck-cli/internal/tui/view"
)

const (
	minColumnWidth = 34
	statusTTL      = 4 * time.Second
	connectTimeout = 15 * time.Second
	saveTimeout    = 5 * time.Second
)

type Options struct {
	Relays       []string
	Connector    tuiactions.Connector
	PollInterval time.Duration
	// ConnectedRelays reports the relays currently up, for the footer.
	ConnectedRelays func() []string
	InfoFetcher     tuiactions.InfoFetcher
}

type inputTarget int

const (
	inputNone inputTarget = iota
	inputHashtag
	inputSearch
	inputAccount
)

func (t inputTarget) label() string {
	switch t {
	case inputHashtag:
		return "hashtag"
	case inputSearch:
		return "search"
	case inputAccount:
		return "pubkey [secret]"
	}
	return ""
}

type Model struct {
	ctx     context.Context
	deck    *app.Deck
	opts    Options
	theme   tuitheme.Theme
	cursors map[*columns.Column]int

	colStart int
	width    int
	height   int

	loading  bool
	relays   []string
	info     map[string]relay.Info
	status   string
	statusID int
	err      error

	input      inputTarget
	inputValue string

	openURLFn func(string) error
	copyFn    func(string) error
	nowFn     func() time.Time
}

func NewModel(deck *app.Deck, opts Options) Model {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 250 * time.Millisecond
	}
	return Model{
		ctx:       context.Background(),
		deck:      deck,
		opts:      opts,
		theme:     tuitheme.Default(),
		cursors:   make(map[*columns.Column]int),
		loading:   opts.Connector != nil && len(opts.Relays) > 0,
		openURLFn: tuiplatform.OpenURLInBrowser,
		copyFn:    tuiplatform.CopyToClipboard,
		nowFn:     time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tuiactions.TickCmd(m.opts.PollInterval)}
	if m.loading {
		cmds = append(cmds, tuiactions.ConnectCmd(m.opts.Connector, m.opts.Relays, connectTimeout))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.syncColumnWindow()
		return m, nil
	case tuiactions.TickMsg:
		m.deck.Poll(m.ctx)
		if m.opts.ConnectedRelays != nil {
			m.relays = m.opts.ConnectedRelays()
		}
		return m, tuiactions.TickCmd(m.opts.PollInterval)
	case tuiactions.RelaysConnectedMsg:
		m.loading = false
		if msg.Connected == 0 {
			m.err = fmt.Errorf("could not connect to any of %d relays", msg.Total)
			return m, nil
		}
		m.err = nil
		next, status := m.setStatus(fmt.Sprintf("Connected to %d/%d relays in %dms", msg.Connected, msg.Total, msg.Duration.Milliseconds()))
		if m.opts.InfoFetcher == nil {
			return next, status
		}
		return next, tea.Batch(status, tuiactions.RelayInfoCmd(m.opts.InfoFetcher, m.opts.Relays, connectTimeout))
	case tuiactions.RelayInfoMsg:
		m.info = msg.Infos
		if msg.Err != nil {
			logs.Warning.Printf("tui: %v", msg.Err)
		}
		return m, nil
	case tuiactions.OpenURLSuccessMsg:
		m.err = nil
		return m.setStatus(msg.Status)
	case tuiactions.OpenURLErrorMsg:
		m.err = msg.Err
		return m, nil
	case tuiactions.ClearStatusMsg:
		if msg.ID == m.statusID {
			m.status = ""
		}
		return m, nil
	case tea.KeyMsg:
		if m.input != inputNone {
			return m.updateInput(msg)
		}
		next, cmd := m.updateKey(msg)
		if nm, ok := next.(Model); ok {
			nm.syncColumnWindow()
			return nm, cmd
		}
		return next, cmd
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cols := m.deck.Columns()
	sel := cols.SelectedIndex()

	switch msg.String() {
	case "ctrl+c", "q":
		m.saveLayout()
		return m, tea.Quit
	case "h", "left":
		cols.SelectLeft()
		return m, nil
	case "l", "right":
		cols.SelectRight()
		return m, nil
	case "H":
		if sel > 0 && sel < cols.Len() {
			m.deck.MoveColumn(sel, sel-1)
			cols.SelectLeft()
		}
		return m, nil
	case "L":
		if sel+1 < cols.Len() {
			m.deck.MoveColumn(sel, sel+1)
			cols.SelectRight()
		}
		return m, nil
	case "a":
		m.deck.AddColumnPicker()
		for cols.SelectedIndex() < cols.Len()-1 {
			cols.SelectRight()
		}
		return m, nil
	case "x":
		return m.removeSelectedColumn()
	}

	col, ok := cols.Selected()
	if !ok {
		return m, nil
	}

	switch msg.String() {
	case "esc", "backspace":
		if m.deck.PopRoute(sel) {
			m.cursors[col] = 0
		}
		return m, nil
	case "A":
		if _, already := col.Router().Top().(route.AccountsRoute); !already {
			m.deck.PushRoute(m.ctx, sel, route.AccountsRoute{})
			m.cursors[col] = 0
		}
		return m, nil
	case "s":
		if _, already := col.Router().Top().(route.SettingsRoute); !already {
			m.deck.PushRoute(m.ctx, sel, route.SettingsRoute{})
		}
		return m, nil
	case "y":
		kp, ok := m.deck.Accounts().Selected()
		if !ok {
			m.err = errors.New("no account selected")
			return m, nil
		}
		return m, tuiactions.CopyCmd(kp.Pubkey.Hex(), "pubkey", m.copyFn)
	case "j", "down":
		m.moveCursor(col, 1)
		return m, nil
	case "k", "up":
		m.moveCursor(col, -1)
		return m, nil
	}

	switch top := col.Router().Top().(type) {
	case route.TimelineRoute:
		return m.updateTimelineKey(msg, sel, col, top.Kind)
	case route.AddColumnRoute:
		return m.updatePickerKey(msg, sel, col)
	case route.AccountsRoute:
		return m.updateAccountsKey(msg, sel, col)
	}
	return m, nil
}

func (m Model) updateTimelineKey(msg tea.KeyMsg, sel int, col *columns.Column, kind timeline.Kind) (tea.Model, tea.Cmd) {
	note, ok := m.currentNote(col, kind)
	if !ok {
		return m, nil
	}
	switch msg.String() {
	case "enter":
		m.deck.PushRoute(m.ctx, sel, route.Timeline(timeline.Thread(note.ID)))
		m.cursors[col] = 0
	case "p":
		pk, err := nostr.ParsePubkey(note.Pubkey)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.deck.PushRoute(m.ctx, sel, route.Timeline(timeline.Profile(pk)))
		m.cursors[col] = 0
	case "o":
		url, err := tuiplatform.NoteWebURL(note.ID)
		if err != nil {
			m.err = err
			return m, nil
		}
		return m, tuiactions.OpenURLCmd(url, m.openURLFn, m.copyFn)
	}
	return m, nil
}

func (m Model) updatePickerKey(msg tea.KeyMsg, sel int, col *columns.Column) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		kinds := m.deck.PickerKinds()
		kind := kinds[tuistate.ClampCursor(m.cursors[col], len(kinds))]
		m.deck.ReplaceTop(m.ctx, sel, route.Timeline(kind))
		m.cursors[col] = 0
		return m.setStatus("Opened " + kind.String())
	case "#":
		m.input = inputHashtag
	case "/":
		m.input = inputSearch
	}
	return m, nil
}

func (m Model) updateAccountsKey(msg tea.KeyMsg, sel int, col *columns.Column) (tea.Model, tea.Cmd) {
	accts := m.deck.Accounts()
	cursor := tuistate.ClampCursor(m.cursors[col], accts.Len())
	switch msg.String() {
	case "i":
		m.input = inputAccount
	case "enter":
		if accts.Len() == 0 {
			return m, nil
		}
		m.deck.SelectAccount(cursor)
		m.deck.PopRoute(sel)
		m.cursors[col] = 0
		kp, _ := accts.Selected()
		return m.setStatus("Switched to " + kp.Pubkey.Short())
	case "d":
		if accts.Len() == 0 {
			return m, nil
		}
		m.deck.RemoveAccount(cursor)
		m.cursors[col] = tuistate.ClampCursor(cursor, accts.Len())
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.input, m.inputValue = inputNone, ""
		return m, nil
	case tea.KeyBackspace:
		if r := []rune(m.inputValue); len(r) > 0 {
			m.inputValue = string(r[:len(r)-1])
		}
		return m, nil
	case tea.KeySpace:
		m.inputValue += " "
		return m, nil
	case tea.KeyRunes:
		m.inputValue += string(msg.Runes)
		return m, nil
	case tea.KeyEnter:
		target, value := m.input, strings.TrimSpace(m.inputValue)
		m.input, m.inputValue = inputNone, ""
		if value == "" {
			return m, nil
		}
		return m.confirmInput(target, value)
	}
	return m, nil
}

func (m Model) confirmInput(target inputTarget, value string) (tea.Model, tea.Cmd) {
	cols := m.deck.Columns()
	col, ok := cols.Selected()
	if !ok {
		return m, nil
	}
	sel := cols.SelectedIndex()

	switch target {
	case inputHashtag, inputSearch:
		kind := timeline.Hashtag(value)
		if target == inputSearch {
			kind = timeline.Search(value)
		}
		if kind.Value == "" {
			m.err = fmt.Errorf("empty %s", target.label())
			return m, nil
		}
		m.deck.ReplaceTop(m.ctx, sel, route.Timeline(kind))
		m.cursors[col] = 0
		return m.setStatus("Opened " + kind.String())
	case inputAccount:
		kp, err := parseKeypair(value)
		if err != nil {
			m.err = err
			return m, nil
		}
		if _, exists := m.deck.Accounts().Find(kp.Pubkey); exists {
			m.err = fmt.Errorf("account %s already added", kp.Pubkey.Short())
			return m, nil
		}
		m.deck.AddAccount(kp)
		m.err = nil
		return m.setStatus("Added account " + kp.Pubkey.Short())
	}
	return m, nil
}

// parseKeypair reads "pubkey" or "pubkey secret", both hex.
func parseKeypair(value string) (accounts.Keypair, error) {
	fields := strings.Fields(value)
	pk, err := nostr.ParsePubkey(fields[0])
	if err != nil {
		return accounts.Keypair{}, err
	}
	kp := accounts.Keypair{Pubkey: pk}
	if len(fields) > 1 {
		sk, err := accounts.ParseSecretKey(fields[1])
		if err != nil {
			return accounts.Keypair{}, err
		}
		kp.Secret = sk
	}
	return kp, nil
}

func (m Model) removeSelectedColumn() (tea.Model, tea.Cmd) {
	cols := m.deck.Columns()
	col, ok := cols.Selected()
	if !ok {
		return m, nil
	}
	if err := m.deck.RemoveColumn(cols.SelectedIndex()); err != nil {
		m.err = err
		return m, nil
	}
	delete(m.cursors, col)
	if _, ok := cols.Selected(); !ok {
		cols.SelectLeft()
	}
	return m, nil
}

func (m *Model) moveCursor(col *columns.Column, delta int) {
	m.cursors[col] = tuistate.ClampCursor(m.cursors[col]+delta, m.rowCount(col))
}

func (m Model) rowCount(col *columns.Column) int {
	switch top := col.Router().Top().(type) {
	case route.TimelineRoute:
		if tl, ok := m.deck.Cache().Get(top.Kind); ok {
			return len(tl.Notes())
		}
	case route.AddColumnRoute:
		return len(m.deck.PickerKinds())
	case route.AccountsRoute:
		return m.deck.Accounts().Len()
	}
	return 0
}

func (m Model) currentNote(col *columns.Column, kind timeline.Kind) (nostr.Event, bool) {
	tl, ok := m.deck.Cache().Get(kind)
	if !ok || len(tl.Notes()) == 0 {
		return nostr.Event{}, false
	}
	notes := tl.Notes()
	return notes[tuistate.ClampCursor(m.cursors[col], len(notes))], true
}

func (m Model) setStatus(status string) (tea.Model, tea.Cmd) {
	m.statusID++
	m.status = status
	return m, tuiactions.ClearStatusCmd(m.statusID, statusTTL)
}

func (m Model) saveLayout() {
	ctx, cancel := context.WithTimeout(m.ctx, saveTimeout)
	defer cancel()
	if err := m.deck.SaveLayout(ctx); err != nil {
		logs.Error.Printf("tui: %v", err)
	}
}

func (m *Model) syncColumnWindow() {
	cols := m.deck.Columns()
	visible, _ := tuistate.ColumnLayout(m.contentWidth(), cols.Len(), minColumnWidth)
	m.colStart = tuistate.ColumnWindow(cols.Len(), visible, cols.SelectedIndex(), m.colStart)
}

func (m Model) mode() tuiview.Mode {
	if m.input != inputNone {
		return tuiview.ModeInput
	}
	col, ok := m.deck.Columns().Selected()
	if !ok {
		return tuiview.ModeTimeline
	}
	switch col.Router().Top().(type) {
	case route.AddColumnRoute:
		return tuiview.ModePicker
	case route.AccountsRoute:
		return tuiview.ModeAccounts
	case route.SettingsRoute:
		return tuiview.ModeSettings
	}
	return tuiview.ModeTimeline
}

func (m Model) contentWidth() int {
	if m.width <= 0 {
		return 120
	}
	return m.width
}

func (m Model) columnHeight() int {
	if m.height <= 0 {
		return 24
	}
	// header, toolbar gap, message and footer
	h := m.height - 4
	if h < 6 {
		h = 6
	}
	return h
}

func (m Model) View() string {
	var b strings.Builder
	mode := m.mode()
	b.WriteString(m.theme.Title.Render("deck") + " " + m.theme.ModePill.Render(mode.String()) + " " + tuiview.Toolbar(mode))
	b.WriteString("\n\n")
	b.WriteString(m.columnsView())
	b.WriteString("\n")
	b.WriteString(m.messagePanel())
	b.WriteString("\n")
	b.WriteString(m.footer())
	b.WriteString("\n")
	return b.String()
}

func (m Model) columnsView() string {
	cols := m.deck.Columns()
	visible, width := tuistate.ColumnLayout(m.contentWidth(), cols.Len(), minColumnWidth)
	if visible == 0 {
		return "No columns.\n"
	}
	start := tuistate.ColumnWindow(cols.Len(), visible, cols.SelectedIndex(), m.colStart)
	height := m.columnHeight()

	rendered := make([]string, 0, visible)
	for i := start; i < start+visible && i < cols.Len(); i++ {
		col := cols.Column(i)
		title, status, lines := m.columnBody(col, width, height)
		rendered = append(rendered, tuiview.RenderColumn(tuiview.ColumnParams{
			Title:  title,
			Status: status,
			Lines:  lines,
			Width:  width,
			Height: height,
			Active: i == cols.SelectedIndex(),
		}, m.theme))
	}
	return tuiview.JoinColumns(rendered)
}

func (m Model) columnBody(col *columns.Column, width, height int) (string, string, []string) {
	router := col.Router()
	top := router.Top()
	title := route.Title(top)
	if router.Len() > 1 {
		title = fmt.Sprintf("%s ‹%d", title, router.Len()-1)
	}
	inner := m.theme.ColumnBodyWidth(width)
	rows := m.theme.ColumnBodyHeight(height) - 2
	cursor := m.cursors[col]

	switch top := top.(type) {
	case route.TimelineRoute:
		tl, ok := m.deck.Cache().Get(top.Kind)
		if !ok {
			return title, "closed", []string{m.theme.Muted.Render("feed is not open")}
		}
		status := fmt.Sprintf("%d notes", len(tl.Notes()))
		if !tl.Loaded() {
			status = "loading"
		}
		notes := tl.Notes()
		if len(notes) == 0 {
			return title, status, []string{m.theme.Muted.Render("No notes yet.")}
		}
		cursor = tuistate.ClampCursor(cursor, len(notes))
		first, last := tuistate.CenteredWindow(len(notes), cursor, rows/2)
		lines := make([]string, 0, (last-first)*2)
		for i := first; i < last; i++ {
			lines = append(lines, tuiview.NoteLines(tuiview.NoteLineParams{
				Note:   notes[i],
				Now:    m.nowFn(),
				Active: i == cursor,
				Width:  inner,
			}, m.theme)...)
		}
		return title, status, lines
	case route.AddColumnRoute:
		kinds := m.deck.PickerKinds()
		cursor = tuistate.ClampCursor(cursor, len(kinds))
		lines := make([]string, 0, len(kinds)+2)
		for i, kind := range kinds {
			badge := ""
			if _, open := m.deck.Cache().Get(kind); open {
				badge = m.theme.Muted.Render("open")
			}
			lines = append(lines, tuiview.ListLine(kind.String(), badge, inner, i == cursor, m.theme))
		}
		lines = append(lines, "", m.theme.Muted.Render("# hashtag   / search"))
		return title, "", lines
	case route.AccountsRoute:
		accts := m.deck.Accounts()
		if accts.Len() == 0 {
			return title, "", []string{m.theme.Muted.Render("No accounts. Press i to add one.")}
		}
		selected, hasSelected := accts.SelectedIndex()
		cursor = tuistate.ClampCursor(cursor, accts.Len())
		lines := make([]string, 0, accts.Len())
		for i, kp := range accts.All() {
			badge := m.theme.Muted.Render("read-only")
			if kp.CanSign() {
				badge = m.theme.Signing.Render("signing")
			}
			label := kp.Pubkey.Hex()
			if hasSelected && selected == i {
				label = "* " + label
			}
			lines = append(lines, tuiview.ListLine(label, badge, inner, i == cursor, m.theme))
		}
		return title, fmt.Sprintf("%d", accts.Len()), lines
	case route.SettingsRoute:
		lines := []string{m.theme.MetaLabel.Render("configured relays")}
		for _, r := range m.opts.Relays {
			lines = append(lines, "  "+r)
			if info, ok := m.info[r]; ok {
				lines = append(lines, "    "+m.theme.Muted.Render(relayInfoLabel(info)))
			}
		}
		lines = append(lines, "", m.theme.MetaLabel.Render("connected relays"))
		for _, r := range m.relays {
			lines = append(lines, "  "+r)
		}
		lines = append(lines, "", m.theme.MetaLabel.Render("open feeds")+" "+m.theme.MetaValue.Render(fmt.Sprintf("%d", m.deck.Cache().Len())))
		return title, "", lines
	}
	return title, "", nil
}

func (m Model) messagePanel() string {
	if m.input != inputNone {
		return tuiview.Prompt(m.input.label(), m.inputValue, m.theme)
	}
	warning := ""
	if m.err != nil {
		warning = m.err.Error()
	}
	return tuiview.Message(m.loading, m.err != nil, m.status, warning, m.theme)
}

func (m Model) footer() string {
	account := ""
	if kp, ok := m.deck.Accounts().Selected(); ok {
		account = kp.Pubkey.Short()
	}
	cols := m.deck.Columns()
	return tuiview.Footer(cols.Len(), cols.SelectedIndex(), m.deck.Cache().Len(), m.relays, account, m.theme)
}

func relayInfoLabel(info relay.Info) string {
	label := info.Name
	if label == "" {
		label = "unnamed"
	}
	if info.Software != "" {
		label += " · " + info.Software
		if info.Version != "" {
			label += " " + info.Version
		}
	}
	if len(info.SupportedNIPs) > 0 {
		label += fmt.Sprintf(" · %d nips", len(info.SupportedNIPs))
	}
	return label
}
