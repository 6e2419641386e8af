package app

import (
	"context"
	"fmt"
	"slices"

	"github.com/glabrego/deck-cli/internal/accounts"
	"github.com/glabrego/deck-cli/internal/columns"
	"github.com/glabrego/deck-cli/internal/logs"
	"github.com/glabrego/deck-cli/internal/nostr"
	"github.com/glabrego/deck-cli/internal/relay"
	"github.com/glabrego/deck-cli/internal/route"
	"github.com/glabrego/deck-cli/internal/timeline"
)

// maxPollBatch bounds the work done per UI tick.
const maxPollBatch = 512

type RelayPool interface {
	timeline.Pool
	Events() <-chan relay.Message
}

type Repository interface {
	timeline.NoteReader
	SaveNotes(ctx context.Context, notes []nostr.Event) error
	SaveColumns(ctx context.Context, columns [][]route.Route) error
	LoadColumns(ctx context.Context) ([][]route.Route, error)
	SaveSelectedAccount(ctx context.Context, index *int) error
	LoadSelectedAccount(ctx context.Context) (*int, error)
}

// Deck ties columns, the timeline cache and accounts to a relay pool and
// the local store. It is not safe for concurrent use.
type Deck struct {
	pool     RelayPool
	repo     Repository
	columns  *columns.Columns
	cache    *timeline.Cache
	accounts *accounts.Manager
}

func NewDeck(pool RelayPool, keys accounts.KeyStorage, repo Repository) *Deck {
	return &Deck{
		pool:     pool,
		repo:     repo,
		columns:  columns.New(),
		cache:    timeline.NewCache(pool),
		accounts: accounts.NewManager(nil, keys),
	}
}

func (d *Deck) Columns() *columns.Columns { return d.columns }

func (d *Deck) Cache() *timeline.Cache { return d.cache }

func (d *Deck) Accounts() *accounts.Manager { return d.accounts }

// Restore rebuilds the saved layout and account selection. Without a saved
// layout it opens the selected account's home feed, or the universe feed.
func (d *Deck) Restore(ctx context.Context) {
	selected, err := d.repo.LoadSelectedAccount(ctx)
	if err != nil {
		logs.Warning.Printf("deck: load selected account: %v", err)
	}
	if selected != nil {
		d.accounts.Select(*selected)
	}

	layout, err := d.repo.LoadColumns(ctx)
	if err != nil {
		logs.Warning.Printf("deck: load layout: %v", err)
		layout = nil
	}
	for _, routes := range layout {
		irs := make([]columns.IntermediaryRoute, 0, len(routes))
		for _, r := range routes {
			irs = append(irs, columns.IntermediaryPlain(r))
		}
		d.columns.InsertIntermediaryRoutes(d.cache, irs)
	}

	if d.columns.Len() == 0 {
		d.AddTimelineColumn(ctx, d.defaultKind())
		return
	}
	d.cache.Reconcile(ctx, d.repo, d.columns.ReferencedKinds())
}

func (d *Deck) defaultKind() timeline.Kind {
	if kp, ok := d.accounts.Selected(); ok {
		return timeline.Home(kp.Pubkey)
	}
	return timeline.Universe()
}

// PickerKinds lists the feeds a column picker offers for the active account.
func (d *Deck) PickerKinds() []timeline.Kind {
	kinds := []timeline.Kind{timeline.Universe()}
	if kp, ok := d.accounts.Selected(); ok {
		kinds = append(kinds,
			timeline.Home(kp.Pubkey),
			timeline.Notifications(kp.Pubkey),
			timeline.Profile(kp.Pubkey),
		)
	}
	return kinds
}

func (d *Deck) AddTimelineColumn(ctx context.Context, kind timeline.Kind) timeline.OpenResult {
	result := d.columns.AddTimelineColumn(ctx, d.cache, d.repo, kind)
	logs.Info.Printf("deck: added column %s (%s)", kind, result)
	return result
}

func (d *Deck) AddColumnPicker() { d.columns.NewColumnPicker() }

// RemoveColumn deletes the column and releases every feed it referenced.
func (d *Deck) RemoveColumn(index int) error {
	kinds, err := d.columns.DeleteColumn(index)
	if err != nil {
		return fmt.Errorf("remove column: %w", err)
	}
	for _, kind := range kinds {
		d.cache.Release(kind)
	}
	return nil
}

func (d *Deck) MoveColumn(from, to int) { d.columns.MoveColumn(from, to) }

func (d *Deck) PushRoute(ctx context.Context, index int, r route.Route) {
	d.columns.PushRoute(ctx, index, d.cache, d.repo, r)
}

// PopRoute reports whether a route was popped.
func (d *Deck) PopRoute(index int) bool {
	before := d.columns.Column(index).Router().Len()
	if kind, orphaned := d.columns.PopRoute(index); orphaned {
		d.cache.Release(kind)
	}
	return d.columns.Column(index).Router().Len() < before
}

func (d *Deck) ReplaceTop(ctx context.Context, index int, r route.Route) {
	if kind, orphaned := d.columns.ReplaceTop(ctx, index, d.cache, d.repo, r); orphaned {
		d.cache.Release(kind)
	}
}

// Timeline returns the feed shown on top of column index, if any.
func (d *Deck) Timeline(index int) (*timeline.Timeline, bool) {
	kind, ok := route.KindOf(d.columns.Column(index).Router().Top())
	if !ok {
		return nil, false
	}
	return d.cache.Get(kind)
}

func (d *Deck) AddAccount(kp accounts.Keypair) {
	if err := d.accounts.Add(kp); err != nil {
		logs.Warning.Printf("deck: %v", err)
	}
}

func (d *Deck) RemoveAccount(index int) {
	if err := d.accounts.Remove(index); err != nil {
		logs.Warning.Printf("deck: %v", err)
	}
}

func (d *Deck) SelectAccount(index int) { d.accounts.Select(index) }

// Poll handles the relay messages that are already waiting and returns how
// many it consumed. It never blocks.
func (d *Deck) Poll(ctx context.Context) int {
	var notes []nostr.Event
	handled := 0
	defer func() {
		if err := d.repo.SaveNotes(ctx, notes); err != nil {
			logs.Warning.Printf("deck: persist notes: %v", err)
		}
	}()

	for handled < maxPollBatch {
		select {
		case msg, ok := <-d.pool.Events():
			if !ok {
				return handled
			}
			handled++
			if ev, keep := d.handle(msg); keep {
				notes = append(notes, ev)
			}
		default:
			return handled
		}
	}
	return handled
}

// handle applies one relay message and returns the event to persist, if any.
func (d *Deck) handle(msg relay.Message) (nostr.Event, bool) {
	switch msg.Type {
	case relay.MessageNotice:
		logs.Info.Printf("deck: notice from %s: %s", msg.Relay, msg.Notice)
		return nostr.Event{}, false
	case relay.MessageEOSE:
		if tl, ok := d.cache.BySubscription(msg.Subscription); ok {
			tl.MarkLoaded()
		}
		return nostr.Event{}, false
	case relay.MessageEvent:
	default:
		return nostr.Event{}, false
	}

	// Events for closed subscriptions can still be in flight.
	tl, ok := d.cache.BySubscription(msg.Subscription)
	if !ok {
		return nostr.Event{}, false
	}
	ev := msg.Event
	if tl.Kind.Type == timeline.KindHome && ev.Kind == nostr.KindContactList {
		if ev.Pubkey == tl.Kind.Pubkey.Hex() {
			d.followContacts(tl, ev)
		}
		return ev, true
	}
	tl.Insert(ev)
	return ev, true
}

func (d *Deck) followContacts(tl *timeline.Timeline, ev nostr.Event) {
	if !tl.FollowContactList(ev) {
		return
	}
	d.cache.Resubscribe(tl.Kind)
	logs.Info.Printf("deck: %s now follows %d contacts", tl.Kind, len(tl.Contacts()))
}

// SaveLayout persists the route stack of every column and the account
// selection.
func (d *Deck) SaveLayout(ctx context.Context) error {
	layout := make([][]route.Route, 0, d.columns.Len())
	for _, col := range d.columns.Columns() {
		layout = append(layout, slices.Clone(col.Router().Routes()))
	}
	if err := d.repo.SaveColumns(ctx, layout); err != nil {
		return fmt.Errorf("save layout: %w", err)
	}

	var selected *int
	if idx, ok := d.accounts.SelectedIndex(); ok {
		selected = &idx
	}
	if err := d.repo.SaveSelectedAccount(ctx, selected); err != nil {
		return fmt.Errorf("save selected account: %w", err)
	}
	return nil
}
