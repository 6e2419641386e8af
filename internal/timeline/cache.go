package timeline

import (
	"context"

	"github.com/glabrego/deck-cli/internal/logs"
	"github.com/glabrego/deck-cli/internal/nostr"
)

// Pool is the relay side of the cache. Both calls only enqueue work;
// establishment of the subscription is observed later through events.
type Pool interface {
	Subscribe(filters []nostr.Filter) nostr.SubscriptionID
	Unsubscribe(id nostr.SubscriptionID)
}

// NoteReader resolves already-stored notes so a new timeline has something
// to show before relays answer.
type NoteReader interface {
	QueryNotes(ctx context.Context, filters []nostr.Filter, limit int) ([]nostr.Event, error)
}

type OpenResult int

const (
	OpenNew OpenResult = iota + 1
	OpenReused
)

func (r OpenResult) String() string {
	switch r {
	case OpenNew:
		return "new"
	case OpenReused:
		return "reused"
	default:
		return "unknown"
	}
}

// Cache keeps one Timeline per distinct Kind and counts how many columns
// depend on each. It is not safe for concurrent use.
type Cache struct {
	pool      Pool
	timelines map[Kind]*Timeline
	bySub     map[nostr.SubscriptionID]Kind
}

func NewCache(pool Pool) *Cache {
	return &Cache{
		pool:      pool,
		timelines: make(map[Kind]*Timeline),
		bySub:     make(map[nostr.SubscriptionID]Kind),
	}
}

// Open adds a reference to kind, subscribing only on the first one.
// reader may be nil; local seeding failures are logged.
func (c *Cache) Open(ctx context.Context, reader NoteReader, kind Kind) OpenResult {
	if tl, ok := c.timelines[kind]; ok {
		tl.refs++
		return OpenReused
	}

	tl := NewTimeline(kind)
	tl.refs = 1
	c.seed(ctx, reader, tl)
	c.subscribe(tl)
	c.timelines[kind] = tl
	return OpenNew
}

// Release drops one reference and unsubscribes when none remain.
func (c *Cache) Release(kind Kind) {
	tl, ok := c.timelines[kind]
	if !ok {
		logs.Warning.Printf("timeline cache: release of unknown timeline %s", kind)
		return
	}
	tl.refs--
	if tl.refs > 0 {
		return
	}
	c.unsubscribe(tl)
	delete(c.timelines, kind)
}

func (c *Cache) Get(kind Kind) (*Timeline, bool) {
	tl, ok := c.timelines[kind]
	return tl, ok
}

func (c *Cache) Len() int { return len(c.timelines) }

// Insert places tl in the cache without touching reference counts or the
// pool. Callers must follow up with Reconcile.
func (c *Cache) Insert(tl *Timeline) {
	if old, ok := c.timelines[tl.Kind]; ok && old != tl {
		c.unsubscribe(old)
	}
	c.timelines[tl.Kind] = tl
	if tl.subID != "" {
		c.bySub[tl.subID] = tl.Kind
	}
}

// Reconcile makes reference counts match refs (column count per kind):
// unreferenced timelines are closed, referenced ones without a
// subscription are subscribed, and missing ones are created.
func (c *Cache) Reconcile(ctx context.Context, reader NoteReader, refs map[Kind]int) {
	for kind, tl := range c.timelines {
		n := refs[kind]
		if n <= 0 {
			c.unsubscribe(tl)
			delete(c.timelines, kind)
			continue
		}
		tl.refs = n
		if tl.subID == "" {
			c.subscribe(tl)
		}
	}
	for kind, n := range refs {
		if n <= 0 {
			continue
		}
		if _, ok := c.timelines[kind]; ok {
			continue
		}
		tl := NewTimeline(kind)
		tl.refs = n
		c.seed(ctx, reader, tl)
		c.subscribe(tl)
		c.timelines[kind] = tl
	}
}

// BySubscription finds the timeline an inbound relay message belongs to.
func (c *Cache) BySubscription(id nostr.SubscriptionID) (*Timeline, bool) {
	kind, ok := c.bySub[id]
	if !ok {
		return nil, false
	}
	return c.Get(kind)
}

// Resubscribe replaces the subscription of kind with a fresh one for its
// current filters, e.g. after a home feed learned its contact list.
// Reference counts are untouched.
func (c *Cache) Resubscribe(kind Kind) bool {
	tl, ok := c.timelines[kind]
	if !ok {
		return false
	}
	c.unsubscribe(tl)
	c.subscribe(tl)
	return true
}

func (c *Cache) subscribe(tl *Timeline) {
	tl.subID = c.pool.Subscribe(tl.filters())
	c.bySub[tl.subID] = tl.Kind
}

func (c *Cache) unsubscribe(tl *Timeline) {
	if tl.subID == "" {
		return
	}
	c.pool.Unsubscribe(tl.subID)
	delete(c.bySub, tl.subID)
	tl.subID = ""
}

func (c *Cache) seed(ctx context.Context, reader NoteReader, tl *Timeline) {
	if reader == nil {
		return
	}
	if tl.Kind.Type == KindHome {
		lists, err := reader.QueryNotes(ctx, FiltersFor(tl.Kind), 1)
		if err != nil {
			logs.Warning.Printf("timeline cache: load contact list for %s: %v", tl.Kind, err)
			return
		}
		if len(lists) == 0 || !tl.FollowContactList(lists[0]) {
			return
		}
	}
	notes, err := reader.QueryNotes(ctx, tl.filters(), maxNotes)
	if err != nil {
		logs.Warning.Printf("timeline cache: seed %s from local store: %v", tl.Kind, err)
		return
	}
	for _, n := range notes {
		if tl.Kind.Type == KindHome && n.Kind == nostr.KindContactList {
			continue
		}
		tl.Insert(n)
	}
}
