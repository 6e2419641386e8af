package timeline

import (
	"slices"
	"sort"

	"github.com/glabrego/deck-cli/internal/nostr"
)

const maxNotes = 500

// Timeline is the live state behind one Kind: the relay subscription and
// the notes collected for it so far, newest first.
type Timeline struct {
	Kind Kind

	subID    nostr.SubscriptionID
	refs     int
	notes    []nostr.Event
	seen     map[string]struct{}
	loaded   bool
	contacts []string
	// contactsAt is the created_at of the contact list being followed.
	contactsAt int64
}

func NewTimeline(kind Kind) *Timeline {
	return &Timeline{Kind: kind, seen: make(map[string]struct{})}
}

func (t *Timeline) SubscriptionID() nostr.SubscriptionID { return t.subID }

// Refs is the number of columns currently depending on this timeline.
func (t *Timeline) Refs() int { return t.refs }

func (t *Timeline) Notes() []nostr.Event { return t.notes }

// Loaded reports whether relays signalled end of stored events.
func (t *Timeline) Loaded() bool { return t.loaded }

func (t *Timeline) MarkLoaded() { t.loaded = true }

func (t *Timeline) Contacts() []string { return t.contacts }

func (t *Timeline) SetContacts(contacts []string) {
	t.contacts = append([]string(nil), contacts...)
}

// FollowContactList adopts the contacts of ev unless an equal or newer list
// is already followed, and reports whether the contacts changed.
func (t *Timeline) FollowContactList(ev nostr.Event) bool {
	contacts := ContactsOf(ev)
	if len(contacts) == 0 || ev.CreatedAt < t.contactsAt {
		return false
	}
	t.contactsAt = ev.CreatedAt
	if slices.Equal(contacts, t.contacts) {
		return false
	}
	t.SetContacts(contacts)
	return true
}

// filters is FiltersFor(Kind), except that a home feed with a known
// contact list follows the contacts directly.
func (t *Timeline) filters() []nostr.Filter {
	if t.Kind.Type == KindHome && len(t.contacts) > 0 {
		return HomeFilters(t.Kind.Pubkey, t.contacts)
	}
	return FiltersFor(t.Kind)
}

// ContactsOf extracts the followed pubkeys from a contact list event.
func ContactsOf(ev nostr.Event) []string {
	if ev.Kind != nostr.KindContactList {
		return nil
	}
	return ev.TagValues("p")
}

// Insert adds ev unless already present and reports whether it was kept.
// An event older than a full timeline is dropped.
func (t *Timeline) Insert(ev nostr.Event) bool {
	if ev.ID == "" {
		return false
	}
	if _, ok := t.seen[ev.ID]; ok {
		return false
	}
	i := sort.Search(len(t.notes), func(i int) bool {
		return t.notes[i].CreatedAt < ev.CreatedAt
	})
	if i >= maxNotes {
		return false
	}
	t.seen[ev.ID] = struct{}{}
	t.notes = append(t.notes, nostr.Event{})
	copy(t.notes[i+1:], t.notes[i:])
	t.notes[i] = ev

	if len(t.notes) > maxNotes {
		for _, dropped := range t.notes[maxNotes:] {
			delete(t.seen, dropped.ID)
		}
		t.notes = t.notes[:maxNotes]
	}
	return true
}
