package timeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/glabrego/deck-cli/internal/nostr"
)

type KindType int

const (
	KindUniverse KindType = iota + 1
	KindHome
	KindNotifications
	KindProfile
	KindThread
	KindHashtag
	KindSearch
)

var kindTypeNames = map[KindType]string{
	KindUniverse:      "universe",
	KindHome:          "home",
	KindNotifications: "notifications",
	KindProfile:       "profile",
	KindThread:        "thread",
	KindHashtag:       "hashtag",
	KindSearch:        "search",
}

func (t KindType) String() string {
	if name, ok := kindTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(t))
}

func parseKindType(name string) (KindType, error) {
	for t, n := range kindTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown timeline kind %q", name)
}

// Kind identifies a feed query. Two Kinds with equal fields are the same
// feed, so Kind is used directly as a map key.
type Kind struct {
	Type   KindType
	Pubkey nostr.Pubkey
	Value  string
}

const (
	universeLimit = 500
	feedLimit     = 250
)

func Universe() Kind { return Kind{Type: KindUniverse} }

func Home(pk nostr.Pubkey) Kind { return Kind{Type: KindHome, Pubkey: pk} }

func Notifications(pk nostr.Pubkey) Kind { return Kind{Type: KindNotifications, Pubkey: pk} }

func Profile(pk nostr.Pubkey) Kind { return Kind{Type: KindProfile, Pubkey: pk} }

func Thread(noteID string) Kind {
	return Kind{Type: KindThread, Value: strings.ToLower(strings.TrimSpace(noteID))}
}

// Hashtag normalizes the tag: leading '#' stripped, lower-cased.
func Hashtag(tag string) Kind {
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
	return Kind{Type: KindHashtag, Value: strings.ToLower(tag)}
}

func Search(query string) Kind { return Kind{Type: KindSearch, Value: strings.TrimSpace(query)} }

func (k Kind) String() string {
	switch k.Type {
	case KindHome, KindNotifications, KindProfile:
		return k.Type.String() + ":" + k.Pubkey.Short()
	case KindThread:
		short := k.Value
		if len(short) > 8 {
			short = short[:8]
		}
		return "thread:" + short
	case KindHashtag:
		return "#" + k.Value
	case KindSearch:
		return "search:" + k.Value
	default:
		return k.Type.String()
	}
}

// FiltersFor derives the REQ filters for k. A home feed starts by asking
// for the account's contact list; HomeFilters takes over once it arrives.
func FiltersFor(k Kind) []nostr.Filter {
	switch k.Type {
	case KindUniverse:
		return []nostr.Filter{{Kinds: []int{nostr.KindTextNote}, Limit: universeLimit}}
	case KindHome:
		return []nostr.Filter{{
			Kinds:   []int{nostr.KindContactList},
			Authors: []string{k.Pubkey.Hex()},
			Limit:   1,
		}}
	case KindNotifications:
		return []nostr.Filter{{
			Kinds: []int{nostr.KindTextNote, nostr.KindRepost, nostr.KindReaction},
			Tags:  map[string][]string{"p": {k.Pubkey.Hex()}},
			Limit: feedLimit,
		}}
	case KindProfile:
		return []nostr.Filter{{
			Kinds:   []int{nostr.KindTextNote, nostr.KindRepost},
			Authors: []string{k.Pubkey.Hex()},
			Limit:   feedLimit,
		}}
	case KindThread:
		return []nostr.Filter{
			{IDs: []string{k.Value}},
			{Kinds: []int{nostr.KindTextNote}, Tags: map[string][]string{"e": {k.Value}}},
		}
	case KindHashtag:
		return []nostr.Filter{{
			Kinds: []int{nostr.KindTextNote},
			Tags:  map[string][]string{"t": {k.Value}},
			Limit: feedLimit,
		}}
	case KindSearch:
		return []nostr.Filter{{Kinds: []int{nostr.KindTextNote}, Search: k.Value, Limit: feedLimit}}
	}
	return nil
}

// HomeFilters follows the notes of the given contacts plus the account itself,
// and keeps watching the account's contact list for updates.
func HomeFilters(pk nostr.Pubkey, contacts []string) []nostr.Filter {
	authors := make([]string, 0, len(contacts)+1)
	authors = append(authors, pk.Hex())
	for _, c := range contacts {
		if c != pk.Hex() {
			authors = append(authors, c)
		}
	}
	return []nostr.Filter{
		{
			Kinds:   []int{nostr.KindTextNote, nostr.KindRepost},
			Authors: authors,
			Limit:   feedLimit,
		},
		{
			Kinds:   []int{nostr.KindContactList},
			Authors: []string{pk.Hex()},
			Limit:   1,
		},
	}
}

type kindJSON struct {
	Type   string        `json:"type"`
	Pubkey *nostr.Pubkey `json:"pubkey,omitempty"`
	Value  string        `json:"value,omitempty"`
}

func (k Kind) MarshalJSON() ([]byte, error) {
	out := kindJSON{Type: k.Type.String(), Value: k.Value}
	if !k.Pubkey.IsZero() {
		pk := k.Pubkey
		out.Pubkey = &pk
	}
	return json.Marshal(out)
}

func (k *Kind) UnmarshalJSON(b []byte) error {
	var in kindJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return fmt.Errorf("decode timeline kind: %w", err)
	}
	t, err := parseKindType(in.Type)
	if err != nil {
		return err
	}
	*k = Kind{Type: t, Value: in.Value}
	if in.Pubkey != nil {
		k.Pubkey = *in.Pubkey
	}
	return nil
}
