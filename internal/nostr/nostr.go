// Package nostr holds the protocol value types shared by the timeline
// cache, the relay pool and storage: keys, events and filters.
package nostr

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	KindTextNote    = 1
	KindContactList = 3
	KindRepost      = 6
	KindReaction    = 7
)

var ErrInvalidKey = errors.New("invalid 32-byte hex key")

// Pubkey is an x-only public key. It is comparable so it can sit inside map keys.
type Pubkey [32]byte

func ParsePubkey(s string) (Pubkey, error) {
	var pk Pubkey
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil || len(b) != len(pk) {
		return Pubkey{}, fmt.Errorf("parse pubkey %q: %w", s, ErrInvalidKey)
	}
	copy(pk[:], b)
	return pk, nil
}

func (pk Pubkey) Hex() string { return hex.EncodeToString(pk[:]) }

func (pk Pubkey) IsZero() bool { return pk == Pubkey{} }

// Short returns the first eight hex characters, for labels.
func (pk Pubkey) Short() string { return pk.Hex()[:8] }

func (pk Pubkey) MarshalText() ([]byte, error) { return []byte(pk.Hex()), nil }

func (pk *Pubkey) UnmarshalText(b []byte) error {
	parsed, err := ParsePubkey(string(b))
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}

// SubscriptionID is the opaque handle a relay pool hands back for a REQ.
type SubscriptionID string

// Event is a signed protocol event as delivered by relays.
type Event struct {
	ID        string     `json:"id"`
	Pubkey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

func (e Event) CreatedTime() time.Time { return time.Unix(e.CreatedAt, 0).UTC() }

// TagValues returns the first value of every tag named name.
func (e Event) TagValues(name string) []string {
	var out []string
	for _, tag := range e.Tags {
		if len(tag) >= 2 && tag[0] == name {
			out = append(out, tag[1])
		}
	}
	return out
}

// Filter is a REQ filter. Tags holds single-letter tag queries keyed
// without the leading '#'.
type Filter struct {
	IDs     []string
	Authors []string
	Kinds   []int
	Tags    map[string][]string
	Search  string
	Limit   int
}

func (f Filter) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 6)
	if len(f.IDs) > 0 {
		out["ids"] = f.IDs
	}
	if len(f.Authors) > 0 {
		out["authors"] = f.Authors
	}
	if len(f.Kinds) > 0 {
		out["kinds"] = f.Kinds
	}
	for name, values := range f.Tags {
		out["#"+name] = values
	}
	if f.Search != "" {
		out["search"] = f.Search
	}
	if f.Limit > 0 {
		out["limit"] = f.Limit
	}
	return json.Marshal(out)
}

func (f *Filter) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode filter: %w", err)
	}
	*f = Filter{}
	for key, value := range raw {
		var err error
		switch {
		case key == "ids":
			err = json.Unmarshal(value, &f.IDs)
		case key == "authors":
			err = json.Unmarshal(value, &f.Authors)
		case key == "kinds":
			err = json.Unmarshal(value, &f.Kinds)
		case key == "search":
			err = json.Unmarshal(value, &f.Search)
		case key == "limit":
			err = json.Unmarshal(value, &f.Limit)
		case strings.HasPrefix(key, "#"):
			var values []string
			err = json.Unmarshal(value, &values)
			if f.Tags == nil {
				f.Tags = make(map[string][]string)
			}
			f.Tags[key[1:]] = values
		}
		if err != nil {
			return fmt.Errorf("decode filter field %s: %w", key, err)
		}
	}
	return nil
}

// Matches reports whether e satisfies every populated field of f.
// Search is left to relays and always matches locally on content substring.
func (f Filter) Matches(e Event) bool {
	if len(f.IDs) > 0 && !contains(f.IDs, e.ID) {
		return false
	}
	if len(f.Authors) > 0 && !contains(f.Authors, e.Pubkey) {
		return false
	}
	if len(f.Kinds) > 0 {
		found := false
		for _, k := range f.Kinds {
			if k == e.Kind {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for name, values := range f.Tags {
		found := false
		for _, v := range e.TagValues(name) {
			if contains(values, v) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(e.Content), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
