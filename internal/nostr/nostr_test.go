package nostr

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const testPubkeyHex = "32e1827635450ebb3c5a7d12c1f8e7b2b514439ac10a67eef3d9fd9c5c68e245"

func TestParsePubkey(t *testing.T) {
	pk, err := ParsePubkey(testPubkeyHex)
	if err != nil {
		t.Fatalf("ParsePubkey returned error: %v", err)
	}
	if pk.Hex() != testPubkeyHex {
		t.Fatalf("unexpected hex round trip: %s", pk.Hex())
	}
	if pk.Short() != "32e18276" {
		t.Fatalf("unexpected short form: %s", pk.Short())
	}

	if _, err := ParsePubkey("abcd"); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey for short key, got %v", err)
	}
}

func TestFilterMarshalJSON_UsesHashTagKeys(t *testing.T) {
	f := Filter{
		Kinds: []int{KindTextNote},
		Tags:  map[string][]string{"t": {"gonostr"}},
		Limit: 50,
	}
	b, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	got := string(b)
	for _, want := range []string{`"#t":["gonostr"]`, `"kinds":[1]`, `"limit":50`} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %s in %s", want, got)
		}
	}
	if strings.Contains(got, "authors") {
		t.Fatalf("empty fields must be omitted: %s", got)
	}

	var decoded Filter
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if diff := cmp.Diff(f, decoded); diff != "" {
		t.Fatalf("filter mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterMatches(t *testing.T) {
	ev := Event{
		ID:      "aa",
		Pubkey:  testPubkeyHex,
		Kind:    KindTextNote,
		Tags:    [][]string{{"t", "bitcoin"}, {"p", "bb"}},
		Content: "Hello Relays",
	}
	cases := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty", Filter{}, true},
		{"author", Filter{Authors: []string{testPubkeyHex}}, true},
		{"other author", Filter{Authors: []string{"cc"}}, false},
		{"kind", Filter{Kinds: []int{KindRepost}}, false},
		{"tag", Filter{Tags: map[string][]string{"t": {"bitcoin"}}}, true},
		{"missing tag", Filter{Tags: map[string][]string{"e": {"aa"}}}, false},
		{"search", Filter{Search: "relays"}, true},
	}
	for _, tc := range cases {
		if got := tc.filter.Matches(ev); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
