package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestInfoClient_FetchSendsAcceptAndParses(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/nostr+json" {
			t.Errorf("unexpected accept header: %q", got)
		}
		w.Header().Set("Content-Type", "application/nostr+json")
		_, _ = w.Write([]byte(`{"name":"test relay","software":"strfry","version":"1.0","supported_nips":[1,11,50]}`))
	}))
	defer ts.Close()

	c := NewInfoClient(ts.Client())
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	info, err := c.Fetch(context.Background(), wsURL)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	want := Info{Name: "test relay", Software: "strfry", Version: "1.0", SupportedNIPs: []int{1, 11, 50}}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Fatalf("unexpected info (-want +got):\n%s", diff)
	}
	if !info.Supports(50) || info.Supports(42) {
		t.Fatalf("unexpected Supports result for %v", info.SupportedNIPs)
	}
}

func TestInfoClient_FetchStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := NewInfoClient(ts.Client()).Fetch(context.Background(), ts.URL)
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestInfoURL(t *testing.T) {
	cases := map[string]string{
		"wss://relay.example":      "https://relay.example",
		"ws://localhost:7777/path": "http://localhost:7777/path",
		"https://relay.example":    "https://relay.example",
	}
	for in, want := range cases {
		got, err := infoURL(in)
		if err != nil || got != want {
			t.Fatalf("infoURL(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, bad := range []string{"ftp://relay.example", "wss://"} {
		if _, err := infoURL(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
