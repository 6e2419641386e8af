package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"github.com/glabrego/deck-cli/internal/nostr"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// fakeRelay answers every REQ with one EVENT and an EOSE and reports every
// frame it receives.
func fakeRelay(t *testing.T, received chan<- []string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer ws.Close()
		for {
			_, raw, err := ws.ReadMessage()
			if err != nil {
				return
			}
			var parts []json.RawMessage
			if err := json.Unmarshal(raw, &parts); err != nil || len(parts) < 2 {
				t.Errorf("bad client frame %s", raw)
				return
			}
			var label, id string
			_ = json.Unmarshal(parts[0], &label)
			_ = json.Unmarshal(parts[1], &id)
			received <- []string{label, id}

			if label != "REQ" {
				continue
			}
			ev := nostr.Event{ID: "note-1", Pubkey: strings.Repeat("ab", 32), CreatedAt: 10, Kind: nostr.KindTextNote, Content: "hello"}
			frame, _ := json.Marshal([]any{"EVENT", id, ev})
			_ = ws.WriteMessage(websocket.TextMessage, frame)
			eose, _ := json.Marshal([]any{"EOSE", id})
			_ = ws.WriteMessage(websocket.TextMessage, eose)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func nextFrame(t *testing.T, received <-chan []string) []string {
	t.Helper()
	select {
	case f := <-received:
		return f
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for client frame")
		return nil
	}
}

func nextMessage(t *testing.T, p *Pool) Message {
	t.Helper()
	select {
	case m := <-p.Events():
		return m
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for relay message")
		return Message{}
	}
}

func TestPool_SubscribeDeliversEventsAndEOSE(t *testing.T) {
	received := make(chan []string, 8)
	srv := fakeRelay(t, received)

	p := NewPool()
	t.Cleanup(func() { _ = p.Close() })
	if err := p.Connect(context.Background(), wsURL(srv)); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}

	id := p.Subscribe([]nostr.Filter{{Kinds: []int{nostr.KindTextNote}, Limit: 10}})
	if diff := cmp.Diff([]string{"REQ", string(id)}, nextFrame(t, received)); diff != "" {
		t.Fatalf("unexpected frame (-want +got):\n%s", diff)
	}

	ev := nextMessage(t, p)
	if ev.Type != MessageEvent || ev.Subscription != id || ev.Event.ID != "note-1" || ev.Relay != wsURL(srv) {
		t.Fatalf("unexpected event message: %+v", ev)
	}
	eose := nextMessage(t, p)
	if eose.Type != MessageEOSE || eose.Subscription != id {
		t.Fatalf("unexpected eose message: %+v", eose)
	}

	p.Unsubscribe(id)
	if diff := cmp.Diff([]string{"CLOSE", string(id)}, nextFrame(t, received)); diff != "" {
		t.Fatalf("unexpected frame (-want +got):\n%s", diff)
	}
	if p.Subscriptions() != 0 {
		t.Fatalf("expected no open subscriptions, got %d", p.Subscriptions())
	}
}

func TestPool_ConnectReplaysOpenSubscriptions(t *testing.T) {
	received := make(chan []string, 8)
	srv := fakeRelay(t, received)

	p := NewPool()
	t.Cleanup(func() { _ = p.Close() })
	id := p.Subscribe([]nostr.Filter{{Kinds: []int{nostr.KindTextNote}}})

	if n := p.ConnectAll(context.Background(), []string{wsURL(srv), "ws://127.0.0.1:1"}); n != 1 {
		t.Fatalf("expected one relay to connect, got %d", n)
	}
	if diff := cmp.Diff([]string{"REQ", string(id)}, nextFrame(t, received)); diff != "" {
		t.Fatalf("unexpected replayed frame (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{wsURL(srv)}, p.Relays()); diff != "" {
		t.Fatalf("unexpected relays (-want +got):\n%s", diff)
	}
}

func TestPool_UnsubscribeUnknownIsNoop(t *testing.T) {
	p := NewPool()
	t.Cleanup(func() { _ = p.Close() })
	p.Unsubscribe("missing")
	if p.Subscriptions() != 0 {
		t.Fatalf("expected no subscriptions")
	}
}

func TestPool_ConnectAfterCloseFails(t *testing.T) {
	received := make(chan []string, 1)
	srv := fakeRelay(t, received)

	p := NewPool()
	_ = p.Close()
	if err := p.Connect(context.Background(), wsURL(srv)); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestParseFrame(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		want   Message
		wantOK bool
	}{
		{"notice", `["NOTICE","slow down"]`, Message{Type: MessageNotice, Notice: "slow down"}, true},
		{"eose", `["EOSE","s1"]`, Message{Type: MessageEOSE, Subscription: "s1"}, true},
		{"ok ignored", `["OK","id",true,""]`, Message{}, false},
	}
	for _, tc := range cases {
		got, ok, err := parseFrame([]byte(tc.raw))
		if err != nil {
			t.Fatalf("%s: parseFrame returned error: %v", tc.name, err)
		}
		if ok != tc.wantOK {
			t.Fatalf("%s: expected ok=%v, got %v", tc.name, tc.wantOK, ok)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("%s: unexpected message (-want +got):\n%s", tc.name, diff)
		}
	}

	for _, bad := range []string{`{}`, `[]`, `["EVENT","s1"]`, `["EVENT","s1","nope"]`} {
		if _, _, err := parseFrame([]byte(bad)); err == nil {
			t.Fatalf("expected error for %s", bad)
		}
	}
}
