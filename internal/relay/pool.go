// Package relay keeps websocket connections to nostr relays and fans
// subscriptions out to all of them.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/glabrego/deck-cli/internal/logs"
	"github.com/glabrego/deck-cli/internal/nostr"
)

const (
	// Time allowed to write a frame to the relay.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the relay.
	pongWait = 60 * time.Second

	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 1 << 20
	sendQueue      = 64
	eventQueue     = 256
)

var ErrClosed = errors.New("relay pool is closed")

type MessageType int

const (
	MessageEvent MessageType = iota + 1
	MessageEOSE
	MessageNotice
)

// Message is one relay frame addressed to the client.
type Message struct {
	Relay        string
	Type         MessageType
	Subscription nostr.SubscriptionID
	Event        nostr.Event
	Notice       string
}

// Pool fans REQ and CLOSE frames out to every connected relay. It never
// reports delivery; relays that are down simply miss the frame.
type Pool struct {
	dialer *websocket.Dialer

	mu     sync.Mutex
	relays map[string]*conn
	subs   map[nostr.SubscriptionID][]nostr.Filter
	closed bool

	events chan Message
	done   chan struct{}
}

func NewPool() *Pool {
	return &Pool{
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		relays: make(map[string]*conn),
		subs:   make(map[nostr.SubscriptionID][]nostr.Filter),
		events: make(chan Message, eventQueue),
		done:   make(chan struct{}),
	}
}

// Events delivers frames from all relays in arrival order per relay.
func (p *Pool) Events() <-chan Message { return p.events }

// Connect dials url and replays every open subscription to it.
func (p *Pool) Connect(ctx context.Context, url string) error {
	ws, _, err := p.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial relay %s: %w", url, err)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		ws.Close()
		return ErrClosed
	}
	if old, ok := p.relays[url]; ok {
		old.stop()
	}
	c := &conn{url: url, ws: ws, send: make(chan []byte, sendQueue), quit: make(chan struct{})}
	p.relays[url] = c
	for id, filters := range p.subs {
		c.enqueue(reqFrame(id, filters))
	}
	p.mu.Unlock()

	go c.writeLoop()
	go p.readLoop(c)
	logs.Info.Printf("relay: connected to %s", url)
	return nil
}

// ConnectAll dials every url; failures are logged and the rest proceed.
func (p *Pool) ConnectAll(ctx context.Context, urls []string) int {
	connected := 0
	for _, url := range urls {
		if err := p.Connect(ctx, url); err != nil {
			logs.Warning.Printf("relay: %v", err)
			continue
		}
		connected++
	}
	return connected
}

func (p *Pool) Subscribe(filters []nostr.Filter) nostr.SubscriptionID {
	id := nostr.SubscriptionID(uuid.NewString())

	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs[id] = filters
	frame := reqFrame(id, filters)
	for _, c := range p.relays {
		c.enqueue(frame)
	}
	return id
}

func (p *Pool) Unsubscribe(id nostr.SubscriptionID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.subs[id]; !ok {
		return
	}
	delete(p.subs, id)
	frame := closeFrame(id)
	for _, c := range p.relays {
		c.enqueue(frame)
	}
}

// Relays lists the currently connected relay urls.
func (p *Pool) Relays() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.relays))
	for url := range p.relays {
		out = append(out, url)
	}
	sort.Strings(out)
	return out
}

func (p *Pool) Subscriptions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	for url, c := range p.relays {
		c.stop()
		delete(p.relays, url)
	}
	close(p.done)
	return nil
}

func (p *Pool) readLoop(c *conn) {
	defer func() {
		c.stop()
		p.mu.Lock()
		if p.relays[c.url] == c {
			delete(p.relays, c.url)
		}
		p.mu.Unlock()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.quit:
			default:
				logs.Warning.Printf("relay: %s read: %v", c.url, err)
			}
			return
		}
		msg, ok, err := parseFrame(raw)
		if err != nil {
			logs.Warning.Printf("relay: %s sent bad frame: %v", c.url, err)
			continue
		}
		if !ok {
			continue
		}
		msg.Relay = c.url
		select {
		case p.events <- msg:
		case <-p.done:
			return
		case <-c.quit:
			return
		}
	}
}

type conn struct {
	url  string
	ws   *websocket.Conn
	send chan []byte

	quit     chan struct{}
	stopOnce sync.Once
}

// enqueue drops the frame when the relay is not keeping up.
func (c *conn) enqueue(frame []byte) {
	if frame == nil {
		return
	}
	select {
	case c.send <- frame:
	default:
		logs.Warning.Printf("relay: %s send queue full, dropping frame", c.url)
	}
}

func (c *conn) stop() {
	c.stopOnce.Do(func() {
		close(c.quit)
		c.ws.Close()
	})
}

func (c *conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.stop() // break readLoop
	}()

	for {
		select {
		case frame := <-c.send:
			if err := wsWrite(c.ws, websocket.TextMessage, frame); err != nil {
				logs.Warning.Printf("relay: %s write: %v", c.url, err)
				return
			}
		case <-ticker.C:
			if err := wsWrite(c.ws, websocket.PingMessage, nil); err != nil {
				logs.Warning.Printf("relay: %s ping: %v", c.url, err)
				return
			}
		case <-c.quit:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

func wsWrite(ws *websocket.Conn, mt int, payload []byte) error {
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteMessage(mt, payload)
}

func reqFrame(id nostr.SubscriptionID, filters []nostr.Filter) []byte {
	parts := make([]any, 0, len(filters)+2)
	parts = append(parts, "REQ", id)
	for _, f := range filters {
		parts = append(parts, f)
	}
	b, err := json.Marshal(parts)
	if err != nil {
		logs.Error.Printf("relay: encode REQ %s: %v", id, err)
		return nil
	}
	return b
}

func closeFrame(id nostr.SubscriptionID) []byte {
	b, _ := json.Marshal([]any{"CLOSE", id})
	return b
}

// parseFrame decodes a relay frame. Frame types the client does not act
// on (OK, AUTH, CLOSED) return ok=false.
func parseFrame(raw []byte) (Message, bool, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return Message{}, false, fmt.Errorf("decode frame: %w", err)
	}
	if len(parts) == 0 {
		return Message{}, false, errors.New("empty frame")
	}
	var label string
	if err := json.Unmarshal(parts[0], &label); err != nil {
		return Message{}, false, fmt.Errorf("decode frame label: %w", err)
	}

	switch label {
	case "EVENT":
		if len(parts) < 3 {
			return Message{}, false, errors.New("EVENT frame too short")
		}
		var msg Message
		msg.Type = MessageEvent
		if err := json.Unmarshal(parts[1], &msg.Subscription); err != nil {
			return Message{}, false, fmt.Errorf("decode subscription id: %w", err)
		}
		if err := json.Unmarshal(parts[2], &msg.Event); err != nil {
			return Message{}, false, fmt.Errorf("decode event: %w", err)
		}
		return msg, true, nil
	case "EOSE":
		if len(parts) < 2 {
			return Message{}, false, errors.New("EOSE frame too short")
		}
		msg := Message{Type: MessageEOSE}
		if err := json.Unmarshal(parts[1], &msg.Subscription); err != nil {
			return Message{}, false, fmt.Errorf("decode subscription id: %w", err)
		}
		return msg, true, nil
	case "NOTICE":
		msg := Message{Type: MessageNotice}
		if len(parts) > 1 {
			_ = json.Unmarshal(parts[1], &msg.Notice)
		}
		return msg, true, nil
	}
	return Message{}, false, nil
}
