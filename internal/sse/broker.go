// Package sse streams library activity to browsers as Server-Sent Events:
// one event per track that became searchable, one per finished crawl, and
// a coalesced library.updated summary.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Event types sent to clients.
const (
	TypeTrackIndexed   = "track.indexed"
	TypeTrackReplaced  = "track.replaced"
	TypeCrawlCompleted = "crawl.completed"
	TypeLibraryUpdated = "library.updated"
)

// trackTypes maps watcher change kinds to event types.
var trackTypes = map[string]string{
	"added":    TypeTrackIndexed,
	"replaced": TypeTrackReplaced,
}

// Event is one message on the stream.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// LibrarySummary is the payload of library.updated: how many tracks
// changed since the previous summary.
type LibrarySummary struct {
	Changed int `json:"changed"`
}

// TrackPayload is the payload of the track events.
type TrackPayload struct {
	Path string `json:"path"`
}

// hub is the state owned by the broker loop.
type hub struct {
	clients map[chan []byte]struct{}
	seq     uint64

	// Changes not yet reported in a library.updated summary.
	unreported  int
	lastSummary time.Time
	flush       *time.Timer
}

func (h *hub) send(e Event) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return
	}
	h.seq++
	raw := fmt.Appendf(nil, "event: %s\nid: %s\ndata: %s\n\n", e.Type, strconv.FormatUint(h.seq, 10), payload)
	for ch := range h.clients {
		select {
		case ch <- raw:
		default:
			// slow client misses this one
		}
	}
}

func (h *hub) summarize(now time.Time) {
	if h.unreported == 0 {
		return
	}
	h.send(Event{Type: TypeLibraryUpdated, Data: LibrarySummary{Changed: h.unreported}})
	h.unreported = 0
	h.lastSummary = now
}

// Broker fans library activity out to SSE clients. All client and
// summary state lives in one loop goroutine; the exported methods hand it
// work over channels.
type Broker struct {
	window    time.Duration
	keepAlive time.Duration

	cmds    chan func(*hub)
	events  chan Event
	changes chan Event

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker. summaryWindow is the minimum gap between two
// library.updated events; changes inside the window are folded into a
// trailing summary.
func NewBroker(summaryWindow time.Duration) *Broker {
	if summaryWindow <= 0 {
		summaryWindow = 2 * time.Second
	}
	b := &Broker{
		window:    summaryWindow,
		keepAlive: 30 * time.Second,
		cmds:      make(chan func(*hub)),
		events:    make(chan Event, 256),
		changes:   make(chan Event, 256),
		stopCh:    make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	h := &hub{clients: make(map[chan []byte]struct{})}
	var flushC <-chan time.Time

	for {
		select {
		case <-b.stopCh:
			if h.flush != nil {
				h.flush.Stop()
			}
			for ch := range h.clients {
				close(ch)
			}
			return

		case cmd := <-b.cmds:
			cmd(h)

		case e := <-b.events:
			h.send(e)

		case e := <-b.changes:
			h.send(e)
			h.unreported++
			now := time.Now()
			if wait := b.window - now.Sub(h.lastSummary); wait <= 0 {
				h.summarize(now)
			} else if h.flush == nil {
				h.flush = time.NewTimer(wait)
				flushC = h.flush.C
			}

		case now := <-flushC:
			h.flush, flushC = nil, nil
			h.summarize(now)
		}
	}
}

// do runs cmd on the loop and waits for it. It reports false once the
// broker is closed.
func (b *Broker) do(cmd func(*hub)) bool {
	if b.closed.Load() {
		return false
	}
	done := make(chan struct{})
	select {
	case b.cmds <- func(h *hub) { cmd(h); close(done) }:
	case <-b.stopped:
		return false
	}
	<-done
	return true
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The channel is closed when the client is
// unsubscribed or the broker closes.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if !b.do(func(h *hub) { h.clients[ch] = struct{}{} }) {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.do(func(h *hub) {
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
	})
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	n := 0
	b.do(func(h *hub) { n = len(h.clients) })
	return n
}

func (b *Broker) enqueue(ch chan Event, e Event) {
	if b.closed.Load() {
		return
	}
	select {
	case ch <- e:
	case <-b.stopped:
	}
}

// Publish sends an arbitrary event to all clients.
func (b *Broker) Publish(e Event) {
	b.enqueue(b.events, e)
}

// PublishTrackEvent announces that the track at path became searchable.
// kind is "added" or "replaced"; other kinds are ignored. It has the shape
// of index.EventCallback.
func (b *Broker) PublishTrackEvent(kind, path string) {
	typ, ok := trackTypes[kind]
	if !ok {
		return
	}
	b.enqueue(b.changes, Event{Type: typ, Data: TrackPayload{Path: path}})
}

// PublishCrawlCompleted announces the end of a full crawl with its report.
func (b *Broker) PublishCrawlCompleted(report any) {
	b.Publish(Event{Type: TypeCrawlCompleted, Data: report})
}

// ServeHTTP streams events to one client (GET /api/events) until it
// disconnects. A comment line is sent every keepAlive to hold proxies open.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
