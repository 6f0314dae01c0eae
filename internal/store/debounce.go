package store

import (
	"context"
	"sync"
	"time"

	"github.com/thptprep/engprep-backend/internal/model"
)

// ChatDebouncer coalesces chat transcript writes so a fast typist does
// not turn every keystroke echo into a store round trip. At most one
// write per session goes out per interval; the latest snapshot always
// wins.
type ChatDebouncer struct {
	store    SessionStore
	interval time.Duration

	mu      sync.Mutex
	pending map[string]map[string]*model.ChatSession
	timers  map[string]*time.Timer
	closed  bool
}

func NewChatDebouncer(store SessionStore, interval time.Duration) *ChatDebouncer {
	return &ChatDebouncer{
		store:    store,
		interval: interval,
		pending:  make(map[string]map[string]*model.ChatSession),
		timers:   make(map[string]*time.Timer),
	}
}

// Save schedules chats for persistence. The first save for a session
// starts a flush timer; later saves within the window just replace the
// pending snapshot.
func (d *ChatDebouncer) Save(sid string, chats map[string]*model.ChatSession) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.pending[sid] = chats
	if _, running := d.timers[sid]; running {
		return
	}
	d.timers[sid] = time.AfterFunc(d.interval, func() {
		d.flush(sid)
	})
}

// Sessions returns the stored transcripts overlaid with the pending
// snapshot, so reads within the flush window see writes that have not
// reached the store yet.
func (d *ChatDebouncer) Sessions(ctx context.Context, sid string) map[string]*model.ChatSession {
	chats := d.store.ChatSessions(ctx, sid)
	if chats == nil {
		chats = make(map[string]*model.ChatSession)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for qid, session := range d.pending[sid] {
		chats[qid] = session
	}
	return chats
}

// Cancel drops the session's pending snapshot without writing it.
// Used when the session is cleared: a flush firing afterwards must not
// resurrect chat state for a discarded attempt.
func (d *ChatDebouncer) Cancel(sid string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[sid]; ok {
		t.Stop()
	}
	delete(d.pending, sid)
	delete(d.timers, sid)
}

// Flush writes any pending snapshot for the session immediately and
// cancels its timer. Used before submit and on session clear.
func (d *ChatDebouncer) Flush(sid string) {
	d.mu.Lock()
	if t, ok := d.timers[sid]; ok {
		t.Stop()
	}
	d.mu.Unlock()
	d.flush(sid)
}

// Close flushes every pending snapshot. Called on shutdown.
func (d *ChatDebouncer) Close() {
	d.mu.Lock()
	d.closed = true
	sids := make([]string, 0, len(d.pending))
	for sid := range d.pending {
		sids = append(sids, sid)
	}
	for _, t := range d.timers {
		t.Stop()
	}
	d.mu.Unlock()

	for _, sid := range sids {
		d.flush(sid)
	}
}

func (d *ChatDebouncer) flush(sid string) {
	d.mu.Lock()
	chats, ok := d.pending[sid]
	delete(d.pending, sid)
	delete(d.timers, sid)
	d.mu.Unlock()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	d.store.SaveChatSessions(ctx, sid, chats)
}
