// ABOUTME: TTL-bounded window of seen delivery keys for webhook deduplication.
// ABOUTME: Chat redelivers on slow acks; a duplicate message name must not reach the backend twice.

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// seenEntry pairs a delivery timestamp with its position in the age list.
type seenEntry struct {
	at      time.Time
	element *list.Element
}

// Window remembers delivery keys (message resource names) for a fixed TTL,
// bounded in size. Oldest keys are evicted first; a background sweep drops
// expired ones so the map does not grow with traffic bursts.
type Window struct {
	mu      sync.Mutex
	seen    map[string]*seenEntry
	byAge   *list.List // keys, oldest at front
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// NewWindow creates a dedupe window with the given TTL and size bound.
func NewWindow(ttl time.Duration, maxSize int) *Window {
	w := &Window{
		seen:    make(map[string]*seenEntry),
		byAge:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go w.sweepLoop()
	return w
}

// Duplicate atomically reports whether key was already delivered within the
// TTL, marking it as seen if not. The single entry point avoids the
// check/mark race of split operations.
func (w *Window) Duplicate(key string) bool {
	now := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	if entry, ok := w.seen[key]; ok {
		if now.Sub(entry.at) < w.ttl {
			return true
		}
		// Expired entry: refresh in place.
		entry.at = now
		w.byAge.MoveToBack(entry.element)
		return false
	}

	if len(w.seen) >= w.maxSize {
		w.evictOldest()
	}

	w.seen[key] = &seenEntry{at: now, element: w.byAge.PushBack(key)}
	return false
}

// Len returns the number of tracked keys.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.seen)
}

// evictOldest drops the front of the age list. Caller holds mu.
func (w *Window) evictOldest() {
	front := w.byAge.Front()
	if front == nil {
		return
	}
	key, _ := front.Value.(string)
	w.byAge.Remove(front)
	delete(w.seen, key)
}

// sweepLoop periodically removes expired keys until Close.
func (w *Window) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep()
		case <-w.done:
			return
		}
	}
}

// sweep drops every expired entry.
func (w *Window) sweep() {
	now := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	for e := w.byAge.Front(); e != nil; {
		next := e.Next()
		key, _ := e.Value.(string)
		if entry := w.seen[key]; entry != nil && now.Sub(entry.at) > w.ttl {
			w.byAge.Remove(e)
			delete(w.seen, key)
		}
		e = next
	}
}

// Close stops the background sweep. Safe to call more than once.
func (w *Window) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.closed {
		close(w.done)
		w.closed = true
	}
}
