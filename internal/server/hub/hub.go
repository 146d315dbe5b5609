// Package hub holds the per-user push queues that back live Subscribe streams
// on this node.
package hub

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/dmitrijs2005/replichat/internal/server/models"
)

var (
	// ErrReplaced ends a subscription superseded by a newer Attach of the same user.
	ErrReplaced = errors.New("subscription replaced")
	// ErrClosed ends a subscription that was closed or whose user was removed.
	ErrClosed = errors.New("subscription closed")
)

// Hub is safe for concurrent use.
type Hub struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu    sync.Mutex
	queue []models.Message
	sub   *Subscription
}

func New() *Hub {
	return &Hub{entries: make(map[string]*entry)}
}

func (h *Hub) get(username string, create bool) *entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	e, ok := h.entries[username]
	if !ok && create {
		e = &entry{}
		h.entries[username] = e
	}
	return e
}

// Ensure creates an empty entry for username if none exists.
func (h *Hub) Ensure(username string) {
	h.get(username, true)
}

// Has reports whether username has an entry.
func (h *Hub) Has(username string) bool {
	return h.get(username, false) != nil
}

// Users lists the usernames with an entry, sorted.
func (h *Hub) Users() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]string, 0, len(h.entries))
	for u := range h.entries {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Publish queues msg for username. It reports false, dropping the message,
// when the user has no entry on this node.
func (h *Hub) Publish(username string, msg models.Message) bool {
	e := h.get(username, false)
	if e == nil {
		return false
	}

	e.mu.Lock()
	e.queue = append(e.queue, msg)
	sub := e.sub
	e.mu.Unlock()

	if sub != nil {
		sub.notify()
	}
	return true
}

// Pending returns the number of queued messages for username.
func (h *Hub) Pending(username string) int {
	e := h.get(username, false)
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Attach starts the live subscription of username, creating the entry if
// needed. Any earlier subscription of the same user ends with ErrReplaced.
// Messages queued before Attach are delivered to the new subscription.
func (h *Hub) Attach(username string) *Subscription {
	e := h.get(username, true)
	s := &Subscription{
		entry: e,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}

	e.mu.Lock()
	prev := e.sub
	e.sub = s
	pending := len(e.queue) > 0
	e.mu.Unlock()

	if prev != nil {
		prev.end(ErrReplaced)
	}
	if pending {
		s.notify()
	}
	return s
}

// Remove drops the entry of username and ends its subscription.
func (h *Hub) Remove(username string) {
	h.mu.Lock()
	e, ok := h.entries[username]
	delete(h.entries, username)
	h.mu.Unlock()

	if !ok {
		return
	}

	e.mu.Lock()
	sub := e.sub
	e.sub = nil
	e.queue = nil
	e.mu.Unlock()

	if sub != nil {
		sub.end(ErrClosed)
	}
}

// Subscription is one live consumer of a user's queue.
type Subscription struct {
	entry *entry
	wake  chan struct{}

	once sync.Once
	done chan struct{}
	err  error
}

func (s *Subscription) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) end(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
	})
}

// Next blocks until a message is queued and pops it. It returns ctx.Err() on
// cancellation, or ErrReplaced / ErrClosed once the subscription has ended.
func (s *Subscription) Next(ctx context.Context) (models.Message, error) {
	for {
		select {
		case <-s.done:
			return models.Message{}, s.err
		default:
		}

		s.entry.mu.Lock()
		if s.entry.sub == s && len(s.entry.queue) > 0 {
			msg := s.entry.queue[0]
			s.entry.queue = s.entry.queue[1:]
			s.entry.mu.Unlock()
			return msg, nil
		}
		s.entry.mu.Unlock()

		select {
		case <-s.wake:
		case <-s.done:
		case <-ctx.Done():
			return models.Message{}, ctx.Err()
		}
	}
}

// Close detaches the subscription. Undelivered messages stay queued for the
// user's next Attach.
func (s *Subscription) Close() {
	s.entry.mu.Lock()
	if s.entry.sub == s {
		s.entry.sub = nil
	}
	s.entry.mu.Unlock()
	s.end(ErrClosed)
}
