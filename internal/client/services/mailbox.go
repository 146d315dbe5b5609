package services

import (
	"sync"

	"github.com/dmitrijs2005/replichat/internal/client/models"
)

// Mailbox is the client's view of its inbox. Pushed and polled copies of the
// same message collapse into one entry keyed by id.
type Mailbox struct {
	mu    sync.Mutex
	order []string
	byID  map[string]models.Message
}

func NewMailbox() *Mailbox {
	return &Mailbox{byID: make(map[string]models.Message)}
}

// Merge adds unseen messages in arrival order and updates known ones in
// place. A copy whose status is behind the stored one is ignored, so a late
// push never turns a read message back to unread. It returns how many ids
// were new.
func (m *Mailbox) Merge(msgs ...models.Message) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	added := 0
	for _, msg := range msgs {
		if msg.ID == "" {
			continue
		}
		old, ok := m.byID[msg.ID]
		if !ok {
			m.order = append(m.order, msg.ID)
			m.byID[msg.ID] = msg
			added++
			continue
		}
		if models.Rank(msg.Status) < models.Rank(old.Status) {
			continue
		}
		if msg.From == "" {
			msg.From = old.From
		}
		m.byID[msg.ID] = msg
	}
	return added
}

// Messages returns a copy of the inbox in arrival order.
func (m *Mailbox) Messages() []models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Message, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out
}

func (m *Mailbox) Unread() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, msg := range m.byID {
		if msg.IsUnread() {
			n++
		}
	}
	return n
}

// Reset forgets everything, e.g. on logout.
func (m *Mailbox) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.order = nil
	m.byID = make(map[string]models.Message)
}
