package models

// MessageStatus is the delivery state of a message. Transitions only go
// unread -> read -> deleted or unread -> deleted.
type MessageStatus string

const (
	StatusUnread  MessageStatus = "unread"
	StatusRead    MessageStatus = "read"
	StatusDeleted MessageStatus = "deleted"
)

// Message is owned by the recipient's User record; the sender keeps no copy.
type Message struct {
	ID     string        `json:"id"`
	Sender string        `json:"from"`
	Body   string        `json:"message"`
	Status MessageStatus `json:"status"`
}

// CanBecome reports whether moving from s to next respects the monotonic
// status order.
func (s MessageStatus) CanBecome(next MessageStatus) bool {
	switch s {
	case StatusUnread:
		return next == StatusRead || next == StatusDeleted
	case StatusRead:
		return next == StatusDeleted
	default:
		return false
	}
}

// Tombstone is what a live stream receives when an unread message is
// unsent: same id and sender, no body.
func (m Message) Tombstone() Message {
	return Message{ID: m.ID, Sender: m.Sender, Status: StatusDeleted}
}
