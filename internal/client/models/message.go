// Package models defines client-side data models used by the replichat CLI.
package models

// Status values a message moves through. A message only ever moves forward:
// unread, then read or deleted.
const (
	StatusUnread  = "unread"
	StatusRead    = "read"
	StatusDeleted = "deleted"
)

// Message is one inbox entry as seen by the recipient.
type Message struct {
	ID     string
	From   string
	Body   string
	Status string
}

// Rank orders statuses so that a stale copy never overwrites a newer one.
func Rank(status string) int {
	switch status {
	case StatusUnread:
		return 0
	case StatusRead, StatusDeleted:
		return 1
	default:
		return -1
	}
}

// IsUnread reports whether the message is still unread.
func (m Message) IsUnread() bool {
	return m.Status == StatusUnread
}
