package models

// User is the persisted record of an account. The username is the map key in
// Snapshot.Users and is never reused, even after the account is deleted.
type User struct {
	PasswordHash string    `json:"password_hash"`
	Messages     []Message `json:"messages"`
	Deleted      bool      `json:"deleted"`
	Subscribed   bool      `json:"subscribed"`
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	c := *u
	c.Messages = append([]Message(nil), u.Messages...)
	return &c
}

// UnreadCount returns the number of unread messages in the mailbox.
func (u *User) UnreadCount() int {
	n := 0
	for _, m := range u.Messages {
		if m.Status == StatusUnread {
			n++
		}
	}
	return n
}

// IndexOf returns the position of the message with the given id, or -1.
func (u *User) IndexOf(id string) int {
	for i, m := range u.Messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}
