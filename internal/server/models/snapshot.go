package models

// Snapshot is the full persisted state of one node.
type Snapshot struct {
	Users       map[string]*User `json:"users"`
	ActiveUsers []string         `json:"active_users"`
	Subscribers []string         `json:"subscribers"`
}
