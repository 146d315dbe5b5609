// Package store implements the node-local durable store: user records, their
// mailboxes and the two replicated session sets (active users, subscribers).
//
// Every mutator holds the store mutex across both the in-memory change and a
// full snapshot rewrite on disk, so a successful return means the change is
// durable. A failed rewrite undoes the in-memory change. There is no write-ahead log; the whole snapshot is rewritten each
// time.
package store

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dmitrijs2005/replichat/internal/common"
	"github.com/dmitrijs2005/replichat/internal/filex"
	"github.com/dmitrijs2005/replichat/internal/server/models"
)

// Store is safe for concurrent use.
type Store struct {
	mu          sync.Mutex
	path        string
	users       map[string]*models.User
	activeUsers map[string]struct{}
	subscribers map[string]struct{}
}

// FileName returns the snapshot file name for a node id.
func FileName(nodeID int) string {
	return fmt.Sprintf("users_%d.json", nodeID)
}

// Open loads the snapshot at path, or starts empty if the file does not exist.
// The containing directory is created when missing.
func Open(path string) (*Store, error) {
	if _, err := filex.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}

	s := &Store{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return s.path
}

// load must be called with mu held (or before the store is shared).
func (s *Store) load() error {
	s.users = make(map[string]*models.User)
	s.activeUsers = make(map[string]struct{})
	s.subscribers = make(map[string]struct{})

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot %s: %w", s.path, err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", s.path, err)
	}

	for name, u := range snap.Users {
		if u != nil {
			s.users[name] = u
		}
	}
	for _, name := range snap.ActiveUsers {
		s.activeUsers[name] = struct{}{}
	}
	for _, name := range snap.Subscribers {
		s.subscribers[name] = struct{}{}
	}
	return nil
}

// save must be called with mu held.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.snapshotLocked(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return filex.WriteFileAtomic(s.path, data, 0o600)
}

// commit persists the current state. On failure undo restores the state the
// mutator started from, so memory never runs ahead of disk. Must be called
// with mu held.
func (s *Store) commit(undo func()) error {
	if err := s.save(); err != nil {
		undo()
		return err
	}
	return nil
}

func (s *Store) snapshotLocked() models.Snapshot {
	snap := models.Snapshot{
		Users:       make(map[string]*models.User, len(s.users)),
		ActiveUsers: sortedKeys(s.activeUsers),
		Subscribers: sortedKeys(s.subscribers),
	}
	for name, u := range s.users {
		snap.Users[name] = u.Clone()
	}
	return snap
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Reload discards the in-memory state and re-reads the snapshot file.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// liveUser returns the record for a registered, non-deleted user.
func (s *Store) liveUser(username string) (*models.User, error) {
	u, ok := s.users[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, common.ErrorNotFound)
	}
	if u.Deleted {
		return nil, fmt.Errorf("user %q: %w", username, common.ErrorNotFound)
	}
	return u, nil
}

// Register creates a user. Usernames of deleted accounts stay taken.
func (s *Store) Register(username, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; ok {
		return fmt.Errorf("user %q: %w", username, common.ErrAlreadyExists)
	}
	s.users[username] = &models.User{PasswordHash: passwordHash, Messages: []models.Message{}}
	return s.commit(func() { delete(s.users, username) })
}

// User returns a copy of the record for username, deleted or not.
func (s *Store) User(username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, common.ErrorNotFound)
	}
	return u.Clone(), nil
}

// Exists reports whether username is registered and not deleted.
func (s *Store) Exists(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.liveUser(username)
	return err == nil
}

// Authenticate checks the password digest of a live account and returns its
// unread message count.
func (s *Store) Authenticate(username, passwordHash string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.liveUser(username)
	if err != nil {
		return 0, common.ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(u.PasswordHash), []byte(passwordHash)) != 1 {
		return 0, common.ErrInvalidCredentials
	}
	return u.UnreadCount(), nil
}

// ListUsers returns the sorted names of all non-deleted users.
func (s *Store) ListUsers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.users))
	for name, u := range s.users {
		if !u.Deleted {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Messages returns a copy of the user's mailbox in arrival order.
func (s *Store) Messages(username string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.liveUser(username)
	if err != nil {
		return nil, err
	}
	return append([]models.Message{}, u.Messages...), nil
}

// AppendMessage adds msg to the recipient's mailbox. It returns false when the
// recipient is unknown. A message whose id is already present is not added
// again, so re-applying a replicated send is harmless.
func (s *Store) AppendMessage(recipient string, msg models.Message) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[recipient]
	if !ok {
		return false, nil
	}
	if u.IndexOf(msg.ID) >= 0 {
		return true, nil
	}
	n := len(u.Messages)
	u.Messages = append(u.Messages, msg)
	return true, s.commit(func() { u.Messages = u.Messages[:n] })
}

// MarkRead marks up to batch unread messages from contact as read, oldest
// first. batch 0 means all of them. It returns the ids it changed; nothing is
// written when there is nothing to mark.
func (s *Store) MarkRead(username, contact string, batch int) ([]string, error) {
	if batch < 0 {
		return nil, fmt.Errorf("batch %d: %w", batch, common.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.liveUser(username)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0)
	var changed []int
	for i := range u.Messages {
		if batch != 0 && len(ids) == batch {
			break
		}
		m := &u.Messages[i]
		if m.Sender == contact && m.Status == models.StatusUnread {
			m.Status = models.StatusRead
			ids = append(ids, m.ID)
			changed = append(changed, i)
		}
	}

	if len(ids) == 0 {
		return ids, nil
	}
	if err := s.commit(func() { restoreStatus(u, changed, models.StatusUnread) }); err != nil {
		return nil, err
	}
	return ids, nil
}

// MarkReadIDs marks the listed messages as read where that is a legal
// transition and returns how many changed.
func (s *Store) MarkReadIDs(username string, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return 0, fmt.Errorf("user %q: %w", username, common.ErrorNotFound)
	}

	var changed []int
	for _, id := range ids {
		i := u.IndexOf(id)
		if i < 0 || !u.Messages[i].Status.CanBecome(models.StatusRead) {
			continue
		}
		u.Messages[i].Status = models.StatusRead
		changed = append(changed, i)
	}

	if len(changed) == 0 {
		return 0, nil
	}
	if err := s.commit(func() { restoreStatus(u, changed, models.StatusUnread) }); err != nil {
		return 0, err
	}
	return len(changed), nil
}

func restoreStatus(u *models.User, idx []int, st models.MessageStatus) {
	for _, i := range idx {
		u.Messages[i].Status = st
	}
}

// DeleteMessage marks message id in recipient's mailbox as deleted. The
// message must have been sent by sender. With onlyUnread set, a message that
// was already read is refused with ErrAlreadyRead. A deleted message yields
// ErrAlreadyDeleted and is left alone. The updated message is returned.
func (s *Store) DeleteMessage(sender, recipient, id string, onlyUnread bool) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[recipient]
	if !ok {
		return models.Message{}, fmt.Errorf("recipient %q: %w", recipient, common.ErrorNotFound)
	}

	i := u.IndexOf(id)
	if i < 0 || u.Messages[i].Sender != sender {
		return models.Message{}, fmt.Errorf("message %q: %w", id, common.ErrorNotFound)
	}

	m := &u.Messages[i]
	switch {
	case m.Status == models.StatusDeleted:
		return *m, fmt.Errorf("message %q: %w", id, common.ErrAlreadyDeleted)
	case onlyUnread && m.Status != models.StatusUnread:
		return *m, fmt.Errorf("message %q: %w", id, common.ErrAlreadyRead)
	}

	prev := m.Status
	m.Status = models.StatusDeleted
	if err := s.commit(func() { m.Status = prev }); err != nil {
		return models.Message{}, err
	}
	return *m, nil
}

// DeleteAccount soft-deletes username and drops it from both session sets.
func (s *Store) DeleteAccount(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return fmt.Errorf("user %q: %w", username, common.ErrorNotFound)
	}
	if u.Deleted {
		return fmt.Errorf("user %q: %w", username, common.ErrAlreadyDeleted)
	}

	undo := s.sessionUndo(username, u)
	u.Deleted = true
	u.Subscribed = false
	delete(s.activeUsers, username)
	delete(s.subscribers, username)
	return s.commit(undo)
}

// SetSubscribed records or clears the push-subscription intent of a user.
func (s *Store) SetSubscribed(username string, subscribed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.liveUser(username)
	if err != nil {
		return err
	}

	undo := s.sessionUndo(username, u)
	u.Subscribed = subscribed
	if subscribed {
		s.subscribers[username] = struct{}{}
	} else {
		delete(s.subscribers, username)
	}
	return s.commit(undo)
}

// sessionUndo captures the session and account flags of username so they can
// be put back after a failed commit. u may be nil.
func (s *Store) sessionUndo(username string, u *models.User) func() {
	var deleted, subscribed bool
	if u != nil {
		deleted, subscribed = u.Deleted, u.Subscribed
	}
	_, active := s.activeUsers[username]
	_, sub := s.subscribers[username]
	return func() {
		if u != nil {
			u.Deleted, u.Subscribed = deleted, subscribed
		}
		setMember(s.activeUsers, username, active)
		setMember(s.subscribers, username, sub)
	}
}

func setMember(m map[string]struct{}, key string, in bool) {
	if in {
		m[key] = struct{}{}
	} else {
		delete(m, key)
	}
}

// AddActiveUser marks username as logged in.
func (s *Store) AddActiveUser(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.liveUser(username); err != nil {
		return err
	}
	if _, ok := s.activeUsers[username]; ok {
		return fmt.Errorf("user %q: %w", username, common.ErrAlreadyLoggedIn)
	}
	s.activeUsers[username] = struct{}{}
	return s.commit(func() { delete(s.activeUsers, username) })
}

// RemoveActiveUser marks username as logged out. The subscription intent is
// left alone; see EndSession.
func (s *Store) RemoveActiveUser(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.activeUsers[username]; !ok {
		return fmt.Errorf("user %q: %w", username, common.ErrNotLoggedIn)
	}
	delete(s.activeUsers, username)
	return s.commit(func() { s.activeUsers[username] = struct{}{} })
}

// EndSession logs username out and clears its push-subscription intent in one
// write. A user that was not logged in yields ErrNotLoggedIn, but a leftover
// subscription intent is still cleared.
func (s *Store) EndSession(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, active := s.activeUsers[username]
	_, subscribed := s.subscribers[username]
	u := s.users[username]
	if u != nil && u.Subscribed {
		subscribed = true
	}

	if active || subscribed {
		undo := s.sessionUndo(username, u)
		delete(s.activeUsers, username)
		delete(s.subscribers, username)
		if u != nil {
			u.Subscribed = false
		}
		if err := s.commit(undo); err != nil {
			return err
		}
	}

	if !active {
		return fmt.Errorf("user %q: %w", username, common.ErrNotLoggedIn)
	}
	return nil
}

// IsActive reports whether username is logged in.
func (s *Store) IsActive(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.activeUsers[username]
	return ok
}

// ActiveUsers returns the sorted set of logged-in users.
func (s *Store) ActiveUsers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.activeUsers)
}

// Subscribers returns the sorted set of users with a push subscription intent.
func (s *Store) Subscribers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.subscribers)
}
