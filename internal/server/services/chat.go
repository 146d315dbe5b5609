// Package services contains server-side business logic. ChatService is the
// leader path for client calls; Applier is the follower path for replicated
// mutations.
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/replichat/internal/common"
	"github.com/dmitrijs2005/replichat/internal/logging"
	pb "github.com/dmitrijs2005/replichat/internal/proto"
	"github.com/dmitrijs2005/replichat/internal/server/hub"
	"github.com/dmitrijs2005/replichat/internal/server/metrics"
	"github.com/dmitrijs2005/replichat/internal/server/models"
	"github.com/dmitrijs2005/replichat/internal/server/replication"
	"github.com/dmitrijs2005/replichat/internal/server/store"
	"github.com/google/uuid"
)

// Leadership is the elector's view of who leads.
type Leadership interface {
	IsLeader() bool
	LeaderAddress() (string, error)
}

// Replicator fans a committed mutation out to the backups.
type Replicator interface {
	Replicate(ctx context.Context, op string, call replication.Call) error
}

// ChatService handles client mutations on the leader: check leadership,
// validate, commit locally, replicate, and push to live streams.
type ChatService struct {
	store      *store.Store
	leader     Leadership
	replicator Replicator
	hub        *hub.Hub
	metrics    *metrics.Metrics
	logger     logging.Logger
	newID      func() string
}

func NewChatService(st *store.Store, ld Leadership, r Replicator, h *hub.Hub, m *metrics.Metrics, l logging.Logger) *ChatService {
	return &ChatService{
		store:      st,
		leader:     ld,
		replicator: r,
		hub:        h,
		metrics:    m,
		logger:     l.With("module", "chat_service"),
		newID:      uuid.NewString,
	}
}

func ack(resp *pb.ReplicateResponse, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	return resp.Success, nil
}

func (s *ChatService) requireLeader() error {
	if !s.leader.IsLeader() {
		return common.ErrNotLeader
	}
	return nil
}

func (s *ChatService) observe(op string, err error) {
	s.metrics.ObserveMutation(op, common.StatusOf(err))
}

func required(fields ...string) error {
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("empty field: %w", common.ErrInvalidArgument)
		}
	}
	return nil
}

// Register creates an account from a client-computed password digest.
func (s *ChatService) Register(ctx context.Context, username, passwordHash string) (err error) {
	defer func() { s.observe("register", err) }()

	if err := s.requireLeader(); err != nil {
		return err
	}
	if err := required(username, passwordHash); err != nil {
		return err
	}
	if err := s.store.Register(username, passwordHash); err != nil {
		return err
	}

	s.logger.Info(ctx, "Registered", "username", username)
	return s.replicator.Replicate(ctx, "register", func(ctx context.Context, c pb.ReplicationServiceClient) (bool, error) {
		return ack(c.ReplicateRegister(ctx, &pb.ReplicateRegisterRequest{Username: username, Password: passwordHash}))
	})
}

// Login starts a session and returns the unread message count.
func (s *ChatService) Login(ctx context.Context, username, passwordHash string) (unread int, err error) {
	defer func() { s.observe("login", err) }()

	if err := s.requireLeader(); err != nil {
		return 0, err
	}
	unread, err = s.store.Authenticate(username, passwordHash)
	if err != nil {
		return 0, err
	}
	if err := s.store.AddActiveUser(username); err != nil {
		return 0, err
	}

	s.logger.Info(ctx, "Logged in", "username", username)
	err = s.replicator.Replicate(ctx, "login", func(ctx context.Context, c pb.ReplicationServiceClient) (bool, error) {
		return ack(c.ReplicateLogin(ctx, &pb.ReplicateUserRequest{Username: username}))
	})
	return unread, err
}

// Logout ends a session. The push-subscription intent goes with it, and so
// does the user's queue on this node.
func (s *ChatService) Logout(ctx context.Context, username string) (err error) {
	defer func() { s.observe("logout", err) }()

	if err := s.requireLeader(); err != nil {
		return err
	}
	if err := s.store.EndSession(username); err != nil {
		return err
	}
	s.hub.Remove(username)

	return s.replicator.Replicate(ctx, "logout", func(ctx context.Context, c pb.ReplicationServiceClient) (bool, error) {
		return ack(c.ReplicateLogout(ctx, &pb.ReplicateUserRequest{Username: username}))
	})
}

// SendMessage delivers body to recipient and returns the new message id. The
// id is returned even when replication falls short, since the leader keeps
// the message. The recipient's live stream only sees it after a majority ack.
func (s *ChatService) SendMessage(ctx context.Context, sender, recipient, body string) (id string, err error) {
	defer func() { s.observe("send", err) }()

	if err := s.requireLeader(); err != nil {
		return "", err
	}
	if err := required(sender, recipient, body); err != nil {
		return "", err
	}
	if !s.store.Exists(recipient) {
		return "", fmt.Errorf("recipient %q: %w", recipient, common.ErrorNotFound)
	}

	msg := models.Message{ID: s.newID(), Sender: sender, Body: body, Status: models.StatusUnread}
	ok, err := s.store.AppendMessage(recipient, msg)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("recipient %q: %w", recipient, common.ErrorNotFound)
	}

	err = s.replicator.Replicate(ctx, "message", func(ctx context.Context, c pb.ReplicationServiceClient) (bool, error) {
		return ack(c.ReplicateMessage(ctx, &pb.ReplicateMessageRequest{
			MessageId: msg.ID,
			Sender:    sender,
			Recipient: recipient,
			Message:   body,
			Status:    string(msg.Status),
		}))
	})
	if err != nil {
		return msg.ID, err
	}

	s.hub.Publish(recipient, msg)
	s.logger.Info(ctx, "Message sent", "from", sender, "to", recipient, "id", msg.ID)
	return msg.ID, nil
}

// MarkRead marks up to batch unread messages from contact as read and returns
// how many changed. Nothing is replicated when nothing matched.
func (s *ChatService) MarkRead(ctx context.Context, username, contact string, batch int) (n int, err error) {
	defer func() { s.observe("mark_read", err) }()

	if err := s.requireLeader(); err != nil {
		return 0, err
	}
	if err := required(username, contact); err != nil {
		return 0, err
	}
	ids, err := s.store.MarkRead(username, contact, batch)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	err = s.replicator.Replicate(ctx, "mark_read", func(ctx context.Context, c pb.ReplicationServiceClient) (bool, error) {
		return ack(c.ReplicateMarkRead(ctx, &pb.ReplicateMarkReadRequest{
			Username:   username,
			Contact:    contact,
			BatchNum:   int32(batch),
			MessageIds: ids,
		}))
	})
	return len(ids), err
}

// DeleteUnreadMessage unsends a message the recipient has not read yet and
// pushes its tombstone to the recipient's live stream.
func (s *ChatService) DeleteUnreadMessage(ctx context.Context, sender, recipient, id string) (err error) {
	defer func() { s.observe("delete_message", err) }()

	if err := s.requireLeader(); err != nil {
		return err
	}
	if err := required(sender, recipient, id); err != nil {
		return err
	}
	msg, err := s.store.DeleteMessage(sender, recipient, id, true)
	if err != nil {
		return err
	}

	err = s.replicator.Replicate(ctx, "delete_message", func(ctx context.Context, c pb.ReplicationServiceClient) (bool, error) {
		return ack(c.ReplicateDeleteMessage(ctx, &pb.ReplicateDeleteMessageRequest{Sender: sender, Recipient: recipient, MessageId: id}))
	})
	if err != nil {
		return err
	}

	s.hub.Publish(recipient, msg.Tombstone())
	return nil
}

// DeleteAccount soft-deletes username and drops its push queue.
func (s *ChatService) DeleteAccount(ctx context.Context, username string) (err error) {
	defer func() { s.observe("delete_account", err) }()

	if err := s.requireLeader(); err != nil {
		return err
	}
	if err := s.store.DeleteAccount(username); err != nil {
		return err
	}
	s.hub.Remove(username)

	s.logger.Info(ctx, "Account deleted", "username", username)
	return s.replicator.Replicate(ctx, "delete_account", func(ctx context.Context, c pb.ReplicationServiceClient) (bool, error) {
		return ack(c.ReplicateDeleteAccount(ctx, &pb.ReplicateUserRequest{Username: username}))
	})
}

// Subscribe records the user's push intent, replicates it, and attaches a
// live subscription on this node. The caller owns the returned subscription.
func (s *ChatService) Subscribe(ctx context.Context, username string) (sub *hub.Subscription, err error) {
	defer func() { s.observe("subscribe", err) }()

	if err := s.requireLeader(); err != nil {
		return nil, err
	}
	if err := s.store.SetSubscribed(username, true); err != nil {
		return nil, err
	}

	err = s.replicator.Replicate(ctx, "subscribe", func(ctx context.Context, c pb.ReplicationServiceClient) (bool, error) {
		return ack(c.ReplicateSubscribe(ctx, &pb.ReplicateUserRequest{Username: username}))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Subscribed", "username", username)
	return s.hub.Attach(username), nil
}

// ListUsers returns every live account. Served by any node.
func (s *ChatService) ListUsers() []string {
	return s.store.ListUsers()
}

// ReceiveMessages returns the full mailbox of username. Served by any node.
func (s *ChatService) ReceiveMessages(username string) ([]models.Message, error) {
	return s.store.Messages(username)
}

// LeaderAddress returns the believed leader's address.
func (s *ChatService) LeaderAddress() (string, error) {
	return s.leader.LeaderAddress()
}

// Rehydrate reloads the store from disk and rebuilds the push queues of every
// persisted subscriber. It returns the sizes of both session sets.
func (s *ChatService) Rehydrate(ctx context.Context) (active, subscribers int, err error) {
	if err := s.store.Reload(); err != nil {
		return 0, 0, err
	}

	subs := s.store.Subscribers()
	for _, u := range subs {
		s.hub.Ensure(u)
	}
	active = len(s.store.ActiveUsers())

	s.logger.Info(ctx, "Rehydrated session state", "active_users", active, "subscribers", len(subs))
	return active, len(subs), nil
}
