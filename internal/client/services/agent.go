// Package services contains application services for the replichat client.
// The Agent keeps the client pointed at the current leader: it resolves the
// leader through any reachable node, reconnects and resubscribes when
// leadership moves, and polls the inbox as a backstop for missed pushes.
package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/replichat/internal/client/client"
	"github.com/dmitrijs2005/replichat/internal/client/models"
	"github.com/dmitrijs2005/replichat/internal/common"
	"github.com/dmitrijs2005/replichat/internal/cryptox"
	"github.com/dmitrijs2005/replichat/internal/logging"
)

// Dialer opens a Client bound to one node address.
type Dialer func(address string) (client.Client, error)

// Intervals tunes the Agent's background loops.
type Intervals struct {
	Failover time.Duration
	Poll     time.Duration
	Request  time.Duration
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

type Agent struct {
	nodes     []string
	dial      Dialer
	intervals Intervals
	mailbox   *Mailbox
	logger    logging.Logger

	// refreshMu serializes Refresh so the failover loop and a not-leader
	// retry never reconnect twice.
	refreshMu sync.Mutex

	mu         sync.Mutex
	current    client.Client
	user       string
	sub        *subscription
	superseded bool
	onPush     func(models.Message)
}

func NewAgent(nodes []string, dial Dialer, iv Intervals, l logging.Logger) *Agent {
	return &Agent{
		nodes:     append([]string(nil), nodes...),
		dial:      dial,
		intervals: iv,
		mailbox:   NewMailbox(),
		logger:    l.With("module", "agent"),
	}
}

// OnPush registers a callback run for every message arriving on the push
// stream, after it was merged into the mailbox.
func (a *Agent) OnPush(fn func(models.Message)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onPush = fn
}

func (a *Agent) Mailbox() *Mailbox {
	return a.mailbox
}

// User is the logged-in username, empty when logged out.
func (a *Agent) User() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user
}

// Leader is the address the agent currently talks to, empty before the
// first successful Refresh.
func (a *Agent) Leader() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return ""
	}
	return a.current.Address()
}

func (a *Agent) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.intervals.Request <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.intervals.Request)
}

// ResolveLeader asks the known nodes in order until one names the leader.
func (a *Agent) ResolveLeader(ctx context.Context) (string, error) {
	for _, addr := range a.nodes {
		c, err := a.dial(addr)
		if err != nil {
			a.logger.Debug(ctx, "Dial failed", "address", addr, "error", err)
			continue
		}
		callCtx, cancel := a.withTimeout(ctx)
		leader, err := c.LeaderInfo(callCtx)
		cancel()
		_ = c.Close()

		if err != nil {
			a.logger.Debug(ctx, "Node does not know the leader", "address", addr, "error", err)
			continue
		}
		if leader != "" {
			return leader, nil
		}
	}
	return "", client.ErrNoLeader
}

// Refresh re-resolves the leader. When it moved, the agent connects to the
// new one, asks it to rehydrate its session state and moves the push
// stream over. It reports whether the target changed.
func (a *Agent) Refresh(ctx context.Context) (bool, error) {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	leader, err := a.ResolveLeader(ctx)
	if err != nil {
		return false, err
	}

	if leader == a.Leader() {
		a.ensureSubscribed()
		return false, nil
	}

	c, err := a.dial(leader)
	if err != nil {
		return false, err
	}
	callCtx, cancel := a.withTimeout(ctx)
	defer cancel()
	if err := c.CheckVersion(callCtx); err != nil {
		_ = c.Close()
		return false, err
	}
	if err := c.Rehydrate(callCtx); err != nil {
		a.logger.Warn(ctx, "Rehydration failed", "address", leader, "error", err)
	}

	a.stopSubscription()

	a.mu.Lock()
	old := a.current
	a.current = c
	user := a.user
	a.mu.Unlock()

	if old != nil {
		_ = old.Close()
		a.logger.Info(ctx, "Leader changed", "from", old.Address(), "to", leader)
	} else {
		a.logger.Info(ctx, "Connected to leader", "address", leader)
	}

	if user != "" {
		a.startSubscription(user)
	}
	return true, nil
}

func (a *Agent) client(ctx context.Context) (client.Client, error) {
	a.mu.Lock()
	c := a.current
	a.mu.Unlock()
	if c != nil {
		return c, nil
	}
	if _, err := a.Refresh(ctx); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return nil, client.ErrUnavailable
	}
	return a.current, nil
}

func (a *Agent) call(ctx context.Context, c client.Client, fn func(context.Context, client.Client) error) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return fn(ctx, c)
}

// Do runs fn against the current leader. A not-leader answer triggers an
// immediate Refresh and one retry. An unreachable leader triggers a Refresh
// but no retry: the first attempt may have been applied.
func (a *Agent) Do(ctx context.Context, fn func(context.Context, client.Client) error) error {
	c, err := a.client(ctx)
	if err != nil {
		return err
	}

	err = a.call(ctx, c, fn)
	switch {
	case errors.Is(err, common.ErrNotLeader):
		a.logger.Info(ctx, "Not the leader, retrying", "address", c.Address())
		if _, rerr := a.Refresh(ctx); rerr != nil {
			return errors.Join(err, rerr)
		}
		c, cerr := a.client(ctx)
		if cerr != nil {
			return cerr
		}
		return a.call(ctx, c, fn)
	case errors.Is(err, client.ErrUnavailable):
		if _, rerr := a.Refresh(ctx); rerr != nil {
			a.logger.Warn(ctx, "Refresh failed", "error", rerr)
		}
		return err
	default:
		return err
	}
}

func (a *Agent) requireUser() (string, error) {
	u := a.User()
	if u == "" {
		return "", common.ErrNotLoggedIn
	}
	return u, nil
}

func (a *Agent) Register(ctx context.Context, username string, password []byte) error {
	hash := cryptox.HashPassword(username, password)
	return a.Do(ctx, func(ctx context.Context, c client.Client) error {
		return c.Register(ctx, username, hash)
	})
}

// Login authenticates and opens the push stream. It returns the unread count.
func (a *Agent) Login(ctx context.Context, username string, password []byte) (int, error) {
	hash := cryptox.HashPassword(username, password)
	var unread int
	err := a.Do(ctx, func(ctx context.Context, c client.Client) error {
		var err error
		unread, err = c.Login(ctx, username, hash)
		return err
	})
	if err != nil {
		return 0, err
	}

	a.stopSubscription()
	a.mailbox.Reset()
	a.mu.Lock()
	a.user = username
	a.superseded = false
	a.mu.Unlock()
	a.startSubscription(username)
	return unread, nil
}

func (a *Agent) forget() {
	a.stopSubscription()
	a.mu.Lock()
	a.user = ""
	a.mu.Unlock()
	a.mailbox.Reset()
}

func (a *Agent) Logout(ctx context.Context) error {
	u, err := a.requireUser()
	if err != nil {
		return err
	}
	err = a.Do(ctx, func(ctx context.Context, c client.Client) error {
		return c.Logout(ctx, u)
	})
	if err != nil && !errors.Is(err, common.ErrNotLoggedIn) {
		return err
	}
	a.forget()
	return nil
}

func (a *Agent) Users(ctx context.Context) ([]string, error) {
	var users []string
	err := a.Do(ctx, func(ctx context.Context, c client.Client) error {
		var err error
		users, err = c.ListUsers(ctx)
		return err
	})
	return users, err
}

// Send returns the id of the new message. On a replication shortfall the id
// comes back together with the error.
func (a *Agent) Send(ctx context.Context, recipient, body string) (string, error) {
	u, err := a.requireUser()
	if err != nil {
		return "", err
	}
	var id string
	err = a.Do(ctx, func(ctx context.Context, c client.Client) error {
		var err error
		id, err = c.SendMessage(ctx, u, recipient, body)
		return err
	})
	return id, err
}

// Inbox fetches the inbox from the leader, merges it into the mailbox and
// returns the merged view.
func (a *Agent) Inbox(ctx context.Context) ([]models.Message, error) {
	u, err := a.requireUser()
	if err != nil {
		return nil, err
	}
	var msgs []models.Message
	err = a.Do(ctx, func(ctx context.Context, c client.Client) error {
		var err error
		msgs, err = c.ReceiveMessages(ctx, u)
		return err
	})
	if err != nil {
		return nil, err
	}
	a.mailbox.Merge(msgs...)
	return a.mailbox.Messages(), nil
}

// MarkRead marks up to batch unread messages from contact as read.
func (a *Agent) MarkRead(ctx context.Context, contact string, batch int) (int, error) {
	u, err := a.requireUser()
	if err != nil {
		return 0, err
	}
	var n int
	err = a.Do(ctx, func(ctx context.Context, c client.Client) error {
		var err error
		n, err = c.MarkRead(ctx, u, contact, batch)
		return err
	})
	if err != nil {
		return n, err
	}
	if n > 0 {
		if _, err := a.Inbox(ctx); err != nil {
			a.logger.Debug(ctx, "Inbox refresh after mark read failed", "error", err)
		}
	}
	return n, nil
}

// Unsend deletes a message the user sent that the recipient has not read.
func (a *Agent) Unsend(ctx context.Context, recipient, id string) error {
	u, err := a.requireUser()
	if err != nil {
		return err
	}
	return a.Do(ctx, func(ctx context.Context, c client.Client) error {
		return c.DeleteUnreadMessage(ctx, u, recipient, id)
	})
}

func (a *Agent) DeleteAccount(ctx context.Context) error {
	u, err := a.requireUser()
	if err != nil {
		return err
	}
	err = a.Do(ctx, func(ctx context.Context, c client.Client) error {
		return c.DeleteAccount(ctx, u)
	})
	if err != nil {
		return err
	}
	a.forget()
	return nil
}

func (a *Agent) startSubscription(user string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sub != nil || a.current == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &subscription{cancel: cancel, done: make(chan struct{})}
	a.sub = s
	go a.consume(ctx, a.current, user, s)
}

// ensureSubscribed restarts a push stream that ended on its own, unless
// another session of the same user took it over.
func (a *Agent) ensureSubscribed() {
	a.mu.Lock()
	user, running, superseded := a.user, a.sub != nil, a.superseded
	a.mu.Unlock()

	if user != "" && !running && !superseded {
		a.startSubscription(user)
	}
}

func (a *Agent) stopSubscription() {
	a.mu.Lock()
	s := a.sub
	a.sub = nil
	a.mu.Unlock()

	if s == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (a *Agent) consume(ctx context.Context, c client.Client, user string, s *subscription) {
	defer close(s.done)

	stream, err := c.Subscribe(ctx, user)
	if err == nil {
		for {
			var m models.Message
			m, err = stream.Recv()
			if err != nil {
				break
			}
			a.mailbox.Merge(m)
			a.mu.Lock()
			fn := a.onPush
			a.mu.Unlock()
			if fn != nil {
				fn(m)
			}
		}
	}

	a.mu.Lock()
	if a.sub == s {
		a.sub = nil
	}
	if errors.Is(err, client.ErrSuperseded) {
		a.superseded = true
	}
	a.mu.Unlock()

	if ctx.Err() == nil {
		a.logger.Warn(ctx, "Push stream ended", "user", user, "address", c.Address(), "error", err)
	}
}

// Run resolves the leader, then keeps following it every failover interval
// and polls the inbox every poll interval while a user is logged in. It
// returns when ctx is cancelled.
func (a *Agent) Run(ctx context.Context) {
	if _, err := a.Refresh(ctx); err != nil {
		a.logger.Warn(ctx, "Initial leader lookup failed", "error", err)
	}

	failover := time.NewTicker(a.intervals.Failover)
	defer failover.Stop()
	poll := time.NewTicker(a.intervals.Poll)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-failover.C:
			if _, err := a.Refresh(ctx); err != nil {
				a.logger.Warn(ctx, "Leader lookup failed", "error", err)
			}
		case <-poll.C:
			if a.User() == "" {
				continue
			}
			if _, err := a.Inbox(ctx); err != nil {
				a.logger.Debug(ctx, "Inbox poll failed", "error", err)
			}
		}
	}
}

// Close ends the push stream and the leader connection.
func (a *Agent) Close() error {
	a.stopSubscription()

	a.mu.Lock()
	c := a.current
	a.current = nil
	a.mu.Unlock()

	if c == nil {
		return nil
	}
	return c.Close()
}
