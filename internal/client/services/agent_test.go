package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/replichat/internal/client/client"
	"github.com/dmitrijs2005/replichat/internal/client/models"
	"github.com/dmitrijs2005/replichat/internal/common"
	"github.com/dmitrijs2005/replichat/internal/cryptox"
	"github.com/dmitrijs2005/replichat/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCluster plays every node at once: only the node named leader accepts
// calls, the others answer not leader.
type fakeCluster struct {
	mu       sync.Mutex
	leader   string
	down     map[string]bool
	calls    []string
	inbox    []models.Message
	push     map[string]chan models.Message
	sendErr  error
	recvErr  error
	lastHash string
}

func newFakeCluster(leader string) *fakeCluster {
	return &fakeCluster{
		leader: leader,
		down:   make(map[string]bool),
		push:   make(map[string]chan models.Message),
	}
}

func (f *fakeCluster) setLeader(addr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leader = addr
}

func (f *fakeCluster) record(addr, method string) {
	f.calls = append(f.calls, addr+":"+method)
}

func (f *fakeCluster) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeCluster) called(call string) bool {
	for _, c := range f.Calls() {
		if c == call {
			return true
		}
	}
	return false
}

func (f *fakeCluster) pushTo(addr string) chan models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.push[addr]
	if !ok {
		ch = make(chan models.Message, 16)
		f.push[addr] = ch
	}
	return ch
}

// leaderCall records the call and checks leadership.
func (f *fakeCluster) leaderCall(addr, method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down[addr] {
		return client.ErrUnavailable
	}
	f.record(addr, method)
	if addr != f.leader {
		return fmt.Errorf("%w: ask %s", common.ErrNotLeader, f.leader)
	}
	return nil
}

func (f *fakeCluster) dial(addr string) (client.Client, error) {
	return &fakeClient{addr: addr, cluster: f}, nil
}

type fakeClient struct {
	addr    string
	cluster *fakeCluster
}

func (c *fakeClient) Close() error    { return nil }
func (c *fakeClient) Address() string { return c.addr }

func (c *fakeClient) CheckVersion(context.Context) error {
	return c.cluster.leaderCall(c.addr, "CheckVersion")
}

func (c *fakeClient) Register(_ context.Context, _, hash string) error {
	c.cluster.mu.Lock()
	c.cluster.lastHash = hash
	c.cluster.mu.Unlock()
	return c.cluster.leaderCall(c.addr, "Register")
}

func (c *fakeClient) Login(context.Context, string, string) (int, error) {
	if err := c.cluster.leaderCall(c.addr, "Login"); err != nil {
		return 0, err
	}
	return 2, nil
}

func (c *fakeClient) Logout(context.Context, string) error {
	return c.cluster.leaderCall(c.addr, "Logout")
}

func (c *fakeClient) ListUsers(context.Context) ([]string, error) {
	if err := c.cluster.leaderCall(c.addr, "ListUsers"); err != nil {
		return nil, err
	}
	return []string{"alice", "bob"}, nil
}

func (c *fakeClient) SendMessage(context.Context, string, string, string) (string, error) {
	if err := c.cluster.leaderCall(c.addr, "SendMessage"); err != nil {
		return "", err
	}
	c.cluster.mu.Lock()
	defer c.cluster.mu.Unlock()
	return "m-1", c.cluster.sendErr
}

func (c *fakeClient) MarkRead(_ context.Context, _, _ string, batch int) (int, error) {
	if err := c.cluster.leaderCall(c.addr, "MarkRead"); err != nil {
		return 0, err
	}
	c.cluster.mu.Lock()
	defer c.cluster.mu.Unlock()
	n := 0
	for i := range c.cluster.inbox {
		if n < batch && c.cluster.inbox[i].IsUnread() {
			c.cluster.inbox[i].Status = models.StatusRead
			n++
		}
	}
	return n, nil
}

func (c *fakeClient) DeleteUnreadMessage(context.Context, string, string, string) error {
	return c.cluster.leaderCall(c.addr, "DeleteUnreadMessage")
}

func (c *fakeClient) ReceiveMessages(context.Context, string) ([]models.Message, error) {
	if err := c.cluster.leaderCall(c.addr, "ReceiveMessages"); err != nil {
		return nil, err
	}
	c.cluster.mu.Lock()
	defer c.cluster.mu.Unlock()
	return append([]models.Message(nil), c.cluster.inbox...), nil
}

func (c *fakeClient) DeleteAccount(context.Context, string) error {
	return c.cluster.leaderCall(c.addr, "DeleteAccount")
}

func (c *fakeClient) Subscribe(ctx context.Context, _ string) (client.Stream, error) {
	if err := c.cluster.leaderCall(c.addr, "Subscribe"); err != nil {
		return nil, err
	}
	c.cluster.mu.Lock()
	recvErr := c.cluster.recvErr
	c.cluster.mu.Unlock()
	return &fakeStream{ctx: ctx, ch: c.cluster.pushTo(c.addr), err: recvErr}, nil
}

func (c *fakeClient) LeaderInfo(context.Context) (string, error) {
	c.cluster.mu.Lock()
	defer c.cluster.mu.Unlock()
	if c.cluster.down[c.addr] {
		return "", client.ErrUnavailable
	}
	return c.cluster.leader, nil
}

func (c *fakeClient) Rehydrate(context.Context) error {
	return c.cluster.leaderCall(c.addr, "Rehydrate")
}

type fakeStream struct {
	ctx context.Context
	ch  chan models.Message
	err error
}

func (s *fakeStream) Recv() (models.Message, error) {
	if s.err != nil {
		return models.Message{}, s.err
	}
	select {
	case <-s.ctx.Done():
		return models.Message{}, s.ctx.Err()
	case m, ok := <-s.ch:
		if !ok {
			return models.Message{}, io.EOF
		}
		return m, nil
	}
}

var nodes = []string{"n1", "n2", "n3"}

func newTestAgent(t *testing.T, cl *fakeCluster) *Agent {
	t.Helper()
	a := NewAgent(nodes, cl.dial, Intervals{Failover: time.Hour, Poll: time.Hour, Request: time.Second}, logging.Nop{})
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestAgent_ResolveLeader(t *testing.T) {
	cl := newFakeCluster("n2")
	cl.down["n1"] = true
	a := newTestAgent(t, cl)

	leader, err := a.ResolveLeader(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "n2", leader)

	cl.mu.Lock()
	for _, n := range nodes {
		cl.down[n] = true
	}
	cl.mu.Unlock()
	_, err = a.ResolveLeader(context.Background())
	require.ErrorIs(t, err, client.ErrNoLeader)
}

func TestAgent_RefreshConnectsAndRehydrates(t *testing.T) {
	cl := newFakeCluster("n1")
	a := newTestAgent(t, cl)
	ctx := context.Background()

	changed, err := a.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "n1", a.Leader())
	assert.Equal(t, []string{"n1:CheckVersion", "n1:Rehydrate"}, cl.Calls())

	changed, err = a.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, cl.Calls(), 2, "an unchanged leader is not touched")

	cl.setLeader("n3")
	changed, err = a.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "n3", a.Leader())
}

func TestAgent_DoRetriesOnceOnNotLeader(t *testing.T) {
	cl := newFakeCluster("n1")
	a := newTestAgent(t, cl)
	ctx := context.Background()

	_, err := a.Refresh(ctx)
	require.NoError(t, err)
	cl.setLeader("n2")

	require.NoError(t, a.Register(ctx, "alice", []byte("pw")))
	assert.Equal(t, []string{
		"n1:CheckVersion", "n1:Rehydrate",
		"n1:Register",
		"n2:CheckVersion", "n2:Rehydrate",
		"n2:Register",
	}, cl.Calls())
	assert.Equal(t, cryptox.HashPassword("alice", []byte("pw")), cl.lastHash)
}

func TestAgent_NoRetryWhenUnavailable(t *testing.T) {
	cl := newFakeCluster("n1")
	a := newTestAgent(t, cl)
	ctx := context.Background()

	_, err := a.Refresh(ctx)
	require.NoError(t, err)

	cl.mu.Lock()
	cl.down["n1"] = true
	cl.leader = "n2"
	cl.mu.Unlock()

	_, err = a.Users(ctx)
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.Equal(t, "n2", a.Leader(), "the failed call still moved the agent")

	users, err := a.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, users)
}

func TestAgent_RequiresLogin(t *testing.T) {
	a := newTestAgent(t, newFakeCluster("n1"))
	ctx := context.Background()

	_, err := a.Send(ctx, "bob", "hi")
	require.ErrorIs(t, err, common.ErrNotLoggedIn)
	_, err = a.Inbox(ctx)
	require.ErrorIs(t, err, common.ErrNotLoggedIn)
	_, err = a.MarkRead(ctx, "bob", 1)
	require.ErrorIs(t, err, common.ErrNotLoggedIn)
	require.ErrorIs(t, a.Unsend(ctx, "bob", "m-1"), common.ErrNotLoggedIn)
	require.ErrorIs(t, a.Logout(ctx), common.ErrNotLoggedIn)
	require.ErrorIs(t, a.DeleteAccount(ctx), common.ErrNotLoggedIn)
}

func TestAgent_LoginSubscribesAndFollowsLeader(t *testing.T) {
	cl := newFakeCluster("n1")
	a := newTestAgent(t, cl)
	ctx := context.Background()

	var mu sync.Mutex
	var pushed []string
	a.OnPush(func(m models.Message) {
		mu.Lock()
		defer mu.Unlock()
		pushed = append(pushed, m.ID)
	})

	unread, err := a.Login(ctx, "alice", []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, 2, unread)
	assert.Equal(t, "alice", a.User())
	require.Eventually(t, func() bool { return cl.called("n1:Subscribe") }, time.Second, 5*time.Millisecond)

	cl.pushTo("n1") <- models.Message{ID: "p1", From: "bob", Body: "hi", Status: models.StatusUnread}
	require.Eventually(t, func() bool { return len(a.Mailbox().Messages()) == 1 }, time.Second, 5*time.Millisecond)

	cl.setLeader("n2")
	changed, err := a.Refresh(ctx)
	require.NoError(t, err)
	require.True(t, changed)
	require.Eventually(t, func() bool { return cl.called("n2:Subscribe") }, time.Second, 5*time.Millisecond)

	cl.pushTo("n2") <- models.Message{ID: "p2", From: "bob", Body: "again", Status: models.StatusUnread}
	cl.pushTo("n2") <- models.Message{ID: "p1", From: "bob", Status: models.StatusDeleted}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(pushed) == 3
	}, time.Second, 5*time.Millisecond)

	msgs := a.Mailbox().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, models.StatusDeleted, msgs[0].Status)
	assert.Equal(t, "p2", msgs[1].ID)
}

func TestAgent_SupersededStreamIsNotRestarted(t *testing.T) {
	cl := newFakeCluster("n1")
	cl.recvErr = fmt.Errorf("%w: replaced", client.ErrSuperseded)
	a := newTestAgent(t, cl)
	ctx := context.Background()

	_, err := a.Login(ctx, "alice", []byte("pw"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.superseded && a.sub == nil
	}, time.Second, 5*time.Millisecond)

	_, err = a.Refresh(ctx)
	require.NoError(t, err)

	subs := 0
	for _, c := range cl.Calls() {
		if c == "n1:Subscribe" {
			subs++
		}
	}
	assert.Equal(t, 1, subs)
}

func TestAgent_SessionOperations(t *testing.T) {
	cl := newFakeCluster("n1")
	cl.inbox = []models.Message{
		{ID: "1", From: "bob", Body: "a", Status: models.StatusUnread},
		{ID: "2", From: "bob", Body: "b", Status: models.StatusUnread},
	}
	a := newTestAgent(t, cl)
	ctx := context.Background()

	_, err := a.Login(ctx, "alice", []byte("pw"))
	require.NoError(t, err)

	msgs, err := a.Inbox(ctx)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
	assert.Equal(t, 2, a.Mailbox().Unread())

	n, err := a.MarkRead(ctx, "bob", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, a.Mailbox().Unread(), "mark read refreshes the mailbox")

	cl.sendErr = fmt.Errorf("%w: 1 of 3 acks", common.ErrReplicationFailed)
	id, err := a.Send(ctx, "bob", "hi")
	require.ErrorIs(t, err, common.ErrReplicationFailed)
	assert.Equal(t, "m-1", id)

	require.NoError(t, a.Unsend(ctx, "bob", "m-1"))

	require.NoError(t, a.Logout(ctx))
	assert.Empty(t, a.User())
	assert.Empty(t, a.Mailbox().Messages())

	_, err = a.Login(ctx, "alice", []byte("pw"))
	require.NoError(t, err)
	require.NoError(t, a.DeleteAccount(ctx))
	assert.Empty(t, a.User())
}

func TestAgent_RunPollsInbox(t *testing.T) {
	cl := newFakeCluster("n1")
	cl.inbox = []models.Message{{ID: "1", From: "bob", Body: "a", Status: models.StatusUnread}}
	a := NewAgent(nodes, cl.dial, Intervals{Failover: 20 * time.Millisecond, Poll: 10 * time.Millisecond, Request: time.Second}, logging.Nop{})
	t.Cleanup(func() { _ = a.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return a.Leader() == "n1" }, time.Second, 5*time.Millisecond)
	_, err := a.Login(context.Background(), "alice", []byte("pw"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(a.Mailbox().Messages()) == 1 }, time.Second, 5*time.Millisecond)

	cl.setLeader("n3")
	require.Eventually(t, func() bool { return a.Leader() == "n3" }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
