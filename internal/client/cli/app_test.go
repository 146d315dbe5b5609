package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/dmitrijs2005/replichat/internal/client/config"
	"github.com/dmitrijs2005/replichat/internal/client/models"
	"github.com/dmitrijs2005/replichat/internal/common"
	"github.com/dmitrijs2005/replichat/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAgent struct {
	user   string
	leader string
	onPush func(models.Message)

	password  []byte
	recipient string
	body      string
	contact   string
	batch     int
	unsent    string
	deleted   bool

	sendErr error
	inbox   []models.Message
	users   []string
}

func (f *fakeAgent) User() string                   { return f.user }
func (f *fakeAgent) Leader() string                 { return f.leader }
func (f *fakeAgent) OnPush(fn func(models.Message)) { f.onPush = fn }
func (f *fakeAgent) Run(ctx context.Context)        { <-ctx.Done() }
func (f *fakeAgent) Close() error                   { return nil }

func (f *fakeAgent) Logout(context.Context) error {
	f.user = ""
	return nil
}

func (f *fakeAgent) Register(_ context.Context, username string, password []byte) error {
	f.password = append([]byte(nil), password...)
	return nil
}

func (f *fakeAgent) Login(_ context.Context, username string, password []byte) (int, error) {
	f.user = username
	f.password = append([]byte(nil), password...)
	return 3, nil
}

func (f *fakeAgent) Users(context.Context) ([]string, error) { return f.users, nil }

func (f *fakeAgent) Send(_ context.Context, recipient, body string) (string, error) {
	f.recipient, f.body = recipient, body
	return "m-1", f.sendErr
}

func (f *fakeAgent) Inbox(context.Context) ([]models.Message, error) { return f.inbox, nil }

func (f *fakeAgent) MarkRead(_ context.Context, contact string, batch int) (int, error) {
	f.contact, f.batch = contact, batch
	return 1, nil
}

func (f *fakeAgent) Unsend(_ context.Context, _, id string) error {
	f.unsent = id
	return nil
}

func (f *fakeAgent) DeleteAccount(context.Context) error {
	f.deleted = true
	f.user = ""
	return nil
}

func newTestApp(ag *fakeAgent, lines ...string) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	in := bufio.NewReader(strings.NewReader(strings.Join(lines, "\n") + "\n"))
	return &App{agent: ag, reader: in, out: &out}, &out
}

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	orig := getPassword
	getPassword = func(io.Writer) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() { getPassword = orig })
}

func TestApp_LoginAndStatus(t *testing.T) {
	stubPassword(t, "secret")
	ag := &fakeAgent{leader: "localhost:8001"}
	app, out := newTestApp(ag, "alice")

	assert.Equal(t, "(@ localhost:8001)", app.getStatus())
	require.NoError(t, app.Login(context.Background()))

	assert.True(t, app.isLoggedIn())
	assert.Equal(t, []byte("secret"), ag.password)
	assert.Contains(t, out.String(), "Logged in as alice, 3 unread message(s)")
	assert.Equal(t, "(alice @ localhost:8001)", app.getStatus())

	ag.leader = ""
	assert.Equal(t, "(alice no leader)", app.getStatus())
}

func TestApp_Register(t *testing.T) {
	stubPassword(t, "pw")
	ag := &fakeAgent{}
	app, out := newTestApp(ag, "bob")

	require.NoError(t, app.Register(context.Background()))
	assert.Equal(t, []byte("pw"), ag.password)
	assert.Contains(t, out.String(), "Account created")
}

func TestApp_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("inline body", func(t *testing.T) {
		ag := &fakeAgent{user: "alice"}
		app, out := newTestApp(ag)
		require.NoError(t, app.Send(ctx, []string{"bob", "hello", "there"}))
		assert.Equal(t, "bob", ag.recipient)
		assert.Equal(t, "hello there", ag.body)
		assert.Contains(t, out.String(), "Sent m-1")
	})

	t.Run("multiline body", func(t *testing.T) {
		ag := &fakeAgent{user: "alice"}
		app, _ := newTestApp(ag, "line one", "line two", "")
		require.NoError(t, app.Send(ctx, []string{"bob"}))
		assert.Equal(t, "line one\nline two", ag.body)
	})

	t.Run("shortfall still reports the id", func(t *testing.T) {
		ag := &fakeAgent{user: "alice", sendErr: fmt.Errorf("%w: 1 of 3", common.ErrReplicationFailed)}
		app, out := newTestApp(ag)
		require.NoError(t, app.Send(ctx, []string{"bob", "hi"}))
		assert.Contains(t, out.String(), "not every replica confirmed it")
	})

	t.Run("usage", func(t *testing.T) {
		app, _ := newTestApp(&fakeAgent{})
		require.ErrorIs(t, app.Send(ctx, nil), errUsage)
	})
}

func TestApp_ReadAndUnsend(t *testing.T) {
	ctx := context.Background()
	ag := &fakeAgent{user: "alice"}
	app, out := newTestApp(ag)

	require.NoError(t, app.Read(ctx, []string{"bob"}))
	assert.Equal(t, defaultReadBatch, ag.batch)
	require.NoError(t, app.Read(ctx, []string{"bob", "2"}))
	assert.Equal(t, 2, ag.batch)
	assert.Equal(t, "bob", ag.contact)
	require.NoError(t, app.Read(ctx, []string{"bob", "all"}))
	assert.Equal(t, 0, ag.batch, "all maps to the mark-everything batch")
	ag.batch = -1
	require.NoError(t, app.Read(ctx, []string{"bob", "0"}))
	assert.Equal(t, 0, ag.batch)
	require.ErrorIs(t, app.Read(ctx, []string{"bob", "x"}), errUsage)
	require.ErrorIs(t, app.Read(ctx, []string{"bob", "-1"}), errUsage)
	require.ErrorIs(t, app.Read(ctx, nil), errUsage)

	require.NoError(t, app.Unsend(ctx, []string{"bob", "m-9"}))
	assert.Equal(t, "m-9", ag.unsent)
	require.ErrorIs(t, app.Unsend(ctx, []string{"bob"}), errUsage)
	assert.Contains(t, out.String(), "Message m-9 deleted")
}

func TestApp_InboxAndUsersTables(t *testing.T) {
	ctx := context.Background()
	ag := &fakeAgent{user: "alice"}
	app, out := newTestApp(ag)

	require.NoError(t, app.Inbox(ctx))
	assert.Contains(t, out.String(), "Inbox is empty")

	ag.inbox = []models.Message{{ID: "m-1", From: "bob", Body: "hello", Status: models.StatusUnread}}
	ag.users = []string{"alice", "bob"}
	out.Reset()
	require.NoError(t, app.Inbox(ctx))
	require.NoError(t, app.Users(ctx))
	for _, s := range []string{"m-1", "bob", "hello", "unread", "alice"} {
		assert.Contains(t, out.String(), s)
	}
}

func TestApp_DeleteAccountNeedsConfirmation(t *testing.T) {
	ctx := context.Background()
	ag := &fakeAgent{user: "alice"}

	app, out := newTestApp(ag, "no")
	require.NoError(t, app.DeleteAccount(ctx))
	assert.False(t, ag.deleted)
	assert.Contains(t, out.String(), "Cancelled")

	app, _ = newTestApp(ag, "YES")
	require.NoError(t, app.DeleteAccount(ctx))
	assert.True(t, ag.deleted)
	assert.False(t, app.isLoggedIn())
}

func TestApp_NotifyAndLeader(t *testing.T) {
	ag := &fakeAgent{leader: "localhost:8002"}
	app, out := newTestApp(ag)

	app.notify(models.Message{ID: "m-1", From: "bob", Body: "ping", Status: models.StatusUnread})
	app.notify(models.Message{ID: "m-1", From: "bob", Status: models.StatusDeleted})
	require.NoError(t, app.Leader(context.Background()))

	assert.Contains(t, out.String(), "new message from bob: ping")
	assert.Contains(t, out.String(), "bob unsent message m-1")
	assert.Contains(t, out.String(), "Leader: localhost:8002")
}

func TestApp_RunExitsOnQuit(t *testing.T) {
	captureOutput(t)
	ag := &fakeAgent{}
	app, out := newTestApp(ag, "leader", "exit")

	app.Run(context.Background())

	require.NotNil(t, ag.onPush, "push callback installed")
	assert.Contains(t, out.String(), "Welcome to replichat")
}

func TestNewApp(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()
	app, err := NewApp(c, logging.Nop{})
	require.NoError(t, err)
	assert.False(t, app.isLoggedIn())
	assert.Empty(t, app.agent.Leader())
}

func TestApp_REPLSendReadsBodyFromSameInput(t *testing.T) {
	captureOutput(t)
	ag := &fakeAgent{user: "alice"}
	app, _ := newTestApp(ag, "send bob", "hello there", "second line", "", "inbox", "exit")

	runREPL(context.Background(), app, app.getStatus, app.reader)

	assert.Equal(t, "bob", ag.recipient)
	assert.Equal(t, "hello there\nsecond line", ag.body)
}
