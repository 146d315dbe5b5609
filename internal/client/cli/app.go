package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/replichat/internal/client/client"
	"github.com/dmitrijs2005/replichat/internal/client/config"
	"github.com/dmitrijs2005/replichat/internal/client/models"
	"github.com/dmitrijs2005/replichat/internal/client/services"
	"github.com/dmitrijs2005/replichat/internal/logging"
)

// chatAgent is what the commands need from services.Agent.
type chatAgent interface {
	User() string
	Leader() string
	OnPush(fn func(models.Message))
	Run(ctx context.Context)
	Close() error
	Register(ctx context.Context, username string, password []byte) error
	Login(ctx context.Context, username string, password []byte) (int, error)
	Logout(ctx context.Context) error
	Users(ctx context.Context) ([]string, error)
	Send(ctx context.Context, recipient, body string) (string, error)
	Inbox(ctx context.Context) ([]models.Message, error)
	MarkRead(ctx context.Context, contact string, batch int) (int, error)
	Unsend(ctx context.Context, recipient, id string) error
	DeleteAccount(ctx context.Context) error
}

type App struct {
	config *config.Config
	agent  chatAgent
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config, l logging.Logger) (*App, error) {
	dial := func(addr string) (client.Client, error) {
		return client.NewGRPCClient(addr)
	}
	iv := services.Intervals{
		Failover: c.FailoverInterval,
		Poll:     c.PollInterval,
		Request:  c.RequestTimeout,
	}
	agent := services.NewAgent(c.Nodes, dial, iv, l)

	return &App{config: c, agent: agent, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

func (a *App) isLoggedIn() bool {
	return a.agent.User() != ""
}

func (a *App) getStatus() string {
	s := ""
	if u := a.agent.User(); u != "" {
		s = u + " "
	}
	if l := a.agent.Leader(); l != "" {
		s = s + "@ " + l
	} else {
		s = s + "no leader"
	}
	return fmt.Sprintf("(%s)", s)
}

// notify prints a pushed message between prompts.
func (a *App) notify(m models.Message) {
	if m.Status == models.StatusDeleted {
		fmt.Fprintf(a.out, "\n* %s unsent message %s\n", m.From, m.ID)
		return
	}
	fmt.Fprintf(a.out, "\n* new message from %s: %s\n", m.From, m.Body)
}

// Run starts the failover loop and the REPL, and blocks until the user exits
// or stdin closes.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.agent.Close()

	a.agent.OnPush(a.notify)
	go a.agent.Run(ctx)

	fmt.Fprintln(a.out, "Welcome to replichat (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}
