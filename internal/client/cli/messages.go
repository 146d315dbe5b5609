package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/replichat/internal/client/models"
	"github.com/dmitrijs2005/replichat/internal/common"
	"github.com/olekukonko/tablewriter"
)

// defaultReadBatch is how many messages "read" marks when no count is given.
const defaultReadBatch = 10

var errUsage = errors.New("usage")

func (a *App) Users(ctx context.Context) error {
	users, err := a.agent.Users(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(a.out, "No users yet")
		return nil
	}
	t := tablewriter.NewWriter(a.out)
	t.SetHeader([]string{"User"})
	for _, u := range users {
		t.Append([]string{u})
	}
	t.Render()
	return nil
}

// Send handles "send <recipient> [message...]". Without an inline message
// the body is read as multiline input.
func (a *App) Send(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: send <recipient> [message]", errUsage)
	}
	recipient := args[0]
	body := strings.Join(args[1:], " ")
	if body == "" {
		var err error
		body, err = GetMultiline(a.reader, "Enter message", a.out)
		if err != nil {
			return err
		}
	}

	id, err := a.agent.Send(ctx, recipient, body)
	if errors.Is(err, common.ErrReplicationFailed) && id != "" {
		fmt.Fprintf(a.out, "Sent %s, but not every replica confirmed it\n", id)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Sent %s\n", id)
	return nil
}

func (a *App) Inbox(ctx context.Context) error {
	msgs, err := a.agent.Inbox(ctx)
	if err != nil {
		return err
	}
	printInbox(a, msgs)
	return nil
}

func printInbox(a *App, msgs []models.Message) {
	if len(msgs) == 0 {
		fmt.Fprintln(a.out, "Inbox is empty")
		return
	}
	t := tablewriter.NewWriter(a.out)
	t.SetHeader([]string{"ID", "From", "Status", "Message"})
	t.SetAutoWrapText(false)
	for _, m := range msgs {
		t.Append([]string{m.ID, m.From, m.Status, m.Body})
	}
	t.Render()
}

// Read handles "read <contact> [count|all]". "all" (or 0) marks every unread
// message from contact.
func (a *App) Read(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: read <contact> [count|all]", errUsage)
	}
	batch := defaultReadBatch
	if len(args) == 2 {
		if args[1] == "all" {
			batch = 0
		} else {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 0 {
				return fmt.Errorf("%w: count must be a number or \"all\"", errUsage)
			}
			batch = n
		}
	}

	n, err := a.agent.MarkRead(ctx, args[0], batch)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Marked %d message(s) from %s as read\n", n, args[0])
	return nil
}

// Unsend handles "unsend <recipient> <id>".
func (a *App) Unsend(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: unsend <recipient> <message id>", errUsage)
	}
	if err := a.agent.Unsend(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Message %s deleted\n", args[1])
	return nil
}

func (a *App) Leader(ctx context.Context) error {
	l := a.agent.Leader()
	if l == "" {
		fmt.Fprintln(a.out, "Leader unknown")
		return nil
	}
	fmt.Fprintln(a.out, "Leader:", l)
	return nil
}
