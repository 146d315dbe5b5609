package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/replichat/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) credentials() (string, []byte, error) {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return "", nil, err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return userName, password, nil
}

// Register prompts for a username and password and creates the account.
// The password byte slice is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	userName, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.agent.Register(ctx, userName, password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Account created, you can log in now")
	return nil
}

// Login prompts for credentials, logs in and reports the unread count.
func (a *App) Login(ctx context.Context) error {
	userName, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	unread, err := a.agent.Login(ctx, userName, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s, %d unread message(s)\n", userName, unread)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.agent.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// DeleteAccount asks for confirmation before deleting the logged-in account.
func (a *App) DeleteAccount(ctx context.Context) error {
	answer, err := getSimpleText(a.reader, "Delete your account and all messages? Type 'yes' to confirm", a.out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "yes") {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}
	if err := a.agent.DeleteAccount(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Account deleted")
	return nil
}
