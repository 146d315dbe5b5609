package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Users(ctx context.Context) error
	Send(ctx context.Context, args []string) error
	Inbox(ctx context.Context) error
	Read(ctx context.Context, args []string) error
	Unsend(ctx context.Context, args []string) error
	DeleteAccount(ctx context.Context) error
	Leader(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the replichat CLI.
//
// It reads a line from reader, parses the first token as the command and the
// rest as its arguments, and dispatches to methods on 'a'. Commands that
// prompt for more input read from the same reader, so nothing is buffered
// past the current line. The loop exits on EOF or when the user types "exit"
// or "quit".
//
//	Not logged in:
//	  - help                       show available commands
//	  - register                   create an account
//	  - login                      authenticate and start receiving pushes
//	  - users                      list registered users
//	  - leader                     show the node currently serving requests
//	  - exit | quit                leave the program
//
//	Logged in, additionally:
//	  - send <user> [text]         send a message
//	  - inbox                      show received messages
//	  - read <user> [count|all]    mark messages from user as read
//	  - unsend <user> <id>         delete a message the user has not read yet
//	  - delete-account             delete the logged-in account
//	  - logout                     log out
//
// A failing command prints its error and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("rc %s > ", statusFn()))
		line, rerr := reader.ReadString('\n')
		if rerr != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: send, inbox, read, unsend, users, leader, delete-account, logout, exit")
			} else {
				printlnFn("Available commands: register, login, users, leader, exit")
			}

		case "register":
			err = a.Register(ctx)

		case "login":
			err = a.Login(ctx)

		case "logout":
			err = a.Logout(ctx)

		case "users":
			err = a.Users(ctx)

		case "send":
			err = a.Send(ctx, args)

		case "inbox":
			err = a.Inbox(ctx)

		case "read":
			err = a.Read(ctx, args)

		case "unsend":
			err = a.Unsend(ctx, args)

		case "delete-account":
			err = a.DeleteAccount(ctx)

		case "leader":
			err = a.Leader(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
