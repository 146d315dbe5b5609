// Package cli provides the interactive replichat command-line client.
//
// It wires configuration, the failover Agent and an interactive REPL. The
// Agent follows the cluster leader in the background and prints pushed
// messages as they arrive; the REPL runs commands against it.
//
// Key features:
//   - Register / Login / Logout / Delete account
//   - Send, list, mark read and unsend messages
//   - Show the registered users and the current leader
//
// The client is started via App.Run(ctx), which blocks until the user exits.
package cli
