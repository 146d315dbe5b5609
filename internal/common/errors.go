// Package common defines shared constants and sentinel errors used across
// client and server layers of replichat. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Cluster errors.
	ErrNotLeader         = errors.New("not leader")
	ErrLeaderUnknown     = errors.New("leader unknown")
	ErrReplicationFailed = errors.New("replication failed")

	// Lookup errors.
	ErrorNotFound = errors.New("not found")

	// Idempotency violations.
	ErrAlreadyExists   = errors.New("already exists")
	ErrAlreadyDeleted  = errors.New("already deleted")
	ErrAlreadyLoggedIn = errors.New("already logged in")
	ErrNotLoggedIn     = errors.New("not logged in")
	ErrAlreadyRead     = errors.New("already read")

	// Auth / request validation.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrVersionMismatch    = errors.New("version mismatch")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")
)
