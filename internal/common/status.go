package common

import (
	"errors"
	"fmt"
)

// Wire status codes carried in every unary response.
const (
	StatusSuccess           = "success"
	StatusNotLeader         = "not_leader"
	StatusNotFound          = "not_found"
	StatusAlreadyExists     = "already_exists"
	StatusAlreadyDeleted    = "already_deleted"
	StatusAlreadyLoggedIn   = "already_logged_in"
	StatusNotLoggedIn       = "not_logged_in"
	StatusAlreadyRead       = "already_read"
	StatusInvalidCreds      = "invalid_credentials"
	StatusInvalidArgument   = "invalid_argument"
	StatusReplicationFailed = "replication_failed"
	StatusVersionMismatch   = "version_mismatch"
	StatusInternal          = "internal"
)

var statusErrors = []struct {
	status string
	err    error
}{
	{StatusNotLeader, ErrNotLeader},
	{StatusNotLeader, ErrLeaderUnknown},
	{StatusNotFound, ErrorNotFound},
	{StatusAlreadyExists, ErrAlreadyExists},
	{StatusAlreadyDeleted, ErrAlreadyDeleted},
	{StatusAlreadyLoggedIn, ErrAlreadyLoggedIn},
	{StatusNotLoggedIn, ErrNotLoggedIn},
	{StatusAlreadyRead, ErrAlreadyRead},
	{StatusInvalidCreds, ErrInvalidCredentials},
	{StatusInvalidArgument, ErrInvalidArgument},
	{StatusReplicationFailed, ErrReplicationFailed},
	{StatusVersionMismatch, ErrVersionMismatch},
}

// StatusOf maps err onto its wire status code. A nil error is a success;
// anything unrecognised is reported as internal.
func StatusOf(err error) string {
	if err == nil {
		return StatusSuccess
	}
	for _, se := range statusErrors {
		if errors.Is(err, se.err) {
			return se.status
		}
	}
	return StatusInternal
}

// ErrorOf is the inverse of StatusOf: it rebuilds a sentinel-wrapped error
// from a wire status and its human-readable message.
func ErrorOf(status, message string) error {
	if status == StatusSuccess {
		return nil
	}
	for _, se := range statusErrors {
		if se.status == status {
			if message == "" {
				return se.err
			}
			return fmt.Errorf("%w: %s", se.err, message)
		}
	}
	if message == "" {
		return ErrorInternal
	}
	return fmt.Errorf("%w: %s", ErrorInternal, message)
}
