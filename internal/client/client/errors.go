package client

import "errors"

var (
	ErrUnavailable = errors.New("server unavailable")
	ErrNoLeader    = errors.New("no node knows the leader")
	ErrSuperseded  = errors.New("subscription taken over by another session")
)
