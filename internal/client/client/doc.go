// Package client contains the transport side of the replichat CLI.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface) covering
//     every chat RPC a node exposes, plus a push Stream.
//  2. A concrete gRPC implementation (see GRPCClient) bound to a single node.
//     It attaches the protocol version to every call through interceptors and
//     turns response status codes back into the sentinel errors of the
//     common package.
//
// # Error Handling
//
// Response statuses come back as common sentinels (common.ErrNotLeader,
// common.ErrorNotFound, ...) and can be matched with errors.Is. Transport
// failures map to ErrUnavailable.
//
// A GRPCClient talks to exactly one node. Following the leader across
// failovers is the job of services.Agent.
package client
