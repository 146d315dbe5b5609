// Package health probes peers for liveness over the Health.Ping RPC.
package health

import (
	"context"
	"time"

	pb "github.com/dmitrijs2005/replichat/internal/proto"
	"google.golang.org/protobuf/types/known/emptypb"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = time.Second

// ClientSource hands out a health client for an address.
type ClientSource interface {
	Health(addr string) (pb.HealthClient, error)
}

// Prober reports whether a peer answers Ping in time.
type Prober struct {
	clients ClientSource
	timeout time.Duration
}

// NewProber returns a Prober. A non-positive timeout selects DefaultTimeout.
func NewProber(clients ClientSource, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{clients: clients, timeout: timeout}
}

// Probe pings addr. Any error or timeout counts as dead.
func (p *Prober) Probe(ctx context.Context, addr string) bool {
	c, err := p.clients.Health(addr)
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := c.Ping(ctx, &emptypb.Empty{})
	if err != nil {
		return false
	}
	return resp.Alive
}
