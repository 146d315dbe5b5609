package cluster

import (
	"errors"
	"fmt"
	"sync"

	pb "github.com/dmitrijs2005/replichat/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Pool keeps one lazily created gRPC connection per peer address.
type Pool struct {
	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
	opts  []grpc.DialOption
}

// NewPool returns a pool dialing with insecure credentials and the replichat
// codec. Extra options (e.g. a custom dialer in tests) are appended.
func NewPool(opts ...grpc.DialOption) *Pool {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		pb.CallOption(),
	}
	return &Pool{
		conns: make(map[string]*grpc.ClientConn),
		opts:  append(base, opts...),
	}
}

// Conn returns the connection for addr, creating it on first use. The
// passthrough scheme hands addr to the dialer untouched.
func (p *Pool) Conn(addr string) (*grpc.ClientConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.conns[addr]; ok {
		return c, nil
	}

	c, err := grpc.NewClient("passthrough:///"+addr, p.opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	p.conns[addr] = c
	return c, nil
}

// Replication returns a replication client for addr.
func (p *Pool) Replication(addr string) (pb.ReplicationServiceClient, error) {
	c, err := p.Conn(addr)
	if err != nil {
		return nil, err
	}
	return pb.NewReplicationServiceClient(c), nil
}

// Health returns a health client for addr.
func (p *Pool) Health(addr string) (pb.HealthClient, error) {
	c, err := p.Conn(addr)
	if err != nil {
		return nil, err
	}
	return pb.NewHealthClient(c), nil
}

// Close closes every pooled connection.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for addr, c := range p.conns {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", addr, err))
		}
		delete(p.conns, addr)
	}
	return errors.Join(errs...)
}
