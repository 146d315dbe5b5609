// Package replication fans leader mutations out to the backups and counts
// acknowledgements against the cluster majority.
package replication

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/replichat/internal/common"
	"github.com/dmitrijs2005/replichat/internal/logging"
	pb "github.com/dmitrijs2005/replichat/internal/proto"
	"github.com/dmitrijs2005/replichat/internal/server/cluster"
	"github.com/dmitrijs2005/replichat/internal/server/metrics"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds one fan-out round.
const DefaultTimeout = 2 * time.Second

// Call sends one replication RPC and reports the peer's success flag.
type Call func(ctx context.Context, c pb.ReplicationServiceClient) (bool, error)

// ClientSource hands out a replication client for an address.
type ClientSource interface {
	Replication(addr string) (pb.ReplicationServiceClient, error)
}

type Coordinator struct {
	members *cluster.Membership
	peers   *cluster.PeerTable
	clients ClientSource
	timeout time.Duration
	metrics *metrics.Metrics
	logger  logging.Logger
}

func NewCoordinator(members *cluster.Membership, peers *cluster.PeerTable, clients ClientSource,
	timeout time.Duration, m *metrics.Metrics, l logging.Logger) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Coordinator{
		members: members,
		peers:   peers,
		clients: clients,
		timeout: timeout,
		metrics: m,
		logger:  l.With("module", "replication"),
	}
}

// Replicate sends call to every reachable peer in parallel. The leader's own
// copy counts as the first ack. A peer that fails at the transport level is
// marked down for the rest of this leader incarnation; one answering
// success=false only withholds its ack.
//
// The fan-out ignores cancellation of ctx, so a disconnecting client cannot
// abort replication of a mutation the leader already committed. Nothing is
// rolled back when the majority is missed.
func (c *Coordinator) Replicate(ctx context.Context, op string, call Call) error {
	targets := c.peers.Reachable()
	c.metrics.SetPeersReachable(len(targets))

	fanCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	var acks atomic.Int32
	acks.Store(1)

	var g errgroup.Group
	for _, peer := range targets {
		g.Go(func() error {
			client, err := c.clients.Replication(peer.Address)
			if err == nil {
				var ok bool
				ok, err = call(fanCtx, client)
				if err == nil {
					if ok {
						acks.Add(1)
						c.metrics.ObserveReplication(op, metrics.ResultAck)
					} else {
						c.metrics.ObserveReplication(op, metrics.ResultNack)
						c.logger.Warn(ctx, "Peer refused replication", "op", op, "peer", peer.ID)
					}
					return nil
				}
			}
			c.peers.MarkDown(peer.ID)
			c.metrics.ObserveReplication(op, metrics.ResultError)
			c.logger.Warn(ctx, "Peer marked down", "op", op, "peer", peer.ID, "error", err)
			return nil
		})
	}
	_ = g.Wait()

	got, need := int(acks.Load()), c.members.Majority()
	if got < need {
		return fmt.Errorf("%s: %d of %d acks: %w", op, got, need, common.ErrReplicationFailed)
	}
	return nil
}
