// Package election decides, on every node, whether it is the leader.
//
// Priority is fixed: the member with the lowest id among those reachable is
// the leader. There are no terms, votes or persisted outcomes, so during a
// network partition two nodes can each believe they lead.
package election

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/replichat/internal/common"
	"github.com/dmitrijs2005/replichat/internal/logging"
	"github.com/dmitrijs2005/replichat/internal/server/cluster"
	"golang.org/x/sync/errgroup"
)

// DefaultInterval is the time between election ticks.
const DefaultInterval = 2 * time.Second

// Role of a node.
type Role string

const (
	RoleBackup Role = "backup"
	RoleLeader Role = "leader"
)

// Prober reports peer liveness.
type Prober interface {
	Probe(ctx context.Context, addr string) bool
}

// Elector runs the fixed-priority election for one node.
type Elector struct {
	members  *cluster.Membership
	peers    *cluster.PeerTable
	prober   Prober
	interval time.Duration
	logger   logging.Logger

	onPromote func(ctx context.Context)
	onChange  func(role Role, leaderID int)

	mu       sync.RWMutex
	role     Role
	leaderID int
}

// New returns an elector in the backup role with no known leader.
func New(members *cluster.Membership, peers *cluster.PeerTable, prober Prober, interval time.Duration, l logging.Logger) *Elector {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Elector{
		members:  members,
		peers:    peers,
		prober:   prober,
		interval: interval,
		logger:   l.With("module", "election"),
		role:     RoleBackup,
	}
}

// OnPromote registers a hook run after every backup -> leader transition,
// once the peer table has started its new incarnation.
func (e *Elector) OnPromote(fn func(ctx context.Context)) {
	e.onPromote = fn
}

// OnChange registers a hook run whenever the role or the leader id changes.
func (e *Elector) OnChange(fn func(role Role, leaderID int)) {
	e.onChange = fn
}

// Run ticks immediately and then every interval until ctx is done.
func (e *Elector) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.Tick(ctx)
	for {
		select {
		case <-ticker.C:
			e.Tick(ctx)
		case <-ctx.Done():
			e.logger.Info(ctx, "Election loop stopped")
			return
		}
	}
}

// Tick probes every higher-priority member and settles this node's role. A
// cancelled ctx leaves the role untouched, since every probe would fail.
func (e *Elector) Tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	candidates := e.members.HigherPriority()
	alive := make([]bool, len(candidates))

	var g errgroup.Group
	for i, n := range candidates {
		g.Go(func() error {
			alive[i] = e.prober.Probe(ctx, n.Address)
			return nil
		})
	}
	_ = g.Wait()

	leaderID := e.members.Self().ID
	for i, n := range candidates {
		e.peers.Observe(n.ID, alive[i])
		if alive[i] && n.ID < leaderID {
			leaderID = n.ID
		}
	}

	role := RoleBackup
	if leaderID == e.members.Self().ID {
		role = RoleLeader
	}

	e.mu.Lock()
	prevRole, prevLeader := e.role, e.leaderID
	e.role, e.leaderID = role, leaderID
	e.mu.Unlock()

	e.logger.Debug(ctx, "Election tick", "role", role, "leader", leaderID)

	if prevRole == role && prevLeader == leaderID {
		return
	}
	e.logger.Info(ctx, "Election outcome changed", "role", role, "leader", leaderID, "previous_leader", prevLeader)

	if prevRole != RoleLeader && role == RoleLeader {
		e.peers.Reset()
		if e.onPromote != nil {
			e.onPromote(ctx)
		}
	}
	if e.onChange != nil {
		e.onChange(role, leaderID)
	}
}

// Role returns the current role.
func (e *Elector) Role() Role {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.role
}

// IsLeader reports whether this node currently believes it leads.
func (e *Elector) IsLeader() bool {
	return e.Role() == RoleLeader
}

// LeaderID returns the believed leader id, 0 when not yet known.
func (e *Elector) LeaderID() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.leaderID
}

// LeaderAddress returns the address of the believed leader.
func (e *Elector) LeaderAddress() (string, error) {
	n, ok := e.members.Node(e.LeaderID())
	if !ok {
		return "", common.ErrLeaderUnknown
	}
	return n.Address, nil
}
